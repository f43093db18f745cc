// Package s3 负责原始 CSV 在 MinIO/S3 上的归档与下载.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
)

// CSVContentType 上传对象的内容类型.
const CSVContentType = "text/csv"

// Client 包装 MinIO 客户端.
type Client struct {
	*minio.Client

	bucket string
	prefix string
	expiry time.Duration
}

// New 初始化 MinIO 客户端，bucket 不存在时尝试创建.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	endpoint := cfg.Endpoint
	secure := cfg.UseSSL
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		secure = secure || u.Scheme == "https"
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("epcguard", configs.AppVersion)

	c := &Client{
		Client: cli,
		bucket: cfg.BucketName,
		prefix: cfg.ObjectPrefix,
		expiry: cfg.GetPresignExpiry(),
	}

	if err := c.EnsureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("bucket", c.bucket).Msg("s3 connected")

	return c, nil
}

// EnsureBucket 确保存储桶存在.
func (c *Client) EnsureBucket(ctx context.Context, region string) error {
	exists, err := c.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", c.bucket, err)
	}

	if exists {
		return nil
	}

	if err := c.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", c.bucket, err)
	}

	nlog.Logger().Info().Str("bucket", c.bucket).Msg("bucket created")

	return nil
}

// Bucket 返回存储桶名称.
func (c *Client) Bucket() string {
	return c.bucket
}

// ObjectKey 生成对象键：<prefix><userID>/<name>.
func (c *Client) ObjectKey(userID, name string) string {
	if userID == "" {
		userID = "anonymous"
	}

	return c.prefix + path.Join(userID, name)
}

// PutCSV 上传 CSV 内容，size 未知时传 -1.
func (c *Client) PutCSV(ctx context.Context, key string, r io.Reader, size int64, meta map[string]string) (minio.UploadInfo, error) {
	info, err := c.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  CSVContentType,
		UserMetadata: meta,
	})
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("put object %s: %w", key, err)
	}

	return info, nil
}

// Open 打开对象用于读取，调用方负责关闭.
func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}

	// GetObject 是惰性的，Stat 触发实际请求以尽早暴露不存在错误
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()

		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}

	return obj, nil
}

// PresignedDownload 生成带附件文件名的下载链接.
func (c *Client) PresignedDownload(ctx context.Context, key, fileName string) (*url.URL, error) {
	params := url.Values{}
	if fileName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	}

	u, err := c.PresignedGetObject(ctx, c.bucket, key, c.expiry, params)
	if err != nil {
		return nil, fmt.Errorf("presign object %s: %w", key, err)
	}

	return u, nil
}

// HealthCheck 通过检查桶是否存在来验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.BucketExists(ctx, c.bucket)

	return err
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}
