package service

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"

	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/repository"
	"github.com/hsk3232/DevelopProject/pkg/internal/types"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/queue"
)

// Producer 事件头中的生产者名称.
const Producer = "epcguard"

var (
	// ErrUnavailable context 中没有 Runtime.
	ErrUnavailable = errors.New("service runtime not initialized")
	// ErrUnsupportedFile 只接受 .csv 文件.
	ErrUnsupportedFile = errors.New("only .csv files are accepted")
	// ErrEmptyFile 上传内容为空.
	ErrEmptyFile = errors.New("uploaded file is empty")
	// ErrFileTooLarge 超过 ingest.max_upload_mb.
	ErrFileTooLarge = errors.New("uploaded file exceeds size limit")
	// ErrStorageDisabled 对象存储未配置或不可用.
	ErrStorageDisabled = errors.New("object storage not available")
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(crand.Reader, 0)
)

// newStoredName 生成对象名，同一毫秒内单调递增.
func newStoredName(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), entropy).String() + ".csv"
}

// FileService 处理 CSV 上传、列表与下载.
type FileService struct {
	rt *Runtime
}

// NewFileService 从 context 中的 Runtime 创建 FileService.
func NewFileService(c context.Context) *FileService {
	return &FileService{rt: RuntimeFrom(c)}
}

// Upload 校验并归档 CSV，创建文件记录后执行导入. 导入完成后发布 sc.file.ingested，
// 开启 ingest.auto_analyze 时由监听方或本进程触发分析.
// r 需要支持 Seek：先上传对象存储，再回到开头导入.
func (fs *FileService) Upload(ctx context.Context, user, fileName string, r io.ReadSeeker, size int64) (*types.UploadFileResponse, error) {
	if fs.rt == nil {
		return nil, ErrUnavailable
	}

	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		return nil, ErrUnsupportedFile
	}

	if size == 0 {
		return nil, ErrEmptyFile
	}

	if limit := fs.rt.Config.Ingest.GetMaxUploadBytes(); limit > 0 && size > limit {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, size, limit)
	}

	log := nlog.Component("upload").With().Str("user", user).Str("file_name", fileName).Logger()

	file := &model.File{
		FileName:   filepath.Base(fileName),
		StoredName: newStoredName(time.Now().UTC()),
		Size:       size,
		UploadedBy: user,
	}

	if s3 := fs.rt.Manager.GetS3Client(); s3 != nil {
		key := s3.ObjectKey(user, file.StoredName)
		if _, err := s3.PutCSV(ctx, key, r, size, map[string]string{"original-name": file.FileName}); err != nil {
			return nil, fmt.Errorf("archive csv: %w", err)
		}

		file.Bucket = s3.Bucket()
		file.ObjectKey = key

		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind upload: %w", err)
		}
	}

	if err := fs.rt.Repo.CreateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("create file record: %w", err)
	}

	res, err := fs.rt.NewIngester().Ingest(ctx, file, r)
	if err != nil {
		return nil, err
	}

	if res.Rejected() > 0 {
		log.Warn().Uint("file_id", file.ID).Int("rejected", res.Rejected()).Msg("部分行导入失败")
	}

	resp := &types.UploadFileResponse{
		FileID:    file.ID,
		FileName:  file.FileName,
		ObjectKey: file.ObjectKey,
		Processed: res.Processed,
		Inserted:  res.Inserted,
		Rejected:  res.Rejected(),
		ErrorRows: res.ErrorRows,
	}

	published := fs.publishIngested(file, res.Processed, res.Inserted, res.ErrorRows)

	if fs.rt.Config.Ingest.AutoAnalyze {
		resp.Analyzing = true

		// 已发布时由 sc.file.ingested 的监听方负责分析
		if !published {
			fs.rt.RunDetached(ctx, file.ID, user)
		}
	}

	log.Info().
		Uint("file_id", file.ID).
		Int("processed", res.Processed).
		Int("inserted", res.Inserted).
		Bool("published", published).
		Msg("CSV 上传完成")

	return resp, nil
}

// publishIngested 发布导入完成事件，返回是否成功发布.
func (fs *FileService) publishIngested(file *model.File, processed, inserted int, rows map[string][]int) bool {
	pub := eventPublisher(fs.rt.Manager, fs.rt.Config, fs.rt.Config.Events.Publish.FileIngested)
	if pub == nil {
		return false
	}

	err := queue.PublishFileIngested(pub, queue.FileIngestedPayload{
		File:      FileRef(file),
		Processed: processed,
		Inserted:  inserted,
		Rejected:  rows,
	}, queue.WithProducer(Producer))
	if err != nil {
		nlog.Logger().Warn().Err(err).Uint("file_id", file.ID).Msg("发布导入完成事件失败")

		return false
	}

	return true
}

// List 以游标分页列出用户的文件.
func (fs *FileService) List(ctx context.Context, user string, req *types.ListFilesRequest) (*types.ListFilesResponse, error) {
	if fs.rt == nil {
		return nil, ErrUnavailable
	}

	files, err := fs.rt.Repo.ListFiles(ctx, repository.FileQuery{
		UploadedBy: user,
		Search:     strings.TrimSpace(req.Search),
		Cursor:     req.Cursor,
		Size:       req.Size,
	})
	if err != nil {
		return nil, err
	}

	resp := &types.ListFilesResponse{Files: files}
	if req.Size > 0 && len(files) == req.Size {
		resp.NextCursor = files[len(files)-1].ID
	}

	return resp, nil
}

// Get 返回用户自己的文件，其他用户的文件视为不存在.
func (fs *FileService) Get(ctx context.Context, user string, fileID uint) (*model.File, error) {
	if fs.rt == nil {
		return nil, ErrUnavailable
	}

	return ownedFile(ctx, fs.rt.Repo, user, fileID)
}

// DownloadURL 生成原始 CSV 的预签名下载链接.
func (fs *FileService) DownloadURL(ctx context.Context, user string, fileID uint) (*types.DownloadURLResponse, error) {
	file, err := fs.Get(ctx, user, fileID)
	if err != nil {
		return nil, err
	}

	s3 := fs.rt.Manager.GetS3Client()
	if s3 == nil || file.ObjectKey == "" {
		return nil, ErrStorageDisabled
	}

	u, err := s3.PresignedDownload(ctx, file.ObjectKey, file.FileName)
	if err != nil {
		return nil, err
	}

	return &types.DownloadURLResponse{
		FileID:    file.ID,
		URL:       u.String(),
		ExpiresIn: int(fs.rt.Config.S3.GetPresignExpiry().Seconds()),
	}, nil
}

// FileRef 事件中的文件引用.
func FileRef(f *model.File) queue.FileRef {
	return queue.FileRef{
		FileID:     f.ID,
		FileName:   f.FileName,
		Bucket:     f.Bucket,
		ObjectKey:  f.ObjectKey,
		UploadedBy: f.UploadedBy,
	}
}

func ownedFile(ctx context.Context, repo *repository.Repository, user string, fileID uint) (*model.File, error) {
	file, err := repo.FindFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if user != "" && file.UploadedBy != "" && file.UploadedBy != user {
		return nil, fmt.Errorf("%w: %d", errs.ErrFileNotFound, fileID)
	}

	return file, nil
}
