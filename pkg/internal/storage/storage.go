// Package storage 聚合数据库、对象存储、消息队列、键值缓存与分析锁等外部资源.
//
// Example:
//
//	ctx := context.Background()
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//		// 处理错误
//	}
//
//	dbClient := mgr.GetDBClient()
//	mqClient := mgr.GetMQClient() // 可能为 nil
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	dbc "github.com/hsk3232/DevelopProject/pkg/internal/storage/db"
	kvc "github.com/hsk3232/DevelopProject/pkg/internal/storage/kv"
	lockc "github.com/hsk3232/DevelopProject/pkg/internal/storage/lock"
	mqc "github.com/hsk3232/DevelopProject/pkg/internal/storage/mq"
	s3c "github.com/hsk3232/DevelopProject/pkg/internal/storage/s3"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
)

// Manager 聚合所有存储资源，DB 必需，其余为可选（未启用或连接失败时为 nil）.
type Manager struct {
	DB   *dbc.Client
	S3   *s3c.Client
	MQ   *mqc.Client
	KV   *kvc.Client
	Lock lockc.Locker
}

var (
	mgr     *Manager
	mgrErr  error
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置. 重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	mgrOnce.Do(func() {
		mgr, mgrErr = New(ctx, configs.GetConfig())
	})

	return mgr, mgrErr
}

// New 按给定配置创建 Manager，不影响全局实例.
func New(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	logger := nlog.Component("storage")
	m := &Manager{}

	dbi, err := dbc.New(ctx, &cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	m.DB = dbi

	if cfg.S3.Enabled {
		if s3i, e := s3c.New(ctx, &cfg.S3); e != nil {
			logger.Warn().Err(e).Msg("s3 unavailable, raw csv archiving disabled")
		} else {
			m.S3 = s3i
		}
	}

	if cfg.MQ.Enabled {
		if mqi, e := mqc.New(ctx, &cfg.MQ); e != nil {
			logger.Warn().Err(e).Msg("mq unavailable, events will not be published")
		} else {
			m.MQ = mqi
		}
	}

	if kvi, e := kvc.NewKVClient(ctx, &cfg.KV); e != nil {
		logger.Warn().Err(e).Str("type", cfg.KV.Type).Msg("kv unavailable, falling back to memory")

		if kvi, e = kvc.NewKVClient(ctx, &configs.KVConfig{Type: string(kvc.KVTypeMemory)}); e == nil {
			m.KV = kvi
		}
	} else {
		m.KV = kvi
	}

	locker, err := lockc.New(ctx, &cfg.Lock)
	if err != nil {
		logger.Warn().Err(err).Str("type", cfg.Lock.Type).Msg("lock backend unavailable, using local lock")

		locker = lockc.NewLocal(lockc.Options{TTL: cfg.Lock.GetTTL()})
	}

	m.Lock = locker

	logger.Info().
		Bool("s3", m.S3 != nil).
		Bool("mq", m.MQ != nil).
		Bool("kv", m.KV != nil).
		Msg("storage manager initialized")

	return m, nil
}

// GetS3Client 获取 S3 客户端.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetLocker 获取分析锁.
func (m *Manager) GetLocker() lockc.Locker {
	return m.Lock
}

// Close 关闭所有资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.Lock != nil {
		errs = append(errs, m.Lock.Close())
	}

	if m.S3 != nil {
		errs = append(errs, m.S3.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
