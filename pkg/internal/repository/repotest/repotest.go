// Package repotest 为测试提供基于临时 SQLite 文件的 Repository.
package repotest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/repository"
)

// Open 打开并迁移一个测试专用数据库，测试结束时关闭.
func Open(t testing.TB) *repository.Repository {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "epcguard.db") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	repo := repository.New(db, 100)
	require.NoError(t, repo.Migrate(context.Background()))

	return repo
}

// SeedFile 创建一个文件记录.
func SeedFile(t testing.TB, repo *repository.Repository, name string) *model.File {
	t.Helper()

	f := &model.File{FileName: name, StoredName: name, UploadedBy: "tester"}
	require.NoError(t, repo.CreateFile(context.Background(), f))

	return f
}
