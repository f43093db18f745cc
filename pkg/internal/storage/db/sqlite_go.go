//go:build !no_sqlite && !cgo

package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

// createSQLiteDialector 创建SQLite dialector (纯 Go 版本).
func createSQLiteDialector(dsn string) gorm.Dialector {
	return sqlite.Open(withSQLitePragmas(dsn, "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"))
}

func init() {
	RegisterDialectorFactory(configs.SQLite, createSQLiteDialector)
}
