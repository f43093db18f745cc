//go:build !no_sqlite && cgo

package db

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

// createSQLiteDialector 创建SQLite dialector (CGo版本)，开启外键与 WAL.
func createSQLiteDialector(dsn string) gorm.Dialector {
	return sqlite.Open(withSQLitePragmas(dsn, "_foreign_keys=on&_journal_mode=WAL"))
}

func init() {
	RegisterDialectorFactory(configs.SQLite, createSQLiteDialector)
}
