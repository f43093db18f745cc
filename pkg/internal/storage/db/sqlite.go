//go:build !no_sqlite

package db

import "strings"

// withSQLitePragmas 在 DSN 上追加驱动相关的参数，内存库不追加 WAL.
func withSQLitePragmas(dsn, pragmas string) string {
	if strings.Contains(dsn, ":memory:") {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	return dsn + sep + pragmas
}
