package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// EventKey 事件的组合去重键.
func EventKey(fileID, itemID uint, locationID uint64, productID uint, at time.Time, step, eventType string) string {
	var b strings.Builder

	b.Grow(96)
	b.WriteString(strconv.FormatUint(uint64(fileID), 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(uint64(itemID), 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(locationID, 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(uint64(productID), 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(at.Unix(), 10))
	b.WriteByte('|')
	b.WriteString(step)
	b.WriteByte('|')
	b.WriteString(eventType)

	return b.String()
}

// HashKey 64 位 xxhash，按位转为 int64 以便存入数据库.
func HashKey(key string) int64 {
	return int64(xxhash.Sum64String(key)) //nolint:gosec // 仅作位模式存储
}
