// Package testutil holds helpers shared by the tests of several packages.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"chemviz/internal/config"
)

var memDBSeq atomic.Int64

// MemoryDBConfig returns a config for a private in-memory sqlite database.
func MemoryDBConfig(name string) config.DBConfig {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	return config.DBConfig{
		Driver:       config.DriverSqlite,
		DSN:          fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=1", name, memDBSeq.Add(1)),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	}
}

// Count returns the number of rows matched by q.
func Count(t testing.TB, q *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
