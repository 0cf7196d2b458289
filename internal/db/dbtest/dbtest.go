// Package dbtest opens a migrated in-memory record store for tests.
package dbtest

import (
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/db"
)

func Open(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open("sqlite", "file::memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })
	return gdb
}
