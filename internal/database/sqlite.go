package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// sharedMemoryDSN keeps one in-memory database alive across the pool's connections.
const sharedMemoryDSN = "file::memory:?cache=shared&_foreign_keys=1"

func sqliteDialector(cfg Config) (gorm.Dialector, error) {
	dsn, err := buildSQLiteDSN(cfg)
	if err != nil {
		return nil, err
	}
	return sqlite.Open(dsn), nil
}

// buildSQLiteDSN turns a file path into a WAL-mode DSN. Concurrent grant and revoke transactions
// contend on the single writer, so file databases wait on the lock instead of failing with SQLITE_BUSY.
func buildSQLiteDSN(cfg Config) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" || strings.EqualFold(path, ":memory:") {
		return sharedMemoryDSN, nil
	}
	if err := ensureDir(path); err != nil {
		return "", fmt.Errorf("sqlite: prepare %s: %w", path, err)
	}

	params := []string{"_foreign_keys=1", "_journal_mode=WAL", "_busy_timeout=5000"}
	for _, key := range sortedKeys(cfg.Options) {
		params = append(params, key+"="+cfg.Options[key])
	}
	return fmt.Sprintf("file:%s?%s", filepath.ToSlash(path), strings.Join(params, "&")), nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// enableForeignKeys covers DSN overrides that omit _foreign_keys.
func enableForeignKeys(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	return nil
}
