// Package database は処理履歴 (batches, batch_files) の永続化を扱います。
package database

import (
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Open は SQLite データベースを開き、スキーマを適用します。
func Open(path string) (*sqlx.DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	if path == ":memory:" {
		dsn = "file::memory:?_foreign_keys=on"
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if path == ":memory:" {
		// メモリDBは接続ごとに別物になるため1本に固定する
		db.SetMaxOpenConns(1)
	}
	if err := ApplySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ApplySchema はスキーマを実行します。何度実行しても同じ結果になります。
func ApplySchema(db *sqlx.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}
