package database

import (
	"context"
	"fmt"

	"bakeslip/model"

	"github.com/jmoiron/sqlx"
)

const insertBatchQuery = `
INSERT INTO batches (
    id, session_id, started_at, finished_at, file_count, order_count, error_count, issue_date
) VALUES (
    :id, :session_id, :started_at, :finished_at, :file_count, :order_count, :error_count, :issue_date
)`

const insertBatchFileQuery = `
INSERT INTO batch_files (
    batch_id, position, file_name, media_type, status, order_count, error
) VALUES (
    :batch_id, :position, :file_name, :media_type, :status, :order_count, :error
)`

// Journal はバッチ処理の結果を記録します。
type Journal struct {
	db *sqlx.DB
}

func NewJournal(db *sqlx.DB) *Journal {
	return &Journal{db: db}
}

// RecordBatch はバッチとファイルごとの結果を1トランザクションで保存します。
func (j *Journal) RecordBatch(ctx context.Context, batch model.BatchRecord, files []model.BatchFileRecord) (err error) {
	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, insertBatchQuery, batch); err != nil {
		return fmt.Errorf("RecordBatch (ID: %s) failed: %w", batch.ID, err)
	}
	for _, f := range files {
		f.BatchID = batch.ID
		if _, err = tx.NamedExecContext(ctx, insertBatchFileQuery, f); err != nil {
			return fmt.Errorf("RecordBatch file %q failed: %w", f.FileName, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch %s: %w", batch.ID, err)
	}
	return nil
}

// ListRecentBatches は新しい順に最大 limit 件のバッチを返します。
func ListRecentBatches(ctx context.Context, db *sqlx.DB, limit int) ([]model.BatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	batches := []model.BatchRecord{}
	const q = `SELECT id, session_id, started_at, finished_at, file_count, order_count, error_count, issue_date
		FROM batches ORDER BY started_at DESC, rowid DESC LIMIT ?`
	if err := db.SelectContext(ctx, &batches, q, limit); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}

// GetBatchFiles はバッチ内のファイル結果をアップロード順に返します。
func GetBatchFiles(ctx context.Context, db *sqlx.DB, batchID string) ([]model.BatchFileRecord, error) {
	files := []model.BatchFileRecord{}
	const q = `SELECT id, batch_id, position, file_name, media_type, status, order_count, error
		FROM batch_files WHERE batch_id = ? ORDER BY position`
	if err := db.SelectContext(ctx, &files, q, batchID); err != nil {
		return nil, fmt.Errorf("failed to get files for batch %s: %w", batchID, err)
	}
	return files, nil
}
