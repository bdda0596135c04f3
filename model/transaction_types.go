package model

// BatchRecord は batches テーブルのレコードです。
type BatchRecord struct {
	ID         string `db:"id" json:"id"`
	SessionID  string `db:"session_id" json:"sessionId"`
	StartedAt  string `db:"started_at" json:"startedAt"`
	FinishedAt string `db:"finished_at" json:"finishedAt"`
	FileCount  int    `db:"file_count" json:"fileCount"`
	OrderCount int    `db:"order_count" json:"orderCount"`
	ErrorCount int    `db:"error_count" json:"errorCount"`
	IssueDate  string `db:"issue_date" json:"issueDate"`
}

// BatchFileRecord は batch_files テーブルのレコードです。
type BatchFileRecord struct {
	ID         int    `db:"id" json:"id"`
	BatchID    string `db:"batch_id" json:"batchId"`
	Position   int    `db:"position" json:"position"`
	FileName   string `db:"file_name" json:"fileName"`
	MediaType  string `db:"media_type" json:"mediaType"`
	Status     string `db:"status" json:"status"`
	OrderCount int    `db:"order_count" json:"orderCount"`
	Error      string `db:"error" json:"error,omitempty"`
}

const (
	FileStatusSucceeded = "succeeded"
	FileStatusEmpty     = "empty"
	FileStatusFailed    = "failed"
)
