// Package ingest はアップロードされた注文書をまとめて抽出し、集約します。
package ingest

import (
	"context"
	"fmt"
	"time"

	"bakeslip/aggregation"
	"bakeslip/extraction"
	"bakeslip/model"
	"bakeslip/parsers"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultMaxParallel = 8

// Journal はバッチ結果の記録先です。
type Journal interface {
	RecordBatch(ctx context.Context, batch model.BatchRecord, files []model.BatchFileRecord) error
}

// Archiver は元ファイルの保管先です。
type Archiver interface {
	Archive(file model.SourceFile, at time.Time) (string, error)
}

// Orchestrator はファイルごとの抽出を並行に行い、成功分だけを集約します。
type Orchestrator struct {
	extractor   extraction.Extractor
	logger      *zap.Logger
	journal     Journal
	archiver    Archiver
	maxParallel int
	now         func() time.Time
}

// Option は Orchestrator の設定です。
type Option func(*Orchestrator)

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithJournal(j Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) { o.archiver = a }
}

// WithMaxParallel は同時に実行する抽出の上限です。0以下は既定値です。
func WithMaxParallel(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxParallel = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator は Orchestrator を作成します。
func NewOrchestrator(extractor extraction.Extractor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		extractor:   extractor,
		logger:      zap.NewNop(),
		maxParallel: defaultMaxParallel,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessBatch は全ファイルの抽出が終わるまで待ち、結果をまとめて返します。
// あるファイルの失敗が他のファイルを止めることはありません。
// error を返すのはファイルが1つもない場合だけで、ファイルごとの失敗は BatchResult に入ります。
func (o *Orchestrator) ProcessBatch(ctx context.Context, sessionID string, files []model.SourceFile) (BatchResult, error) {
	if len(files) == 0 {
		return BatchResult{}, ErrNoFiles
	}

	batchID := uuid.NewString()
	startedAt := o.now()
	logger := o.logger.With(zap.String("batch_id", batchID), zap.String("session_id", sessionID))
	logger.Info("processing batch", zap.Int("files", len(files)))

	o.archiveAll(logger, files, startedAt)

	outcomes := o.extractAll(ctx, logger, files)
	result := merge(outcomes)
	result.ID = batchID

	logger.Info("batch settled",
		zap.Int("orders", len(result.Data.Orders)),
		zap.Int("failed", result.Failed()),
	)

	if o.journal != nil {
		batch, records := journalRecords(batchID, sessionID, startedAt, o.now(), result)
		if err := o.journal.RecordBatch(ctx, batch, records); err != nil {
			logger.Warn("failed to record batch", zap.Error(err))
		}
	}
	return result, nil
}

// extractAll は各ファイルを独立に抽出します。
// 結果は outcomes[i] にだけ書き込み、全件が終わってから読みます。
func (o *Orchestrator) extractAll(ctx context.Context, logger *zap.Logger, files []model.SourceFile) []FileOutcome {
	outcomes := make([]FileOutcome, len(files))

	var g errgroup.Group
	g.SetLimit(o.maxParallel)
	for i, file := range files {
		g.Go(func() error {
			outcomes[i] = o.extractOne(ctx, logger, file)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (o *Orchestrator) extractOne(ctx context.Context, logger *zap.Logger, file model.SourceFile) (outcome FileOutcome) {
	outcome = FileOutcome{Name: file.Name, MediaType: file.MediaType}

	defer func() {
		if r := recover(); r != nil {
			outcome.Data = model.OrderData{}
			outcome.Err = &extraction.ExtractionError{File: file.Name, Reason: fmt.Sprintf("extraction panicked: %v", r)}
		}
		if outcome.Err != nil {
			logger.Warn("file extraction failed", zap.String("file", file.Name), zap.Error(outcome.Err))
		}
	}()

	if err := extraction.CheckSupported(file); err != nil {
		outcome.Err = err
		return outcome
	}
	if o.extractor == nil {
		outcome.Err = &extraction.ExtractionError{File: file.Name, Reason: "no extraction service configured"}
		return outcome
	}

	data, err := o.extractor.Extract(ctx, file)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Data = data
	return outcome
}

func (o *Orchestrator) archiveAll(logger *zap.Logger, files []model.SourceFile, at time.Time) {
	if o.archiver == nil {
		return
	}
	for _, f := range files {
		path, err := o.archiver.Archive(f, at)
		if err != nil {
			logger.Warn("failed to archive source file", zap.String("file", f.Name), zap.Error(err))
			continue
		}
		logger.Debug("archived source file", zap.String("file", f.Name), zap.String("path", path))
	}
}

// merge はファイル順に成功分を正規化して連結し、集約します。
func merge(outcomes []FileOutcome) BatchResult {
	result := BatchResult{Outcomes: outcomes}

	var all []model.Order
	for _, out := range outcomes {
		if out.Err != nil {
			result.Errors = append(result.Errors, out.Message())
			continue
		}
		if len(out.Data.Orders) == 0 {
			continue
		}
		all = append(all, NormalizeOrders(out.Data.Orders)...)
		if result.Data.IssueDate == "" && out.Data.IssueDate != "" {
			result.Data.IssueDate = out.Data.IssueDate
		}
	}

	result.Data.Orders = aggregation.AggregateOrders(all)
	return result
}

// NormalizeOrders は抽出直後の注文の製品名を整え、InStock を false にします。
// 在庫扱いは抽出後に人が付ける印で、書類からは推定しません。
func NormalizeOrders(orders []model.Order) []model.Order {
	out := make([]model.Order, len(orders))
	for i, o := range orders {
		out[i] = model.Order{
			Route:   o.Route,
			Product: parsers.CleanProductName(o.Product),
			Trays:   o.Trays,
			InStock: false,
		}
	}
	return out
}

func journalRecords(batchID, sessionID string, startedAt, finishedAt time.Time, result BatchResult) (model.BatchRecord, []model.BatchFileRecord) {
	batch := model.BatchRecord{
		ID:         batchID,
		SessionID:  sessionID,
		StartedAt:  startedAt.Format(time.RFC3339),
		FinishedAt: finishedAt.Format(time.RFC3339),
		FileCount:  len(result.Outcomes),
		OrderCount: len(result.Data.Orders),
		ErrorCount: result.Failed(),
		IssueDate:  result.Data.IssueDate,
	}
	records := make([]model.BatchFileRecord, 0, len(result.Outcomes))
	for i, out := range result.Outcomes {
		rec := model.BatchFileRecord{
			BatchID:    batchID,
			Position:   i,
			FileName:   out.Name,
			MediaType:  out.MediaType,
			Status:     out.Status(),
			OrderCount: len(out.Data.Orders),
		}
		if out.Err != nil {
			rec.Error = extraction.Reason(out.Err)
		}
		records = append(records, rec)
	}
	return batch, records
}
