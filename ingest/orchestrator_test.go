package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bakeslip/extraction"
	"bakeslip/model"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeJournal struct {
	mu      sync.Mutex
	batches []model.BatchRecord
	files   [][]model.BatchFileRecord
}

func (j *fakeJournal) RecordBatch(ctx context.Context, batch model.BatchRecord, files []model.BatchFileRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.batches = append(j.batches, batch)
	j.files = append(j.files, files)
	return nil
}

// scripted はファイル名ごとに決まった結果を返す Extractor です。
func scripted(results map[string]func() (model.OrderData, error)) extraction.Extractor {
	return extraction.ExtractorFunc(func(ctx context.Context, file model.SourceFile) (model.OrderData, error) {
		fn, ok := results[file.Name]
		if !ok {
			return model.OrderData{}, errors.New("unexpected file " + file.Name)
		}
		return fn()
	})
}

func ok(data model.OrderData) func() (model.OrderData, error) {
	return func() (model.OrderData, error) { return data, nil }
}

func fail(reason string) func() (model.OrderData, error) {
	return func() (model.OrderData, error) {
		return model.OrderData{}, &extraction.ExtractionError{Reason: reason}
	}
}

func files(names ...string) []model.SourceFile {
	out := make([]model.SourceFile, len(names))
	for i, n := range names {
		out[i] = model.SourceFile{Name: n, MediaType: "application/pdf", Data: []byte("%PDF")}
	}
	return out
}

func TestProcessBatchPartialFailure(t *testing.T) {
	journal := &fakeJournal{}
	o := NewOrchestrator(scripted(map[string]func() (model.OrderData, error){
		"one.pdf": ok(model.OrderData{Orders: []model.Order{{Route: "NAVAN", Product: `B441 4" Regular Tray 60`, Trays: 5}}}),
		"two.pdf": fail("quota exceeded"),
		"three.pdf": ok(model.OrderData{IssueDate: "WED 15 OCT", Orders: []model.Order{
			{Route: "ATHLONE", Product: `B441 4" Regular Tray 60`, Trays: 15},
		}}),
	}), WithJournal(journal))

	result, err := o.ProcessBatch(context.Background(), "s1", files("one.pdf", "two.pdf", "three.pdf"))
	require.NoError(t, err)

	require.Equal(t, []model.Order{
		{Route: "ATHLONE", Product: `4" Regular`, Trays: 15},
		{Route: "NAVAN", Product: `4" Regular`, Trays: 5},
	}, result.Data.Orders)
	require.Equal(t, "WED 15 OCT", result.Data.IssueDate)
	require.Equal(t, []string{"Error with two.pdf: quota exceeded"}, result.Errors)
	require.True(t, result.HasData())
	require.False(t, result.NoData())
	require.ErrorContains(t, result.Err(), "two.pdf")

	require.Len(t, journal.batches, 1)
	require.Equal(t, "s1", journal.batches[0].SessionID)
	require.Equal(t, 3, journal.batches[0].FileCount)
	require.Equal(t, 1, journal.batches[0].ErrorCount)
	require.Equal(t, model.FileStatusFailed, journal.files[0][1].Status)
	require.Equal(t, "quota exceeded", journal.files[0][1].Error)
	require.Equal(t, model.FileStatusSucceeded, journal.files[0][2].Status)
}

func TestProcessBatchAllFailed(t *testing.T) {
	o := NewOrchestrator(scripted(map[string]func() (model.OrderData, error){
		"a.jpg": fail("bad photo"),
		"b.jpg": fail(""),
	}))
	result, err := o.ProcessBatch(context.Background(), "s", files("a.jpg", "b.jpg"))
	require.NoError(t, err)
	require.False(t, result.HasData())
	require.False(t, result.NoData())
	require.Len(t, result.Errors, 2)
	require.Equal(t, "Error with b.jpg: please check the server log", result.Errors[1])
	require.Equal(t, "Error with a.jpg: bad photo\nError with b.jpg: please check the server log", result.ErrorMessage())
}

func TestProcessBatchNoDataExtracted(t *testing.T) {
	o := NewOrchestrator(scripted(map[string]func() (model.OrderData, error){
		"a.pdf": ok(model.OrderData{IssueDate: "MON 01 JAN"}),
		"b.pdf": ok(model.OrderData{Orders: []model.Order{}}),
	}))
	result, err := o.ProcessBatch(context.Background(), "s", files("a.pdf", "b.pdf"))
	require.NoError(t, err)
	require.True(t, result.NoData())
	require.ErrorIs(t, result.Err(), ErrNoDataExtracted)
	require.Equal(t, ErrNoDataExtracted.Error(), result.ErrorMessage())
	require.Equal(t, model.FileStatusEmpty, result.Outcomes[0].Status())
}

func TestProcessBatchRequiresFiles(t *testing.T) {
	_, err := NewOrchestrator(nil).ProcessBatch(context.Background(), "s", nil)
	require.ErrorIs(t, err, ErrNoFiles)
}

func TestProcessBatchRejectsAccessFilesWithoutCallingService(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	ex := extraction.ExtractorFunc(func(ctx context.Context, file model.SourceFile) (model.OrderData, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return model.OrderData{Orders: []model.Order{{Route: "A", Product: "B", Trays: 1}}}, nil
	})
	result, err := NewOrchestrator(ex).ProcessBatch(context.Background(), "s", files("orders.accdb", "scan.pdf"))
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.ErrorIs(t, result.Outcomes[0].Err, extraction.ErrUnsupportedFormat)
	require.Len(t, result.Data.Orders, 1)
}

func TestProcessBatchFirstIssueDateFollowsFileOrder(t *testing.T) {
	// 1件目をわざと遅らせても、採用される日付はファイル順で決まる
	o := NewOrchestrator(scripted(map[string]func() (model.OrderData, error){
		"first.pdf": func() (model.OrderData, error) {
			time.Sleep(30 * time.Millisecond)
			return model.OrderData{IssueDate: "FIRST", Orders: []model.Order{{Route: "A", Product: "P", Trays: 1}}}, nil
		},
		"second.pdf": ok(model.OrderData{IssueDate: "SECOND", Orders: []model.Order{{Route: "B", Product: "P", Trays: 1}}}),
	}))
	result, err := o.ProcessBatch(context.Background(), "s", files("first.pdf", "second.pdf"))
	require.NoError(t, err)
	require.Equal(t, "FIRST", result.Data.IssueDate)
}

func TestProcessBatchRunsRequestsConcurrently(t *testing.T) {
	const n = 4
	var started sync.WaitGroup
	started.Add(n)
	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()

	ex := extraction.ExtractorFunc(func(ctx context.Context, file model.SourceFile) (model.OrderData, error) {
		started.Done()
		select {
		case <-allStarted:
			return model.OrderData{Orders: []model.Order{{Route: file.Name, Product: "P", Trays: 1}}}, nil
		case <-time.After(2 * time.Second):
			return model.OrderData{}, errors.New("requests were not issued concurrently")
		}
	})

	result, err := NewOrchestrator(ex, WithMaxParallel(n)).ProcessBatch(context.Background(), "s", files("a", "b", "c", "d"))
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Len(t, result.Data.Orders, n)
}

func TestProcessBatchRecoversFromPanickingExtractor(t *testing.T) {
	ex := extraction.ExtractorFunc(func(ctx context.Context, file model.SourceFile) (model.OrderData, error) {
		if file.Name == "boom.pdf" {
			panic("nil pointer")
		}
		return model.OrderData{Orders: []model.Order{{Route: "A", Product: "P", Trays: 2}}}, nil
	})
	result, err := NewOrchestrator(ex).ProcessBatch(context.Background(), "s", files("boom.pdf", "fine.pdf"))
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "boom.pdf")
	require.Len(t, result.Data.Orders, 1)
}

func TestNormalizeOrdersResetsStockFlag(t *testing.T) {
	got := NormalizeOrders([]model.Order{{Route: "IN STOCK", Product: "B441 Regular Tray 60", Trays: 3, InStock: true}})
	require.Equal(t, []model.Order{{Route: "IN STOCK", Product: "Regular", Trays: 3}}, got)
}
