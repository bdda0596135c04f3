// Package watcher は受信フォルダに置かれた注文書を取り込みます。
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bakeslip/extraction"
	"bakeslip/model"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	defaultSettle = 500 * time.Millisecond
	defaultRetry  = 5 * time.Second
	// ProcessedDir は取り込み済みファイルの移動先です。
	ProcessedDir = "processed"
)

// Handler は取り込んだファイルを受け取ります。
type Handler func(ctx context.Context, file model.SourceFile) error

// Inbox はフォルダを監視し、書き込みが落ち着いたファイルを Handler に渡します。
// 渡し終えたファイルは processed フォルダに移動します。
// Handler が失敗したファイルは受信フォルダに残し、retry 後に再度渡します。
type Inbox struct {
	dir    string
	handle Handler
	settle time.Duration
	retry  time.Duration
	logger *zap.Logger
	mu     sync.Mutex

	// pending はパスごとの取り込み予定時刻です。
	pending map[string]time.Time
}

func NewInbox(dir string, handle Handler, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{
		dir:     dir,
		handle:  handle,
		settle:  defaultSettle,
		retry:   defaultRetry,
		logger:  logger.With(zap.String("inbox", dir)),
		pending: make(map[string]time.Time),
	}
}

// SetSettle は書き込み完了とみなすまでの待ち時間を変更します。
func (in *Inbox) SetSettle(d time.Duration) {
	in.settle = d
}

// SetRetry は受け付けられなかったファイルを再度渡すまでの間隔を変更します。
func (in *Inbox) SetRetry(d time.Duration) {
	in.retry = d
}

// Run は ctx が終わるまで監視します。起動時に既にあるファイルも取り込みます。
func (in *Inbox) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(in.dir, ProcessedDir), 0755); err != nil {
		return fmt.Errorf("failed to prepare inbox folder: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(in.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", in.dir, err)
	}
	in.logger.Info("watching inbox folder")

	in.queueExisting()

	tick := in.settle / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				in.touch(event.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Warn("inbox watcher error", zap.Error(err))
		case now := <-ticker.C:
			in.flush(ctx, now)
		}
	}
}

func (in *Inbox) queueExisting() {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		in.logger.Warn("failed to list inbox", zap.Error(err))
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			in.touch(filepath.Join(in.dir, e.Name()))
		}
	}
}

func (in *Inbox) touch(path string) {
	if !extraction.IsAcceptedName(path) {
		return
	}
	in.schedule(path, time.Now().Add(in.settle))
}

func (in *Inbox) schedule(path string, due time.Time) {
	in.mu.Lock()
	in.pending[path] = due
	in.mu.Unlock()
}

// flush は予定時刻を過ぎたファイルを取り込みます。
func (in *Inbox) flush(ctx context.Context, now time.Time) {
	var ready []string
	in.mu.Lock()
	for path, due := range in.pending {
		if !now.Before(due) {
			ready = append(ready, path)
			delete(in.pending, path)
		}
	}
	in.mu.Unlock()

	for _, path := range ready {
		handled, err := in.ingest(ctx, path)
		if err == nil {
			continue
		}
		if !handled {
			in.logger.Warn("inbox file not accepted, will retry",
				zap.String("file", path), zap.Duration("retry", in.retry), zap.Error(err))
			in.schedule(path, now.Add(in.retry))
			continue
		}
		in.logger.Warn("failed to ingest inbox file", zap.String("file", path), zap.Error(err))
	}
}

// ingest はファイルを Handler に渡して processed に移動します。
// handled は Handler が受け付けたかどうかで、false なら再試行の対象です。
func (in *Inbox) ingest(ctx context.Context, path string) (handled bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	name := filepath.Base(path)
	file := model.SourceFile{Name: name, MediaType: extraction.MediaType(name, "", data), Data: data}
	if err := in.handle(ctx, file); err != nil {
		return false, err
	}
	dest := filepath.Join(in.dir, ProcessedDir, time.Now().Format("20060102_150405_")+name)
	if err := os.Rename(path, dest); err != nil {
		return true, fmt.Errorf("failed to move %s: %w", name, err)
	}
	in.logger.Info("queued inbox file", zap.String("file", name))
	return true, nil
}
