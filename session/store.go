package session

import (
	"errors"
	"slices"
	"sync"
	"time"

	"bakeslip/model"
	"bakeslip/preview"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InboxID は受信フォルダから取り込んだファイルが入る共有セッションです。
const InboxID = "inbox"

// ErrNotFound は存在しないセッションです。
var ErrNotFound = errors.New("session not found")

// Store はセッションをメモリ上で保持します。
// 遷移で不要になったプレビューはここで解放します。
type Store struct {
	mu       sync.Mutex
	sessions map[string]Session
	previews *preview.Registry
	mode     model.SliceMode
	now      func() time.Time
	logger   *zap.Logger
}

// NewStore は Store を作成します。
func NewStore(previews *preview.Registry, defaultMode model.SliceMode, logger *zap.Logger) *Store {
	if previews == nil {
		previews = preview.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]Session),
		previews: previews,
		mode:     defaultMode,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock は選択日付の初期値に使う時計を差し替えます。
func (st *Store) SetClock(now func() time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if now != nil {
		st.now = now
	}
}

// Previews はプレビューの管理先です。
func (st *Store) Previews() *preview.Registry {
	return st.previews
}

// Create は新しいセッションを作成します。
func (st *Store) Create() Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := New(uuid.NewString(), st.now(), st.mode)
	st.sessions[s.ID] = s
	return s
}

// GetOrCreate は id のセッションを返し、なければ作成します。
func (st *Store) GetOrCreate(id string) Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	s := New(id, st.now(), st.mode)
	st.sessions[id] = s
	return s
}

// Get は id のセッションを返します。
func (st *Store) Get(id string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

// Update は fn の結果でセッションを置き換えます。
// fn がエラーを返した場合は何も変更しません。
func (st *Store) Update(id string, fn func(Session) (Session, error)) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	cur, ok := st.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	st.sessions[id] = next
	st.releaseDropped(cur.Handles(), next.Handles())
	return next, nil
}

// Enqueue はファイルのプレビューを作成してキューに追加します。
// 追加できなかった場合、作成したプレビューは解放します。
func (st *Store) Enqueue(id string, files ...model.SourceFile) (Session, error) {
	queued := make([]QueuedFile, len(files))
	for i, f := range files {
		queued[i] = QueuedFile{SourceFile: f, Preview: st.previews.Acquire(f)}
	}
	s, err := st.Update(id, func(s Session) (Session, error) {
		return s.AddFiles(queued...)
	})
	if err != nil {
		for _, q := range queued {
			st.release(q.Preview)
		}
	}
	return s, err
}

// Delete はセッションを破棄し、全プレビューを解放します。
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	for _, h := range s.Handles() {
		st.release(h)
	}
	return nil
}

// Len は保持しているセッション数です。
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *Store) releaseDropped(before, after []preview.Handle) {
	for _, h := range before {
		if !slices.Contains(after, h) {
			st.release(h)
		}
	}
}

func (st *Store) release(h preview.Handle) {
	if err := st.previews.Release(h); err != nil {
		st.logger.Warn("failed to release preview", zap.String("handle", string(h)), zap.Error(err))
	}
}
