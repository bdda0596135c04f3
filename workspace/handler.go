// Package workspace は作業セッションの HTTP ハンドラです。
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bakeslip/config"
	"bakeslip/export"
	"bakeslip/extraction"
	"bakeslip/ingest"
	"bakeslip/logging"
	"bakeslip/model"
	"bakeslip/preview"
	"bakeslip/session"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxUploadBytes = 64 << 20

// BatchProcessor はファイル群の抽出と集約を行います。
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, sessionID string, files []model.SourceFile) (ingest.BatchResult, error)
}

// Deps はハンドラが使う依存です。
type Deps struct {
	Store     *session.Store
	Processor BatchProcessor
	PDF       export.PDFRenderer
	Now       func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// sessionView は画面表示用にセッションの派生値を加えたものです。
type sessionView struct {
	session.Session
	UniqueProducts   []string `json:"uniqueProducts"`
	DisplayIssueDate string   `json:"displayIssueDate"`
	TotalTrays       int      `json:"totalTrays"`
}

func newView(s session.Session) sessionView {
	return sessionView{
		Session:          s,
		UniqueProducts:   s.UniqueProducts(),
		DisplayIssueDate: s.DisplayIssueDate(),
		TotalTrays:       s.Data.TotalTrays(),
	}
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// statusFor はドメインエラーを HTTP ステータスに対応付けます。
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, preview.ErrUnknownHandle), errors.Is(err, preview.ErrReleased):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidOrder), errors.Is(err, session.ErrInvalidDate), errors.Is(err, ingest.ErrNoFiles):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrNoOrders):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("session operation failed", zap.Error(err))
	}
	writeJSONError(w, err.Error(), status)
}

// update は fn を適用して結果のセッションを返します。
func (d *Deps) update(w http.ResponseWriter, r *http.Request, fn func(session.Session) (session.Session, error)) {
	s, err := d.Store.Update(chi.URLParam(r, "id"), fn)
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newView(s))
}

func indexParam(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, errors.New("index must be a number")
	}
	return i, nil
}

// CreateSessionHandler は新しいセッションを作成します。
func CreateSessionHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, newView(d.Store.Create()))
	}
}

func GetSessionHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Store.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeSessionError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newView(s))
	}
}

// DeleteSessionHandler はセッションを破棄し、プレビューを解放します。
func DeleteSessionHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Delete(chi.URLParam(r, "id")); err != nil {
			writeSessionError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// UploadFilesHandler は multipart の "file" フィールドをすべてキューに追加します。
func UploadFilesHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeJSONError(w, "failed to read upload: "+err.Error(), http.StatusBadRequest)
			return
		}
		headers := r.MultipartForm.File["file"]
		if len(headers) == 0 {
			writeJSONError(w, "no files were uploaded (expected field \"file\")", http.StatusBadRequest)
			return
		}

		files := make([]model.SourceFile, 0, len(headers))
		for _, h := range headers {
			f, err := h.Open()
			if err != nil {
				writeJSONError(w, "could not open "+h.Filename, http.StatusBadRequest)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeJSONError(w, "could not read "+h.Filename, http.StatusBadRequest)
				return
			}
			files = append(files, model.SourceFile{
				Name:      h.Filename,
				MediaType: extraction.MediaType(h.Filename, h.Header.Get("Content-Type"), data),
				Data:      data,
			})
		}

		s, err := d.Store.Enqueue(chi.URLParam(r, "id"), files...)
		if err != nil {
			writeSessionError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newView(s))
	}
}

func RemoveFileHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := indexParam(r)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		d.update(w, r, func(s session.Session) (session.Session, error) { return s.RemoveFile(i) })
	}
}

// PreviewHandler は画像ならサムネイル PNG を、それ以外は種類ラベルを返します。
func PreviewHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Store.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeSessionError(w, r, err)
			return
		}
		h := preview.Handle(chi.URLParam(r, "handle"))
		if !containsHandle(s.Handles(), h) {
			writeJSONError(w, "preview not found", http.StatusNotFound)
			return
		}
		p, err := d.Store.Previews().Get(h)
		if err != nil {
			writeSessionError(w, r, err)
			return
		}
		if p.HasThumbnail() {
			w.Header().Set("Content-Type", "image/png")
			w.Write(p.Thumbnail)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func containsHandle(handles []preview.Handle, h preview.Handle) bool {
	for _, x := range handles {
		if x == h {
			return true
		}
	}
	return false
}

// ProcessHandler はキューのファイルを抽出し、結果をセッションに取り込みます。
// ファイルごとの失敗はセッションの errors に入り、レスポンスは 200 です。
func ProcessHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s, err := d.Store.Update(id, session.Session.BeginProcessing)
		if err != nil {
			writeSessionError(w, r, err)
			return
		}

		result, err := d.Processor.ProcessBatch(r.Context(), id, s.SourceFiles())
		if err != nil {
			d.update(w, r, func(s session.Session) (session.Session, error) { return s.FailProcessing(err) })
			return
		}
		d.update(w, r, func(s session.Session) (session.Session, error) { return s.CompleteProcessing(result) })
	}
}

func ResetHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.update(w, r, func(s session.Session) (session.Session, error) { return s.Reset(), nil })
	}
}

// traysText は数値と文字列のどちらで送られたトレイ数も文字列として受け取ります。
type traysText string

func (t *traysText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = traysText(s)
		return nil
	}
	*t = traysText(strings.TrimSpace(string(b)))
	return nil
}

type orderRequest struct {
	Route       string    `json:"route"`
	Product     string    `json:"product"`
	Trays       traysText `json:"trays"`
	Placeholder bool      `json:"placeholder"`
}

func decodeOrder(w http.ResponseWriter, r *http.Request) (orderRequest, bool) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func UpdateOrderHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := indexParam(r)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		req, ok := decodeOrder(w, r)
		if !ok {
			return
		}
		d.update(w, r, func(s session.Session) (session.Session, error) {
			return s.UpdateOrder(i, req.Route, req.Product, string(req.Trays))
		})
	}
}

func DeleteOrderHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := indexParam(r)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		d.update(w, r, func(s session.Session) (session.Session, error) { return s.DeleteOrder(i) })
	}
}

func ToggleStockHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := indexParam(r)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		d.update(w, r, func(s session.Session) (session.Session, error) { return s.ToggleStock(i) })
	}
}

// AddOrderHandler は検証済みの注文、または {"placeholder": true} で空の注文を追加します。
func AddOrderHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeOrder(w, r)
		if !ok {
			return
		}
		d.update(w, r, func(s session.Session) (session.Session, error) {
			if req.Placeholder {
				return s.AddPlaceholderOrder()
			}
			return s.AddOrder(req.Route, req.Product, string(req.Trays))
		})
	}
}

// ProductHandler は共通製品名を設定し、apply なら全注文に適用します。
func ProductHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Product string `json:"product"`
			Apply   bool   `json:"apply"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		d.update(w, r, func(s session.Session) (session.Session, error) {
			next, err := s.SetGlobalProduct(req.Product)
			if err != nil || !req.Apply {
				return next, err
			}
			return next.ApplyProductToAll()
		})
	}
}

func SettingsHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SliceMode    *string `json:"sliceMode"`
			SelectedDate *string `json:"selectedDate"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		var mode model.SliceMode
		if req.SliceMode != nil {
			m, err := model.ParseSliceMode(*req.SliceMode)
			if err != nil {
				writeJSONError(w, err.Error(), http.StatusBadRequest)
				return
			}
			mode = m
		}
		d.update(w, r, func(s session.Session) (session.Session, error) {
			next := s
			var err error
			if mode != "" {
				if next, err = next.SetSliceMode(mode); err != nil {
					return s, err
				}
			}
			if req.SelectedDate != nil {
				if next, err = next.SetSelectedDate(*req.SelectedDate); err != nil {
					return s, err
				}
			}
			return next, nil
		})
	}
}

func StartPreviewHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.update(w, r, session.Session.StartPreview)
	}
}

func EndPreviewHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.update(w, r, session.Session.EndPreview)
	}
}

func companyName() string {
	return config.GetConfig().CompanyName
}
