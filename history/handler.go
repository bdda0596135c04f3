// Package history は処理履歴の HTTP ハンドラです。
package history

import (
	"encoding/json"
	"net/http"
	"strconv"

	"bakeslip/database"
	"bakeslip/logging"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// ListBatchesHandler は最近のバッチを新しい順に返します (?limit=N)。
func ListBatchesHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeJSONError(w, "limit must be a positive number", http.StatusBadRequest)
				return
			}
			limit = n
		}
		batches, err := database.ListRecentBatches(r.Context(), db, limit)
		if err != nil {
			logging.FromContext(r.Context()).Error("failed to list batches", zap.Error(err))
			writeJSONError(w, "failed to load history", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(batches)
	}
}

// BatchFilesHandler はバッチ内のファイルごとの結果を返します。
func BatchFilesHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := database.GetBatchFiles(r.Context(), db, chi.URLParam(r, "id"))
		if err != nil {
			logging.FromContext(r.Context()).Error("failed to load batch files", zap.Error(err))
			writeJSONError(w, "failed to load history", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(files)
	}
}
