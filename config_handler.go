package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"bakeslip/config"
	"bakeslip/logging"

	"go.uber.org/zap"
)

// ヘルパー関数: エラーをJSONで返す
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// GetConfigHandler は現在の設定を返します。API キーは返しません。
func GetConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := config.GetConfig()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cfg)
	}
}

// SaveConfigHandler は設定を保存します。待ち受けアドレスなどは再起動後に反映されます。
func SaveConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var newCfg config.Config
		if err := json.NewDecoder(r.Body).Decode(&newCfg); err != nil {
			writeJSONError(w, "Invalid request body.", http.StatusBadRequest)
			return
		}

		for _, p := range []string{newCfg.ArchiveFolderPath, newCfg.InboxFolderPath} {
			if err := validateFolderPath(r, p); err != nil {
				writeJSONError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		if err := newCfg.Validate(); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := config.SaveConfig(newCfg); err != nil {
			logging.FromContext(r.Context()).Error("failed to save config", zap.Error(err))
			writeJSONError(w, "Failed to save settings.", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Settings saved."})
	}
}

// validateFolderPath は空でなければ既存のフォルダであることを確認します。
func validateFolderPath(r *http.Request, path string) error {
	if path == "" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New("Folder not found: " + path)
		}
		logging.FromContext(r.Context()).Warn("failed to check folder path", zap.String("path", path), zap.Error(err))
		return errors.New("Could not check the folder path.")
	}
	if !info.IsDir() {
		return errors.New("Path is not a folder: " + path)
	}
	return nil
}
