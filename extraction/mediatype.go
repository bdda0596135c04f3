package extraction

import (
	"path/filepath"
	"strings"

	"bakeslip/imaging"
)

var mediaTypesByExt = map[string]string{
	".pdf":   "application/pdf",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".webp":  "image/webp",
	".gif":   "image/gif",
	".csv":   "text/csv",
	".txt":   "text/plain",
	".docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xlsm":  "application/vnd.ms-excel.sheet.macroEnabled.12",
	".xls":   "application/vnd.ms-excel",
	".accdb": "application/msaccess",
}

// IsAcceptedName は取り込み対象の拡張子かどうかです。
func IsAcceptedName(name string) bool {
	_, ok := mediaTypesByExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

// MediaType はファイル名と内容からメディアタイプを決めます。
// declared が具体的な型ならそれを優先します。
func MediaType(name, declared string, data []byte) string {
	declared = strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if mt, ok := mediaTypesByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return strings.SplitN(imaging.DetectMediaType(data), ";", 2)[0]
}
