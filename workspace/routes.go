package workspace

import "github.com/go-chi/chi/v5"

// Mount は /api/sessions 以下のルートを登録します。
func Mount(r chi.Router, d *Deps) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", CreateSessionHandler(d))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", GetSessionHandler(d))
			r.Delete("/", DeleteSessionHandler(d))

			r.Post("/files", UploadFilesHandler(d))
			r.Delete("/files/{index}", RemoveFileHandler(d))
			r.Get("/previews/{handle}", PreviewHandler(d))

			r.Post("/process", ProcessHandler(d))
			r.Post("/reset", ResetHandler(d))

			r.Post("/orders", AddOrderHandler(d))
			r.Put("/orders/{index}", UpdateOrderHandler(d))
			r.Delete("/orders/{index}", DeleteOrderHandler(d))
			r.Post("/orders/{index}/stock", ToggleStockHandler(d))

			r.Post("/product", ProductHandler(d))
			r.Put("/settings", SettingsHandler(d))

			r.Post("/preview", StartPreviewHandler(d))
			r.Delete("/preview", EndPreviewHandler(d))

			r.Get("/report", ReportHandler(d))
			r.Get("/export.pdf", ExportPDFHandler(d))
			r.Get("/export.xlsx", ExportXLSXHandler(d))
		})
	})
}
