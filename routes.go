package main

import (
	"bakeslip/history"
	"bakeslip/logging"
	"bakeslip/workspace"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func SetupRoutes(r chi.Router, dbConn *sqlx.DB, deps *workspace.Deps, logger *zap.Logger) {
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(logger))
	r.Use(logging.Recoverer)

	workspace.Mount(r, deps)

	r.Get("/api/batches", history.ListBatchesHandler(dbConn))
	r.Get("/api/batches/{id}/files", history.BatchFilesHandler(dbConn))

	r.Get("/api/config", GetConfigHandler())
	r.Post("/api/config", SaveConfigHandler())
}
