package handler

import (
	"log/slog"
	"net/http"

	"github.com/personnel-actions-api/internal/middleware"
)

// Router настраивает маршруты API
type Router struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	actionHandler *ActionHandler
}

// NewRouter создаёт новый роутер
func NewRouter(actionHandler *ActionHandler, logger *slog.Logger) *Router {
	return &Router{
		mux:           http.NewServeMux(),
		logger:        logger,
		actionHandler: actionHandler,
	}
}

// Setup настраивает все маршруты
func (r *Router) Setup() http.Handler {
	r.mux.HandleFunc("GET /types", r.actionHandler.ListTypes)

	r.mux.HandleFunc("GET /actions", r.actionHandler.List)
	r.mux.HandleFunc("POST /actions", r.actionHandler.Create)
	r.mux.HandleFunc("GET /actions/pending", r.actionHandler.ListPending)
	r.mux.HandleFunc("GET /actions/stats", r.actionHandler.Stats)
	r.mux.HandleFunc("GET /actions/{id}", r.actionHandler.GetByID)
	r.mux.HandleFunc("PATCH /actions/{id}", r.actionHandler.Update)
	r.mux.HandleFunc("DELETE /actions/{id}", r.actionHandler.Delete)
	r.mux.HandleFunc("POST /actions/{id}/approve", r.actionHandler.Approve)
	r.mux.HandleFunc("POST /actions/{id}/reject", r.actionHandler.Reject)
	r.mux.HandleFunc("POST /actions/{id}/execute", r.actionHandler.Execute)
	r.mux.HandleFunc("POST /actions/{id}/documents", r.actionHandler.UploadDocument)
	r.mux.HandleFunc("GET /actions/{id}/documents", r.actionHandler.ListDocuments)

	r.mux.HandleFunc("GET /employees/{id}/history", r.actionHandler.EmployeeHistory)

	// Health check
	r.mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Применяем middleware
	handler := middleware.ContentType(r.mux)
	handler = middleware.Logger(r.logger)(handler)
	handler = middleware.Recoverer(r.logger)(handler)

	return handler
}
