// Package httprouter wires the HTTP API and the web page onto a ServeMux.
package httprouter

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"titan/internal/consts"
	"titan/internal/entity"
	"titan/internal/infrastructure/delivery/http/middleware"
	"titan/internal/jobspec"
	"titan/internal/observability"
	"titan/internal/service"

	"github.com/go-playground/validator/v10"
)

// Service is what the handlers need from the download service.
type Service interface {
	Download(ctx context.Context, req service.DownloadRequest) (*entity.Download, error)
	History(ctx context.Context) ([]entity.HistoryRecord, error)
	WipeHistory(ctx context.Context) error
	PurgeDownloads(ctx context.Context) (int, error)
	File(name string) (string, error)
	Catalog() *jobspec.Catalog
}

// Router is a ServeMux with a global middleware chain.
type Router struct {
	*http.ServeMux
	log            *slog.Logger
	globalChain    []func(http.Handler) http.Handler
	svc            Service
	validate       *validator.Validate
	metrics        *observability.Metrics
	handlerTimeout time.Duration
}

// New builds the router with every route registered.
func New(
	log *slog.Logger,
	svc Service,
	validate *validator.Validate,
	metrics *observability.Metrics,
	handlerTimeout time.Duration,
) *Router {
	if handlerTimeout <= 0 {
		handlerTimeout = consts.DefaultHandlerTimeout
	}

	r := &Router{
		ServeMux:       http.NewServeMux(),
		log:            log.With(slog.String("package", "httprouter")),
		svc:            svc,
		validate:       validate,
		metrics:        metrics,
		handlerTimeout: handlerTimeout,
	}

	r.SetGlobalMiddlewares()
	r.SetRoutes()

	return r
}

// Use appends middleware to the global chain.
func (r *Router) Use(middleware ...func(http.Handler) http.Handler) {
	r.globalChain = append(r.globalChain, middleware...)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.ServeMux

	for _, middleware := range slices.Backward(r.globalChain) {
		h = middleware(h)
	}

	h.ServeHTTP(w, req)
}

func (r *Router) SetGlobalMiddlewares() {
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
		middleware.Metrics(r.metrics),
	)
}

func (r *Router) SetRoutes() {
	r.HandleFunc("GET /{$}", r.Index)
	r.HandleFunc("GET /v1/readyz", r.Readyz)
	r.HandleFunc("GET /v1/qualities", r.Qualities)
	r.HandleFunc("POST /v1/downloads", r.Download)
	r.HandleFunc("GET /v1/files/{name}", r.File)
	r.HandleFunc("DELETE /v1/files", r.PurgeFiles)
	r.HandleFunc("GET /v1/history", r.History)
	r.HandleFunc("DELETE /v1/history", r.WipeHistory)
	r.Handle("GET /metrics", r.metrics.Handler())
}

// withTimeout bounds handlers that do not run a download.
func (r *Router) withTimeout(req *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(req.Context(), r.handlerTimeout)
}
