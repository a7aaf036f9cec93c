// Package api serves artifact generation and export over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ibeckermayer/proofshot/internal/assembler"
	"github.com/ibeckermayer/proofshot/internal/render"
	"github.com/ibeckermayer/proofshot/internal/types"
)

// Service is the application surface the server exposes; *app.App
// satisfies it
type Service interface {
	Generate(ctx context.Context, req assembler.Request, n int) ([]types.Artifact, error)
	Artifact(id string) (types.Artifact, error)
	Artifacts(limit int) ([]types.Artifact, error)
	UpdateMetrics(id string, overrides map[string]any) (types.Artifact, error)
	DeleteArtifact(id string) error
	Page(ids []string) (*render.Page, error)
	ExportArtifact(ctx context.Context, id string) (types.ImagePayload, error)
	ExportArtifacts(ctx context.Context, ids []string) (types.ArchivePayload, error)
}

// SkippedHeader lists DOM ids left out of an archive
const SkippedHeader = "X-Skipped-Targets"

// Server is chi plus a stdlib http.Server
type Server struct {
	svc    Service
	logger *zap.Logger
	mux    *chi.Mux
	srv    *http.Server
}

// NewServer builds the router for svc
func NewServer(addr string, svc Service, logger *zap.Logger) *Server {
	s := &Server{
		svc:    svc,
		logger: logger.Named("api"),
		mux:    chi.NewRouter(),
	}
	s.routes()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.Use(middleware.RealIP)
	s.mux.Use(middleware.RequestID)
	s.mux.Use(middleware.Recoverer)
	s.mux.Use(s.accessLog)
	s.mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", SkippedHeader},
		MaxAge:         300,
	}))

	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.Route("/api", func(r chi.Router) {
		r.Route("/artifacts", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleGenerate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGet)
				r.Delete("/", s.handleDelete)
				r.Put("/metrics", s.handleUpdateMetrics)
				r.Get("/card", s.handleCard)
				r.Get("/image", s.handleImage)
			})
		})
		r.Post("/exports", s.handleExport)
	})
}

// accessLog logs one line per request
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http listening", zap.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
