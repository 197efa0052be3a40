// Package server exposes the dashboard pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/KaramelBytes/sheetcharts/internal/chart"
	"github.com/KaramelBytes/sheetcharts/internal/dashboard"
	"github.com/KaramelBytes/sheetcharts/internal/logging"
)

// Pipeline is the part of dashboard.Service the handlers need.
type Pipeline interface {
	Analyze(ctx context.Context, req dashboard.AnalyzeRequest) (chart.FinalSet, error)
	Resync(ctx context.Context, req dashboard.ResyncRequest) (chart.FinalSet, error)
}

type Options struct {
	CORSOrigins  []string
	MaxBodyBytes int64
	Logger       *slog.Logger
}

type Server struct {
	pipeline Pipeline
	opts     Options
	log      *slog.Logger
	handler  http.Handler
}

const defaultMaxBody = 10 << 20

func New(p Pipeline, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{pipeline: p, opts: opts, log: log}

	router := mux.NewRouter()
	router.HandleFunc("/analyze-sheet", s.handleAnalyze).Methods(http.MethodPost)
	router.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	router.HandleFunc("/resync", s.handleResync).Methods(http.MethodPost)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Use(requestID, s.accessLog)

	s.handler = cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
	}).Handler(router)
	return s
}

// Handler returns the routed handler wrapped in CORS.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("server.listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("server.shutdown")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req dashboard.AnalyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.pipeline.Analyze(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	var req dashboard.ResyncRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.pipeline.Resync(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		s.writeError(w, r, &dashboard.ValidationError{Msg: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}
