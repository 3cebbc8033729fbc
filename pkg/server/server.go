// Package server exposes the agent over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/json-iterator/go"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent"
	"github.com/Suryanshpandey5492/WebVision/pkg/logging"
	"github.com/Suryanshpandey5492/WebVision/pkg/store"
)

const (
	// MsgEmptyQuery is returned when the request carries no query.
	MsgEmptyQuery = "Please enter a query"

	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
	defaultRunLimit = 20
)

// Server answers queries by running the agent and records each run.
type Server struct {
	runner agent.Runner
	store  store.Store
	logger *logging.Logger
	opts   []agent.RunOption
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithRunOptions applies opts to every run started by the server.
func WithRunOptions(opts ...agent.RunOption) Option {
	return func(s *Server) { s.opts = append(s.opts, opts...) }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func New(runner agent.Runner, st store.Store, opts ...Option) *Server {
	s := &Server{
		runner: runner,
		store:  st,
		logger: logging.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Post("/query", s.query)
	r.Get("/runs", s.listRuns)
	r.Get("/runs/{id}", s.getRun)
	r.Get("/health", s.health)
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	return nil
}

type queryRequest struct {
	Query string `json:"query"`
}

type answerPayload struct {
	FinalAnswer *string `json:"final_answer"`
	Errors      *string `json:"errors"`
}

type queryResponse struct {
	Response      answerPayload `json:"response"`
	ExecutionTime string        `json:"execution_time"`
	RunID         string        `json:"run_id,omitempty"`
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	q, err := readQuery(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q == "" {
		writeError(w, http.StatusBadRequest, MsgEmptyQuery)
		return
	}

	start := s.now()
	res, runErr := s.runner.RunTask(r.Context(), q, s.opts...)
	elapsed := s.now().Sub(start)

	if res.RunID != "" {
		if err := s.store.Save(r.Context(), store.FromResult(q, res, s.now())); err != nil {
			s.logger.Errorf("save run %s: %v", res.RunID, err)
		}
	}

	status := http.StatusOK
	if runErr != nil {
		s.logger.Warnf("query %q failed to start: %v", q, runErr)
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, queryResponse{
		Response:      answerPayload{FinalAnswer: res.Answer, Errors: res.Errors},
		ExecutionTime: fmt.Sprintf("%.2f", elapsed.Seconds()),
		RunID:         res.RunID,
	})
}

// readQuery accepts a JSON body or a form field named query.
func readQuery(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		if len(strings.TrimSpace(string(body))) == 0 {
			return "", nil
		}
		var req queryRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return "", fmt.Errorf("invalid JSON body: %w", err)
		}
		return strings.TrimSpace(req.Query), nil
	}
	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("invalid form: %w", err)
	}
	return strings.TrimSpace(r.FormValue("query")), nil
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Errorf("get run %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.logger.Errorf("list runs: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if r.URL.Path == "/health" {
			return
		}
		s.logger.Infof("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(),
			time.Since(start).Round(time.Millisecond), middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
