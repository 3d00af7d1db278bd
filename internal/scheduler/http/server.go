package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/scheduler/jobs"
	"github.com/radieske/sports-bankroll-platform/internal/scheduler/windows"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
)

type Jobs interface {
	Run(ctx context.Context, name string) (store.JobExecution, error)
	LastExecution(ctx context.Context, name string) (*store.JobExecution, error)
	LastSynced(ctx context.Context, w windows.Window) (*time.Time, error)
}

type ExecutionResponse struct {
	ID         int64           `json:"id"`
	Job        string          `json:"job"`
	Status     string          `json:"status"`
	ExecutedAt time.Time       `json:"executed_at"`
	Details    json.RawMessage `json:"details,omitempty"`
}

func newExecutionResponse(e store.JobExecution) ExecutionResponse {
	out := ExecutionResponse{ID: e.ID, Job: e.JobName, Status: e.Status, ExecutedAt: e.ExecutedAt}
	if json.Valid([]byte(e.Details)) {
		out.Details = json.RawMessage(e.Details)
	}
	return out
}

type Server struct {
	log  *zap.Logger
	jobs Jobs
}

func NewServer(log *zap.Logger, j Jobs) *Server {
	return &Server{log: log, jobs: j}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/jobs/{name}", s.trigger)
	r.Get("/jobs/{name}/last", s.last)
	r.Get("/windows", s.windows)
	return r
}

// trigger roda o job de forma síncrona e devolve a execução registrada
func (s *Server) trigger(w http.ResponseWriter, r *http.Request) {
	exec, err := s.jobs.Run(r.Context(), chi.URLParam(r, "name"))
	if errors.Is(err, jobs.ErrUnknownJob) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if errors.Is(err, jobs.ErrNotConfigured) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.internal(w, "run job", err)
		return
	}
	writeJSON(w, http.StatusOK, newExecutionResponse(exec))
}

func (s *Server) last(w http.ResponseWriter, r *http.Request) {
	exec, err := s.jobs.LastExecution(r.Context(), chi.URLParam(r, "name"))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no executions"})
		return
	}
	if err != nil {
		s.internal(w, "last execution", err)
		return
	}
	writeJSON(w, http.StatusOK, newExecutionResponse(*exec))
}

func (s *Server) windows(w http.ResponseWriter, r *http.Request) {
	out := make(map[windows.Window]*time.Time, len(windows.All))
	for _, win := range windows.All {
		last, err := s.jobs.LastSynced(r.Context(), win)
		if err != nil {
			s.internal(w, "last synced", err)
			return
		}
		out[win] = last
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) internal(w http.ResponseWriter, op string, err error) {
	s.log.Error(op+" failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
