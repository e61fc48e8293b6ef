// Package server exposes the engine over HTTP/JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"venom/internal/api"
	"venom/internal/engine"
)

// Backend is the set of engine operations served over HTTP.
type Backend interface {
	ListSkills(ctx context.Context) ([]api.Skill, error)
	AddSkill(ctx context.Context, in api.SkillIn, actor string) (api.SkillRef, error)
	ProposeUpgrade(ctx context.Context, in api.UpgradeIn, actor string) (api.UpgradeOut, error)
	ListProjects(ctx context.Context) ([]api.Project, error)
	AddProject(ctx context.Context, in api.ProjectIn, actor string) (api.ProjectRef, error)
	Suggest(ctx context.Context, projectID int64) (api.OptimizerResult, error)
	Simulate(ctx context.Context, skillName string) (api.SimulateOut, error)
	UploadSkill(ctx context.Context, in api.UploadIn) (api.UploadOut, error)
	ActivateSkill(ctx context.Context, in api.ActivateIn) (api.ActivateOut, error)
	ListAudits(ctx context.Context) ([]api.AuditEntry, error)
}

const shutdownTimeout = 5 * time.Second

// Server serves the venom HTTP API.
type Server struct {
	backend Backend
	logger  *zap.Logger
	handler http.Handler
}

// New builds a Server around b.
func New(b Backend, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{backend: b, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /skills", s.handleListSkills)
	mux.HandleFunc("POST /skills", s.handleAddSkill)
	mux.HandleFunc("POST /skills/upgrade", s.handleUpgrade)
	mux.HandleFunc("POST /skills/upload", s.handleUpload)
	mux.HandleFunc("POST /skills/activate", s.handleActivate)
	mux.HandleFunc("GET /projects", s.handleListProjects)
	mux.HandleFunc("POST /projects", s.handleAddProject)
	mux.HandleFunc("GET /optimizer/{project_id}", s.handleOptimizer)
	mux.HandleFunc("GET /audit", s.handleAudit)
	mux.HandleFunc("POST /simulate_task", s.handleSimulate)

	s.handler = chain(mux, withCORS, withTracing, s.withAccessLog, withRequestID)
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		<-errCh
		s.logger.Info("http server stopped")
		return nil
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Status{Status: "ok", Message: "Venom SuperEngine backend running"})
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := s.backend.ListSkills(r.Context())
	s.respond(w, r, skills, err)
}

func (s *Server) handleAddSkill(w http.ResponseWriter, r *http.Request) {
	var in api.SkillIn
	if !s.decode(w, r, &in) {
		return
	}
	out, err := s.backend.AddSkill(r.Context(), in, engine.ActorUser)
	s.respond(w, r, out, err)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	var in api.UpgradeIn
	if !s.decode(w, r, &in) {
		return
	}
	out, err := s.backend.ProposeUpgrade(r.Context(), in, engine.ActorUser)
	s.respond(w, r, out, err)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var in api.UploadIn
	if !s.decode(w, r, &in) {
		return
	}
	out, err := s.backend.UploadSkill(r.Context(), in)
	s.respond(w, r, out, err)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var in api.ActivateIn
	if !s.decode(w, r, &in) {
		return
	}
	out, err := s.backend.ActivateSkill(r.Context(), in)
	s.respond(w, r, out, err)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.backend.ListProjects(r.Context())
	s.respond(w, r, projects, err)
}

func (s *Server) handleAddProject(w http.ResponseWriter, r *http.Request) {
	var in api.ProjectIn
	if !s.decode(w, r, &in) {
		return
	}
	out, err := s.backend.AddProject(r.Context(), in, engine.ActorUser)
	s.respond(w, r, out, err)
}

func (s *Server) handleOptimizer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("project_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorBody{Detail: "project_id must be an integer"})
		return
	}
	out, err := s.backend.Suggest(r.Context(), id)
	s.respond(w, r, out, err)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.backend.ListAudits(r.Context())
	s.respond(w, r, entries, err)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("skill_name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorBody{Detail: "skill_name is required"})
		return
	}
	out, err := s.backend.Simulate(r.Context(), name)
	s.respond(w, r, out, err)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorBody{Detail: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, api.ErrorBody{Detail: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidInput),
		errors.Is(err, engine.ErrUploadMissing),
		errors.Is(err, engine.ErrUnsafeCode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
