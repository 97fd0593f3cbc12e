package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/aretw0/warp/internal/logging"
	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/pipeline"
	"github.com/aretw0/warp/pkg/ports"
	"github.com/aretw0/warp/pkg/schema"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxBodySize caps request parameter payloads.
const maxBodySize = 1 << 20

// Builder builds the executor of one request from the decoded request parameters.
type Builder func(params map[string]any) (pipeline.Executor, error)

// Route exposes one pipeline under POST /pipelines/{name}.
type Route struct {
	Build Builder
	View  *domain.ViewSelector
	// Params documents the expected params on GET /pipelines/{name}.
	Params schema.Schema
}

// Server renders pipeline executions over HTTP.
type Server struct {
	routes  map[string]Route
	store   ports.RunStore
	logger  *slog.Logger
	version string
	newID   func() string
}

// Option configures a Server.
type Option func(*Server)

// WithRunStore keeps a snapshot of every execution, served under GET /runs/{id}.
func WithRunStore(store ports.RunStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// NewServer creates a server over the given routes.
func NewServer(routes map[string]Route, opts ...Option) *Server {
	s := &Server{
		routes:  make(map[string]Route, len(routes)),
		logger:  logging.NewNop(),
		version: "dev",
		newID:   uuid.NewString,
	}
	for name, route := range routes {
		s.routes[name] = route
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates the HTTP handler for routes.
func NewHandler(routes map[string]Route, opts ...Option) http.Handler {
	return NewServer(routes, opts...).Routes()
}

// Routes returns the chi router of the server.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/pipelines", s.ListPipelines)
	r.Get("/pipelines/{name}", s.DescribePipeline)
	r.Post("/pipelines/{name}", s.Execute)
	r.Get("/runs", s.ListRuns)
	r.Get("/runs/{id}", s.GetRun)
	r.Delete("/runs/{id}", s.DeleteRun)
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PipelineResponse is the body of GET /pipelines/{name}.
type PipelineResponse struct {
	Name   string        `json:"name"`
	Params schema.Schema `json:"params"`
}

// ExecuteResponse is the body of POST /pipelines/{name}.
type ExecuteResponse struct {
	RunID string         `json:"run_id,omitempty"`
	View  ViewResponse   `json:"view"`
	Model *domain.Model  `json:"model"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ViewResponse describes the selected view.
type ViewResponse struct {
	Kind  domain.ViewKind `json:"kind"`
	Name  string          `json:"name,omitempty"`
	Value any             `json:"value,omitempty"`
}

// ErrorResponse describes a failure.
type ErrorResponse struct {
	Class    string `json:"class"`
	Message  string `json:"message"`
	Position string `json:"position,omitempty"`
}

// Execute handles POST /pipelines/{name}. The JSON body, if any, holds the pipeline params.
func (s *Server) Execute(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	route, ok := s.routes[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown pipeline %q", name), http.StatusNotFound)
		return
	}

	params, err := decodeParams(r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Execute: invalid request body", "pipeline", name, "error", err)
		return
	}

	exec, err := route.Build(params)
	if err != nil {
		failure := domain.Classify(err)
		code := statusFor(failure)
		if failure.Class == domain.ClassOther {
			code = http.StatusBadRequest
		}
		s.writeFailure(w, r, name, code, failure, nil, route.View)
		return
	}

	model, err := exec.Run(r.Context(), nil)
	if err != nil {
		failure := domain.Classify(err)
		s.writeFailure(w, r, name, statusFor(failure), failure, model, route.View)
		return
	}

	resp := ExecuteResponse{
		RunID: s.save(r, name, model),
		View:  viewResponse(model.View(route.View)),
		Model: model,
	}
	code := http.StatusOK
	if model.IsError() {
		// Absorbed validation failures render the error view with 422.
		code = http.StatusUnprocessableEntity
		resp.Error = &ErrorResponse{Class: domain.ClassValidation.String(), Message: model.ErrorMessageText()}
	}
	s.writeJSON(w, code, resp)
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, name string, code int, f domain.Failure, model *domain.Model, sel *domain.ViewSelector) {
	resp := ExecuteResponse{
		Error: &ErrorResponse{Class: f.Class.String(), Message: f.Err.Error()},
	}

	switch f.Class {
	case domain.ClassOther:
		// Unclassified errors may carry internals.
		resp.Error.Message = http.StatusText(code)
		s.logger.Error("Execute failed", "pipeline", name, "error", f.Err)
	case domain.ClassScript:
		if sf, ok := domain.AsScriptFailure(f.Err); ok {
			if loc, ok := sf.SourceLocation(); ok {
				resp.Error.Position = loc.Position
			}
		}
		s.logger.Error("Execute: script failed", "pipeline", name, "error", f.Err)
	default:
		s.logger.Info("Execute: rejected", "pipeline", name, "status", code, "error", f.Err)
	}

	if model != nil && model.IsError() {
		resp.Model = model
		resp.View = viewResponse(model.View(sel))
		resp.RunID = s.save(r, name, model)
	}
	s.writeJSON(w, code, resp)
}

func (s *Server) save(r *http.Request, name string, model *domain.Model) string {
	if s.store == nil {
		return ""
	}
	id := s.newID()
	if err := s.store.Save(r.Context(), id, model); err != nil {
		s.logger.Error("Execute: failed to save run", "pipeline", name, "run_id", id, "error", err)
		return ""
	}
	return id
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	model, err := s.store.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		s.logger.Error("GetRun failed", "run_id", id, "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, model)
}

// DeleteRun handles DELETE /runs/{id}.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		s.logger.Error("DeleteRun failed", "run_id", id, "error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	runs, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		s.logger.Error("ListRuns failed", "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"runs": runs})
}

// ListPipelines handles GET /pipelines.
func (s *Server) ListPipelines(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.routes))
	for name := range s.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	s.writeJSON(w, http.StatusOK, map[string][]string{"pipelines": names})
}

// DescribePipeline handles GET /pipelines/{name}.
func (s *Server) DescribePipeline(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	route, ok := s.routes[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown pipeline %q", name), http.StatusNotFound)
		return
	}
	params := route.Params
	if params == nil {
		params = schema.Schema{}
	}
	s.writeJSON(w, http.StatusOK, PipelineResponse{Name: name, Params: params})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		http.Error(w, "run store not configured", http.StatusNotImplemented)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

// statusFor maps a returned failure to a response code.
func statusFor(f domain.Failure) int {
	if code, ok := domain.Status(f.Err); ok && code >= 400 && code <= 599 {
		return code
	}
	if f.Class == domain.ClassValidation {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func decodeParams(r *http.Request) (map[string]any, error) {
	params := map[string]any{}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return params, nil
}

func viewResponse(v domain.ViewResult) ViewResponse {
	return ViewResponse{Kind: v.Kind, Name: v.Name, Value: v.Value}
}
