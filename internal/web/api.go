package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/felixgeelhaar/cohort/internal/curriculum"
	"github.com/felixgeelhaar/cohort/internal/orchestrate"
	"github.com/felixgeelhaar/cohort/internal/role"
	"github.com/felixgeelhaar/cohort/internal/runtime"
)

func (s *Server) registerAPI(mux *http.ServeMux) {
	// Content viewer
	mux.HandleFunc("GET /api/curriculum", s.getCurriculum)
	mux.HandleFunc("GET /api/content", s.getContent)

	// Orchestration
	mux.HandleFunc("GET /api/agents", s.listAgents)
	mux.HandleFunc("POST /api/tasks", s.executeTask)
	mux.HandleFunc("POST /api/pipeline", s.runPipeline)
	mux.HandleFunc("GET /api/history", s.getHistory)
	mux.HandleFunc("GET /api/report", s.getReport)
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.getRun)

	// System
	mux.HandleFunc("GET /api/status", s.getStatus)
}

func (s *Server) getCurriculum(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.curriculum)
}

func (s *Server) getContent(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	if s.library == nil {
		jsonError(w, "content library not configured", http.StatusNotFound)
		return
	}

	content, err := s.library.Read(path)
	switch {
	case errors.Is(err, curriculum.ErrNotFound):
		jsonError(w, "file not found", http.StatusNotFound)
		return
	case errors.Is(err, curriculum.ErrForbidden):
		jsonError(w, err.Error(), http.StatusForbidden)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"path": path, "content": content})
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.orch.Agents())
}

type taskRequest struct {
	Task string `json:"task"`
	Role string `json:"role"`
}

type taskResponse struct {
	Status   string                    `json:"status"`
	Outcome  orchestrate.Outcome       `json:"outcome"`
	Failures []orchestrate.StepFailure `json:"failures"`
}

func (s *Server) executeTask(w http.ResponseWriter, r *http.Request) {
	var body taskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Task == "" {
		jsonError(w, "task is required", http.StatusBadRequest)
		return
	}
	target, err := role.Parse(body.Role)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := s.orch.ExecuteWithReflection(r.Context(), body.Task, target)
	resp := taskResponse{Status: runtime.StatusCompleted, Outcome: outcome, Failures: []orchestrate.StepFailure{}}
	if err != nil {
		var partial *orchestrate.PartialError
		var unknown *role.UnknownRoleError
		switch {
		case errors.As(err, &partial):
			resp.Status = runtime.StatusPartial
			resp.Failures = partial.Failures
		case errors.As(err, &unknown):
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		default:
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	jsonResponse(w, resp)
}

type pipelineRequest struct {
	Weeks  []int    `json:"weeks"`
	Topics []string `json:"topics"`
}

func (s *Server) runPipeline(w http.ResponseWriter, r *http.Request) {
	var body pipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var topics []orchestrate.Topic
	switch {
	case len(body.Topics) > 0:
		topics = orchestrate.TopicsFromStrings(body.Topics)
	case len(body.Weeks) > 0:
		topics = orchestrate.WeekTopics(body.Weeks)
	default:
		jsonError(w, "weeks or topics are required", http.StatusBadRequest)
		return
	}

	result, err := s.orch.RunPipeline(r.Context(), topics)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	jsonResponse(w, result)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.orch.History())
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.orch.Summary())
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.states.List())
}

type runResponse struct {
	State  *runtime.RunState            `json:"state"`
	Record *orchestrate.ExecutionRecord `json:"record,omitempty"`
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var resp runResponse
	if st, ok := s.states.GetState(id); ok {
		resp.State = &st
	}
	if rec, ok := s.orch.Record(id); ok {
		resp.Record = &rec
	}
	if resp.State == nil && resp.Record == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, resp)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]any{
		"version":   s.version,
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"agents":    len(s.orch.Agents()),
		"ws_online": s.hub.Clients(),
	})
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
