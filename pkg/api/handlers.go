package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cuemby/loft/pkg/devfile"
	"github.com/cuemby/loft/pkg/metrics"
	"github.com/cuemby/loft/pkg/reconcile"
	"github.com/cuemby/loft/pkg/storage"
	"github.com/cuemby/loft/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxPayloadBytes caps reconcile request bodies. Agents report at most a
// few hundred workspaces; anything past this is malformed or hostile.
const maxPayloadBytes = 8 << 20

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// CreateAgentRequest registers a new cluster agent.
type CreateAgentRequest struct {
	Name    string `json:"name"`
	DNSZone string `json:"dns_zone"`
}

// CreateWorkspaceRequest provisions a new workspace on an agent.
type CreateWorkspaceRequest struct {
	Name                      string             `json:"name,omitempty"`
	UserID                    string             `json:"user_id"`
	Devfile                   string             `json:"devfile"`
	DesiredState              types.DesiredState `json:"desired_state,omitempty"`
	MaxHoursBeforeTermination int                `json:"max_hours_before_termination,omitempty"`
}

// SetDesiredStateRequest changes where the control plane wants a
// workspace to be.
type SetDesiredStateRequest struct {
	DesiredState types.DesiredState `json:"desired_state"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReconcile handles POST /api/v1/agents/{agentID}/reconcile, the
// endpoint agents poll with their observed workspace states.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	agent, ok := s.loadAgent(w, r)
	if !ok {
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "failed to read request body")
		return
	}

	resp, verr := s.processor.Process(agent, payload)
	if verr != nil {
		status := statusForReason(verr.Reason)
		metrics.APIRequestsTotal.WithLabelValues("reconcile", strconv.Itoa(status)).Inc()
		s.writeJSON(w, status, ErrorResponse{Message: verr.Message, Reason: string(verr.Reason)})
		return
	}

	metrics.APIRequestsTotal.WithLabelValues("reconcile", "200").Inc()
	s.writeJSON(w, http.StatusOK, resp)
}

// statusForReason maps a pipeline error reason to an HTTP status. The
// reason set is closed; an unknown value means a pipeline stage violated
// its contract, and that must fail loudly rather than be masked as a 500.
func statusForReason(reason reconcile.Reason) int {
	switch reason {
	case reconcile.ReasonBadRequest:
		return http.StatusBadRequest
	case reconcile.ReasonUnprocessable:
		return http.StatusUnprocessableEntity
	case reconcile.ReasonInternal:
		return http.StatusInternalServerError
	default:
		panic(fmt.Sprintf("unhandled reconcile error reason: %q", reason))
	}
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.DNSZone == "" {
		s.writeError(w, r, http.StatusUnprocessableEntity, "name and dns_zone are required")
		return
	}

	agent := &types.Agent{
		ID:        uuid.NewString(),
		Name:      req.Name,
		DNSZone:   req.DNSZone,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAgent(agent); err != nil {
		s.logger.Error().Err(err).Msg("failed to create agent")
		s.writeError(w, r, http.StatusInternalServerError, "failed to create agent")
		return
	}

	s.writeJSON(w, http.StatusCreated, agent)
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	agent, ok := s.loadAgent(w, r)
	if !ok {
		return
	}

	var req CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Fail fast on devfiles the manifest generator would choke on later.
	if _, err := devfile.Parse(req.Devfile); err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	desired := req.DesiredState
	if desired == "" {
		desired = types.DesiredStateRunning
	}
	if !types.ValidDesiredState(desired) {
		s.writeError(w, r, http.StatusUnprocessableEntity,
			fmt.Sprintf("invalid desired_state %q", desired))
		return
	}

	name := req.Name
	if name == "" {
		name = "workspace-" + uuid.NewString()[:8]
	}
	if _, err := s.store.GetWorkspace(agent.ID, name); err == nil {
		s.writeError(w, r, http.StatusConflict,
			fmt.Sprintf("workspace %q already exists", name))
		return
	}

	now := time.Now().UTC()
	ws := &types.Workspace{
		ID:                        uuid.NewString(),
		Name:                      name,
		Namespace:                 "ns-" + name,
		AgentID:                   agent.ID,
		UserID:                    req.UserID,
		DesiredState:              desired,
		ActualState:               types.ActualStateCreationRequested,
		ProcessedDevfile:          req.Devfile,
		MaxHoursBeforeTermination: req.MaxHoursBeforeTermination,
		CreatedAt:                 now,
		DesiredStateUpdatedAt:     now,
	}
	if err := s.store.CreateWorkspace(ws); err != nil {
		s.logger.Error().Err(err).Str("workspace", name).Msg("failed to create workspace")
		s.writeError(w, r, http.StatusInternalServerError, "failed to create workspace")
		return
	}

	s.logger.Info().
		Str("workspace", ws.Name).
		Str("agent_id", agent.ID).
		Str("desired_state", string(desired)).
		Msg("workspace created")
	s.writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	agent, ok := s.loadAgent(w, r)
	if !ok {
		return
	}

	workspaces, err := s.store.ListWorkspacesByAgent(agent.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list workspaces")
		s.writeError(w, r, http.StatusInternalServerError, "failed to list workspaces")
		return
	}
	if workspaces == nil {
		workspaces = []*types.Workspace{}
	}

	s.writeJSON(w, http.StatusOK, workspaces)
}

func (s *Server) handleSetDesiredState(w http.ResponseWriter, r *http.Request) {
	agent, ok := s.loadAgent(w, r)
	if !ok {
		return
	}

	var req SetDesiredStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !types.ValidDesiredState(req.DesiredState) {
		s.writeError(w, r, http.StatusUnprocessableEntity,
			fmt.Sprintf("invalid desired_state %q", req.DesiredState))
		return
	}

	name := chi.URLParam(r, "name")
	ws, err := s.store.GetWorkspace(agent.ID, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound, "workspace not found")
			return
		}
		s.logger.Error().Err(err).Str("workspace", name).Msg("failed to load workspace")
		s.writeError(w, r, http.StatusInternalServerError, "failed to load workspace")
		return
	}

	ws.DesiredState = req.DesiredState
	ws.DesiredStateUpdatedAt = time.Now().UTC()
	if err := s.store.UpdateWorkspace(ws); err != nil {
		s.logger.Error().Err(err).Str("workspace", name).Msg("failed to update workspace")
		s.writeError(w, r, http.StatusInternalServerError, "failed to update workspace")
		return
	}

	s.logger.Info().
		Str("workspace", ws.Name).
		Str("desired_state", string(req.DesiredState)).
		Msg("desired state updated")
	s.writeJSON(w, http.StatusOK, ws)
}

func (s *Server) loadAgent(w http.ResponseWriter, r *http.Request) (*types.Agent, bool) {
	agentID := chi.URLParam(r, "agentID")
	agent, err := s.store.GetAgent(agentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound, "agent not found")
			return nil, false
		}
		s.logger.Error().Err(err).Str("agent_id", agentID).Msg("failed to load agent")
		s.writeError(w, r, http.StatusInternalServerError, "failed to load agent")
		return nil, false
	}
	return agent, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	metrics.APIRequestsTotal.WithLabelValues(routePattern(r), strconv.Itoa(status)).Inc()
	s.writeJSON(w, status, ErrorResponse{Message: message})
}

// routePattern returns the chi route template rather than the concrete
// URL, keeping metric label cardinality bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
