package storage

import (
	"errors"

	"github.com/cuemby/loft/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for control-plane state storage.
// Implemented by BoltDB-backed storage.
type Store interface {
	// Agents
	CreateAgent(agent *types.Agent) error
	GetAgent(id string) (*types.Agent, error)
	ListAgents() ([]*types.Agent, error)
	DeleteAgent(id string) error

	// Workspaces. Workspaces are keyed by (agent id, workspace name);
	// names are unique within an agent.
	CreateWorkspace(ws *types.Workspace) error
	GetWorkspace(agentID, name string) (*types.Workspace, error)
	ListWorkspacesByAgent(agentID string) ([]*types.Workspace, error)
	UpdateWorkspace(ws *types.Workspace) error

	// Utility
	Close() error
}
