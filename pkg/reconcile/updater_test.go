package reconcile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/loft/pkg/storage"
	"github.com/cuemby/loft/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const updaterTestDevfile = `
schemaVersion: 2.2.0
components:
  - name: tooling
    container:
      image: quay.io/example/workspace-tooling:latest
      endpoints:
        - name: editor
          targetPort: 3000
`

func newTestStore(t *testing.T) *storage.BoltStore {
	t.Helper()
	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "loft.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedAgent(t *testing.T, store storage.Store) *types.Agent {
	t.Helper()
	agent := &types.Agent{ID: "agent-1", Name: "cluster-east", DNSZone: "workspaces.example.dev"}
	require.NoError(t, store.CreateAgent(agent))
	return agent
}

func seedWorkspace(t *testing.T, store storage.Store, ws *types.Workspace) *types.Workspace {
	t.Helper()
	if ws.AgentID == "" {
		ws.AgentID = "agent-1"
	}
	if ws.Namespace == "" {
		ws.Namespace = "ns-" + ws.Name
	}
	if ws.ProcessedDevfile == "" {
		ws.ProcessedDevfile = updaterTestDevfile
	}
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = time.Now().UTC()
	}
	require.NoError(t, store.CreateWorkspace(ws))
	return ws
}

func TestUpdateFromAgentInfos(t *testing.T) {
	store := newTestStore(t)
	agent := seedAgent(t, store)
	seedWorkspace(t, store, &types.Workspace{
		Name:         "workspace-abc",
		DesiredState: types.DesiredStateRunning,
		ActualState:  types.ActualStateStarting,
	})

	updater := NewUpdater(store)
	updated := updater.UpdateFromAgentInfos(agent, []types.AgentInfo{{
		Name:                      "workspace-abc",
		Namespace:                 "ns-workspace-abc",
		ActualState:               types.ActualStateRunning,
		DeploymentResourceVersion: "99",
	}})

	require.Len(t, updated, 1)

	ws, err := store.GetWorkspace(agent.ID, "workspace-abc")
	require.NoError(t, err)
	assert.Equal(t, types.ActualStateRunning, ws.ActualState)
	assert.Equal(t, types.DesiredStateRunning, ws.DesiredState)
	assert.Equal(t, "99", ws.DeploymentResourceVersion)
}

func TestUpdateFromAgentInfosUnknownWorkspaceSkipped(t *testing.T) {
	store := newTestStore(t)
	agent := seedAgent(t, store)

	updater := NewUpdater(store)
	updated := updater.UpdateFromAgentInfos(agent, []types.AgentInfo{{
		Name:        "never-created",
		ActualState: types.ActualStateRunning,
	}})

	assert.Empty(t, updated)
	_, err := store.GetWorkspace(agent.ID, "never-created")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRestartRequestedConvergence(t *testing.T) {
	tests := []struct {
		name            string
		reported        types.ActualState
		expectedDesired types.DesiredState
	}{
		{
			name:            "stopped completes the stop phase",
			reported:        types.ActualStateStopped,
			expectedDesired: types.DesiredStateRunning,
		},
		{
			name:            "stopping leaves restart pending",
			reported:        types.ActualStateStopping,
			expectedDesired: types.DesiredStateRestartRequested,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			agent := seedAgent(t, store)
			seedWorkspace(t, store, &types.Workspace{
				Name:         "workspace-abc",
				DesiredState: types.DesiredStateRestartRequested,
				ActualState:  types.ActualStateRunning,
			})

			updater := NewUpdater(store)
			updater.UpdateFromAgentInfos(agent, []types.AgentInfo{{
				Name:        "workspace-abc",
				ActualState: tt.reported,
			}})

			ws, err := store.GetWorkspace(agent.ID, "workspace-abc")
			require.NoError(t, err)
			assert.Equal(t, tt.expectedDesired, ws.DesiredState)
			assert.Equal(t, tt.reported, ws.ActualState)
		})
	}
}

func TestResourceVersionNotClearedByEmptyReport(t *testing.T) {
	store := newTestStore(t)
	agent := seedAgent(t, store)
	seedWorkspace(t, store, &types.Workspace{
		Name:                      "workspace-abc",
		DesiredState:              types.DesiredStateRunning,
		ActualState:               types.ActualStateRunning,
		DeploymentResourceVersion: "42",
	})

	updater := NewUpdater(store)
	updater.UpdateFromAgentInfos(agent, []types.AgentInfo{{
		Name:        "workspace-abc",
		ActualState: types.ActualStateUnknown,
	}})

	ws, err := store.GetWorkspace(agent.ID, "workspace-abc")
	require.NoError(t, err)
	assert.Equal(t, "42", ws.DeploymentResourceVersion)
}

func TestTerminateOverdue(t *testing.T) {
	store := newTestStore(t)
	agent := seedAgent(t, store)
	now := time.Now().UTC()

	seedWorkspace(t, store, &types.Workspace{
		Name:                      "workspace-old",
		DesiredState:              types.DesiredStateRunning,
		ActualState:               types.ActualStateRunning,
		MaxHoursBeforeTermination: 24,
		CreatedAt:                 now.Add(-25 * time.Hour),
	})
	seedWorkspace(t, store, &types.Workspace{
		Name:                      "workspace-fresh",
		DesiredState:              types.DesiredStateRunning,
		ActualState:               types.ActualStateRunning,
		MaxHoursBeforeTermination: 24,
		CreatedAt:                 now.Add(-1 * time.Hour),
	})
	seedWorkspace(t, store, &types.Workspace{
		Name:         "workspace-unbounded",
		DesiredState: types.DesiredStateRunning,
		ActualState:  types.ActualStateRunning,
		CreatedAt:    now.Add(-1000 * time.Hour),
	})

	updater := NewUpdater(store)
	updater.TerminateOverdue(agent)

	ws, err := store.GetWorkspace(agent.ID, "workspace-old")
	require.NoError(t, err)
	assert.Equal(t, types.DesiredStateTerminated, ws.DesiredState)
	assert.False(t, ws.DesiredStateUpdatedAt.IsZero())

	for _, name := range []string{"workspace-fresh", "workspace-unbounded"} {
		ws, err := store.GetWorkspace(agent.ID, name)
		require.NoError(t, err)
		assert.Equal(t, types.DesiredStateRunning, ws.DesiredState, name)
	}
}

func TestMarkResponded(t *testing.T) {
	store := newTestStore(t)
	agent := seedAgent(t, store)
	ws := seedWorkspace(t, store, &types.Workspace{
		Name:         "workspace-abc",
		DesiredState: types.DesiredStateRunning,
	})

	updater := NewUpdater(store)
	updater.MarkResponded([]*types.Workspace{ws})

	got, err := store.GetWorkspace(agent.ID, "workspace-abc")
	require.NoError(t, err)
	assert.False(t, got.RespondedToAgentAt.IsZero())
}
