package reconcile

import (
	"errors"
	"time"

	"github.com/cuemby/loft/pkg/log"
	"github.com/cuemby/loft/pkg/metrics"
	"github.com/cuemby/loft/pkg/storage"
	"github.com/cuemby/loft/pkg/types"
	"github.com/rs/zerolog"
)

// Updater applies agent-reported state to persisted workspaces.
type Updater struct {
	store  storage.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewUpdater creates an updater backed by the given store.
func NewUpdater(store storage.Store) *Updater {
	return &Updater{
		store:  store,
		logger: log.WithComponent("reconcile"),
		now:    time.Now,
	}
}

// UpdateFromAgentInfos applies each reported AgentInfo to its workspace
// row and returns the workspaces that were successfully persisted, keyed
// by name. Reports for unknown workspaces are logged and skipped; agents
// never create workspaces. A persistence failure drops that workspace
// from this cycle's result and processing continues, the agent's next
// poll retries naturally.
func (u *Updater) UpdateFromAgentInfos(agent *types.Agent, infos []types.AgentInfo) map[string]*types.Workspace {
	updated := make(map[string]*types.Workspace, len(infos))

	for _, info := range infos {
		ws, err := u.store.GetWorkspace(agent.ID, info.Name)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				u.logger.Warn().
					Str("agent_id", agent.ID).
					Str("workspace", info.Name).
					Msg("agent reported a workspace that does not exist, skipping")
			} else {
				u.logger.Error().Err(err).
					Str("workspace", info.Name).
					Msg("failed to load workspace")
			}
			continue
		}

		u.applyAgentInfo(ws, info)

		if err := u.store.UpdateWorkspace(ws); err != nil {
			u.logger.Error().Err(err).
				Str("workspace", ws.Name).
				Msg("failed to persist workspace update")
			continue
		}

		metrics.WorkspacesReconciled.WithLabelValues(string(info.ActualState)).Inc()
		updated[ws.Name] = ws
	}

	return updated
}

// applyAgentInfo mutates the workspace per the reconciliation rules, in
// order: termination deadline, actual state, restart convergence, resource
// version bookkeeping.
func (u *Updater) applyAgentInfo(ws *types.Workspace, info types.AgentInfo) {
	u.forceTerminationIfOverdue(ws)

	ws.ActualState = info.ActualState

	// A restart is a stop followed by a start. Once the agent confirms the
	// stop phase, request the start phase. This is the only place desired
	// state changes as a side effect of an agent report.
	if ws.DesiredState == types.DesiredStateRestartRequested &&
		info.ActualState == types.ActualStateStopped {
		u.setDesiredState(ws, types.DesiredStateRunning)
	}

	if info.DeploymentResourceVersion != "" {
		ws.DeploymentResourceVersion = info.DeploymentResourceVersion
	}
}

// TerminateOverdue scans every workspace of the agent and forces the
// desired state of any that outlived its termination deadline. Run on
// full updates so the deadline fires even for workspaces the agent did
// not report this cycle.
func (u *Updater) TerminateOverdue(agent *types.Agent) {
	workspaces, err := u.store.ListWorkspacesByAgent(agent.ID)
	if err != nil {
		u.logger.Error().Err(err).
			Str("agent_id", agent.ID).
			Msg("failed to scan workspaces for termination deadlines")
		return
	}

	for _, ws := range workspaces {
		if ws.DesiredState == types.DesiredStateTerminated {
			continue
		}
		if !u.forceTerminationIfOverdue(ws) {
			continue
		}
		if err := u.store.UpdateWorkspace(ws); err != nil {
			u.logger.Error().Err(err).
				Str("workspace", ws.Name).
				Msg("failed to persist forced termination")
		}
	}
}

func (u *Updater) forceTerminationIfOverdue(ws *types.Workspace) bool {
	if ws.MaxHoursBeforeTermination <= 0 {
		return false
	}
	if ws.DesiredState == types.DesiredStateTerminated {
		return false
	}
	deadline := ws.CreatedAt.Add(time.Duration(ws.MaxHoursBeforeTermination) * time.Hour)
	if u.now().Before(deadline) {
		return false
	}

	u.logger.Info().
		Str("workspace", ws.Name).
		Time("deadline", deadline).
		Msg("workspace exceeded max lifetime, forcing termination")
	u.setDesiredState(ws, types.DesiredStateTerminated)
	return true
}

func (u *Updater) setDesiredState(ws *types.Workspace, state types.DesiredState) {
	ws.DesiredState = state
	ws.DesiredStateUpdatedAt = u.now()
}

// MarkResponded records that the listed workspaces were included in a
// response to their agent. Failures only cost an extra config push on the
// next poll, so they are logged and ignored.
func (u *Updater) MarkResponded(workspaces []*types.Workspace) {
	now := u.now()
	for _, ws := range workspaces {
		ws.RespondedToAgentAt = now
		if err := u.store.UpdateWorkspace(ws); err != nil {
			u.logger.Error().Err(err).
				Str("workspace", ws.Name).
				Msg("failed to record response timestamp")
		}
	}
}
