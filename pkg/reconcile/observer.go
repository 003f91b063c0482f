package reconcile

import (
	"github.com/cuemby/loft/pkg/metrics"
	"github.com/cuemby/loft/pkg/types"
	"github.com/rs/zerolog"
)

// Observers are fire-and-forget taps for logging and metrics. They never
// alter data and never affect the pipeline outcome.

func observeAgentInfos(logger zerolog.Logger, updateType types.UpdateType, infos []types.AgentInfo) {
	event := logger.Debug().
		Str("update_type", string(updateType)).
		Int("reported", len(infos))
	if event.Enabled() {
		states := make(map[string]int, len(infos))
		for _, info := range infos {
			states[string(info.ActualState)]++
		}
		event = event.Interface("actual_states", states)
	}
	event.Msg("parsed agent infos")
}

func observeWorkspaceInfos(logger zerolog.Logger, updateType types.UpdateType, infos []types.WorkspaceInfo) {
	configs := 0
	for _, info := range infos {
		if info.ConfigToApply != nil {
			configs++
		}
	}
	logger.Debug().
		Str("update_type", string(updateType)).
		Int("returned", len(infos)).
		Int("configs", configs).
		Msg("built workspace infos")
}

// observeOrphans flags workspaces that exist in storage but were absent
// from a full report. The agent should know about every live workspace on
// a full sync; anything missing has drifted and needs operator attention.
func observeOrphans(logger zerolog.Logger, workspaces []*types.Workspace, reported map[string]*types.Workspace) {
	for _, ws := range workspaces {
		if _, ok := reported[ws.Name]; ok {
			continue
		}
		// Unprovisioned and terminated workspaces are legitimately absent
		// from agent reports.
		if ws.ActualState == types.ActualStateCreationRequested ||
			ws.ActualState == types.ActualStateUnknown ||
			ws.ActualState == types.ActualStateTerminated {
			continue
		}
		metrics.OrphanedWorkspaces.Inc()
		logger.Warn().
			Str("workspace", ws.Name).
			Str("actual_state", string(ws.ActualState)).
			Msg("workspace exists in storage but was not reported by its agent")
	}
}
