package reconcile

import (
	"sort"

	"github.com/cuemby/loft/pkg/storage"
	"github.com/cuemby/loft/pkg/types"
)

// FindWorkspacesToBeReturned determines which workspaces must appear in
// the response: everything updated from this cycle's reports, plus any
// workspace with a desired-state change the agent has not seen yet. A
// full update returns every workspace of the agent so it can self-heal
// from arbitrary drift.
func FindWorkspacesToBeReturned(store storage.Store, agent *types.Agent, updateType types.UpdateType, updated map[string]*types.Workspace) ([]*types.Workspace, error) {
	all, err := store.ListWorkspacesByAgent(agent.ID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*types.Workspace, len(all))

	if updateType == types.UpdateTypeFull {
		for _, ws := range all {
			byName[ws.Name] = ws
		}
	} else {
		for _, ws := range all {
			if ws.DesiredStateUpdatedAt.After(ws.RespondedToAgentAt) {
				byName[ws.Name] = ws
			}
		}
	}

	// Workspaces just updated take precedence over the stored copies so
	// the response reflects this cycle's reports.
	for name, ws := range updated {
		byName[name] = ws
	}

	result := make([]*types.Workspace, 0, len(byName))
	for _, ws := range byName {
		result = append(result, ws)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
