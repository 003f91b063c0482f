package reconcile

import (
	"github.com/cuemby/loft/pkg/devfile"
	"github.com/cuemby/loft/pkg/log"
	"github.com/cuemby/loft/pkg/metrics"
	"github.com/cuemby/loft/pkg/types"
)

// Converter serializes workspaces into response entries, generating the
// desired config where the agent needs one.
type Converter struct{}

// NewConverter creates a converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Build produces the response entries for the given workspaces, along
// with the workspaces actually included. Callers must treat the second
// return value, not the input slice, as "communicated to the agent".
//
// config_to_apply is populated only when the agent actually needs to apply
// something: the desired and actual states diverge, this is a full resync,
// or the workspace has never been sent to the agent before. Otherwise it
// stays nil so the agent skips a redundant apply.
//
// A workspace whose config fails to generate is dropped from this cycle's
// response; the agent picks it up again on its next poll.
func (c *Converter) Build(agent *types.Agent, workspaces []*types.Workspace, updateType types.UpdateType) ([]types.WorkspaceInfo, []*types.Workspace) {
	infos := make([]types.WorkspaceInfo, 0, len(workspaces))
	included := make([]*types.Workspace, 0, len(workspaces))

	for _, ws := range workspaces {
		info := types.WorkspaceInfo{
			Name:         ws.Name,
			DesiredState: ws.DesiredState,
			ActualState:  ws.ActualState,
		}

		if !ws.ActualState.Terminal() {
			info.Namespace = ws.Namespace
			info.DeploymentResourceVersion = ws.DeploymentResourceVersion
		}

		if c.needsConfig(ws, updateType) {
			logger := log.WithWorkspace(ws.Name)
			objects, err := devfile.GenerateDesiredConfig(ws, agent)
			if err != nil {
				logger.Error().Err(err).
					Msg("failed to generate desired config, omitting workspace from response")
				continue
			}
			docs, err := devfile.Marshal(objects)
			if err != nil {
				logger.Error().Err(err).
					Msg("failed to serialize desired config, omitting workspace from response")
				continue
			}
			info.ConfigToApply = docs
			metrics.ConfigsGenerated.Inc()
		}

		infos = append(infos, info)
		included = append(included, ws)
		metrics.WorkspacesReturned.Inc()
	}

	return infos, included
}

func (c *Converter) needsConfig(ws *types.Workspace, updateType types.UpdateType) bool {
	if updateType == types.UpdateTypeFull {
		return true
	}
	if string(ws.DesiredState) != string(ws.ActualState) {
		return true
	}
	// Unprovisioned workspace that has never been communicated yet.
	return ws.RespondedToAgentAt.IsZero()
}
