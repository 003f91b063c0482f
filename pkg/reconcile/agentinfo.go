package reconcile

import (
	"github.com/cuemby/loft/pkg/metrics"
	"github.com/cuemby/loft/pkg/types"
)

// ParseAgentInfo normalizes one raw agent-reported workspace entry into an
// AgentInfo. Namespace and deployment resource version are suppressed once
// a workspace is being or has been torn down; they have no meaning past
// that point.
func ParseAgentInfo(raw types.WorkspaceAgentInfo) types.AgentInfo {
	state := CalculateActualState(raw.LatestK8sDeploymentInfo, raw.TerminationProgress)

	// A reported applier failure takes precedence over whatever the
	// deployment reading classified; only a termination signal wins
	// over it.
	if raw.ErrorDetails != nil && !state.Terminal() {
		metrics.AgentErrorsReported.WithLabelValues(raw.ErrorDetails.ErrorType).Inc()
		state = types.ActualStateError
	}

	if state.Terminal() {
		return types.AgentInfo{
			Name:        raw.Name,
			ActualState: state,
		}
	}

	var resourceVersion string
	if raw.LatestK8sDeploymentInfo != nil {
		resourceVersion = raw.LatestK8sDeploymentInfo.ResourceVersion
	}

	return types.AgentInfo{
		Name:                      raw.Name,
		Namespace:                 raw.Namespace,
		ActualState:               state,
		DeploymentResourceVersion: resourceVersion,
	}
}

// ParseAgentInfos normalizes a full batch in report order.
func ParseAgentInfos(raw []types.WorkspaceAgentInfo) []types.AgentInfo {
	infos := make([]types.AgentInfo, 0, len(raw))
	for _, r := range raw {
		infos = append(infos, ParseAgentInfo(r))
	}
	return infos
}
