package devfile

import (
	"fmt"

	"github.com/cuemby/loft/pkg/types"
	"k8s.io/apimachinery/pkg/runtime"
)

const (
	// WorkspaceLabel identifies all resources belonging to one workspace.
	WorkspaceLabel = "loft.dev/workspace"

	// AgentLabel identifies which agent owns the resources.
	AgentLabel = "loft.dev/agent-id"

	// WorkspaceIDAnnotation carries the control-plane workspace id.
	WorkspaceIDAnnotation = "loft.dev/workspace-id"
)

// GenerateDesiredConfig builds the full manifest list for one workspace
// from its stored devfile and desired state. Any desired state other than
// Stopped or Terminated scales the Deployment to 1 replica; Stopped and
// Terminated scale to 0 but still emit the config so the agent can drive
// the scale-down (and, for Terminated, the eventual prune).
func GenerateDesiredConfig(ws *types.Workspace, agent *types.Agent) ([]runtime.Object, error) {
	df, err := Parse(ws.ProcessedDevfile)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", ws.Name, err)
	}

	started := ws.DesiredState != types.DesiredStateStopped &&
		ws.DesiredState != types.DesiredStateTerminated

	var replicas int32
	if started {
		replicas = 1
	}

	return GenerateAll(df, GenerateOptions{
		Name:           ws.Name,
		Namespace:      ws.Namespace,
		Replicas:       replicas,
		DomainTemplate: "{{.port}}-" + ws.Name + "." + agent.DNSZone,
		Labels: map[string]string{
			WorkspaceLabel: ws.Name,
			AgentLabel:     ws.AgentID,
		},
		Annotations: map[string]string{
			WorkspaceIDAnnotation: ws.ID,
		},
	})
}
