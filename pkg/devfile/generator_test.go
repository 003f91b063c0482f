package devfile

import (
	"testing"

	"github.com/cuemby/loft/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
)

func testWorkspace(desired types.DesiredState) *types.Workspace {
	return &types.Workspace{
		ID:               "ws-1",
		Name:             "workspace-abc",
		Namespace:        "ns-workspace-abc",
		AgentID:          "agent-1",
		DesiredState:     desired,
		ProcessedDevfile: testDevfile,
	}
}

func testAgent() *types.Agent {
	return &types.Agent{ID: "agent-1", Name: "cluster-east", DNSZone: "workspaces.example.dev"}
}

func TestGenerateDesiredConfigReplicas(t *testing.T) {
	tests := []struct {
		name     string
		desired  types.DesiredState
		replicas int32
	}{
		{name: "creation requested starts", desired: types.DesiredStateCreationRequested, replicas: 1},
		{name: "running starts", desired: types.DesiredStateRunning, replicas: 1},
		{name: "restart requested starts", desired: types.DesiredStateRestartRequested, replicas: 1},
		{name: "stopped scales to zero", desired: types.DesiredStateStopped, replicas: 0},
		{name: "terminated scales to zero", desired: types.DesiredStateTerminated, replicas: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects, err := GenerateDesiredConfig(testWorkspace(tt.desired), testAgent())
			require.NoError(t, err)

			deployment := objects[0].(*appsv1.Deployment)
			require.NotNil(t, deployment.Spec.Replicas)
			assert.Equal(t, tt.replicas, *deployment.Spec.Replicas)
		})
	}
}

func TestGenerateDesiredConfigLabels(t *testing.T) {
	objects, err := GenerateDesiredConfig(testWorkspace(types.DesiredStateRunning), testAgent())
	require.NoError(t, err)

	deployment := objects[0].(*appsv1.Deployment)
	assert.Equal(t, "workspace-abc", deployment.Labels[WorkspaceLabel])
	assert.Equal(t, "agent-1", deployment.Labels[AgentLabel])
	assert.Equal(t, "ws-1", deployment.Annotations[WorkspaceIDAnnotation])
}

func TestGenerateDesiredConfigBadDevfile(t *testing.T) {
	ws := testWorkspace(types.DesiredStateRunning)
	ws.ProcessedDevfile = "{broken"

	_, err := GenerateDesiredConfig(ws, testAgent())
	assert.Error(t, err)
}
