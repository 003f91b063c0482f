package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/cuemby/loft/pkg/api"
	"github.com/cuemby/loft/pkg/log"
	"github.com/cuemby/loft/pkg/storage"
	"github.com/cuemby/loft/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lifecycleDevfile = `
schemaVersion: 2.2.0
components:
  - name: tooling
    container:
      image: registry.example.com/tooling:v1
      memoryLimit: 1Gi
      endpoints:
        - name: editor
          targetPort: 3000
          exposure: public
  - name: projects
    volume:
      size: 5Gi
`

// harness runs the full control plane in-process: real BoltDB store,
// real router, real reconciliation pipeline.
type harness struct {
	t       *testing.T
	server  *httptest.Server
	agentID string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log.Init(log.Config{Level: "error"})

	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "loft.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	apiServer := api.New(api.Config{Listen: "127.0.0.1:0"}, store)
	ts := httptest.NewServer(apiServer.Routes())
	t.Cleanup(ts.Close)

	h := &harness{t: t, server: ts}

	var agent types.Agent
	h.post("/api/v1/agents", api.CreateAgentRequest{
		Name:    "cluster-east",
		DNSZone: "workspaces.example.dev",
	}, http.StatusCreated, &agent)
	h.agentID = agent.ID
	return h
}

func (h *harness) post(path string, body any, wantStatus int, out any) {
	h.t.Helper()
	h.do(http.MethodPost, path, body, wantStatus, out)
}

func (h *harness) do(method, path string, body any, wantStatus int, out any) {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.server.URL+path, &buf)
	require.NoError(h.t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	require.Equal(h.t, wantStatus, resp.StatusCode)
	if out != nil {
		require.NoError(h.t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func (h *harness) createWorkspace(name string) types.Workspace {
	h.t.Helper()
	var ws types.Workspace
	h.post("/api/v1/agents/"+h.agentID+"/workspaces", api.CreateWorkspaceRequest{
		Name:    name,
		UserID:  "user-1",
		Devfile: lifecycleDevfile,
	}, http.StatusCreated, &ws)
	return ws
}

func (h *harness) setDesiredState(name string, state types.DesiredState) {
	h.t.Helper()
	h.do(http.MethodPut,
		"/api/v1/agents/"+h.agentID+"/workspaces/"+name+"/desired_state",
		api.SetDesiredStateRequest{DesiredState: state}, http.StatusOK, nil)
}

func (h *harness) reconcile(req types.ReconcileRequest) types.ReconcileResponse {
	h.t.Helper()
	var resp types.ReconcileResponse
	h.post("/api/v1/agents/"+h.agentID+"/reconcile", req, http.StatusOK, &resp)
	return resp
}

// reportDeployment builds the agent-side report for a workspace whose
// deployment has reached the given replica count and condition set.
func reportDeployment(ws types.Workspace, replicas int32, available, progressing string, resourceVersion string) types.WorkspaceAgentInfo {
	conditions := []appsv1.DeploymentCondition{}
	if available != "" {
		status := corev1.ConditionTrue
		if available == "MinimumReplicasUnavailable" {
			status = corev1.ConditionFalse
		}
		conditions = append(conditions, appsv1.DeploymentCondition{
			Type:   appsv1.DeploymentAvailable,
			Status: status,
			Reason: available,
		})
	}
	if progressing != "" {
		conditions = append(conditions, appsv1.DeploymentCondition{
			Type:   appsv1.DeploymentProgressing,
			Status: corev1.ConditionTrue,
			Reason: progressing,
		})
	}

	return types.WorkspaceAgentInfo{
		Name:      ws.Name,
		Namespace: ws.Namespace,
		LatestK8sDeploymentInfo: &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{
				Name:            ws.Name,
				Namespace:       ws.Namespace,
				ResourceVersion: resourceVersion,
			},
			Spec:   appsv1.DeploymentSpec{Replicas: &replicas},
			Status: appsv1.DeploymentStatus{Conditions: conditions},
		},
	}
}

func findInfo(t *testing.T, resp types.ReconcileResponse, name string) types.WorkspaceInfo {
	t.Helper()
	for _, info := range resp.WorkspaceInfos {
		if info.Name == name {
			return info
		}
	}
	t.Fatalf("workspace %q not in response", name)
	return types.WorkspaceInfo{}
}

// TestWorkspaceLifecycle drives a workspace from creation through stop,
// restart, and termination across successive agent polls, the way a real
// agent converges it.
func TestWorkspaceLifecycle(t *testing.T) {
	h := newHarness(t)
	ws := h.createWorkspace("workspace-a")

	// First partial poll: agent has seen nothing, control plane hands it
	// the full config to apply.
	resp := h.reconcile(types.ReconcileRequest{
		UpdateType:          types.UpdateTypePartial,
		WorkspaceAgentInfos: []types.WorkspaceAgentInfo{},
	})
	info := findInfo(t, resp, "workspace-a")
	assert.Equal(t, types.DesiredStateRunning, info.DesiredState)
	assert.NotEmpty(t, info.ConfigToApply)

	// Agent applied it; deployment comes up. Workspace converges to
	// Running and stops being returned on later partial polls.
	resp = h.reconcile(types.ReconcileRequest{
		UpdateType: types.UpdateTypePartial,
		WorkspaceAgentInfos: []types.WorkspaceAgentInfo{
			reportDeployment(ws, 1, "MinimumReplicasAvailable", "NewReplicaSetAvailable", "101"),
		},
	})
	info = findInfo(t, resp, "workspace-a")
	assert.Equal(t, types.ActualStateRunning, info.ActualState)
	assert.Empty(t, info.ConfigToApply)

	resp = h.reconcile(types.ReconcileRequest{
		UpdateType:          types.UpdateTypePartial,
		WorkspaceAgentInfos: []types.WorkspaceAgentInfo{},
	})
	assert.Empty(t, resp.WorkspaceInfos)

	// User stops the workspace. Next poll returns it with a scaled-down
	// config.
	h.setDesiredState("workspace-a", types.DesiredStateStopped)
	resp = h.reconcile(types.ReconcileRequest{
		UpdateType:          types.UpdateTypePartial,
		WorkspaceAgentInfos: []types.WorkspaceAgentInfo{},
	})
	info = findInfo(t, resp, "workspace-a")
	assert.Equal(t, types.DesiredStateStopped, info.DesiredState)
	assert.NotEmpty(t, info.ConfigToApply)

	// Deployment scales to zero; workspace reports Stopped.
	resp = h.reconcile(types.ReconcileRequest{
		UpdateType: types.UpdateTypePartial,
		WorkspaceAgentInfos: []types.WorkspaceAgentInfo{
			reportDeployment(ws, 0, "MinimumReplicasUnavailable", "NewReplicaSetAvailable", "102"),
		},
	})
	info = findInfo(t, resp, "workspace-a")
	assert.Equal(t, types.ActualStateStopped, info.ActualState)

	// Restart request converges back to Running once the stop is
	// observed: the control plane flips the desired state itself.
	h.setDesiredState("workspace-a", types.DesiredStateRestartRequested)
	resp = h.reconcile(types.ReconcileRequest{
		UpdateType: types.UpdateTypePartial,
		WorkspaceAgentInfos: []types.WorkspaceAgentInfo{
			reportDeployment(ws, 0, "MinimumReplicasUnavailable", "NewReplicaSetAvailable", "102"),
		},
	})
	info = findInfo(t, resp, "workspace-a")
	assert.Equal(t, types.DesiredStateRunning, info.DesiredState)
	assert.NotEmpty(t, info.ConfigToApply)

	// Agent reports termination complete: namespace and resource version
	// are suppressed in the response.
	h.setDesiredState("workspace-a", types.DesiredStateTerminated)
	resp = h.reconcile(types.ReconcileRequest{
		UpdateType: types.UpdateTypePartial,
		WorkspaceAgentInfos: []types.WorkspaceAgentInfo{
			{
				Name:                ws.Name,
				Namespace:           ws.Namespace,
				TerminationProgress: types.TerminationProgressTerminated,
			},
		},
	})
	info = findInfo(t, resp, "workspace-a")
	assert.Equal(t, types.ActualStateTerminated, info.ActualState)
	assert.Empty(t, info.Namespace)
	assert.Empty(t, info.DeploymentResourceVersion)
}

// TestFullSyncReturnsEverything exercises the full update path: every
// workspace comes back regardless of convergence.
func TestFullSyncReturnsEverything(t *testing.T) {
	h := newHarness(t)
	ws := h.createWorkspace("workspace-a")
	h.createWorkspace("workspace-b")

	// Converge workspace-a.
	h.reconcile(types.ReconcileRequest{
		UpdateType: types.UpdateTypePartial,
		WorkspaceAgentInfos: []types.WorkspaceAgentInfo{
			reportDeployment(ws, 1, "MinimumReplicasAvailable", "NewReplicaSetAvailable", "101"),
		},
	})

	resp := h.reconcile(types.ReconcileRequest{
		UpdateType:          types.UpdateTypeFull,
		WorkspaceAgentInfos: []types.WorkspaceAgentInfo{},
	})

	require.Len(t, resp.WorkspaceInfos, 2)
	for _, info := range resp.WorkspaceInfos {
		assert.NotEmpty(t, info.ConfigToApply, "full sync always carries config for %s", info.Name)
	}
}
