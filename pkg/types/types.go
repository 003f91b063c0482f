package types

import (
	"encoding/json"
	"time"

	appsv1 "k8s.io/api/apps/v1"
)

// Agent represents a remote agent running inside a Kubernetes cluster.
// Agents poll the control plane for workspace updates and apply the
// returned manifests.
type Agent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// DNSZone is the base domain used to build per-workspace hostnames,
	// e.g. "workspaces.example.dev".
	DNSZone string `json:"dns_zone"`
}

// Workspace is the unit of reconciliation: one remote development
// environment owned by a user and scheduled onto exactly one agent.
type Workspace struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	AgentID   string `json:"agent_id"`
	UserID    string `json:"user_id"`

	DesiredState DesiredState `json:"desired_state"`
	ActualState  ActualState  `json:"actual_state"`

	// DeploymentResourceVersion is the opaque version token of the last
	// Deployment the agent observed for this workspace.
	DeploymentResourceVersion string `json:"deployment_resource_version"`

	// ProcessedDevfile is the flattened devfile YAML the workspace was
	// created from. It is resolved once at creation time and treated as
	// opaque input by the manifest generator.
	ProcessedDevfile string `json:"processed_devfile"`

	// MaxHoursBeforeTermination caps workspace lifetime. Once
	// CreatedAt + MaxHoursBeforeTermination has passed, the desired state
	// is forced to Terminated on the next reconciliation cycle.
	MaxHoursBeforeTermination int `json:"max_hours_before_termination"`

	CreatedAt             time.Time `json:"created_at"`
	DesiredStateUpdatedAt time.Time `json:"desired_state_updated_at"`
	RespondedToAgentAt    time.Time `json:"responded_to_agent_at"`
}

// DesiredState is the state the control plane wants a workspace to reach.
type DesiredState string

const (
	DesiredStateCreationRequested DesiredState = "CreationRequested"
	DesiredStateRunning           DesiredState = "Running"
	DesiredStateStopped           DesiredState = "Stopped"
	DesiredStateRestartRequested  DesiredState = "RestartRequested"
	DesiredStateTerminated        DesiredState = "Terminated"
)

// ValidDesiredState reports whether s is one of the known desired states.
func ValidDesiredState(s DesiredState) bool {
	switch s {
	case DesiredStateCreationRequested, DesiredStateRunning, DesiredStateStopped,
		DesiredStateRestartRequested, DesiredStateTerminated:
		return true
	}
	return false
}

// ActualState is the state last observed in the cluster by the agent.
type ActualState string

const (
	ActualStateCreationRequested ActualState = "CreationRequested"
	ActualStateStarting          ActualState = "Starting"
	ActualStateRunning           ActualState = "Running"
	ActualStateStopping          ActualState = "Stopping"
	ActualStateStopped           ActualState = "Stopped"
	ActualStateFailed            ActualState = "Failed"
	ActualStateTerminating       ActualState = "Terminating"
	ActualStateTerminated        ActualState = "Terminated"
	ActualStateError             ActualState = "Error"
	ActualStateUnknown           ActualState = "Unknown"
)

// Terminal reports whether the workspace is being or has been torn down.
// Namespace and deployment resource version are meaningless past this
// point and are suppressed everywhere they would otherwise appear.
func (s ActualState) Terminal() bool {
	return s == ActualStateTerminating || s == ActualStateTerminated
}

// UpdateType selects between a full resync and an incremental update.
type UpdateType string

const (
	UpdateTypeFull    UpdateType = "full"
	UpdateTypePartial UpdateType = "partial"
)

// TerminationProgress is the agent-reported teardown phase of a workspace.
type TerminationProgress string

const (
	TerminationProgressTerminating TerminationProgress = "Terminating"
	TerminationProgressTerminated  TerminationProgress = "Terminated"
)

// ErrorDetails carries an agent-side failure report for one workspace.
type ErrorDetails struct {
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
}

// ErrorTypeApplier is the only error type agents currently report: the
// manifest apply step failed in the cluster.
const ErrorTypeApplier = "applier"

// WorkspaceAgentInfo is the raw, untrusted per-workspace entry of an agent
// reconcile request. The embedded Deployment is whatever the agent last
// read from the cluster and may be missing any or all fields.
type WorkspaceAgentInfo struct {
	Name                    string              `json:"name"`
	Namespace               string              `json:"namespace"`
	LatestK8sDeploymentInfo *appsv1.Deployment  `json:"latest_k8s_deployment_info,omitempty"`
	TerminationProgress     TerminationProgress `json:"termination_progress,omitempty"`
	ErrorDetails            *ErrorDetails       `json:"error_details,omitempty"`
}

// ReconcileRequest is the inbound payload of one agent poll.
type ReconcileRequest struct {
	UpdateType          UpdateType           `json:"update_type"`
	WorkspaceAgentInfos []WorkspaceAgentInfo `json:"workspace_agent_infos"`
}

// AgentInfo is the parsed, normalized form of one WorkspaceAgentInfo.
// It is produced per reconciliation cycle and never persisted.
type AgentInfo struct {
	Name                      string
	Namespace                 string
	ActualState               ActualState
	DeploymentResourceVersion string
}

// WorkspaceInfo is one entry of the reconcile response. ConfigToApply is
// nil unless the agent needs to (re)apply manifests for this workspace.
type WorkspaceInfo struct {
	Name                      string            `json:"name"`
	Namespace                 string            `json:"namespace,omitempty"`
	DesiredState              DesiredState      `json:"desired_state"`
	ActualState               ActualState       `json:"actual_state"`
	DeploymentResourceVersion string            `json:"deployment_resource_version,omitempty"`
	ConfigToApply             []json.RawMessage `json:"config_to_apply"`
}

// ReconcileResponse is the outbound payload of one agent poll.
type ReconcileResponse struct {
	WorkspaceInfos []WorkspaceInfo `json:"workspace_infos"`
}
