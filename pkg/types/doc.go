/*
Package types defines the core data structures shared across Loft packages.

The central entity is the Workspace: a remote development environment with a
desired state (what the control plane wants) and an actual state (what the
agent last observed in its cluster). Reconciliation is the process of
converging the two.

# State Model

Desired states are driven by users and the control plane:

	CreationRequested → Running ⇄ Stopped → Terminated
	                    (RestartRequested = Stopped phase then Running)

Actual states are driven by agent reports derived from Kubernetes
Deployment status:

	CreationRequested, Starting, Running, Stopping, Stopped,
	Failed, Terminating, Terminated, Error, Unknown

The engine never deletes workspaces; Terminated is the terminal state and
the row is retained.

# Wire Types

ReconcileRequest/ReconcileResponse mirror the agent poll protocol exactly.
WorkspaceAgentInfo embeds a k8s.io/api apps/v1 Deployment so that partially
present status payloads decode into explicitly-optional fields instead of
untyped maps.
*/
package types
