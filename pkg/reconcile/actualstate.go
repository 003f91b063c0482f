package reconcile

import (
	"github.com/cuemby/loft/pkg/types"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
)

// Deployment condition reasons set by the Kubernetes deployment controller.
const (
	reasonMinimumReplicasAvailable   = "MinimumReplicasAvailable"
	reasonMinimumReplicasUnavailable = "MinimumReplicasUnavailable"
	reasonNewReplicaSetAvailable     = "NewReplicaSetAvailable"
	reasonNewReplicaSetCreated       = "NewReplicaSetCreated"
	reasonFoundNewReplicaSet         = "FoundNewReplicaSet"
	reasonReplicaSetUpdated          = "ReplicaSetUpdated"
	reasonProgressDeadlineExceeded   = "ProgressDeadlineExceeded"
)

// CalculateActualState classifies the lifecycle state of a workspace from
// the Deployment the agent last observed, plus an optional termination
// signal. Termination progress short-circuits everything else; after that
// the classification depends only on spec.replicas and the Available and
// Progressing condition reasons.
//
// The input is untrusted and may be partial. Missing or unrecognized data
// always degrades to Unknown; this function never fails.
func CalculateActualState(deployment *appsv1.Deployment, progress types.TerminationProgress) types.ActualState {
	switch progress {
	case types.TerminationProgressTerminating:
		return types.ActualStateTerminating
	case types.TerminationProgressTerminated:
		return types.ActualStateTerminated
	}

	if deployment == nil || deployment.Spec.Replicas == nil {
		return types.ActualStateUnknown
	}
	if len(deployment.Status.Conditions) == 0 {
		return types.ActualStateUnknown
	}

	available, hasAvailable := findCondition(deployment, appsv1.DeploymentAvailable)
	progressing, hasProgressing := findCondition(deployment, appsv1.DeploymentProgressing)

	switch *deployment.Spec.Replicas {
	case 0:
		// Scale-down complete: no replica is available and the deployment
		// controller considers the rollout settled.
		if hasAvailable && available.Status == corev1.ConditionFalse &&
			hasProgressing && progressing.Reason == reasonNewReplicaSetAvailable &&
			deployment.Status.UnavailableReplicas == 0 {
			return types.ActualStateStopped
		}
		if hasProgressing && recognizedProgressingReason(progressing.Reason) {
			return types.ActualStateStopping
		}
		return types.ActualStateUnknown

	case 1:
		if hasAvailable && available.Reason == reasonMinimumReplicasAvailable &&
			hasProgressing && progressing.Reason == reasonNewReplicaSetAvailable {
			return types.ActualStateRunning
		}
		if hasProgressing {
			switch progressing.Reason {
			case reasonNewReplicaSetCreated, reasonFoundNewReplicaSet, reasonReplicaSetUpdated:
				return types.ActualStateStarting
			}
		}
		if hasAvailable && available.Reason == reasonMinimumReplicasUnavailable &&
			hasProgressing && progressing.Reason == reasonProgressDeadlineExceeded {
			return types.ActualStateFailed
		}
		return types.ActualStateUnknown

	default:
		// Multi-replica workspaces are not a supported topology.
		return types.ActualStateUnknown
	}
}

func findCondition(deployment *appsv1.Deployment, condType appsv1.DeploymentConditionType) (appsv1.DeploymentCondition, bool) {
	for _, cond := range deployment.Status.Conditions {
		if cond.Type == condType {
			return cond, true
		}
	}
	return appsv1.DeploymentCondition{}, false
}

func recognizedProgressingReason(reason string) bool {
	switch reason {
	case reasonNewReplicaSetAvailable, reasonNewReplicaSetCreated,
		reasonFoundNewReplicaSet, reasonReplicaSetUpdated:
		return true
	}
	return false
}
