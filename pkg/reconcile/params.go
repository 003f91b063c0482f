package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cuemby/loft/pkg/metrics"
	"github.com/cuemby/loft/pkg/types"
)

// ParseRequest validates and decodes a raw reconcile payload. All schema
// violations come back as an *Error naming the offending key or value;
// nothing in here panics or lets a decode error escape to the caller.
func ParseRequest(payload []byte) (*types.ReconcileRequest, *Error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(payload, &root); err != nil {
		metrics.ValidationFailures.Inc()
		return nil, errBadRequest(fmt.Sprintf("invalid json payload: %v", err))
	}

	var missing []string
	for _, key := range []string{"update_type", "workspace_agent_infos"} {
		if _, ok := root[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		metrics.ValidationFailures.Inc()
		return nil, errUnprocessable("root is missing required keys: " + strings.Join(missing, ", "))
	}

	var req types.ReconcileRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		metrics.ValidationFailures.Inc()
		return nil, errUnprocessable(fmt.Sprintf("malformed request: %v", err))
	}

	if verr := validateRequest(&req); verr != nil {
		metrics.ValidationFailures.Inc()
		return nil, verr
	}

	return &req, nil
}

func validateRequest(req *types.ReconcileRequest) *Error {
	switch req.UpdateType {
	case types.UpdateTypeFull, types.UpdateTypePartial:
	default:
		return errUnprocessable(fmt.Sprintf(
			"update_type must be one of %q, %q; got %q",
			types.UpdateTypeFull, types.UpdateTypePartial, req.UpdateType))
	}

	for i, info := range req.WorkspaceAgentInfos {
		if info.Name == "" {
			return errUnprocessable(fmt.Sprintf(
				"workspace_agent_infos[%d] is missing required keys: name", i))
		}

		switch info.TerminationProgress {
		case "", types.TerminationProgressTerminating, types.TerminationProgressTerminated:
		default:
			return errUnprocessable(fmt.Sprintf(
				"workspace_agent_infos[%d]: termination_progress must be one of %q, %q; got %q",
				i, types.TerminationProgressTerminating, types.TerminationProgressTerminated,
				info.TerminationProgress))
		}

		if info.ErrorDetails != nil {
			if info.ErrorDetails.ErrorType != types.ErrorTypeApplier {
				return errUnprocessable(fmt.Sprintf(
					"workspace_agent_infos[%d]: error_details.error_type must be one of %q; got %q",
					i, types.ErrorTypeApplier, info.ErrorDetails.ErrorType))
			}
		}
	}

	return nil
}
