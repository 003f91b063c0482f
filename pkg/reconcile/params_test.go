package reconcile

import (
	"testing"

	"github.com/cuemby/loft/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestValid(t *testing.T) {
	payload := []byte(`{
		"update_type": "partial",
		"workspace_agent_infos": [
			{
				"name": "workspace-abc",
				"namespace": "ns-workspace-abc",
				"termination_progress": "Terminating"
			}
		]
	}`)

	req, verr := ParseRequest(payload)
	require.Nil(t, verr)
	assert.Equal(t, types.UpdateTypePartial, req.UpdateType)
	require.Len(t, req.WorkspaceAgentInfos, 1)
	assert.Equal(t, "workspace-abc", req.WorkspaceAgentInfos[0].Name)
	assert.Equal(t, types.TerminationProgressTerminating, req.WorkspaceAgentInfos[0].TerminationProgress)
}

func TestParseRequestEmptyInfos(t *testing.T) {
	req, verr := ParseRequest([]byte(`{"update_type": "full", "workspace_agent_infos": []}`))
	require.Nil(t, verr)
	assert.Equal(t, types.UpdateTypeFull, req.UpdateType)
	assert.Empty(t, req.WorkspaceAgentInfos)
}

func TestParseRequestRejections(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		reason  Reason
		message string
	}{
		{
			name:    "not json",
			payload: `{{{`,
			reason:  ReasonBadRequest,
		},
		{
			name:    "missing update_type",
			payload: `{"workspace_agent_infos": []}`,
			reason:  ReasonUnprocessable,
			message: "root is missing required keys: update_type",
		},
		{
			name:    "missing both required keys",
			payload: `{}`,
			reason:  ReasonUnprocessable,
			message: "root is missing required keys: update_type, workspace_agent_infos",
		},
		{
			name:    "bogus update_type",
			payload: `{"update_type": "bogus", "workspace_agent_infos": []}`,
			reason:  ReasonUnprocessable,
			message: `update_type must be one of "full", "partial"; got "bogus"`,
		},
		{
			name: "bogus termination_progress",
			payload: `{"update_type": "partial", "workspace_agent_infos": [
				{"name": "ws", "termination_progress": "Exploding"}
			]}`,
			reason:  ReasonUnprocessable,
			message: `workspace_agent_infos[0]: termination_progress must be one of "Terminating", "Terminated"; got "Exploding"`,
		},
		{
			name: "bogus error_type",
			payload: `{"update_type": "partial", "workspace_agent_infos": [
				{"name": "ws", "error_details": {"error_type": "reticulator", "error_message": "x"}}
			]}`,
			reason:  ReasonUnprocessable,
			message: `workspace_agent_infos[0]: error_details.error_type must be one of "applier"; got "reticulator"`,
		},
		{
			name: "info missing name",
			payload: `{"update_type": "partial", "workspace_agent_infos": [
				{"namespace": "ns"}
			]}`,
			reason:  ReasonUnprocessable,
			message: "workspace_agent_infos[0] is missing required keys: name",
		},
		{
			name:    "workspace_agent_infos not an array",
			payload: `{"update_type": "partial", "workspace_agent_infos": 7}`,
			reason:  ReasonUnprocessable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, verr := ParseRequest([]byte(tt.payload))
			assert.Nil(t, req)
			require.NotNil(t, verr)
			assert.Equal(t, tt.reason, verr.Reason)
			if tt.message != "" {
				assert.Equal(t, tt.message, verr.Message)
			}
		})
	}
}
