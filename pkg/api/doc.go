/*
Package api implements the Loft HTTP API server.

The server exposes two surfaces over one chi router: an operator-facing
CRUD surface for agents and workspaces, and the agent-facing reconcile
endpoint that cluster agents poll with their observed workspace states.

# Routes

	GET  /healthz
	GET  /metrics
	POST /api/v1/agents
	POST /api/v1/agents/{agentID}/reconcile
	GET  /api/v1/agents/{agentID}/workspaces
	POST /api/v1/agents/{agentID}/workspaces
	PUT  /api/v1/agents/{agentID}/workspaces/{name}/desired_state

All request and response bodies are JSON. Errors use ErrorResponse with a
message and, for reconcile failures, the pipeline's machine-readable
reason.

# Error mapping

Reconcile pipeline errors map to HTTP statuses by reason: bad_request to
400, unprocessable_entity to 422, internal to 500. The reason set is
closed; an unrecognized reason panics instead of being folded into a 500,
because it means a pipeline stage broke its contract.
*/
package api
