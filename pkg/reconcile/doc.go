/*
Package reconcile implements the workspace reconciliation pipeline.

One pipeline execution handles one agent poll: the agent reports the state
it last observed for each workspace, and the response tells it which
workspaces changed and which manifests to apply. The engine is synchronous
and request-scoped; it spawns no background work of its own.

# Pipeline

	raw payload
	  → ParseRequest            validate schema, decode
	  → ParseAgentInfos         classify actual states, normalize
	  → Updater                 fold reported state into storage
	  → (full only)             fire termination deadlines, flag orphans
	  → FindWorkspacesToBeReturned
	  → Converter               build response entries, generate configs
	  → MarkResponded           bookkeeping timestamps
	  → response

Each stage either produces a value for the next stage or a terminal
*Error that short-circuits the rest. Validation failures and storage-wide
failures are the only errors an agent ever sees; per-workspace problems
(unknown name, failed persist, broken devfile) are logged, that workspace
is dropped from the cycle, and the agent's next poll retries it.

# Convergence

The engine drives convergence over repeated polls rather than guaranteeing
same-cycle success. Updates are derived from the latest reported state,
not from diffs, so replaying a report is harmless and overlapping polls
degrade to last-write-wins per workspace row. The one engine-driven
desired-state transition, RestartRequested to Running, only fires when the
reported actual state is exactly Stopped, which keeps it safe under
replay.
*/
package reconcile
