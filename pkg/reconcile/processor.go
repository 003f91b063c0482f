package reconcile

import (
	"github.com/cuemby/loft/pkg/log"
	"github.com/cuemby/loft/pkg/metrics"
	"github.com/cuemby/loft/pkg/storage"
	"github.com/cuemby/loft/pkg/types"
)

// Processor runs the reconciliation pipeline for one agent poll. It is
// stateless across invocations; all durable state lives in the store.
// Several agents (and in principle overlapping polls from one agent) may
// run processors concurrently against the same store.
type Processor struct {
	store     storage.Store
	updater   *Updater
	converter *Converter
}

// NewProcessor creates a processor backed by the given store.
func NewProcessor(store storage.Store) *Processor {
	return &Processor{
		store:     store,
		updater:   NewUpdater(store),
		converter: NewConverter(),
	}
}

// Process executes one reconciliation cycle: validate the payload, fold
// the reported states into storage, work out which workspaces the agent
// must hear about, and build their response entries. The first stage to
// fail short-circuits the rest and its error is returned as-is.
func (p *Processor) Process(agent *types.Agent, payload []byte) (*types.ReconcileResponse, *Error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReconcileDuration)

	req, verr := ParseRequest(payload)
	if verr != nil {
		return nil, verr
	}
	metrics.ReconcileCyclesTotal.WithLabelValues(string(req.UpdateType)).Inc()

	logger := log.WithAgentID(agent.ID)

	infos := ParseAgentInfos(req.WorkspaceAgentInfos)
	observeAgentInfos(logger, req.UpdateType, infos)

	updated := p.updater.UpdateFromAgentInfos(agent, infos)

	if req.UpdateType == types.UpdateTypeFull {
		// Full syncs are the safety net: fire lifetime deadlines for
		// unreported workspaces and surface anything the agent lost.
		p.updater.TerminateOverdue(agent)

		all, err := p.store.ListWorkspacesByAgent(agent.ID)
		if err != nil {
			return nil, errInternal("failed to list workspaces: " + err.Error())
		}
		observeOrphans(logger, all, updated)
	}

	toReturn, err := FindWorkspacesToBeReturned(p.store, agent, req.UpdateType, updated)
	if err != nil {
		return nil, errInternal("failed to find workspaces to return: " + err.Error())
	}

	// Only workspaces that actually made it into the response count as
	// communicated. Anything Build dropped keeps a stale
	// RespondedToAgentAt so the finder re-selects it next poll.
	workspaceInfos, included := p.converter.Build(agent, toReturn, req.UpdateType)
	p.updater.MarkResponded(included)
	observeWorkspaceInfos(logger, req.UpdateType, workspaceInfos)

	return &types.ReconcileResponse{WorkspaceInfos: workspaceInfos}, nil
}
