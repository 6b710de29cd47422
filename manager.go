package datastore

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/jhaiduce/cylc-flow/emit"
	"github.com/jhaiduce/cylc-flow/metrics"
)

// Manager wires every component into the ordered iteration sequence (spec
// §5): definitions → graph increment → dynamic updates → family rollup →
// workflow summary → delta apply → publish → clear. It owns the
// authoritative Store and runs single-threaded: callers serialize calls to
// Iterate the way the source's scheduler loop does.
type Manager struct {
	workflowID     string
	clock          Clock
	emitter        emit.Emitter
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	maxFamilyDepth int

	store    *Store
	buffers  *Buffers
	elements *Elements

	generator  *Generator
	dynamic    *Dynamic
	rollup     *Rollup
	summary    *Summary
	finalizer  *Finalizer
	applicator *Applicator

	started    bool
	lastBundle PublishBundle
}

// New constructs a Manager for workflowID and applies opts.
func New(workflowID string, opts ...Option) (*Manager, error) {
	if workflowID == "" {
		return nil, ErrUnknownWorkflow
	}
	m := &Manager{
		workflowID: workflowID,
		clock:      RealClock{},
		emitter:    emit.NewNullEmitter(),
		tracer:     trace.NewNoopTracerProvider().Tracer("datastore"),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	m.store = NewStore()
	m.buffers = NewBuffers()
	m.elements = NewElements(workflowID, m.clock)
	m.generator = NewGenerator(workflowID, m.clock)
	m.dynamic = NewDynamic(workflowID, m.clock)
	m.rollup = NewRollup(workflowID, m.clock, nil)
	m.rollup.SetEmitter(m.emitter)
	m.rollup.SetMaxDepth(m.maxFamilyDepth)
	m.summary = NewSummary(workflowID, m.clock)
	m.finalizer = NewFinalizer(workflowID, m.clock, m.emitter)
	m.finalizer.SetMetrics(m.metrics)
	m.applicator = NewApplicator(m.emitter)
	return m, nil
}

// Store exposes the authoritative store for read-only inspection (tests,
// diagnostics). Callers must not mutate it outside Iterate.
func (m *Manager) Store() *Store {
	return m.store
}

// Iterate runs one full iteration: (re)generate definitions on first run or
// reload, increment graph elements for the current pool, transcribe live
// task state, roll up family counters, update the workflow summary,
// finalize deltas into the store, and return the publishable bundle. The
// caller hands liveTasks the scheduler's current task batch; on reload it
// also doubles as the "new task-proxy id set" used to reconcile stale job
// references (spec §4.2 closing paragraph).
func (m *Manager) Iterate(cfg Config, scheduler Scheduler, pool Pool, jobPool JobPool, liveTasks []LiveTask, reloaded bool) PublishBundle {
	ctx, span := m.tracer.Start(context.Background(), "iteration")
	defer span.End()
	start := time.Now()

	m.generateDefinitions(ctx, cfg, jobPool, liveTasks, reloaded)

	_, incSpan := m.tracer.Start(ctx, "graph-elements")
	changed := m.elements.Increment(pool.Points(), cfg, m.store, m.buffers)
	incSpan.End()
	if changed {
		m.emitter.Emit(emit.Event{WorkflowID: m.workflowID, Msg: "elements_pruned", Meta: map[string]interface{}{
			"min_point": m.elements.MinPoint, "max_point": m.elements.MaxPoint,
		}})
	}

	stateUpdateFamilies := make(map[string]bool)
	m.dynamic.ApplyLiveTasks(liveTasks, cfg, m.store, m.buffers, stateUpdateFamilies)

	_, rollupSpan := m.tracer.Start(ctx, "rollup")
	rolledUp := m.rollup.Run(stateUpdateFamilies, m.store, m.buffers)
	rollupSpan.End()
	for fpID := range rolledUp {
		m.emitter.Emit(emit.Event{WorkflowID: m.workflowID, Msg: "rollup_applied", Meta: map[string]interface{}{"family": fpID}})
	}

	m.summary.Update(scheduler, m.elements, pool, m.store, m.buffers)

	_, finalizeSpan := m.tracer.Start(ctx, "finalize")
	checksumStart := time.Now()
	bundle := m.finalizer.Finalize(m.store, m.buffers, jobPool, reloaded)
	if m.metrics != nil {
		m.metrics.RecordChecksumLatency(m.workflowID, time.Since(checksumStart))
		m.recordDeltaMetrics(bundle)
	}
	finalizeSpan.End()

	m.emitter.Emit(emit.Event{WorkflowID: m.workflowID, Msg: "deltas_published", Meta: map[string]interface{}{"entries": len(bundle.Entries)}})

	m.lastBundle = bundle
	m.buffers.Clear()

	if m.metrics != nil {
		m.metrics.RecordIterationLatency(m.workflowID, time.Since(start))
	}
	return bundle
}

func (m *Manager) generateDefinitions(ctx context.Context, cfg Config, jobPool JobPool, liveTasks []LiveTask, reloaded bool) {
	if !reloaded && m.started {
		return
	}
	_, span := m.tracer.Start(ctx, "definitions")
	defer span.End()

	if reloaded {
		m.store.Reset()
		m.buffers.Clear()
		m.elements = NewElements(m.workflowID, m.clock)
		liveTaskProxyIDs := make(map[string]bool, len(liveTasks))
		for _, lt := range liveTasks {
			liveTaskProxyIDs[lt.TaskProxyID] = true
		}
		m.generator.Reload(cfg, m.buffers, jobPool, liveTaskProxyIDs)
	} else {
		m.generator.Generate(cfg, m.buffers)
	}
	m.started = true

	m.emitter.Emit(emit.Event{WorkflowID: m.workflowID, Msg: "definitions_generated", Meta: map[string]interface{}{
		"tasks": len(m.buffers.Added.Tasks), "families": len(m.buffers.Added.Families),
	}})
}

func (m *Manager) recordDeltaMetrics(bundle PublishBundle) {
	for _, entry := range bundle.Entries {
		kind := string(entry.Kind)
		switch d := entry.Message.(type) {
		case Delta[*TaskDef]:
			m.metrics.AddDeltaEntities(m.workflowID, kind, "added", len(d.Added))
			m.metrics.AddDeltaEntities(m.workflowID, kind, "updated", len(d.Updated))
		case Delta[*FamilyDef]:
			m.metrics.AddDeltaEntities(m.workflowID, kind, "added", len(d.Added))
			m.metrics.AddDeltaEntities(m.workflowID, kind, "updated", len(d.Updated))
		case Delta[*TaskProxy]:
			m.metrics.AddDeltaEntities(m.workflowID, kind, "added", len(d.Added))
			m.metrics.AddDeltaEntities(m.workflowID, kind, "updated", len(d.Updated))
			m.metrics.AddDeltaEntities(m.workflowID, kind, "pruned", len(d.Pruned))
			points := make(map[string]bool)
			for _, id := range d.Pruned {
				if point, _, ok := ParseProxyID(m.workflowID, id); ok {
					points[point] = true
				}
			}
			m.metrics.AddPrunedPoints(m.workflowID, len(points))
		case Delta[*FamilyProxy]:
			m.metrics.AddDeltaEntities(m.workflowID, kind, "added", len(d.Added))
			m.metrics.AddDeltaEntities(m.workflowID, kind, "updated", len(d.Updated))
			m.metrics.AddDeltaEntities(m.workflowID, kind, "pruned", len(d.Pruned))
		case Delta[*Edge]:
			m.metrics.AddDeltaEntities(m.workflowID, kind, "added", len(d.Added))
			m.metrics.AddDeltaEntities(m.workflowID, kind, "pruned", len(d.Pruned))
		case Delta[*Job]:
			m.metrics.AddDeltaEntities(m.workflowID, kind, "added", len(d.Added))
			m.metrics.AddDeltaEntities(m.workflowID, kind, "updated", len(d.Updated))
			m.metrics.AddDeltaEntities(m.workflowID, kind, "pruned", len(d.Pruned))
		}
	}
}

// Apply applies an externally received publish bundle to this Manager's
// store, the mirror-side counterpart of Iterate's own Finalize call.
func (m *Manager) Apply(bundle PublishBundle) {
	m.applicator.Apply(m.store, bundle)
}

// WorkflowSnapshot is the full snapshot message §6's get_entire_workflow
// emits: the workflow singleton plus every definition, proxy, edge, and job.
type WorkflowSnapshot struct {
	Workflow      *Workflow
	Tasks         []*TaskDef
	Families      []*FamilyDef
	TaskProxies   []*TaskProxy
	FamilyProxies []*FamilyProxy
	Edges         []*Edge
	Jobs          []*Job
}

// EntireWorkflow returns a deep-copied snapshot of the current store.
func (m *Manager) EntireWorkflow() WorkflowSnapshot {
	snap := WorkflowSnapshot{Workflow: cloneWorkflow(m.store.Workflow)}
	for _, t := range m.store.Tasks {
		snap.Tasks = append(snap.Tasks, cloneTaskDef(t))
	}
	for _, f := range m.store.Families {
		snap.Families = append(snap.Families, cloneFamilyDef(f))
	}
	for _, tp := range m.store.TaskProxies {
		snap.TaskProxies = append(snap.TaskProxies, cloneTaskProxy(tp))
	}
	for _, fp := range m.store.FamilyProxies {
		snap.FamilyProxies = append(snap.FamilyProxies, cloneFamilyProxy(fp))
	}
	for _, e := range m.store.Edges {
		snap.Edges = append(snap.Edges, cloneEdge(e))
	}
	for _, j := range m.store.Jobs {
		snap.Jobs = append(snap.Jobs, cloneJob(j))
	}
	return snap
}

// PublishDeltas returns the bundle produced by the most recent Iterate call
// (spec §6's get_publish_deltas).
func (m *Manager) PublishDeltas() PublishBundle {
	return m.lastBundle
}

// DataElements returns a delta of kind whose Added field contains the
// entire current contents of that kind, used to initial-sync a new
// subscriber (spec §6's get_data_elements). It returns nil for an unknown
// kind.
func (m *Manager) DataElements(kind Kind) any {
	switch kind {
	case KindTasks:
		d := Delta[*TaskDef]{Time: m.clock.Now()}
		for _, t := range m.store.Tasks {
			d.Added = append(d.Added, cloneTaskDef(t))
		}
		d.Checksum = checksumStamps(m.store.Tasks)
		return d
	case KindFamilies:
		d := Delta[*FamilyDef]{Time: m.clock.Now()}
		for _, f := range m.store.Families {
			d.Added = append(d.Added, cloneFamilyDef(f))
		}
		d.Checksum = checksumStamps(m.store.Families)
		return d
	case KindTaskProxies:
		d := Delta[*TaskProxy]{Time: m.clock.Now()}
		for _, tp := range m.store.TaskProxies {
			d.Added = append(d.Added, cloneTaskProxy(tp))
		}
		d.Checksum = checksumStamps(m.store.TaskProxies)
		return d
	case KindFamilyProxies:
		d := Delta[*FamilyProxy]{Time: m.clock.Now()}
		for _, fp := range m.store.FamilyProxies {
			d.Added = append(d.Added, cloneFamilyProxy(fp))
		}
		d.Checksum = checksumStamps(m.store.FamilyProxies)
		return d
	case KindEdges:
		d := Delta[*Edge]{Time: m.clock.Now()}
		ids := make([]string, 0, len(m.store.Edges))
		for id, e := range m.store.Edges {
			d.Added = append(d.Added, cloneEdge(e))
			ids = append(ids, id)
		}
		d.Checksum = checksumIDs(ids)
		return d
	case KindJobs:
		d := Delta[*Job]{Time: m.clock.Now()}
		for _, j := range m.store.Jobs {
			d.Added = append(d.Added, cloneJob(j))
		}
		d.Checksum = checksumStamps(m.store.Jobs)
		return d
	case KindWorkflow:
		return &WorkflowDelta{Updated: cloneWorkflow(m.store.Workflow), Time: m.clock.Now(), Checksum: checksumStrings([]string{m.store.Workflow.Stamp})}
	default:
		return nil
	}
}
