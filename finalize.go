package datastore

import (
	"github.com/jhaiduce/cylc-flow/emit"
	"github.com/jhaiduce/cylc-flow/metrics"
)

// Finalizer merges delta buffers into the authoritative store under the
// clear-before-merge rules, computes per-kind checksums, and produces a
// deep-copied publishable bundle (spec §4.7).
type Finalizer struct {
	workflowID string
	clock      Clock
	emitter    emit.Emitter
	metrics    *metrics.Metrics
}

// NewFinalizer returns a Finalizer for workflowID. A nil emitter disables
// the "missing update target" diagnostic event.
func NewFinalizer(workflowID string, clock Clock, emitter emit.Emitter) *Finalizer {
	if clock == nil {
		clock = RealClock{}
	}
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	return &Finalizer{workflowID: workflowID, clock: clock, emitter: emitter}
}

// SetMetrics wires Prometheus instrumentation for skipped-update counting.
// A nil argument disables it (the default).
func (f *Finalizer) SetMetrics(m *metrics.Metrics) {
	f.metrics = m
}

// Finalize runs the end-of-iteration sequence: copy job-pool deltas in,
// apply added/updated/pruned to store, compute checksums, and assemble the
// publish bundle. reloaded echoes the caller's reload flag into every
// delta's Reloaded field. Buffers are left populated; the caller clears
// them via buffers.Clear() once the bundle has been handed to a publisher.
func (f *Finalizer) Finalize(store *Store, buffers *Buffers, jobPool JobPool, reloaded bool) PublishBundle {
	f.absorbJobPoolDeltas(buffers, jobPool)

	now := f.clock.Now()
	bundle := PublishBundle{AllDeltas: make(map[Kind]any)}

	if d := f.finalizeTasks(store, buffers, now, reloaded); !d.IsEmpty() {
		bundle.Entries = append(bundle.Entries, PublishEntry{KindTasks, d})
		bundle.AllDeltas[KindTasks] = d
	}
	if d := f.finalizeFamilies(store, buffers, now, reloaded); !d.IsEmpty() {
		bundle.Entries = append(bundle.Entries, PublishEntry{KindFamilies, d})
		bundle.AllDeltas[KindFamilies] = d
	}
	if d := f.finalizeTaskProxies(store, buffers, now, reloaded); !d.IsEmpty() {
		bundle.Entries = append(bundle.Entries, PublishEntry{KindTaskProxies, d})
		bundle.AllDeltas[KindTaskProxies] = d
	}
	if d := f.finalizeFamilyProxies(store, buffers, now, reloaded); !d.IsEmpty() {
		bundle.Entries = append(bundle.Entries, PublishEntry{KindFamilyProxies, d})
		bundle.AllDeltas[KindFamilyProxies] = d
	}
	if d := f.finalizeEdges(store, buffers, now, reloaded); !d.IsEmpty() {
		bundle.Entries = append(bundle.Entries, PublishEntry{KindEdges, d})
		bundle.AllDeltas[KindEdges] = d
	}
	if d := f.finalizeJobs(store, buffers, now, reloaded); !d.IsEmpty() {
		bundle.Entries = append(bundle.Entries, PublishEntry{KindJobs, d})
		bundle.AllDeltas[KindJobs] = d
	}
	if wd := f.finalizeWorkflow(store, buffers, now, reloaded); wd != nil {
		bundle.Entries = append(bundle.Entries, PublishEntry{KindWorkflow, wd})
		bundle.AllDeltas[KindWorkflow] = wd
		bundle.Workflow = wd
	}

	return bundle
}

// absorbJobPoolDeltas copies the job pool's own pending deltas into buffers
// (spec §4.7 step 1) and appends newly added job ids to updated[workflow].
func (f *Finalizer) absorbJobPoolDeltas(buffers *Buffers, jobPool JobPool) {
	if jobPool == nil {
		return
	}
	added, updated, pruned := jobPool.Deltas()
	for id, j := range added {
		buffers.Added.Jobs[id] = j
	}
	for id, j := range updated {
		buffers.Updated.Jobs[id] = j
	}
	for _, id := range pruned {
		buffers.Pruned.Jobs[id] = struct{}{}
	}
	if len(added) > 0 {
		wf := buffers.updatedWorkflow(f.workflowID, f.clock)
		for id := range added {
			wf.Jobs = appendUniqueString(wf.Jobs, id)
		}
	}
}

// emitSkip reports a "missing update target" (spec §7): an updated entry
// referenced an id absent from the store. Logged and skipped, never fatal.
func (f *Finalizer) emitSkip(kind Kind, id string) {
	f.emitter.Emit(emit.Event{WorkflowID: f.workflowID, Msg: "apply_skipped", Meta: map[string]interface{}{"kind": string(kind), "id": id}})
	if f.metrics != nil {
		f.metrics.IncApplySkipped(f.workflowID, string(kind))
	}
}

func (f *Finalizer) finalizeTasks(store *Store, buffers *Buffers, now float64, reloaded bool) Delta[*TaskDef] {
	for id, v := range buffers.Added.Tasks {
		store.Tasks[id] = v
	}
	var updatedList []*TaskDef
	for id, delta := range buffers.Updated.Tasks {
		if dst, ok := store.Tasks[id]; ok {
			mergeTaskDefInto(dst, delta)
			updatedList = append(updatedList, cloneTaskDef(dst))
		} else {
			f.emitSkip(KindTasks, id)
		}
	}
	addedList := make([]*TaskDef, 0, len(buffers.Added.Tasks))
	for _, v := range buffers.Added.Tasks {
		addedList = append(addedList, cloneTaskDef(v))
	}
	checksum := checksumStamps(store.Tasks)
	return Delta[*TaskDef]{Added: addedList, Updated: updatedList, Time: now, Reloaded: reloaded, Checksum: checksum}
}

func (f *Finalizer) finalizeFamilies(store *Store, buffers *Buffers, now float64, reloaded bool) Delta[*FamilyDef] {
	for id, v := range buffers.Added.Families {
		store.Families[id] = v
	}
	var updatedList []*FamilyDef
	for id, delta := range buffers.Updated.Families {
		if dst, ok := store.Families[id]; ok {
			mergeFamilyDefInto(dst, delta)
			updatedList = append(updatedList, cloneFamilyDef(dst))
		} else {
			f.emitSkip(KindFamilies, id)
		}
	}
	addedList := make([]*FamilyDef, 0, len(buffers.Added.Families))
	for _, v := range buffers.Added.Families {
		addedList = append(addedList, cloneFamilyDef(v))
	}
	checksum := checksumStamps(store.Families)
	return Delta[*FamilyDef]{Added: addedList, Updated: updatedList, Time: now, Reloaded: reloaded, Checksum: checksum}
}

func (f *Finalizer) finalizeTaskProxies(store *Store, buffers *Buffers, now float64, reloaded bool) Delta[*TaskProxy] {
	for id, v := range buffers.Added.TaskProxies {
		store.TaskProxies[id] = v
	}
	var updatedList []*TaskProxy
	for id, delta := range buffers.Updated.TaskProxies {
		if dst, ok := store.TaskProxies[id]; ok {
			mergeTaskProxyInto(dst, delta)
			updatedList = append(updatedList, cloneTaskProxy(dst))
		} else {
			f.emitSkip(KindTaskProxies, id)
		}
	}
	addedList := make([]*TaskProxy, 0, len(buffers.Added.TaskProxies))
	for _, v := range buffers.Added.TaskProxies {
		addedList = append(addedList, cloneTaskProxy(v))
	}
	var pruned []string
	for id := range buffers.Pruned.TaskProxies {
		if tp, ok := store.TaskProxies[id]; ok {
			if td, ok := store.Tasks[tp.Task]; ok {
				td.Proxies = removeString(td.Proxies, id)
			}
			delete(store.TaskProxies, id)
		}
		store.Workflow.TaskProxies = removeString(store.Workflow.TaskProxies, id)
		pruned = append(pruned, id)
	}
	checksum := checksumStamps(store.TaskProxies)
	return Delta[*TaskProxy]{Added: addedList, Updated: updatedList, Pruned: pruned, Time: now, Reloaded: reloaded, Checksum: checksum}
}

func (f *Finalizer) finalizeFamilyProxies(store *Store, buffers *Buffers, now float64, reloaded bool) Delta[*FamilyProxy] {
	for id, v := range buffers.Added.FamilyProxies {
		store.FamilyProxies[id] = v
	}
	var updatedList []*FamilyProxy
	for id, delta := range buffers.Updated.FamilyProxies {
		if dst, ok := store.FamilyProxies[id]; ok {
			mergeFamilyProxyInto(dst, delta)
			updatedList = append(updatedList, cloneFamilyProxy(dst))
		} else {
			f.emitSkip(KindFamilyProxies, id)
		}
	}
	addedList := make([]*FamilyProxy, 0, len(buffers.Added.FamilyProxies))
	for _, v := range buffers.Added.FamilyProxies {
		addedList = append(addedList, cloneFamilyProxy(v))
	}
	var pruned []string
	for id := range buffers.Pruned.FamilyProxies {
		if fp, ok := store.FamilyProxies[id]; ok {
			if fd, ok := store.Families[fp.Family]; ok {
				fd.Proxies = removeString(fd.Proxies, id)
			}
			delete(store.FamilyProxies, id)
		}
		store.Workflow.FamilyProxies = removeString(store.Workflow.FamilyProxies, id)
		pruned = append(pruned, id)
	}
	checksum := checksumStamps(store.FamilyProxies)
	return Delta[*FamilyProxy]{Added: addedList, Updated: updatedList, Pruned: pruned, Time: now, Reloaded: reloaded, Checksum: checksum}
}

func (f *Finalizer) finalizeEdges(store *Store, buffers *Buffers, now float64, reloaded bool) Delta[*Edge] {
	for id, v := range buffers.Added.Edges {
		store.Edges[id] = v
	}
	addedList := make([]*Edge, 0, len(buffers.Added.Edges))
	for _, v := range buffers.Added.Edges {
		addedList = append(addedList, cloneEdge(v))
	}
	var pruned []string
	for id := range buffers.Pruned.Edges {
		delete(store.Edges, id)
		store.Workflow.Edges = removeString(store.Workflow.Edges, id)
		pruned = append(pruned, id)
	}
	ids := make([]string, 0, len(store.Edges))
	for id := range store.Edges {
		ids = append(ids, id)
	}
	checksum := checksumIDs(ids)
	return Delta[*Edge]{Added: addedList, Pruned: pruned, Time: now, Reloaded: reloaded, Checksum: checksum}
}

func (f *Finalizer) finalizeJobs(store *Store, buffers *Buffers, now float64, reloaded bool) Delta[*Job] {
	for id, v := range buffers.Added.Jobs {
		store.Jobs[id] = v
	}
	var updatedList []*Job
	for id, delta := range buffers.Updated.Jobs {
		if dst, ok := store.Jobs[id]; ok {
			dst.Stamp = delta.Stamp
			dst.TaskProxy = delta.TaskProxy
			updatedList = append(updatedList, cloneJob(dst))
		} else {
			f.emitSkip(KindJobs, id)
		}
	}
	addedList := make([]*Job, 0, len(buffers.Added.Jobs))
	for _, v := range buffers.Added.Jobs {
		addedList = append(addedList, cloneJob(v))
	}
	var pruned []string
	for id := range buffers.Pruned.Jobs {
		delete(store.Jobs, id)
		pruned = append(pruned, id)
	}
	checksum := checksumStamps(store.Jobs)
	return Delta[*Job]{Added: addedList, Updated: updatedList, Pruned: pruned, Time: now, Reloaded: reloaded, Checksum: checksum}
}

func (f *Finalizer) finalizeWorkflow(store *Store, buffers *Buffers, now float64, reloaded bool) *WorkflowDelta {
	if buffers.Added.Workflow != nil {
		store.Workflow = buffers.Added.Workflow
	}
	if buffers.Updated.Workflow == nil {
		return nil
	}
	mergeWorkflowInto(store.Workflow, buffers.Updated.Workflow)
	checksum := checksumStrings([]string{store.Workflow.Stamp})
	return &WorkflowDelta{Updated: cloneWorkflow(store.Workflow), Time: now, Reloaded: reloaded, Checksum: checksum}
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, existing := range list {
		if existing != v {
			out = append(out, existing)
		}
	}
	return out
}

// The clone* helpers deep-copy an entity's repeated/map fields so a
// published bundle is insulated from later in-place merges into the same
// store pointer (spec §5: "deep-copied when handed to the publisher").

func cloneTaskDef(t *TaskDef) *TaskDef {
	c := *t
	c.Namespace = append([]string{}, t.Namespace...)
	c.Parents = append([]string{}, t.Parents...)
	c.ElapsedTimes = append([]float64{}, t.ElapsedTimes...)
	c.Proxies = append([]string{}, t.Proxies...)
	return &c
}

func cloneFamilyDef(f *FamilyDef) *FamilyDef {
	c := *f
	c.Namespace = append([]string{}, f.Namespace...)
	c.Parents = append([]string{}, f.Parents...)
	c.ChildTasks = append([]string{}, f.ChildTasks...)
	c.ChildFamilies = append([]string{}, f.ChildFamilies...)
	c.Proxies = append([]string{}, f.Proxies...)
	return &c
}

func cloneTaskProxy(t *TaskProxy) *TaskProxy {
	c := *t
	c.Namespace = append([]string{}, t.Namespace...)
	c.Ancestors = append([]string{}, t.Ancestors...)
	c.Jobs = append([]string{}, t.Jobs...)
	c.Edges = append([]string{}, t.Edges...)
	c.Prerequisites = append([]string{}, t.Prerequisites...)
	outputs := make(map[string]bool, len(t.Outputs))
	for k, v := range t.Outputs {
		outputs[k] = v
	}
	c.Outputs = outputs
	return &c
}

func cloneFamilyProxy(f *FamilyProxy) *FamilyProxy {
	c := *f
	c.Ancestors = append([]string{}, f.Ancestors...)
	c.ChildTasks = append([]string{}, f.ChildTasks...)
	c.ChildFamilies = append([]string{}, f.ChildFamilies...)
	c.States = append([]string{}, f.States...)
	stateTotals := make(map[string]int, len(f.StateTotals))
	for k, v := range f.StateTotals {
		stateTotals[k] = v
	}
	c.StateTotals = stateTotals
	return &c
}

func cloneEdge(e *Edge) *Edge {
	c := *e
	return &c
}

func cloneJob(j *Job) *Job {
	c := *j
	return &c
}

func cloneWorkflow(w *Workflow) *Workflow {
	c := *w
	c.NsDefnOrder = append([]string{}, w.NsDefnOrder...)
	c.States = append([]string{}, w.States...)
	stateTotals := make(map[string]int, len(w.StateTotals))
	for k, v := range w.StateTotals {
		stateTotals[k] = v
	}
	c.StateTotals = stateTotals
	c.Tasks = append([]string{}, w.Tasks...)
	c.Families = append([]string{}, w.Families...)
	c.TaskProxies = append([]string{}, w.TaskProxies...)
	c.FamilyProxies = append([]string{}, w.FamilyProxies...)
	c.Edges = append([]string{}, w.Edges...)
	c.Jobs = append([]string{}, w.Jobs...)
	return &c
}
