package datastore

import "github.com/jhaiduce/cylc-flow/emit"

// Applicator is the inverse of Finalizer: it applies a received delta
// bundle to an arbitrary target store, used by remote mirrors and for
// round-trip symmetry testing (spec §4.8).
type Applicator struct {
	emitter emit.Emitter
}

// NewApplicator returns an Applicator. A nil emitter disables the "missing
// update target" diagnostic event.
func NewApplicator(emitter emit.Emitter) *Applicator {
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	return &Applicator{emitter: emitter}
}

func (a *Applicator) emitSkip(kind Kind, id string) {
	a.emitter.Emit(emit.Event{Msg: "apply_skipped", Meta: map[string]interface{}{"kind": string(kind), "id": id}})
}

// Apply applies bundle to store in the per-key order §4.8 prescribes:
// added (insert/replace by id), updated (clear-before-merge then merge,
// skipping ids absent from the target), pruned (cross-reference cleanup
// then delete).
func (a *Applicator) Apply(store *Store, bundle PublishBundle) {
	if d, ok := bundle.AllDeltas[KindTasks].(Delta[*TaskDef]); ok {
		a.applyTasks(store, d)
	}
	if d, ok := bundle.AllDeltas[KindFamilies].(Delta[*FamilyDef]); ok {
		a.applyFamilies(store, d)
	}
	if d, ok := bundle.AllDeltas[KindTaskProxies].(Delta[*TaskProxy]); ok {
		a.applyTaskProxies(store, d)
	}
	if d, ok := bundle.AllDeltas[KindFamilyProxies].(Delta[*FamilyProxy]); ok {
		a.applyFamilyProxies(store, d)
	}
	if d, ok := bundle.AllDeltas[KindEdges].(Delta[*Edge]); ok {
		a.applyEdges(store, d)
	}
	if d, ok := bundle.AllDeltas[KindJobs].(Delta[*Job]); ok {
		a.applyJobs(store, d)
	}
	if bundle.Workflow != nil {
		a.applyWorkflow(store, *bundle.Workflow)
	}
}

func (a *Applicator) applyTasks(store *Store, d Delta[*TaskDef]) {
	for _, v := range d.Added {
		store.Tasks[v.ID] = cloneTaskDef(v)
	}
	for _, delta := range d.Updated {
		if dst, ok := store.Tasks[delta.ID]; ok {
			mergeTaskDefInto(dst, delta)
		} else {
			a.emitSkip(KindTasks, delta.ID)
		}
	}
}

func (a *Applicator) applyFamilies(store *Store, d Delta[*FamilyDef]) {
	for _, v := range d.Added {
		store.Families[v.ID] = cloneFamilyDef(v)
	}
	for _, delta := range d.Updated {
		if dst, ok := store.Families[delta.ID]; ok {
			mergeFamilyDefInto(dst, delta)
		} else {
			a.emitSkip(KindFamilies, delta.ID)
		}
	}
}

func (a *Applicator) applyTaskProxies(store *Store, d Delta[*TaskProxy]) {
	for _, v := range d.Added {
		store.TaskProxies[v.ID] = cloneTaskProxy(v)
	}
	for _, delta := range d.Updated {
		dst, ok := store.TaskProxies[delta.ID]
		if !ok {
			a.emitSkip(KindTaskProxies, delta.ID)
			continue
		}
		clearTaskProxyFields(dst, delta)
		mergeTaskProxyInto(dst, delta)
	}
	for _, id := range d.Pruned {
		tp, ok := store.TaskProxies[id]
		if !ok {
			continue
		}
		if td, ok := store.Tasks[tp.Task]; ok {
			td.Proxies = removeString(td.Proxies, id)
		}
		if store.Workflow != nil {
			store.Workflow.TaskProxies = removeString(store.Workflow.TaskProxies, id)
		}
		delete(store.TaskProxies, id)
	}
}

func (a *Applicator) applyFamilyProxies(store *Store, d Delta[*FamilyProxy]) {
	for _, v := range d.Added {
		store.FamilyProxies[v.ID] = cloneFamilyProxy(v)
	}
	for _, delta := range d.Updated {
		dst, ok := store.FamilyProxies[delta.ID]
		if !ok {
			a.emitSkip(KindFamilyProxies, delta.ID)
			continue
		}
		clearFamilyProxyFields(dst, delta)
		mergeFamilyProxyInto(dst, delta)
	}
	for _, id := range d.Pruned {
		fp, ok := store.FamilyProxies[id]
		if !ok {
			continue
		}
		if fd, ok := store.Families[fp.Family]; ok {
			fd.Proxies = removeString(fd.Proxies, id)
		}
		if store.Workflow != nil {
			store.Workflow.FamilyProxies = removeString(store.Workflow.FamilyProxies, id)
		}
		delete(store.FamilyProxies, id)
	}
}

func (a *Applicator) applyEdges(store *Store, d Delta[*Edge]) {
	for _, v := range d.Added {
		store.Edges[v.ID] = cloneEdge(v)
	}
	for _, id := range d.Pruned {
		if store.Workflow != nil {
			store.Workflow.Edges = removeString(store.Workflow.Edges, id)
		}
		delete(store.Edges, id)
	}
}

func (a *Applicator) applyJobs(store *Store, d Delta[*Job]) {
	for _, v := range d.Added {
		store.Jobs[v.ID] = cloneJob(v)
	}
	for _, delta := range d.Updated {
		if dst, ok := store.Jobs[delta.ID]; ok {
			dst.Stamp = delta.Stamp
			dst.TaskProxy = delta.TaskProxy
		} else {
			a.emitSkip(KindJobs, delta.ID)
		}
	}
	for _, id := range d.Pruned {
		delete(store.Jobs, id)
	}
}

func (a *Applicator) applyWorkflow(store *Store, d WorkflowDelta) {
	if d.Updated == nil {
		return
	}
	if store.Workflow == nil || store.Workflow.ID == "" {
		store.Workflow = cloneWorkflow(d.Updated)
		return
	}
	clearWorkflowFields(store.Workflow, d.Updated)
	mergeWorkflowInto(store.Workflow, d.Updated)
}

// clearTaskProxyFields implements the "first clear any fields in its kind's
// clear-before-merge set that appear in the delta" step (spec §4.8) for
// task_proxies: prerequisites and outputs.
func clearTaskProxyFields(dst, delta *TaskProxy) {
	if delta.Prerequisites != nil {
		dst.Prerequisites = nil
	}
	if delta.Outputs != nil {
		dst.Outputs = nil
	}
}

// clearFamilyProxyFields implements the clear-before-merge step for
// family_proxies: state_totals and states.
func clearFamilyProxyFields(dst, delta *FamilyProxy) {
	if delta.StateTotals != nil {
		dst.StateTotals = nil
	}
	if delta.States != nil {
		dst.States = nil
	}
}

// clearWorkflowFields implements the clear-before-merge step for workflow:
// state_totals and states.
func clearWorkflowFields(dst, delta *Workflow) {
	if delta.StateTotals != nil {
		dst.StateTotals = nil
	}
	if delta.States != nil {
		dst.States = nil
	}
}
