package datastore

import (
	"sort"

	"github.com/jhaiduce/cylc-flow/emit"
)

// Rollup performs the DFS ascent from flagged families up to the workflow
// root, aggregating child states and hold counts (spec §4.5).
//
// The driver uses a worklist rather than direct recursion over the live
// stateUpdateFamilies set, per the design note that ascent must not touch
// the iterating collection directly.
type Rollup struct {
	workflowID string
	clock      Clock
	groupState func(states []string) string
	emitter    emit.Emitter
	// maxDepth bounds the ascent recursion against a cyclic first_parent
	// chain in externally supplied configuration; 0 means unlimited.
	maxDepth int
}

// NewRollup returns a Rollup for workflowID. groupState selects a
// canonical aggregated status from a set of child statuses by priority; a
// nil groupState falls back to DefaultGroupState.
func NewRollup(workflowID string, clock Clock, groupState func([]string) string) *Rollup {
	if clock == nil {
		clock = RealClock{}
	}
	if groupState == nil {
		groupState = DefaultGroupState
	}
	return &Rollup{workflowID: workflowID, clock: clock, groupState: groupState, emitter: emit.NewNullEmitter()}
}

// SetEmitter wires a diagnostic emitter used when the depth guard trips.
func (r *Rollup) SetEmitter(emitter emit.Emitter) {
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	r.emitter = emitter
}

// SetMaxDepth bounds ascent recursion depth; 0 (the default) leaves it
// unbounded.
func (r *Rollup) SetMaxDepth(n int) {
	r.maxDepth = n
}

// Run drains stateUpdateFamilies, ascending from each entry until none
// remain, and returns the set of family ids that were actually rolled up
// (updatedStateFamilies).
func (r *Rollup) Run(stateUpdateFamilies map[string]bool, store *Store, buffers *Buffers) map[string]bool {
	updatedStateFamilies := make(map[string]bool)
	// hops records how many first_parent steps above an originally flagged
	// family each newly flagged family is, so the depth guard also bounds
	// upward ascent.
	hops := make(map[string]int)
	for len(stateUpdateFamilies) > 0 {
		var fpID string
		for id := range stateUpdateFamilies {
			fpID = id
			break
		}
		before := make(map[string]bool, len(stateUpdateFamilies))
		for id := range stateUpdateFamilies {
			before[id] = true
		}
		r.ascendDepth(fpID, hops[fpID], stateUpdateFamilies, updatedStateFamilies, store, buffers)
		for id := range stateUpdateFamilies {
			if !before[id] {
				hops[id] = hops[fpID] + 1
			}
		}
	}
	return updatedStateFamilies
}

func (r *Rollup) ascendDepth(fpID string, depth int, stateUpdateFamilies, updatedStateFamilies map[string]bool, store *Store, buffers *Buffers) {
	if r.maxDepth > 0 && depth > r.maxDepth {
		r.emitter.Emit(emit.Event{WorkflowID: r.workflowID, Msg: "apply_skipped", Meta: map[string]interface{}{"kind": "family_proxies", "id": fpID, "reason": "max_depth_exceeded"}})
		delete(stateUpdateFamilies, fpID)
		return
	}
	r.ascend(fpID, depth, stateUpdateFamilies, updatedStateFamilies, store, buffers)
}

func (r *Rollup) ascend(fpID string, depth int, stateUpdateFamilies, updatedStateFamilies map[string]bool, store *Store, buffers *Buffers) {
	node := r.resolveFamilyProxy(fpID, updatedStateFamilies, store, buffers)
	if node == nil {
		delete(stateUpdateFamilies, fpID)
		return
	}

	for _, childFam := range node.ChildFamilies {
		if stateUpdateFamilies[childFam] && !updatedStateFamilies[childFam] {
			r.ascendDepth(childFam, depth+1, stateUpdateFamilies, updatedStateFamilies, store, buffers)
		}
	}

	if stateUpdateFamilies[fpID] {
		r.applyCounters(fpID, node, updatedStateFamilies, store, buffers)
		updatedStateFamilies[fpID] = true
		if node.FirstParent != "" {
			stateUpdateFamilies[node.FirstParent] = true
		}
		delete(stateUpdateFamilies, fpID)
	}
}

// applyCounters computes and emits the counter set for one family (spec
// §4.5 "Counter computation").
func (r *Rollup) applyCounters(fpID string, node *FamilyProxy, updatedStateFamilies map[string]bool, store *Store, buffers *Buffers) {
	stateTotals := make(map[string]int)
	isHeldTotal := 0

	for _, childFamID := range node.ChildFamilies {
		child := r.resolveFamilyProxy(childFamID, updatedStateFamilies, store, buffers)
		if child == nil {
			continue
		}
		for state, count := range child.StateTotals {
			stateTotals[state] += count
		}
		isHeldTotal += child.IsHeldTotal
	}
	for _, childTaskID := range node.ChildTasks {
		child := r.resolveTaskProxy(childTaskID, store, buffers)
		if child == nil {
			continue
		}
		if child.State != "" {
			stateTotals[child.State]++
		}
		if child.IsHeld {
			isHeldTotal++
		}
	}

	states := make([]string, 0, len(stateTotals))
	for s := range stateTotals {
		states = append(states, s)
	}
	sort.Strings(states)

	fp := buffers.updatedFamilyProxy(fpID, r.clock)
	fp.States = states
	fp.StateTotals = stateTotals
	fp.IsHeld = isHeldTotal > 0
	fp.IsHeldTotal = isHeldTotal
	fp.State = r.groupState(states)
}

// resolveFamilyProxy reads the most recent view of a family proxy: the
// Updated buffer only counts as "most recent" once this rollup pass has
// actually computed its counters (recorded in updatedStateFamilies) —
// otherwise an Updated entry may just be a ghost-generator stub with an
// empty StateTotals and would shadow the store's real aggregate.
func (r *Rollup) resolveFamilyProxy(id string, updatedStateFamilies map[string]bool, store *Store, buffers *Buffers) *FamilyProxy {
	if updatedStateFamilies[id] {
		if fp, ok := buffers.Updated.FamilyProxies[id]; ok {
			return fp
		}
	}
	if fp, ok := store.FamilyProxies[id]; ok {
		return fp
	}
	if fp, ok := buffers.Added.FamilyProxies[id]; ok {
		return fp
	}
	return nil
}

// resolveTaskProxy reads the most recent view of a task proxy. By the time
// rollup runs, the dynamic update phase has already fully populated any
// Updated.TaskProxies entry it touched (ordering guarantee, spec §5), so an
// Updated entry is always safe to prefer here.
func (r *Rollup) resolveTaskProxy(id string, store *Store, buffers *Buffers) *TaskProxy {
	if tp, ok := buffers.Updated.TaskProxies[id]; ok {
		return tp
	}
	if tp, ok := store.TaskProxies[id]; ok {
		return tp
	}
	if tp, ok := buffers.Added.TaskProxies[id]; ok {
		return tp
	}
	return nil
}

// statePriority gives the default group-state ordering, most-significant
// first. Ties and unlisted states fall back to lexicographic order.
var statePriority = []string{
	"submit-failed", "failed", "running", "submitted", "ready",
	"queued", "waiting", "expired", "succeeded",
}

// DefaultGroupState selects the highest-priority state present in states,
// per statePriority. It is the domain-given group_state function referenced
// in spec §4.5, modeled on cylc's own task-state priority order.
func DefaultGroupState(states []string) string {
	if len(states) == 0 {
		return ""
	}
	present := make(map[string]bool, len(states))
	for _, s := range states {
		present[s] = true
	}
	for _, s := range statePriority {
		if present[s] {
			return s
		}
	}
	sorted := append([]string{}, states...)
	sort.Strings(sorted)
	return sorted[0]
}
