package datastore

import "sort"

// Summary aggregates root-family totals and scheduler status into the
// workflow singleton (spec §4.6).
type Summary struct {
	workflowID string
	clock      Clock
}

// NewSummary returns a Summary updater for workflowID.
func NewSummary(workflowID string, clock Clock) *Summary {
	if clock == nil {
		clock = RealClock{}
	}
	return &Summary{workflowID: workflowID, clock: clock}
}

// Update identifies every root family proxy (its FamilyDef.Name == "root"),
// searching both store and added, aggregates their StateTotals/IsHeldTotal,
// and writes the refreshed workflow singleton into buffers.Updated.Workflow.
func (s *Summary) Update(scheduler Scheduler, elements *Elements, pool Pool, store *Store, buffers *Buffers) {
	stateTotals := make(map[string]int)
	isHeldTotal := 0

	for id, fp := range store.FamilyProxies {
		if _, pruned := buffers.Pruned.FamilyProxies[id]; pruned {
			continue
		}
		if !s.isRoot(fp.Family, store, buffers) {
			continue
		}
		if upd, ok := buffers.Updated.FamilyProxies[id]; ok {
			s.accumulate(upd, stateTotals, &isHeldTotal)
		} else {
			s.accumulate(fp, stateTotals, &isHeldTotal)
		}
	}
	for id, fp := range buffers.Added.FamilyProxies {
		if _, inStore := store.FamilyProxies[id]; inStore {
			continue
		}
		if !s.isRoot(fp.Family, store, buffers) {
			continue
		}
		if upd, ok := buffers.Updated.FamilyProxies[id]; ok {
			s.accumulate(upd, stateTotals, &isHeldTotal)
		} else {
			s.accumulate(fp, stateTotals, &isHeldTotal)
		}
	}

	states := make([]string, 0, len(stateTotals))
	for st := range stateTotals {
		states = append(states, st)
	}
	sort.Strings(states)

	wf := buffers.updatedWorkflow(s.workflowID, s.clock)
	wf.States = states
	wf.StateTotals = stateTotals
	wf.IsHeldTotal = isHeldTotal

	if scheduler.Status != nil {
		wf.Status, wf.StatusMsg = scheduler.Status()
	}
	if elements != nil {
		wf.OldestCyclePoint = elements.MinPoint
		wf.NewestCyclePoint = elements.MaxPoint
	}
	if pool != nil {
		wf.NewestRunaheadCyclePoint = pool.MaxRunaheadPoint()
	}
}

func (s *Summary) accumulate(fp *FamilyProxy, stateTotals map[string]int, isHeldTotal *int) {
	for state, count := range fp.StateTotals {
		stateTotals[state] += count
	}
	*isHeldTotal += fp.IsHeldTotal
}

func (s *Summary) isRoot(familyDefID string, store *Store, buffers *Buffers) bool {
	if fd, ok := store.Families[familyDefID]; ok {
		return fd.Name == rootFamilyName
	}
	if fd, ok := buffers.Added.Families[familyDefID]; ok {
		return fd.Name == rootFamilyName
	}
	return false
}
