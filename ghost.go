package datastore

// Ghost ensures task-proxy and family-proxy instances exist for a cycle
// point, recursively ensuring parent family proxies up to the synthetic
// root, per spec §4.3.
type Ghost struct {
	workflowID string
	clock      Clock
	store      *Store
	buffers    *Buffers
}

// NewGhost returns a Ghost generator operating against store and buffers.
func NewGhost(workflowID string, clock Clock, store *Store, buffers *Buffers) *Ghost {
	if clock == nil {
		clock = RealClock{}
	}
	return &Ghost{workflowID: workflowID, clock: clock, store: store, buffers: buffers}
}

// EnsureTaskProxy ensures a TaskProxy exists for (taskName, cyclePoint),
// creating it (and its ancestor family proxies) if needed, and returns its
// id.
func (g *Ghost) EnsureTaskProxy(taskName, cyclePoint string) string {
	id := TaskProxyID(g.workflowID, cyclePoint, taskName)
	if g.store.HasTaskProxy(id) {
		return id
	}
	if _, ok := g.buffers.Added.TaskProxies[id]; ok {
		return id
	}

	tdID := TaskDefID(g.workflowID, taskName)
	td := g.taskDef(tdID)
	if td == nil {
		// Unknown task id: definition may have been removed by reload.
		// Silently skipped per spec §7.
		return id
	}

	ancestors := substituteCyclePoint(g.workflowID, td.Namespace[1:], cyclePoint, FamilyProxyID)
	firstParent := ""
	if len(ancestors) > 0 {
		firstParent = ancestors[0]
	}

	tp := &TaskProxy{
		ID:          id,
		Stamp:       Stamp(id, g.clock.Now()),
		CyclePoint:  cyclePoint,
		Task:        tdID,
		Depth:       td.Depth,
		Namespace:   td.Namespace,
		FirstParent: firstParent,
		Ancestors:   ancestors,
		Outputs:     make(map[string]bool),
	}
	g.buffers.Added.TaskProxies[id] = tp

	wf := g.buffers.updatedWorkflow(g.workflowID, g.clock)
	wf.TaskProxies = appendUniqueString(wf.TaskProxies, id)
	g.buffers.updatedTask(tdID).Proxies = appendUniqueString(g.buffers.updatedTask(tdID).Proxies, id)

	if len(td.Namespace) > 1 {
		g.EnsureFamilyProxy(td.Namespace[1], cyclePoint, id, false)
	}
	return id
}

// EnsureFamilyProxy ensures a FamilyProxy exists for (familyName,
// cyclePoint). If childID is non-empty, it is appended to the family's
// ChildTasks (isFamilyChild false) or ChildFamilies (isFamilyChild true):
// directly on the `added` entry when the family proxy is not yet in the
// store, or in an `updated` delta when it already is.
func (g *Ghost) EnsureFamilyProxy(familyName, cyclePoint string, childID string, isFamilyChild bool) string {
	id := FamilyProxyID(g.workflowID, cyclePoint, familyName)

	exists := g.store.HasFamilyProxy(id)
	_, inAdded := g.buffers.Added.FamilyProxies[id]

	if !exists && !inAdded {
		fdID := FamilyDefID(g.workflowID, familyName)
		fd := g.familyDef(fdID)
		if fd != nil {
			var ancestors []string
			var firstParent string
			if familyName != rootFamilyName {
				ancestors = substituteCyclePoint(g.workflowID, fd.Namespace[1:], cyclePoint, FamilyProxyID)
				firstParent = ancestors[0]
			}

			fp := &FamilyProxy{
				ID:          id,
				Stamp:       Stamp(id, g.clock.Now()),
				CyclePoint:  cyclePoint,
				Family:      fdID,
				Depth:       fd.Depth,
				FirstParent: firstParent,
				Ancestors:   append([]string{id}, ancestors...),
				StateTotals: make(map[string]int),
			}
			g.buffers.Added.FamilyProxies[id] = fp

			wf := g.buffers.updatedWorkflow(g.workflowID, g.clock)
			wf.FamilyProxies = appendUniqueString(wf.FamilyProxies, id)
			g.buffers.updatedFamily(fdID).Proxies = appendUniqueString(g.buffers.updatedFamily(fdID).Proxies, id)

			if len(fd.Namespace) > 1 {
				g.EnsureFamilyProxy(fd.Namespace[1], cyclePoint, id, true)
			}
		}
	}

	if childID != "" {
		fp, inAdded := g.buffers.Added.FamilyProxies[id]
		if exists || !inAdded {
			fp = g.buffers.updatedFamilyProxy(id, g.clock)
		}
		if isFamilyChild {
			fp.ChildFamilies = appendUniqueString(fp.ChildFamilies, childID)
		} else {
			fp.ChildTasks = appendUniqueString(fp.ChildTasks, childID)
		}
	}
	return id
}

func (g *Ghost) taskDef(id string) *TaskDef {
	if td, ok := g.store.Tasks[id]; ok {
		return td
	}
	if td, ok := g.buffers.Added.Tasks[id]; ok {
		return td
	}
	return nil
}

func (g *Ghost) familyDef(id string) *FamilyDef {
	if fd, ok := g.store.Families[id]; ok {
		return fd
	}
	if fd, ok := g.buffers.Added.Families[id]; ok {
		return fd
	}
	return nil
}

// substituteCyclePoint builds proxy ids for each ancestor name in names by
// substituting cyclePoint into the static namespace chain, preserving
// order (nearest ancestor first).
func substituteCyclePoint(workflowID string, names []string, cyclePoint string, idFn func(workflowID, cyclePoint, name string) string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = idFn(workflowID, cyclePoint, name)
	}
	return out
}
