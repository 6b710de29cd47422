package datastore

// appendUniqueString appends v to list if not already present, preserving
// order. Every repeated-field merge in this package goes through this
// helper so "append on merge" never silently duplicates an id.
func appendUniqueString(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func appendUniqueStrings(list []string, vs ...string) []string {
	for _, v := range vs {
		list = appendUniqueString(list, v)
	}
	return list
}

// mergeTaskProxyInto merges a partial `updated[task_proxies]` delta into
// the authoritative dst entity.
//
// Prerequisites and Outputs are in the clear-before-merge set (see
// ClearBeforeMerge[KindTaskProxies]): the delta replaces them wholesale.
// Jobs and Edges are repeated fields that accumulate by append. State,
// FlowLabel, JobSubmits, LatestMessage and ExtrasJSON overwrite dst only
// when the delta carries a non-zero value; IsHeld is always copied from the
// delta.
func mergeTaskProxyInto(dst, delta *TaskProxy) {
	dst.Stamp = delta.Stamp
	if delta.State != "" {
		dst.State = delta.State
	}
	dst.IsHeld = delta.IsHeld
	if delta.FlowLabel != "" {
		dst.FlowLabel = delta.FlowLabel
	}
	if delta.JobSubmits != 0 {
		dst.JobSubmits = delta.JobSubmits
	}
	if delta.LatestMessage != "" {
		dst.LatestMessage = delta.LatestMessage
	}
	if delta.ExtrasJSON != "" {
		dst.ExtrasJSON = delta.ExtrasJSON
	}
	if delta.Prerequisites != nil {
		dst.Prerequisites = delta.Prerequisites
	}
	if delta.Outputs != nil {
		dst.Outputs = delta.Outputs
	}
	for _, j := range delta.Jobs {
		dst.Jobs = appendUniqueString(dst.Jobs, j)
	}
	for _, e := range delta.Edges {
		dst.Edges = appendUniqueString(dst.Edges, e)
	}
}

// mergeFamilyProxyInto merges a partial `updated[family_proxies]` delta.
// StateTotals and States are in the clear-before-merge set; ChildTasks and
// ChildFamilies are repeated fields that append.
func mergeFamilyProxyInto(dst, delta *FamilyProxy) {
	dst.Stamp = delta.Stamp
	if delta.StateTotals != nil {
		dst.StateTotals = delta.StateTotals
	}
	if delta.States != nil {
		dst.States = delta.States
	}
	if delta.State != "" {
		dst.State = delta.State
	}
	dst.IsHeld = delta.IsHeld
	if delta.IsHeldTotal != 0 || delta.StateTotals != nil {
		dst.IsHeldTotal = delta.IsHeldTotal
	}
	for _, t := range delta.ChildTasks {
		dst.ChildTasks = appendUniqueString(dst.ChildTasks, t)
	}
	for _, f := range delta.ChildFamilies {
		dst.ChildFamilies = appendUniqueString(dst.ChildFamilies, f)
	}
}

// mergeWorkflowInto merges a partial `updated[workflow]` delta.
// StateTotals and States are in the clear-before-merge set; the id-list
// fields (Tasks, Families, TaskProxies, FamilyProxies, Edges, Jobs) append.
func mergeWorkflowInto(dst, delta *Workflow) {
	dst.Stamp = delta.Stamp
	if delta.StateTotals != nil {
		dst.StateTotals = delta.StateTotals
	}
	if delta.States != nil {
		dst.States = delta.States
	}
	if delta.Status != "" {
		dst.Status = delta.Status
	}
	if delta.StatusMsg != "" {
		dst.StatusMsg = delta.StatusMsg
	}
	if delta.IsHeldTotal != 0 || delta.StateTotals != nil {
		dst.IsHeldTotal = delta.IsHeldTotal
	}
	if delta.OldestCyclePoint != "" {
		dst.OldestCyclePoint = delta.OldestCyclePoint
	}
	if delta.NewestCyclePoint != "" {
		dst.NewestCyclePoint = delta.NewestCyclePoint
	}
	if delta.NewestRunaheadCyclePoint != "" {
		dst.NewestRunaheadCyclePoint = delta.NewestRunaheadCyclePoint
	}
	dst.Tasks = appendUniqueStrings(dst.Tasks, delta.Tasks...)
	dst.Families = appendUniqueStrings(dst.Families, delta.Families...)
	dst.TaskProxies = appendUniqueStrings(dst.TaskProxies, delta.TaskProxies...)
	dst.FamilyProxies = appendUniqueStrings(dst.FamilyProxies, delta.FamilyProxies...)
	dst.Edges = appendUniqueStrings(dst.Edges, delta.Edges...)
	dst.Jobs = appendUniqueStrings(dst.Jobs, delta.Jobs...)
}

// mergeTaskDefInto merges a partial `updated[tasks]` delta (only ever used
// to append a freshly ghosted proxy id to Proxies).
func mergeTaskDefInto(dst, delta *TaskDef) {
	dst.Proxies = appendUniqueStrings(dst.Proxies, delta.Proxies...)
}

// mergeFamilyDefInto merges a partial `updated[families]` delta: Proxies
// (appended by the ghost generator), ChildTasks and ChildFamilies all
// accumulate by append.
func mergeFamilyDefInto(dst, delta *FamilyDef) {
	dst.Proxies = appendUniqueStrings(dst.Proxies, delta.Proxies...)
	dst.ChildTasks = appendUniqueStrings(dst.ChildTasks, delta.ChildTasks...)
	dst.ChildFamilies = appendUniqueStrings(dst.ChildFamilies, delta.ChildFamilies...)
}
