package datastore

// ClearBeforeMerge lists, per kind, the field names that accumulate by
// replace rather than append when an `updated` delta is merged into the
// store. Every other (repeated) field accumulates by append. This mirrors
// the original CLEAR_FIELD_MAP table exactly. merge.go's per-kind merge
// functions and apply.go's clear*Fields helpers are hand-written (Go has no
// reflection-free generic field merge) and name the same fields directly;
// they do not read this table at run time.
var ClearBeforeMerge = map[Kind]map[string]bool{
	KindFamilyProxies: {"state_totals": true, "states": true},
	KindTaskProxies:   {"prerequisites": true, "outputs": true},
	KindWorkflow:      {"state_totals": true, "states": true},
}

// AddedSet holds entities not yet present in the store.
type AddedSet struct {
	Tasks         map[string]*TaskDef
	Families      map[string]*FamilyDef
	TaskProxies   map[string]*TaskProxy
	FamilyProxies map[string]*FamilyProxy
	Edges         map[string]*Edge
	Jobs          map[string]*Job
	Workflow      *Workflow
}

// UpdatedSet holds partial entities carrying only changed fields.
type UpdatedSet struct {
	Tasks         map[string]*TaskDef
	Families      map[string]*FamilyDef
	TaskProxies   map[string]*TaskProxy
	FamilyProxies map[string]*FamilyProxy
	Edges         map[string]*Edge
	Jobs          map[string]*Job
	Workflow      *Workflow
}

// PrunedSet holds ids scheduled for removal. Tasks and families are never
// pruned by this engine; proxies and edges are pruned by the graph elements
// engine, and jobs are pruned only by mirroring the job pool's own pruned
// set at finalize time (spec §4.7 step 1).
type PrunedSet struct {
	TaskProxies   map[string]struct{}
	FamilyProxies map[string]struct{}
	Edges         map[string]struct{}
	Jobs          map[string]struct{}
}

// Buffers is the three-bucket delta accumulator that shadows a Store
// between flush points.
type Buffers struct {
	Added   AddedSet
	Updated UpdatedSet
	Pruned  PrunedSet
}

// NewBuffers returns empty delta buffers with every map initialized.
func NewBuffers() *Buffers {
	b := &Buffers{}
	b.Clear()
	return b
}

// Clear empties every bucket. Per the "idempotent clear" testable property,
// calling Clear on already-empty buffers is a no-op observable only by the
// absence of content in the next publish.
func (b *Buffers) Clear() {
	b.Added = AddedSet{
		Tasks:         make(map[string]*TaskDef),
		Families:      make(map[string]*FamilyDef),
		TaskProxies:   make(map[string]*TaskProxy),
		FamilyProxies: make(map[string]*FamilyProxy),
		Edges:         make(map[string]*Edge),
		Jobs:          make(map[string]*Job),
	}
	b.Updated = UpdatedSet{
		Tasks:         make(map[string]*TaskDef),
		Families:      make(map[string]*FamilyDef),
		TaskProxies:   make(map[string]*TaskProxy),
		FamilyProxies: make(map[string]*FamilyProxy),
		Edges:         make(map[string]*Edge),
		Jobs:          make(map[string]*Job),
	}
	b.Pruned = PrunedSet{
		TaskProxies:   make(map[string]struct{}),
		FamilyProxies: make(map[string]struct{}),
		Edges:         make(map[string]struct{}),
		Jobs:          make(map[string]struct{}),
	}
}

// IsEmpty reports whether every bucket is empty. The iteration path does
// not call it; the buffer tests use it to check Clear.
func (b *Buffers) IsEmpty() bool {
	return len(b.Added.Tasks) == 0 && len(b.Added.Families) == 0 &&
		len(b.Added.TaskProxies) == 0 && len(b.Added.FamilyProxies) == 0 &&
		len(b.Added.Edges) == 0 && len(b.Added.Jobs) == 0 && b.Added.Workflow == nil &&
		len(b.Updated.Tasks) == 0 && len(b.Updated.Families) == 0 &&
		len(b.Updated.TaskProxies) == 0 && len(b.Updated.FamilyProxies) == 0 &&
		len(b.Updated.Edges) == 0 && len(b.Updated.Jobs) == 0 && b.Updated.Workflow == nil &&
		len(b.Pruned.TaskProxies) == 0 && len(b.Pruned.FamilyProxies) == 0 &&
		len(b.Pruned.Edges) == 0 && len(b.Pruned.Jobs) == 0
}

// updatedTaskProxy returns (creating if necessary) the in-progress
// `updated[task_proxies]` entry for id, refreshing its stamp.
func (b *Buffers) updatedTaskProxy(id string, clock Clock) *TaskProxy {
	tp, ok := b.Updated.TaskProxies[id]
	if !ok {
		tp = &TaskProxy{ID: id, Outputs: make(map[string]bool)}
		b.Updated.TaskProxies[id] = tp
	}
	tp.Stamp = Stamp(id, clock.Now())
	return tp
}

// updatedFamilyProxy returns (creating if necessary) the in-progress
// `updated[family_proxies]` entry for id, refreshing its stamp.
func (b *Buffers) updatedFamilyProxy(id string, clock Clock) *FamilyProxy {
	fp, ok := b.Updated.FamilyProxies[id]
	if !ok {
		fp = &FamilyProxy{ID: id, StateTotals: make(map[string]int)}
		b.Updated.FamilyProxies[id] = fp
	}
	fp.Stamp = Stamp(id, clock.Now())
	return fp
}

// updatedWorkflow returns (creating if necessary) the in-progress
// `updated[workflow]` singleton, refreshing its stamp.
func (b *Buffers) updatedWorkflow(id string, clock Clock) *Workflow {
	if b.Updated.Workflow == nil {
		b.Updated.Workflow = &Workflow{ID: id, StateTotals: make(map[string]int)}
	}
	b.Updated.Workflow.Stamp = Stamp(id, clock.Now())
	return b.Updated.Workflow
}

// updatedTask returns (creating if necessary) the in-progress
// `updated[tasks]` entry for id (used to append newly ghosted proxies to
// TaskDef.Proxies without touching the authoritative store directly).
func (b *Buffers) updatedTask(id string) *TaskDef {
	t, ok := b.Updated.Tasks[id]
	if !ok {
		t = &TaskDef{ID: id}
		b.Updated.Tasks[id] = t
	}
	return t
}

func (b *Buffers) updatedFamily(id string) *FamilyDef {
	f, ok := b.Updated.Families[id]
	if !ok {
		f = &FamilyDef{ID: id}
		b.Updated.Families[id] = f
	}
	return f
}
