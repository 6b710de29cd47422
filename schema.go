package datastore

// TaskDef is the static definition of a task, shared by every cycle-point
// instance (TaskProxy) of that task.
type TaskDef struct {
	ID               string   `json:"id"`
	Stamp            string   `json:"stamp"`
	Name             string   `json:"name"`
	Depth            int      `json:"depth"`
	Namespace        []string `json:"namespace"`
	Parents          []string `json:"parents"`
	FirstParent      string   `json:"first_parent"`
	MeanElapsedTime  float64  `json:"mean_elapsed_time,omitempty"`
	Title            string   `json:"title,omitempty"`
	Description      string   `json:"description,omitempty"`
	URL              string   `json:"url,omitempty"`
	MetaJSON         string   `json:"meta,omitempty"`
	ElapsedTimes     []float64 `json:"-"`
	ExecutionTimeLimit *float64 `json:"-"`
	Proxies          []string `json:"proxies"`
}

// FamilyDef is the static definition of a family namespace.
type FamilyDef struct {
	ID            string   `json:"id"`
	Stamp         string   `json:"stamp"`
	Name          string   `json:"name"`
	Depth         int      `json:"depth"`
	// Namespace is [name, ancestor1, ancestor2, ..., "root"], the same
	// convention TaskDef.Namespace uses; it is how the ghost generator
	// derives a FamilyProxy's ancestor chain for a given cycle point
	// without re-walking Config on every ghost request.
	Namespace     []string `json:"-"`
	Parents       []string `json:"parents"`
	FirstParent   string   `json:"first_parent"`
	Title         string   `json:"title,omitempty"`
	Description   string   `json:"description,omitempty"`
	URL           string   `json:"url,omitempty"`
	MetaJSON      string   `json:"meta,omitempty"`
	ChildTasks    []string `json:"child_tasks"`
	ChildFamilies []string `json:"child_families"`
	Proxies       []string `json:"proxies"`
}

// TaskProxy is a cycle-point instance of a TaskDef.
type TaskProxy struct {
	ID            string `json:"id"`
	Stamp         string `json:"stamp"`
	CyclePoint    string `json:"cycle_point"`
	Task          string `json:"task"`
	Depth         int    `json:"depth"`
	Namespace     []string `json:"namespace"`
	FirstParent   string   `json:"first_parent"`
	Ancestors     []string `json:"ancestors"`
	State         string   `json:"state"`
	IsHeld        bool     `json:"is_held"`
	FlowLabel     string   `json:"flow_label,omitempty"`
	JobSubmits    int      `json:"job_submits"`
	LatestMessage string   `json:"latest_message,omitempty"`
	Jobs          []string `json:"jobs"`
	Edges         []string `json:"edges"`

	// Prerequisites and Outputs are in the clear-before-merge set: every
	// delta that touches them replaces the field wholesale rather than
	// appending.
	Prerequisites []string        `json:"prerequisites"`
	Outputs       map[string]bool `json:"outputs"`

	ExtrasJSON string `json:"extras,omitempty"`
}

// FamilyProxy is a cycle-point instance of a FamilyDef.
type FamilyProxy struct {
	ID            string   `json:"id"`
	Stamp         string   `json:"stamp"`
	CyclePoint    string   `json:"cycle_point"`
	Family        string   `json:"family"`
	Depth         int      `json:"depth"`
	FirstParent   string   `json:"first_parent"`
	Ancestors     []string `json:"ancestors"`
	ChildTasks    []string `json:"child_tasks"`
	ChildFamilies []string `json:"child_families"`
	IsHeld        bool     `json:"is_held"`
	IsHeldTotal   int      `json:"is_held_total"`

	// States and StateTotals are in the clear-before-merge set.
	States      []string       `json:"states"`
	StateTotals map[string]int `json:"state_totals"`
	State       string         `json:"state"`
}

// Edge connects two task-proxy nodes. Endpoints are TaskProxyIds.
type Edge struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Suicide bool   `json:"suicide"`
	Cond    bool   `json:"cond"`
}

// Job is opaque to this package; it is owned by the external JobPool and
// only referenced by id from TaskProxy.Jobs. The struct exists so the
// finalizer/applicator have a concrete type to copy deltas of. This package
// creates Job values only as clones for published messages, and changes a
// stored Job only by overwriting its Stamp and TaskProxy from an updated
// job-pool delta.
type Job struct {
	ID     string `json:"id"`
	Stamp  string `json:"stamp"`
	TaskProxy string `json:"task_proxy"`
}

// Workflow is the store's singleton root summary.
type Workflow struct {
	ID      string `json:"id"`
	Stamp   string `json:"stamp"`
	Name    string `json:"name"`
	Owner   string `json:"owner"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	PubPort int    `json:"pub_port"`

	APIVersion     string `json:"api_version"`
	CylcVersion    string `json:"cylc_version"`
	TreeDepth      int    `json:"tree_depth"`
	RunMode        string `json:"run_mode"`
	CyclingMode    string `json:"cycling_mode"`
	UTCMode        bool   `json:"utc_mode"`
	LogDir         string `json:"log_dir"`
	NsDefnOrder    []string `json:"ns_defn_order"`
	BroadcastsJSON string `json:"broadcasts,omitempty"`

	Status    string `json:"status"`
	StatusMsg string `json:"status_msg"`

	// States and StateTotals are in the clear-before-merge set.
	States      []string       `json:"states"`
	StateTotals map[string]int `json:"state_totals"`
	IsHeldTotal int            `json:"is_held_total"`

	OldestCyclePoint          string `json:"oldest_cycle_point,omitempty"`
	NewestCyclePoint          string `json:"newest_cycle_point,omitempty"`
	NewestRunaheadCyclePoint  string `json:"newest_runahead_cycle_point,omitempty"`

	Tasks        []string `json:"tasks"`
	Families     []string `json:"families"`
	TaskProxies  []string `json:"task_proxies"`
	FamilyProxies []string `json:"family_proxies"`
	Edges        []string `json:"edges"`
	Jobs         []string `json:"jobs"`

	MetaJSON string `json:"meta,omitempty"`
}

// Kind names the six collection kinds plus the workflow singleton. These
// exact strings are the keys of the clear-before-merge table (buffers.go)
// and of PublishBundle.AllDeltas (delta.go).
type Kind string

const (
	KindTasks         Kind = "tasks"
	KindFamilies      Kind = "families"
	KindTaskProxies   Kind = "task_proxies"
	KindFamilyProxies Kind = "family_proxies"
	KindEdges         Kind = "edges"
	KindJobs          Kind = "jobs"
	KindWorkflow      Kind = "workflow"
)

// AllKinds lists every collection kind in a fixed order; Finalize assembles
// a publish bundle's per-kind entries in this same order.
var AllKinds = []Kind{KindTasks, KindFamilies, KindTaskProxies, KindFamilyProxies, KindEdges, KindJobs}

const rootFamilyName = "root"
