package datastore

// Config is the narrow view of the workflow configuration loader this
// engine depends on (spec §6). Implementations wrap the real scheduler
// configuration; tests supply a fixture.
type Config struct {
	// TaskDefNames lists every task definition name, in namespace
	// definition order.
	TaskDefNames []string
	// FamilyNames lists every family namespace name (excluding the
	// synthetic "root", which this engine always adds implicitly).
	FamilyNames []string
	// Parents maps a task or family name to its full parent list, most
	// specific first.
	Parents map[string][]string
	// FirstParentAncestors maps a task or family name to its first-parent
	// ancestor chain, nearest first, terminating before "root".
	FirstParentAncestors map[string][]string
	// Meta maps a task or family name to its user-defined meta JSON blob
	// (may contain "title", "description", "URL", and arbitrary keys).
	Meta map[string]string
	// ExecutionTimeLimits maps a task name to its configured execution
	// time limit in seconds, used as the mean-elapsed-time fallback.
	ExecutionTimeLimits map[string]float64
	// NsDefnOrder is the namespace definition order for the workflow
	// summary.
	NsDefnOrder []string
	// RunMode and CyclingMode are copied verbatim into the workflow
	// summary.
	RunMode     string
	CyclingMode string
	UTCMode     bool

	// GraphEdges returns every graph edge whose source cycle point lies in
	// [start, stop]. Each edge is (sourceNode, targetNode, suicide, cond);
	// sourceNode/targetNode are "name/point" strings, or "" if the source
	// is null (an isolated dependency root).
	GraphEdges func(start, stop string) []GraphEdge
}

// GraphEdge is one edge as reported by Config.GraphEdges.
type GraphEdge struct {
	SourceNode string
	TargetNode string
	Suicide    bool
	Cond       bool
}

// Scheduler is the narrow view of the running scheduler this engine reads
// identity and status from (spec §6).
type Scheduler struct {
	Owner   string
	Suite   string
	Host    string
	Port    int
	PubPort int
	LogDir  string

	// Status returns the current (status, status_msg) pair, e.g. via the
	// scheduler's own suite-status computation.
	Status func() (status, statusMsg string)
}

// Pool is the narrow view of the scheduler's live cycle-point pool (spec
// §6).
type Pool interface {
	// Points returns the cycle points currently in the pool.
	Points() []string
	// MaxRunaheadPoint returns the maximum point the scheduler may run
	// ahead to, or "" if unset.
	MaxRunaheadPoint() string
}

// JobPool is the narrow view of the external job pool this engine mirrors
// job ids from (spec §6). The data store never mutates jobs directly; it
// only copies JobPool's own deltas into its buffers (§4.7 step 1).
type JobPool interface {
	// Deltas returns and clears the job pool's own pending added/updated/
	// pruned buckets for this iteration.
	Deltas() (added, updated map[string]*Job, pruned []string)
	// TaskJobs returns the current task-proxy-id -> job-id keyspace,
	// consulted during reload reconciliation (§4.2).
	TaskJobs() map[string][]string
	// RemoveTaskJobs drops all job references for a task-proxy id that no
	// longer exists after a reload.
	RemoveTaskJobs(taskProxyID string)
}

// LiveTask is the narrow view of a live scheduler task object the dynamic
// update path reads from (spec §6, §4.4).
type LiveTask struct {
	TaskProxyID   string
	State         string
	IsHeld        bool
	FlowLabel     string
	JobSubmits    int
	LatestMessage string
	NewJobIDs     []string

	// Prerequisites dumps each prerequisite's wire-form string; empty
	// prerequisites are already filtered out by the caller.
	Prerequisites []string
	// Outputs maps output trigger name to whether it has completed.
	Outputs map[string]bool

	// Extras fields, composed into the ExtrasJSON blob (§4.4 step 6).
	ClockTriggerSatisfied    bool
	ClockTriggerTime         float64
	HasClockTrigger          bool
	ExternalTriggersSatisfied map[string]bool
	XtriggersSatisfied        map[string]string // label -> signature

	// ElapsedTime is the duration of this task's most recent run, if any,
	// fed into the mean-elapsed-time recompute pass after a batch.
	ElapsedTime    float64
	HasElapsedTime bool
}
