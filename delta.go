package datastore

// Delta is a generic per-kind delta message (spec §4.7 step 2): `added` as a
// list of full entities, `updated` as a list of partials, `pruned` as a list
// of removed ids.
type Delta[T any] struct {
	Added    []T
	Updated  []T
	Pruned   []string
	Time     float64
	Reloaded bool
	Checksum uint32
}

// IsEmpty reports whether a delta carries no content, per the "fold added
// and updated into the per-kind delta messages ... for each per-kind delta
// with non-empty contents" rule (spec §4.7 steps 2–3).
func (d Delta[T]) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Pruned) == 0
}

// WorkflowDelta is the singleton analogue of Delta: the workflow has no
// `added`/`pruned` concept once it exists, only a partial `updated` (spec
// §4.1, §4.6, §4.7 step 2 "workflow is singleton — copy only if non-empty").
type WorkflowDelta struct {
	Updated  *Workflow
	Time     float64
	Reloaded bool
	Checksum uint32
}

// PublishBundle is the publishable bundle produced at the end of an
// iteration (spec §4.7 step 4): Entries lists only the non-empty per-kind
// deltas in AllKinds order as (kind, message) pairs; AllDeltas aggregates
// the same content keyed by kind, plus Workflow if set, as the combined
// message a subscriber applies in one call.
type PublishBundle struct {
	Entries   []PublishEntry
	AllDeltas map[Kind]any
	Workflow  *WorkflowDelta
}

// PublishEntry pairs a collection kind with its delta message.
type PublishEntry struct {
	Kind    Kind
	Message any
}
