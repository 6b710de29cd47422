// Package emit provides event emission and observability for the data store
// engine's iteration loop.
package emit

// Event describes a single lifecycle occurrence during a data store
// iteration: a definition reload, a graph-elements increment, a rollup pass,
// or a publish. Consumers (loggers, metrics bridges, test spies) receive
// these through an Emitter.
//
// Common Meta keys by Msg:
//   - "definitions_generated": "tasks", "families" (counts)
//   - "elements_pruned": "min_point", "max_point" (emitted whenever a graph
//     increment added or pruned anything)
//   - "rollup_applied": "family" (id of the family proxy that rolled up)
//   - "deltas_published": "entries" (number of non-empty bundle entries)
//   - "apply_skipped": "kind", "id" (the missing update target, per the
//     "missing update target" error-handling rule)
type Event struct {
	WorkflowID string
	Iteration  int64
	Msg        string
	Meta       map[string]interface{}
}
