package datastore

import (
	"sort"
	"strconv"
	"strings"
)

// ComparePoints orders two cycle points. Cycle points are opaque strings to
// this package; the default comparator treats them as integers when both
// parse as such (the common case for the literal scenarios in §8), falling
// back to lexicographic order otherwise so ISO-8601-like points still sort
// sanely.
func ComparePoints(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// Elements drives edge creation for new pool points, records source→target
// point adjacency, and prunes nodes/edges when cycle points leave the
// horizon (spec §4.3).
type Elements struct {
	PoolPoints map[string]bool
	EdgePoints map[string]map[string]bool // sourcePoint -> set(targetPoint)
	MinPoint   string
	MaxPoint   string

	workflowID string
	clock      Clock
}

// NewElements returns an empty Elements engine for workflowID.
func NewElements(workflowID string, clock Clock) *Elements {
	if clock == nil {
		clock = RealClock{}
	}
	return &Elements{
		PoolPoints: make(map[string]bool),
		EdgePoints: make(map[string]map[string]bool),
		workflowID: workflowID,
		clock:      clock,
	}
}

// Increment runs one invocation of the increment procedure: it creates
// edges (and their endpoint ghost proxies) for every cycle point newly
// present in newPoolPoints, refreshes min/max, and prunes points that have
// left both the pool and every edge's adjacency. It returns true if
// anything changed (the "updates_pending" flag).
func (e *Elements) Increment(newPoolPoints []string, cfg Config, store *Store, buffers *Buffers) bool {
	newPool := make(map[string]bool, len(newPoolPoints))
	for _, p := range newPoolPoints {
		newPool[p] = true
	}

	var added []string
	for p := range newPool {
		if !e.PoolPoints[p] {
			added = append(added, p)
		}
	}
	sort.Strings(added)

	changed := len(added) > 0
	ghost := NewGhost(e.workflowID, e.clock, store, buffers)

	for _, p := range added {
		if cfg.GraphEdges == nil {
			continue
		}
		for _, edge := range cfg.GraphEdges(p, p) {
			if edge.SourceNode == "" {
				// Invalid graph edge (null source): silently skipped (§7).
				continue
			}
			sName, sPoint, sOK := splitNamePoint(edge.SourceNode)
			if !sOK {
				continue
			}
			sPoolPoint := newPool[sPoint]

			var tName, tPoint string
			var tOK, tPoolPoint bool
			if edge.TargetNode != "" {
				tName, tPoint, tOK = splitNamePoint(edge.TargetNode)
				tPoolPoint = tOK && newPool[tPoint]
			}

			if !sPoolPoint && !tPoolPoint {
				continue
			}

			var sTPID string
			if sPoolPoint {
				sTPID = ghost.EnsureTaskProxy(sName, sPoint)
				e.recordEdgePoint(sPoint, "")
			}
			if tPoolPoint {
				tTPID := ghost.EnsureTaskProxy(tName, tPoint)
				e.recordEdgePoint(sPoint, tPoint)

				edgeID := EdgeID(e.workflowID, edge.SourceNode, edge.TargetNode)
				ed := &Edge{ID: edgeID, Source: sTPID, Target: tTPID, Suicide: edge.Suicide, Cond: edge.Cond}
				buffers.Added.Edges[edgeID] = ed

				if sTPID != "" {
					stp := buffers.updatedTaskProxy(sTPID, e.clock)
					stp.Edges = appendUniqueString(stp.Edges, edgeID)
				}
				ttp := buffers.updatedTaskProxy(tTPID, e.clock)
				ttp.Edges = appendUniqueString(ttp.Edges, edgeID)
			}
			changed = true
		}
	}

	e.PoolPoints = newPool
	e.refreshMinMax()

	prunedPoints := e.prune()
	if len(prunedPoints) > 0 {
		e.pruneFromStore(prunedPoints, store, buffers)
		changed = true
	}

	return changed
}

func (e *Elements) recordEdgePoint(sourcePoint, targetPoint string) {
	if _, ok := e.EdgePoints[sourcePoint]; !ok {
		e.EdgePoints[sourcePoint] = make(map[string]bool)
	}
	if targetPoint != "" {
		e.EdgePoints[sourcePoint][targetPoint] = true
	}
}

func (e *Elements) refreshMinMax() {
	if len(e.PoolPoints) == 0 {
		e.MinPoint, e.MaxPoint = "", ""
		return
	}
	first := true
	for p := range e.PoolPoints {
		if first || ComparePoints(p, e.MinPoint) < 0 {
			e.MinPoint = p
		}
		if first || ComparePoints(p, e.MaxPoint) > 0 {
			e.MaxPoint = p
		}
		first = false
	}
}

// prune implements step 4 of the increment procedure: it returns the set
// of points to prune and mutates EdgePoints in place.
func (e *Elements) prune() []string {
	var prunedPoints []string
	for sPoint, targets := range e.EdgePoints {
		sInPool := e.PoolPoints[sPoint]
		anyTargetInPool := false
		for tPoint := range targets {
			if e.PoolPoints[tPoint] {
				anyTargetInPool = true
				break
			}
		}
		if !sInPool && !anyTargetInPool {
			prunedPoints = append(prunedPoints, sPoint)
			for tPoint := range targets {
				prunedPoints = append(prunedPoints, tPoint)
			}
			delete(e.EdgePoints, sPoint)
			continue
		}
		for tPoint := range targets {
			if !e.PoolPoints[tPoint] {
				prunedPoints = append(prunedPoints, tPoint)
				delete(targets, tPoint)
			}
		}
	}
	return dedupeStrings(prunedPoints)
}

// pruneFromStore removes every task proxy, family proxy, and edge whose
// cycle point is in prunedPoints, recording them in buffers.Pruned (actual
// removal happens at finalize/apply time, per §4.8).
func (e *Elements) pruneFromStore(prunedPoints []string, store *Store, buffers *Buffers) {
	pruneSet := make(map[string]bool, len(prunedPoints))
	for _, p := range prunedPoints {
		pruneSet[p] = true
	}

	for id, tp := range store.TaskProxies {
		if pruneSet[tp.CyclePoint] {
			buffers.Pruned.TaskProxies[id] = struct{}{}
		}
	}
	for id, fp := range store.FamilyProxies {
		if pruneSet[fp.CyclePoint] {
			buffers.Pruned.FamilyProxies[id] = struct{}{}
		}
	}
	for id, ed := range store.Edges {
		_, sPoint, sOK := ParseProxyID(e.workflowID, ed.Source)
		_, tPoint, tOK := ParseProxyID(e.workflowID, ed.Target)
		if (sOK && pruneSet[sPoint]) || (tOK && pruneSet[tPoint]) {
			buffers.Pruned.Edges[id] = struct{}{}
		}
	}
}

// splitNamePoint decodes a "name/point" wire string.
func splitNamePoint(s string) (name, point string, ok bool) {
	idx := strings.LastIndex(s, "/")
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+1:], true
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
