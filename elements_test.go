package datastore

import "testing"

func TestComparePointsIntegerOrder(t *testing.T) {
	if ComparePoints("2", "10") >= 0 {
		t.Errorf("ComparePoints compared 2 and 10 lexicographically instead of numerically")
	}
}

func seedStoreFromConfig(t *testing.T, wf string, clock Clock, cfg Config) *Store {
	t.Helper()
	store := NewStore()
	buffers := NewBuffers()
	NewGenerator(wf, clock).Generate(cfg, buffers)
	for id, td := range buffers.Added.Tasks {
		store.Tasks[id] = td
	}
	for id, fd := range buffers.Added.Families {
		store.Families[id] = fd
	}
	store.Workflow = buffers.Added.Workflow
	return store
}

func TestElementsIncrementCreatesEdgeAndGhostsProxies(t *testing.T) {
	wf := WorkflowID("me", "suite")
	clock := &fakeClock{}
	cfg := twoTaskConfig("1")
	store := seedStoreFromConfig(t, wf, clock, cfg)
	buffers := NewBuffers()

	el := NewElements(wf, clock)
	changed := el.Increment([]string{"1"}, cfg, store, buffers)
	if !changed {
		t.Fatalf("Increment reported no change on the first pool point")
	}

	aID := TaskProxyID(wf, "1", "a")
	bID := TaskProxyID(wf, "1", "b")
	if _, ok := buffers.Added.TaskProxies[aID]; !ok {
		t.Errorf("Increment did not ghost source task proxy")
	}
	if _, ok := buffers.Added.TaskProxies[bID]; !ok {
		t.Errorf("Increment did not ghost target task proxy")
	}
	if len(buffers.Added.Edges) != 1 {
		t.Errorf("Increment created %d edges, want 1", len(buffers.Added.Edges))
	}
	if el.MinPoint != "1" || el.MaxPoint != "1" {
		t.Errorf("MinPoint/MaxPoint = %q/%q, want 1/1", el.MinPoint, el.MaxPoint)
	}
}

func TestElementsIncrementPrunesPointsThatLeaveThePool(t *testing.T) {
	wf := WorkflowID("me", "suite")
	clock := &fakeClock{}
	cfg := twoTaskConfig("1")
	store := seedStoreFromConfig(t, wf, clock, cfg)
	buffers := NewBuffers()

	el := NewElements(wf, clock)
	el.Increment([]string{"1"}, cfg, store, buffers)
	for id, tp := range buffers.Added.TaskProxies {
		store.TaskProxies[id] = tp
	}
	for id, ed := range buffers.Added.Edges {
		store.Edges[id] = ed
	}
	buffers.Clear()

	changed := el.Increment([]string{"2"}, cfg, store, buffers)
	if !changed {
		t.Fatalf("Increment reported no change when point 1 left the pool")
	}
	aID := TaskProxyID(wf, "1", "a")
	if _, ok := buffers.Pruned.TaskProxies[aID]; !ok {
		t.Errorf("Increment did not flag point-1 task proxy for pruning")
	}
}
