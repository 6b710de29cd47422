package datastore

import "testing"

// These tests drive the full Manager.Iterate pipeline end-to-end, mirroring
// the literal scenarios in spec §8 (S1 cold start through S6 reload).

func newTestManager(t *testing.T, wf string, clock Clock) *Manager {
	t.Helper()
	m, err := New(wf, WithClock(clock))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

// S1 — cold start: tasks {A,B}, A->B graph at point 1, pool={1}.
func TestIterateColdStart(t *testing.T) {
	wf := WorkflowID("me", "suite")
	clock := &fakeClock{}
	m := newTestManager(t, wf, clock)
	cfg := twoTaskConfig("1")
	pool := fakePool{points: []string{"1"}}
	jobPool := newFakeJobPool()

	m.Iterate(cfg, fakeScheduler(), pool, jobPool, nil, false)

	store := m.Store()
	if len(store.Tasks) != 2 {
		t.Fatalf("store has %d tasks, want 2", len(store.Tasks))
	}
	rootID := FamilyProxyID(wf, "1", rootFamilyName)
	if _, ok := store.FamilyProxies[rootID]; !ok {
		t.Errorf("store missing root family proxy %q", rootID)
	}
	aID, bID := TaskProxyID(wf, "1", "a"), TaskProxyID(wf, "1", "b")
	if _, ok := store.TaskProxies[aID]; !ok {
		t.Errorf("store missing task proxy %q", aID)
	}
	if _, ok := store.TaskProxies[bID]; !ok {
		t.Errorf("store missing task proxy %q", bID)
	}
	if len(store.Edges) != 1 {
		t.Errorf("store has %d edges, want 1", len(store.Edges))
	}
	foundA, foundB := false, false
	for _, id := range store.Workflow.TaskProxies {
		foundA = foundA || id == aID
		foundB = foundB || id == bID
	}
	if !foundA || !foundB {
		t.Errorf("workflow.task_proxies = %v, missing a/1 or b/1", store.Workflow.TaskProxies)
	}
}

// S2 — pool advance: after S1, pool becomes {1,2}. New edges/proxies appear,
// nothing is pruned, min==1 max==2.
func TestIteratePoolAdvanceAddsNewPoint(t *testing.T) {
	wf := WorkflowID("me", "suite")
	clock := &fakeClock{}
	m := newTestManager(t, wf, clock)
	cfg := twoTaskConfig("1", "2")
	jobPool := newFakeJobPool()

	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1"}}, jobPool, nil, false)
	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1", "2"}}, jobPool, nil, false)

	store := m.Store()
	aID2, bID2 := TaskProxyID(wf, "2", "a"), TaskProxyID(wf, "2", "b")
	if _, ok := store.TaskProxies[aID2]; !ok {
		t.Errorf("store missing new-point task proxy %q", aID2)
	}
	if _, ok := store.TaskProxies[bID2]; !ok {
		t.Errorf("store missing new-point task proxy %q", bID2)
	}
	if len(store.Edges) != 2 {
		t.Errorf("store has %d edges, want 2", len(store.Edges))
	}
	aID1 := TaskProxyID(wf, "1", "a")
	if _, ok := store.TaskProxies[aID1]; !ok {
		t.Errorf("point-1 task proxy %q was pruned, want kept", aID1)
	}
	if m.elements.MinPoint != "1" || m.elements.MaxPoint != "2" {
		t.Errorf("min/max = %q/%q, want 1/2", m.elements.MinPoint, m.elements.MaxPoint)
	}
}

// S3 — pool slide: pool becomes {2}. Point-1 proxies and their edge are
// pruned; min==max==2.
func TestIteratePoolSlidePrunesOldPoint(t *testing.T) {
	wf := WorkflowID("me", "suite")
	clock := &fakeClock{}
	m := newTestManager(t, wf, clock)
	cfg := twoTaskConfig("1", "2")
	jobPool := newFakeJobPool()

	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1"}}, jobPool, nil, false)
	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1", "2"}}, jobPool, nil, false)
	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"2"}}, jobPool, nil, false)

	store := m.Store()
	aID1, bID1 := TaskProxyID(wf, "1", "a"), TaskProxyID(wf, "1", "b")
	if _, ok := store.TaskProxies[aID1]; ok {
		t.Errorf("point-1 task proxy %q should have been pruned", aID1)
	}
	if _, ok := store.TaskProxies[bID1]; ok {
		t.Errorf("point-1 task proxy %q should have been pruned", bID1)
	}
	if m.elements.MinPoint != "2" || m.elements.MaxPoint != "2" {
		t.Errorf("min/max = %q/%q, want 2/2", m.elements.MinPoint, m.elements.MaxPoint)
	}
}

// S4 — state change: B/1.state := "running" rolls up into
// family_proxies[root/1].state_totals and workflow.state_totals.
func TestIterateStateChangeRollsUpToWorkflow(t *testing.T) {
	wf := WorkflowID("me", "suite")
	clock := &fakeClock{}
	m := newTestManager(t, wf, clock)
	cfg := twoTaskConfig("1")
	jobPool := newFakeJobPool()

	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1"}}, jobPool, nil, false)

	bID := TaskProxyID(wf, "1", "b")
	live := []LiveTask{{TaskProxyID: bID, State: "running"}}
	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1"}}, jobPool, live, false)

	store := m.Store()
	rootID := FamilyProxyID(wf, "1", rootFamilyName)
	rootFP := store.FamilyProxies[rootID]
	if rootFP.StateTotals["running"] != 1 {
		t.Errorf("root family state_totals[running] = %d, want 1 (totals=%v)", rootFP.StateTotals["running"], rootFP.StateTotals)
	}
	if store.Workflow.StateTotals["running"] != 1 {
		t.Errorf("workflow state_totals[running] = %d, want 1 (totals=%v)", store.Workflow.StateTotals["running"], store.Workflow.StateTotals)
	}
}

// S5 — hold propagation: two tasks under family FAM/1, one held.
func TestIterateHoldPropagationAndRelease(t *testing.T) {
	wf := WorkflowID("me", "suite")
	clock := &fakeClock{}
	m := newTestManager(t, wf, clock)
	cfg := twoTaskConfig("1")
	jobPool := newFakeJobPool()

	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1"}}, jobPool, nil, false)

	aID := TaskProxyID(wf, "1", "a")
	bID := TaskProxyID(wf, "1", "b")
	live := []LiveTask{{TaskProxyID: aID, IsHeld: true}, {TaskProxyID: bID, IsHeld: false}}
	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1"}}, jobPool, live, false)

	famID := FamilyProxyID(wf, "1", "FAM")
	fp := m.Store().FamilyProxies[famID]
	if !fp.IsHeld || fp.IsHeldTotal != 1 {
		t.Fatalf("after one hold: is_held=%v is_held_total=%d, want true/1", fp.IsHeld, fp.IsHeldTotal)
	}

	liveUnhold := []LiveTask{{TaskProxyID: aID, IsHeld: false}, {TaskProxyID: bID, IsHeld: false}}
	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1"}}, jobPool, liveUnhold, false)

	fp = m.Store().FamilyProxies[famID]
	if fp.IsHeld || fp.IsHeldTotal != 0 {
		t.Errorf("after unhold: is_held=%v is_held_total=%d, want false/0", fp.IsHeld, fp.IsHeldTotal)
	}
}

// S6 — reload: renaming B to C drops the stale definition and reconciles
// job-pool references for the removed task.
func TestIterateReloadReconcilesStaleJobs(t *testing.T) {
	wf := WorkflowID("me", "suite")
	clock := &fakeClock{}
	m := newTestManager(t, wf, clock)
	cfg := twoTaskConfig("1")
	jobPool := newFakeJobPool()

	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1"}}, jobPool, nil, false)

	bID := TaskProxyID(wf, "1", "b")
	jobPool.taskJobs[bID] = []string{"job1"}

	cfg2 := cfg
	cfg2.TaskDefNames = []string{"a", "c"}
	cfg2.Parents = map[string][]string{"a": {"FAM"}, "c": {"FAM"}}
	cfg2.FirstParentAncestors = map[string][]string{"a": {"FAM"}, "c": {"FAM"}}

	m.Iterate(cfg2, fakeScheduler(), fakePool{points: []string{}}, jobPool, nil, true)

	store := m.Store()
	if _, ok := store.Tasks[TaskDefID(wf, "b")]; ok {
		t.Errorf("reload kept stale task definition %q", "b")
	}
	if _, ok := store.Tasks[TaskDefID(wf, "c")]; !ok {
		t.Errorf("reload missing new task definition %q", "c")
	}
	if len(store.Tasks) != 2 {
		t.Errorf("store has %d task defs after reload, want 2 (a,c)", len(store.Tasks))
	}
	found := false
	for _, id := range jobPool.removed {
		found = found || id == bID
	}
	if !found {
		t.Errorf("reload did not reconcile stale job reference for %q; removed=%v", bID, jobPool.removed)
	}
}

// Config loaded from a YAML fixture (instead of the literal twoTaskConfig
// builder) drives the same cold-start shape as S1.
func TestIterateColdStartFromYAMLConfig(t *testing.T) {
	wf := WorkflowID("me", "suite")
	clock := &fakeClock{}
	m := newTestManager(t, wf, clock)
	cfg := configFromYAML(t, `
tasks: [a, b]
families: [FAM]
parents:
  a: [FAM]
  b: [FAM]
ancestors:
  a: [FAM]
  b: [FAM]
edges:
  - source: a/1
    target: b/1
`)
	jobPool := newFakeJobPool()

	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1"}}, jobPool, nil, false)

	store := m.Store()
	if len(store.Tasks) != 2 {
		t.Fatalf("store has %d tasks, want 2", len(store.Tasks))
	}
	if len(store.Edges) != 1 {
		t.Errorf("store has %d edges, want 1", len(store.Edges))
	}
}

// Job-pool deltas (§4.7 step 1): a job submitted against a live task proxy
// is absorbed into the store and appended to workflow.jobs by finalize.
func TestIterateAbsorbsJobPoolDeltas(t *testing.T) {
	wf := WorkflowID("me", "suite")
	clock := &fakeClock{}
	m := newTestManager(t, wf, clock)
	cfg := twoTaskConfig("1")
	jobPool := newFakeJobPool()

	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1"}}, jobPool, nil, false)

	aID := TaskProxyID(wf, "1", "a")
	jobID := jobPool.SubmitJob(aID)

	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1"}}, jobPool, nil, false)

	store := m.Store()
	if _, ok := store.Jobs[jobID]; !ok {
		t.Fatalf("store missing job %q absorbed from job pool deltas", jobID)
	}
	found := false
	for _, id := range store.Workflow.Jobs {
		found = found || id == jobID
	}
	if !found {
		t.Errorf("workflow.jobs = %v, missing %q", store.Workflow.Jobs, jobID)
	}
}

// Round-trip: applying the publish bundle from one iteration to a mirror
// Manager reproduces the same set of live ids (spec §8 testable property 6).
func TestApplyBundleReproducesProducerIDs(t *testing.T) {
	wf := WorkflowID("me", "suite")
	producer := newTestManager(t, wf, &fakeClock{})
	mirror := newTestManager(t, wf, &fakeClock{})
	cfg := twoTaskConfig("1")
	jobPool := newFakeJobPool()

	bundle := producer.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1"}}, jobPool, nil, false)
	mirror.Apply(bundle)

	pStore, mStore := producer.Store(), mirror.Store()
	if len(pStore.TaskProxies) != len(mStore.TaskProxies) {
		t.Fatalf("mirror has %d task proxies, producer has %d", len(mStore.TaskProxies), len(pStore.TaskProxies))
	}
	for id := range pStore.TaskProxies {
		if _, ok := mStore.TaskProxies[id]; !ok {
			t.Errorf("mirror missing task proxy %q present in producer", id)
		}
	}
	for id := range pStore.Edges {
		if _, ok := mStore.Edges[id]; !ok {
			t.Errorf("mirror missing edge %q present in producer", id)
		}
	}
}
