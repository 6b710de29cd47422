package datastore

import "testing"

func TestApplyLiveTasksTranscribesStateAndFlagsFamily(t *testing.T) {
	wf := WorkflowID("me", "suite")
	clock := &fakeClock{}
	cfg := twoTaskConfig()
	store := seedStoreFromConfig(t, wf, clock, cfg)
	buffers := NewBuffers()
	ghost := NewGhost(wf, clock, store, buffers)
	tpID := ghost.EnsureTaskProxy("a", "1")
	for id, tp := range buffers.Added.TaskProxies {
		store.TaskProxies[id] = tp
	}
	for id, fp := range buffers.Added.FamilyProxies {
		store.FamilyProxies[id] = fp
	}
	buffers.Clear()

	stateUpdateFamilies := make(map[string]bool)
	live := []LiveTask{{
		TaskProxyID:   tpID,
		State:         "running",
		IsHeld:        true,
		JobSubmits:    1,
		LatestMessage: "started",
		Outputs:       map[string]bool{"submitted": true},
	}}
	NewDynamic(wf, clock).ApplyLiveTasks(live, cfg, store, buffers, stateUpdateFamilies)

	upd, ok := buffers.Updated.TaskProxies[tpID]
	if !ok {
		t.Fatalf("ApplyLiveTasks did not write an updated entry for %q", tpID)
	}
	if upd.State != "running" || !upd.IsHeld || upd.LatestMessage != "started" {
		t.Errorf("unexpected updated task proxy: %+v", upd)
	}

	fam := store.TaskProxies[tpID].FirstParent
	if !stateUpdateFamilies[fam] {
		t.Errorf("ApplyLiveTasks did not flag %q for rollup", fam)
	}
}

func TestApplyLiveTasksSkipsUnknownTaskProxy(t *testing.T) {
	wf := WorkflowID("me", "suite")
	store := NewStore()
	buffers := NewBuffers()
	stateUpdateFamilies := make(map[string]bool)

	NewDynamic(wf, &fakeClock{}).ApplyLiveTasks(
		[]LiveTask{{TaskProxyID: "unknown"}}, Config{}, store, buffers, stateUpdateFamilies)

	if len(buffers.Updated.TaskProxies) != 0 {
		t.Errorf("ApplyLiveTasks wrote an update for an unknown task proxy id")
	}
}

func TestRecomputeMeanElapsedTimeFallsBackToExecutionLimit(t *testing.T) {
	wf := WorkflowID("me", "suite")
	clock := &fakeClock{}
	cfg := twoTaskConfig()
	cfg.ExecutionTimeLimits = map[string]float64{"a": 42.0}
	store := seedStoreFromConfig(t, wf, clock, cfg)
	buffers := NewBuffers()
	ghost := NewGhost(wf, clock, store, buffers)
	tpID := ghost.EnsureTaskProxy("a", "1")
	for id, tp := range buffers.Added.TaskProxies {
		store.TaskProxies[id] = tp
	}
	buffers.Clear()

	live := []LiveTask{{TaskProxyID: tpID, State: "succeeded"}}
	NewDynamic(wf, clock).ApplyLiveTasks(live, cfg, store, buffers, make(map[string]bool))

	td := store.Tasks[TaskDefID(wf, "a")]
	if td.MeanElapsedTime != 42.0 {
		t.Errorf("MeanElapsedTime = %v, want fallback to execution time limit 42", td.MeanElapsedTime)
	}
}
