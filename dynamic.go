package datastore

import (
	"sort"

	"github.com/tidwall/sjson"
)

// Dynamic transcribes live task-proxy state from the scheduler's task pool
// into the `updated` bucket and flags families for rollup (spec §4.4).
type Dynamic struct {
	workflowID string
	clock      Clock
}

// NewDynamic returns a Dynamic update path for workflowID.
func NewDynamic(workflowID string, clock Clock) *Dynamic {
	if clock == nil {
		clock = RealClock{}
	}
	return &Dynamic{workflowID: workflowID, clock: clock}
}

// ApplyLiveTasks transcribes every live task in tasks into buffers.Updated,
// flags each task's first parent into stateUpdateFamilies, and afterwards
// recomputes mean elapsed time for every distinct task definition touched.
func (d *Dynamic) ApplyLiveTasks(tasks []LiveTask, cfg Config, store *Store, buffers *Buffers, stateUpdateFamilies map[string]bool) {
	touchedTaskDefs := make(map[string]bool)

	for _, lt := range tasks {
		tp := d.resolveTaskProxy(lt.TaskProxyID, store, buffers)
		if tp == nil {
			// Unknown task id: definition may have been removed by reload.
			// Silently skipped (§7).
			continue
		}

		upd := buffers.updatedTaskProxy(lt.TaskProxyID, d.clock)
		upd.State = lt.State
		upd.IsHeld = lt.IsHeld
		upd.FlowLabel = lt.FlowLabel
		upd.JobSubmits = lt.JobSubmits
		upd.LatestMessage = lt.LatestMessage

		for _, jid := range lt.NewJobIDs {
			alreadyOwned := false
			for _, existing := range tp.Jobs {
				if existing == jid {
					alreadyOwned = true
					break
				}
			}
			if !alreadyOwned {
				upd.Jobs = appendUniqueString(upd.Jobs, jid)
			}
		}

		upd.Prerequisites = append([]string{}, lt.Prerequisites...)

		outputs := make(map[string]bool, len(lt.Outputs))
		for k, v := range lt.Outputs {
			outputs[k] = v
		}
		upd.Outputs = outputs

		upd.ExtrasJSON = composeExtras(lt)

		if tp.FirstParent != "" {
			stateUpdateFamilies[tp.FirstParent] = true
		}

		touchedTaskDefs[tp.Task] = true
		if lt.HasElapsedTime {
			if td := d.resolveTaskDef(tp.Task, store, buffers); td != nil {
				td.ElapsedTimes = append(td.ElapsedTimes, lt.ElapsedTime)
			}
		}
	}

	for tdID := range touchedTaskDefs {
		d.recomputeMeanElapsedTime(tdID, cfg, store, buffers)
	}
}

func (d *Dynamic) resolveTaskProxy(id string, store *Store, buffers *Buffers) *TaskProxy {
	if tp, ok := store.TaskProxies[id]; ok {
		return tp
	}
	if tp, ok := buffers.Added.TaskProxies[id]; ok {
		return tp
	}
	return nil
}

func (d *Dynamic) resolveTaskDef(id string, store *Store, buffers *Buffers) *TaskDef {
	if td, ok := store.Tasks[id]; ok {
		return td
	}
	if td, ok := buffers.Added.Tasks[id]; ok {
		return td
	}
	return nil
}

// recomputeMeanElapsedTime implements the three-way fallback chain: sample
// mean, else configured execution time limit, else leave unset.
func (d *Dynamic) recomputeMeanElapsedTime(tdID string, cfg Config, store *Store, buffers *Buffers) {
	td := d.resolveTaskDef(tdID, store, buffers)
	if td == nil {
		return
	}
	if len(td.ElapsedTimes) > 0 {
		sum := 0.0
		for _, v := range td.ElapsedTimes {
			sum += v
		}
		td.MeanElapsedTime = sum / float64(len(td.ElapsedTimes))
		return
	}
	if limit, ok := cfg.ExecutionTimeLimits[td.Name]; ok {
		td.MeanElapsedTime = limit
	}
}

// composeExtras builds the extras JSON blob: clock-trigger satisfaction,
// absolute trigger time, external-trigger satisfaction, and xtrigger
// satisfaction (spec §4.4 step 6).
func composeExtras(lt LiveTask) string {
	blob := "{}"
	var err error
	if lt.HasClockTrigger {
		blob, err = sjson.Set(blob, "clock_trigger.satisfied", lt.ClockTriggerSatisfied)
		if err == nil {
			blob, err = sjson.Set(blob, "clock_trigger.time", lt.ClockTriggerTime)
		}
	}
	if err == nil && len(lt.ExternalTriggersSatisfied) > 0 {
		keys := sortedKeys(lt.ExternalTriggersSatisfied)
		for _, k := range keys {
			blob, err = sjson.Set(blob, "external_triggers."+k, lt.ExternalTriggersSatisfied[k])
			if err != nil {
				break
			}
		}
	}
	if err == nil && len(lt.XtriggersSatisfied) > 0 {
		keys := make([]string, 0, len(lt.XtriggersSatisfied))
		for k := range lt.XtriggersSatisfied {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, label := range keys {
			blob, err = sjson.Set(blob, "xtriggers."+label, lt.XtriggersSatisfied[label])
			if err != nil {
				break
			}
		}
	}
	if err != nil {
		return "{}"
	}
	return blob
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
