package datastore

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Generator materializes static tasks, families, and the workflow singleton
// from configuration. It is invoked once on start, on restart, and again on
// every reload.
type Generator struct {
	workflowID string
	clock      Clock
}

// NewGenerator returns a Generator for workflowID.
func NewGenerator(workflowID string, clock Clock) *Generator {
	if clock == nil {
		clock = RealClock{}
	}
	return &Generator{workflowID: workflowID, clock: clock}
}

// Generate reads cfg and populates added[tasks], added[families], and the
// added[workflow] singleton in b. It never touches an existing store; on
// reload the caller (Manager) Resets the store before calling Reload, and on
// first start the store is still empty.
func (g *Generator) Generate(cfg Config, b *Buffers) {
	now := g.clock.Now()

	familyNames := append([]string{rootFamilyName}, cfg.FamilyNames...)
	familyChildTasks := make(map[string][]string)
	familyChildFamilies := make(map[string][]string)

	for _, name := range cfg.TaskDefNames {
		ancestors := g.firstParentAncestors(cfg, name)
		parents := cfg.Parents[name]
		firstParent := ""
		if len(ancestors) > 0 {
			firstParent = FamilyDefID(g.workflowID, ancestors[0])
		}

		td := &TaskDef{
			ID:          TaskDefID(g.workflowID, name),
			Name:        name,
			Depth:       len(ancestors) - 1,
			Namespace:   append([]string{name}, ancestors...),
			FirstParent: firstParent,
		}
		for _, p := range parents {
			td.Parents = append(td.Parents, FamilyDefID(g.workflowID, p))
		}
		g.applyMeta(cfg, name, &td.Title, &td.Description, &td.URL, &td.MetaJSON)
		if limit, ok := cfg.ExecutionTimeLimits[name]; ok {
			v := limit
			td.ExecutionTimeLimit = &v
			td.MeanElapsedTime = limit
		}
		td.Stamp = Stamp(td.ID, now)
		b.Added.Tasks[td.ID] = td

		if firstParent != "" {
			familyChildTasks[firstParent] = appendUniqueString(familyChildTasks[firstParent], td.ID)
		}
	}

	for _, name := range familyNames {
		ancestors := g.firstParentAncestors(cfg, name)
		parents := cfg.Parents[name]
		firstParent := ""
		if len(ancestors) > 0 {
			firstParent = FamilyDefID(g.workflowID, ancestors[0])
		}

		fd := &FamilyDef{
			ID:          FamilyDefID(g.workflowID, name),
			Name:        name,
			Depth:       len(ancestors) - 1,
			Namespace:   append([]string{name}, ancestors...),
			FirstParent: firstParent,
		}
		for _, p := range parents {
			fd.Parents = append(fd.Parents, FamilyDefID(g.workflowID, p))
		}
		if name != rootFamilyName {
			g.applyMeta(cfg, name, &fd.Title, &fd.Description, &fd.URL, &fd.MetaJSON)
		}
		fd.Stamp = Stamp(fd.ID, now)
		b.Added.Families[fd.ID] = fd

		if firstParent != "" {
			familyChildFamilies[firstParent] = appendUniqueString(familyChildFamilies[firstParent], fd.ID)
		}
	}

	for id, fd := range b.Added.Families {
		fd.ChildTasks = familyChildTasks[id]
		fd.ChildFamilies = familyChildFamilies[id]
	}

	wf := &Workflow{
		ID:          g.workflowID,
		RunMode:     cfg.RunMode,
		CyclingMode: cfg.CyclingMode,
		UTCMode:     cfg.UTCMode,
		NsDefnOrder: cfg.NsDefnOrder,
		Port:        -1,
		PubPort:     -1,
	}
	for id := range b.Added.Tasks {
		wf.Tasks = append(wf.Tasks, id)
	}
	for id := range b.Added.Families {
		wf.Families = append(wf.Families, id)
	}
	sort.Strings(wf.Tasks)
	sort.Strings(wf.Families)
	wf.Stamp = Stamp(wf.ID, now)
	b.Added.Workflow = wf
}

// firstParentAncestors returns the first-parent ancestor chain for name,
// nearest-first, always ending with the implicit synthetic "root"; for
// "root" itself it returns nil.
func (g *Generator) firstParentAncestors(cfg Config, name string) []string {
	if name == rootFamilyName {
		return nil
	}
	chain := cfg.FirstParentAncestors[name]
	if len(chain) == 0 || chain[len(chain)-1] != rootFamilyName {
		chain = append(append([]string{}, chain...), rootFamilyName)
	}
	return chain
}

// applyMeta splits the recognized title/description/URL keys out of a user
// meta JSON blob (spec §4.2 step 1): title/description/URL go into their own
// fields, and metaJSON keeps only the remaining, non-recognized keys.
func (g *Generator) applyMeta(cfg Config, name string, title, description, url *string, metaJSON *string) {
	raw, ok := cfg.Meta[name]
	if !ok || strings.TrimSpace(raw) == "" {
		return
	}
	*title = gjson.Get(raw, "title").String()
	*description = gjson.Get(raw, "description").String()
	*url = gjson.Get(raw, "URL").String()

	rest := raw
	for _, key := range []string{"title", "description", "URL"} {
		if stripped, err := sjson.Delete(rest, key); err == nil {
			rest = stripped
		}
	}
	*metaJSON = rest
}

// Reload re-runs Generate after the caller has Reset the store, then
// reconciles stale job references: any task-proxy id present in the job
// pool's keyspace that is no longer live in the new definitions is removed
// from the job pool (spec §4.2 closing paragraph, scenario S6).
func (g *Generator) Reload(cfg Config, b *Buffers, jobPool JobPool, liveTaskProxyIDs map[string]bool) {
	g.Generate(cfg, b)
	for tpID := range jobPool.TaskJobs() {
		if !liveTaskProxyIDs[tpID] {
			jobPool.RemoveTaskJobs(tpID)
		}
	}
}
