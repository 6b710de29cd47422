package datastore

import (
	"testing"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v2"
)

// fakeClock hands out strictly increasing timestamps, one tick per call, so
// tests can assert ordering without depending on wall-clock time.
type fakeClock struct {
	t float64
}

func (c *fakeClock) Now() float64 {
	c.t++
	return c.t
}

// twoTaskConfig returns a minimal configuration with tasks "a" and "b" both
// members of family "FAM", and an edge a/<point> -> b/<point> for every
// point passed to edgesFor.
func twoTaskConfig(edgesFor ...string) Config {
	return Config{
		TaskDefNames: []string{"a", "b"},
		FamilyNames:  []string{"FAM"},
		Parents: map[string][]string{
			"a": {"FAM"},
			"b": {"FAM"},
		},
		FirstParentAncestors: map[string][]string{
			"a": {"FAM"},
			"b": {"FAM"},
		},
		NsDefnOrder: []string{"a", "b"},
		RunMode:     "live",
		CyclingMode: "integer",
		GraphEdges: func(start, stop string) []GraphEdge {
			var out []GraphEdge
			for _, p := range edgesFor {
				if p != start {
					continue
				}
				out = append(out, GraphEdge{SourceNode: "a/" + p, TargetNode: "b/" + p})
			}
			return out
		},
	}
}

type fakePool struct {
	points    []string
	runahead  string
}

func (p fakePool) Points() []string         { return p.points }
func (p fakePool) MaxRunaheadPoint() string { return p.runahead }

type fakeJobPool struct {
	added, updated map[string]*Job
	pruned         []string
	taskJobs       map[string][]string
	removed        []string
}

func newFakeJobPool() *fakeJobPool {
	return &fakeJobPool{taskJobs: make(map[string][]string)}
}

func (j *fakeJobPool) Deltas() (added, updated map[string]*Job, pruned []string) {
	added, updated, pruned = j.added, j.updated, j.pruned
	j.added, j.updated, j.pruned = nil, nil, nil
	return
}

func (j *fakeJobPool) TaskJobs() map[string][]string {
	return j.taskJobs
}

func (j *fakeJobPool) RemoveTaskJobs(taskProxyID string) {
	delete(j.taskJobs, taskProxyID)
	j.removed = append(j.removed, taskProxyID)
}

// SubmitJob mints an opaque job id the way the real job pool would (JobId
// is opaque per spec.md §3), records it in the pending Added bucket and the
// task-proxy keyspace, and returns it for the caller to feed into a
// LiveTask.NewJobIDs slice.
func (j *fakeJobPool) SubmitJob(taskProxyID string) string {
	id := uuid.NewString()
	if j.added == nil {
		j.added = make(map[string]*Job)
	}
	j.added[id] = &Job{ID: id, TaskProxy: taskProxyID}
	j.taskJobs[taskProxyID] = append(j.taskJobs[taskProxyID], id)
	return id
}

// yamlGraphFixture is the on-disk shape of a minimal task/family graph used
// to build a fake Config from a YAML fixture, standing in for the real
// Config collaborator's own file-backed definition source.
type yamlGraphFixture struct {
	Tasks     []string            `yaml:"tasks"`
	Families  []string            `yaml:"families"`
	Parents   map[string][]string `yaml:"parents"`
	Ancestors map[string][]string `yaml:"ancestors"`
	Edges     []struct {
		Source string `yaml:"source"`
		Target string `yaml:"target"`
	} `yaml:"edges"`
}

// configFromYAML parses src into a Config. GraphEdges ignores stop and
// returns every fixture edge whose source point equals start, matching
// twoTaskConfig's test-fixture convention.
func configFromYAML(t *testing.T, src string) Config {
	t.Helper()
	var g yamlGraphFixture
	if err := yaml.Unmarshal([]byte(src), &g); err != nil {
		t.Fatalf("configFromYAML: %v", err)
	}
	return Config{
		TaskDefNames:         g.Tasks,
		FamilyNames:          g.Families,
		Parents:              g.Parents,
		FirstParentAncestors: g.Ancestors,
		NsDefnOrder:          g.Tasks,
		RunMode:              "live",
		CyclingMode:          "integer",
		GraphEdges: func(start, stop string) []GraphEdge {
			var out []GraphEdge
			for _, e := range g.Edges {
				if _, point, ok := splitNamePoint(e.Source); ok && point == start {
					out = append(out, GraphEdge{SourceNode: e.Source, TargetNode: e.Target})
				}
			}
			return out
		},
	}
}

func fakeScheduler() Scheduler {
	return Scheduler{
		Owner: "owner",
		Suite: "suite",
		Status: func() (string, string) {
			return "running", "ok"
		},
	}
}
