package datastore

import "sync"

// Store is the authoritative, in-memory container for one workflow's typed
// graph: the six entity-kind maps plus the workflow singleton.
//
// Store itself only holds state; the ordered mutation sequence (definitions
// → graph increment → dynamic updates → rollup → summary → apply → publish
// → clear) lives in Manager. Store carries a mutex, mirroring the teacher's
// MemStore, but only Reset, HasTaskProxy and HasFamilyProxy take it; every
// other reader and writer (including EntireWorkflow and the finalizer)
// uses the exported maps directly without locking.
type Store struct {
	mu sync.RWMutex

	Tasks         map[string]*TaskDef
	Families      map[string]*FamilyDef
	TaskProxies   map[string]*TaskProxy
	FamilyProxies map[string]*FamilyProxy
	Edges         map[string]*Edge
	Jobs          map[string]*Job
	Workflow      *Workflow
}

// NewStore returns an empty Store with every map initialized.
func NewStore() *Store {
	return &Store{
		Tasks:         make(map[string]*TaskDef),
		Families:      make(map[string]*FamilyDef),
		TaskProxies:   make(map[string]*TaskProxy),
		FamilyProxies: make(map[string]*FamilyProxy),
		Edges:         make(map[string]*Edge),
		Jobs:          make(map[string]*Job),
		Workflow:      &Workflow{},
	}
}

// Reset clears every map and replaces Workflow with a fresh zero value, used
// by the definition generator's reload path (§4.2: "reinitializing all
// component state").
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tasks = make(map[string]*TaskDef)
	s.Families = make(map[string]*FamilyDef)
	s.TaskProxies = make(map[string]*TaskProxy)
	s.FamilyProxies = make(map[string]*FamilyProxy)
	s.Edges = make(map[string]*Edge)
	s.Jobs = make(map[string]*Job)
	s.Workflow = &Workflow{}
}

// HasTaskProxy reports whether id is already present in the store.
func (s *Store) HasTaskProxy(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.TaskProxies[id]
	return ok
}

// HasFamilyProxy reports whether id is already present in the store.
func (s *Store) HasFamilyProxy(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.FamilyProxies[id]
	return ok
}
