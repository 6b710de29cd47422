package datastore

import (
	"hash/adler32"
	"sort"
)

// checksumStrings computes the Adler-32 checksum over the concatenation of
// the lexicographically sorted input strings, masked to 32 bits (spec
// §4.7 step 3, §9 "checksum portability"). It is deterministic across
// processes and platforms: this is a change marker, not a signature.
func checksumStrings(values []string) uint32 {
	sorted := append([]string{}, values...)
	sort.Strings(sorted)
	h := adler32.New()
	for _, v := range sorted {
		h.Write([]byte(v))
	}
	return h.Sum32() & 0xffffffff
}

// checksumStamps hashes every entity's Stamp field — the branch used for
// every kind except edges (spec §4.7 supplemented feature 1).
func checksumStamps[T interface{ stampOf() string }](entities map[string]T) uint32 {
	stamps := make([]string, 0, len(entities))
	for _, e := range entities {
		stamps = append(stamps, e.stampOf())
	}
	return checksumStrings(stamps)
}

// checksumIDs hashes the ids themselves — the branch used for edges, which
// carry no stamp.
func checksumIDs(ids []string) uint32 {
	return checksumStrings(ids)
}

func (t *TaskDef) stampOf() string      { return t.Stamp }
func (f *FamilyDef) stampOf() string    { return f.Stamp }
func (t *TaskProxy) stampOf() string    { return t.Stamp }
func (f *FamilyProxy) stampOf() string  { return f.Stamp }
func (j *Job) stampOf() string          { return j.Stamp }
