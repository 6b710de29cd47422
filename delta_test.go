package datastore

import "testing"

func TestDeltaIsEmpty(t *testing.T) {
	var d Delta[*TaskDef]
	if !d.IsEmpty() {
		t.Errorf("zero-value Delta reported non-empty")
	}

	d.Added = append(d.Added, &TaskDef{ID: "x"})
	if d.IsEmpty() {
		t.Errorf("Delta with an Added entry reported empty")
	}
}

func TestDeltaIsEmptyConsidersAllBuckets(t *testing.T) {
	var updated Delta[*TaskDef]
	updated.Updated = append(updated.Updated, &TaskDef{ID: "x"})
	if updated.IsEmpty() {
		t.Errorf("Delta with an Updated entry reported empty")
	}

	var pruned Delta[*TaskDef]
	pruned.Pruned = append(pruned.Pruned, "x")
	if pruned.IsEmpty() {
		t.Errorf("Delta with a Pruned entry reported empty")
	}
}
