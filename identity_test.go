package datastore

import "testing"

func TestProxyIDRoundTrip(t *testing.T) {
	wf := WorkflowID("me", "suite")
	id := TaskProxyID(wf, "1", "a")

	point, name, ok := ParseProxyID(wf, id)
	if !ok {
		t.Fatalf("ParseProxyID(%q) reported not-ok", id)
	}
	if point != "1" || name != "a" {
		t.Errorf("got (%q, %q), want (1, a)", point, name)
	}
}

func TestParseProxyIDRejectsForeignWorkflow(t *testing.T) {
	id := TaskProxyID(WorkflowID("me", "suite"), "1", "a")
	if _, _, ok := ParseProxyID(WorkflowID("someone-else", "suite"), id); ok {
		t.Errorf("ParseProxyID accepted an id from a different workflow")
	}
}

func TestSplitProxyIDPanicsOnMalformedID(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("SplitProxyID did not panic on a malformed id")
		}
	}()
	SplitProxyID(WorkflowID("me", "suite"), "not-a-proxy-id")
}

func TestStampChangesWithTime(t *testing.T) {
	s1 := Stamp("x", 1.0)
	s2 := Stamp("x", 2.0)
	if s1 == s2 {
		t.Errorf("Stamp produced identical output for two different times")
	}
}
