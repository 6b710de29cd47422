package datastore

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TestIterateEmitsSpansPerPhase verifies WithTracer wires a real span
// recorder across Iterate's phases (definitions, graph-elements, rollup,
// finalize), mirroring the teacher's own in-memory exporter test setup for
// its per-phase tracer spans.
func TestIterateEmitsSpansPerPhase(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	wf := WorkflowID("me", "suite")
	m, err := New(wf, WithClock(&fakeClock{}), WithTracer(tp.Tracer("datastore-test")))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cfg := twoTaskConfig("1")
	jobPool := newFakeJobPool()
	m.Iterate(cfg, fakeScheduler(), fakePool{points: []string{"1"}}, jobPool, nil, false)

	spans := exporter.GetSpans()
	wantNames := map[string]bool{
		"iteration": false, "definitions": false,
		"graph-elements": false, "rollup": false, "finalize": false,
	}
	for _, span := range spans {
		if _, ok := wantNames[span.Name]; ok {
			wantNames[span.Name] = true
		}
	}
	for name, seen := range wantNames {
		if !seen {
			t.Errorf("missing span %q among recorded spans %v", name, spanNames(spans))
		}
	}
}

func spanNames(spans tracetest.SpanStubs) []string {
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name
	}
	return names
}
