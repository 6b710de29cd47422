package emit

import "context"

// Emitter receives lifecycle events from a Manager iteration.
//
// Emit is called synchronously on the iteration goroutine and must not
// block for long; implementations that need to do expensive work (network
// calls, file I/O under contention) should buffer internally and do the
// real work in EmitBatch or a background goroutine of their own.
//
// EmitBatch lets an emitter that benefits from batching (a log writer, a
// metrics backend) receive a run of events at once, typically at the end of
// an iteration.
//
// Flush blocks until any internally buffered events have been handed to
// their backend. Callers should invoke Flush before shutting down to avoid
// losing buffered events.
type Emitter interface {
	Emit(event Event)
	EmitBatch(ctx context.Context, events []Event) error
	Flush(ctx context.Context) error
}
