package emit

import "context"

// NullEmitter discards every event. It is the default Emitter for a
// Manager that has not been configured with one, so the core engine never
// has to nil-check before emitting.
type NullEmitter struct{}

// NewNullEmitter returns an Emitter that discards all events.
func NewNullEmitter() *NullEmitter { return &NullEmitter{} }

func (n *NullEmitter) Emit(Event) {}

func (n *NullEmitter) EmitBatch(context.Context, []Event) error { return nil }

func (n *NullEmitter) Flush(context.Context) error { return nil }
