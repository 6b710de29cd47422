package datastore

import "errors"

// ErrUnknownWorkflow is returned by New when constructed with an empty
// workflow id.
var ErrUnknownWorkflow = errors.New("datastore: unknown workflow id")
