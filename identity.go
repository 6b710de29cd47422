// Package datastore is the in-memory data store and delta-synchronization
// engine for a cycling workflow scheduler: it maintains an authoritative,
// typed representation of the workflow graph and emits compact delta
// messages that remote observers apply to stay eventually consistent.
package datastore

import (
	"fmt"
	"strings"
	"time"
)

// Delim separates identifier segments. All identifiers in this package are
// printable strings built by joining segments with Delim; never parse an id
// with anything but strings.Split(id, Delim).
const Delim = "|"

// WorkflowID identifies a workflow by owner and name.
func WorkflowID(owner, name string) string {
	return owner + Delim + name
}

// TaskDefID identifies a task definition within a workflow.
func TaskDefID(workflowID, taskName string) string {
	return workflowID + Delim + taskName
}

// FamilyDefID identifies a family definition within a workflow.
func FamilyDefID(workflowID, familyName string) string {
	return workflowID + Delim + familyName
}

// TaskProxyID identifies a cycle-point instance of a task.
func TaskProxyID(workflowID, cyclePoint, taskName string) string {
	return workflowID + Delim + cyclePoint + Delim + taskName
}

// FamilyProxyID identifies a cycle-point instance of a family.
func FamilyProxyID(workflowID, cyclePoint, familyName string) string {
	return workflowID + Delim + cyclePoint + Delim + familyName
}

// EdgeID identifies an edge between two task-proxy "name/point" nodes.
func EdgeID(workflowID, sourceNode, targetNode string) string {
	return workflowID + Delim + sourceNode + Delim + targetNode
}

// SplitProxyID decodes a TaskProxyID/FamilyProxyID back into its cycle
// point and definition name. It panics if id was not built by
// TaskProxyID/FamilyProxyID for the given workflowID — callers that accept
// untrusted ids must validate with ParseProxyID instead.
func SplitProxyID(workflowID, id string) (cyclePoint, name string) {
	cyclePoint, name, ok := ParseProxyID(workflowID, id)
	if !ok {
		panic(fmt.Sprintf("datastore: malformed proxy id %q for workflow %q", id, workflowID))
	}
	return cyclePoint, name
}

// ParseProxyID decodes a TaskProxyID/FamilyProxyID into its cycle point and
// definition name, reporting whether id has the expected shape.
func ParseProxyID(workflowID, id string) (cyclePoint, name string, ok bool) {
	prefix := workflowID + Delim
	if !strings.HasPrefix(id, prefix) {
		return "", "", false
	}
	rest := id[len(prefix):]
	parts := strings.SplitN(rest, Delim, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Clock supplies the monotonic wall-clock seconds used to stamp entities.
// Tests substitute a deterministic Clock; production uses RealClock.
type Clock interface {
	Now() float64
}

// RealClock reads the system clock in fractional seconds since the Unix
// epoch, matching the source's `time()`-based updateTime.
type RealClock struct{}

func (RealClock) Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Stamp builds the advisory change marker `id@updateTime`. Any change to an
// entity's content must call Stamp again with a fresh updateTime so
// consumers can detect the update by string comparison alone.
func Stamp(id string, updateTime float64) string {
	return fmt.Sprintf("%s@%.6f", id, updateTime)
}
