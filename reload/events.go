// Package reload consumes asset lifecycle events and keeps the artifact
// store current without ever letting a bad edit dislodge a working script.
package reload

import (
	"fmt"

	"github.com/fusabi-lang/fusabi-host/loader"
	"github.com/fusabi-lang/fusabi-host/script"
)

// EventKind tags a lifecycle event. Handlers must cover every kind
// explicitly; an unknown kind is an error, never a silent no-op.
type EventKind int

const (
	// EventAdded announces a new asset and carries its content.
	EventAdded EventKind = iota
	// EventModified carries the changed content of a known asset.
	EventModified
	// EventRemoved announces the asset no longer exists.
	EventRemoved
	// EventFailed reports that the asset source itself failed to load the
	// asset (an I/O error, typically).
	EventFailed
)

// String returns a human-readable kind name.
func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	case EventFailed:
		return "failed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one lifecycle event from the asset source. Data and Format are
// meaningful for Added and Modified; Err only for Failed.
type Event struct {
	Kind   EventKind
	ID     script.ArtifactID
	Name   string
	Format loader.Format
	Data   []byte
	Err    error
}
