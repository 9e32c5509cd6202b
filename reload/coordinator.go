package reload

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/fusabi-lang/fusabi-host/loader"
	"github.com/fusabi-lang/fusabi-host/script"
)

var log = commonlog.GetLogger("fusabi.reload")

// Diagnostic is a surfaced per-event failure. Failures never mutate
// established state: the previously installed artifact and its generation
// stay authoritative.
type Diagnostic struct {
	ID    script.ArtifactID
	Event EventKind
	Err   error
}

// Coordinator is the single place reload policy lives. It drains the event
// queue, revalidates changed content through the loader, and installs
// replacement artifacts; trackers only ever observe the resulting
// generation bumps.
type Coordinator struct {
	store  *script.Store
	loader *loader.Loader
	queue  *Queue

	// Coalesce collapses runs of Modified events for the same ID into the
	// newest one when draining, bounding recompiles to one per ID per tick.
	// Correctness does not depend on it.
	Coalesce bool
}

// NewCoordinator creates a coordinator with coalescing enabled.
func NewCoordinator(store *script.Store, l *loader.Loader, queue *Queue) *Coordinator {
	return &Coordinator{
		store:    store,
		loader:   l,
		queue:    queue,
		Coalesce: true,
	}
}

// Drain consumes every queued event and returns the diagnostics of the
// events that failed. Call once per tick, before the runner scan.
func (c *Coordinator) Drain() []Diagnostic {
	events := c.queue.Drain()
	if c.Coalesce {
		events = coalesce(events)
	}

	var diags []Diagnostic
	for _, e := range events {
		if err := c.OnEvent(e); err != nil {
			diags = append(diags, Diagnostic{ID: e.ID, Event: e.Kind, Err: err})
		}
	}
	return diags
}

// OnEvent applies one lifecycle event. The returned error is the surfaced
// diagnostic for failed events; state is only mutated on success.
func (c *Coordinator) OnEvent(e Event) error {
	switch e.Kind {
	case EventAdded:
		a, err := c.loader.Load(e.ID, e.Name, e.Data, e.Format)
		if err != nil {
			log.Errorf("add %s: %v", e.ID, err)
			return err
		}
		installed := c.store.Install(a)
		log.Infof("added %s (%s) generation %d", e.ID, e.Format, installed.Generation)
		return nil

	case EventModified:
		a, err := c.loader.Load(e.ID, e.Name, e.Data, e.Format)
		if err != nil {
			// The old artifact stays authoritative; no tracker is disturbed.
			log.Errorf("reload %s: %v", e.ID, err)
			return err
		}
		installed := c.store.Install(a)
		log.Infof("reloaded %s (%s) generation %d", e.ID, e.Format, installed.Generation)
		return nil

	case EventRemoved:
		if c.store.Remove(e.ID) {
			log.Infof("removed %s", e.ID)
		}
		return nil

	case EventFailed:
		// Surfaced identically to a failed Modified; nothing is mutated.
		err := fmt.Errorf("asset source failed for %s: %w", e.ID, e.Err)
		log.Errorf("%v", err)
		return err

	default:
		return fmt.Errorf("unknown event kind %d for %s", int(e.Kind), e.ID)
	}
}

// coalesce keeps event order but replaces an earlier Modified with a later
// Modified for the same ID, provided no other event for that ID sits
// between them.
func coalesce(events []Event) []Event {
	out := make([]Event, 0, len(events))
	lastModified := make(map[script.ArtifactID]int) // ID -> index in out

	for _, e := range events {
		if e.Kind == EventModified {
			if idx, ok := lastModified[e.ID]; ok {
				out[idx] = e
				continue
			}
			lastModified[e.ID] = len(out)
			out = append(out, e)
			continue
		}
		// Any other event for the ID ends the coalescing run.
		delete(lastModified, e.ID)
		out = append(out, e)
	}
	return out
}
