package store

import (
	"log"
	"sync"
	"time"

	"github.com/meridian-xr/scenelabel/internal/label"
)

// DefaultRecorderQueue is the recorder's channel capacity.
const DefaultRecorderQueue = 512

// Recorder adapts registry lifecycle events to journal rows. Events are
// buffered through a channel and written by one goroutine so the registry's
// notify path never blocks on disk; when the buffer is full the event is
// dropped with a log line, since analytics loss must not stall the engine.
type Recorder struct {
	store  *Store
	room   string
	device string

	events chan label.Event
	done   chan struct{}
	cancel func()

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewRecorder subscribes a recorder to the registry. Close flushes and
// unsubscribes.
func NewRecorder(st *Store, registry *label.Registry, room, deviceID string, queue int) *Recorder {
	if queue <= 0 {
		queue = DefaultRecorderQueue
	}
	r := &Recorder{
		store:  st,
		room:   room,
		device: deviceID,
		events: make(chan label.Event, queue),
		done:   make(chan struct{}),
	}
	r.cancel = registry.Observe(r.onEvent)
	go r.writeLoop()
	return r
}

// onEvent runs on the registry's notify path. The send happens under r.mu so
// a registry notification that snapshotted its observer list just before
// Close unsubscribed us cannot race the channel close: it either lands in the
// still-open queue or sees closed and is dropped.
func (r *Recorder) onEvent(ev label.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.events <- ev:
	default:
		r.dropped++
		log.Printf("[store] recorder queue full, dropped event (%d total)", r.dropped)
	}
}

func (r *Recorder) writeLoop() {
	defer close(r.done)
	for ev := range r.events {
		ts := ev.Record.CreatedAtMillis
		if ev.Kind == label.EventRemoved {
			ts = time.Now().UnixMilli()
		}
		row := LabelEvent{
			Kind:         string(ev.Kind),
			LabelID:      ev.Record.ID,
			Origin:       string(ev.Record.Origin),
			SemanticKey:  ev.Record.SemanticKey,
			LanguageCode: ev.Record.LanguageCode,
			X:            ev.Record.Pose.Position.X,
			Y:            ev.Record.Pose.Position.Y,
			Z:            ev.Record.Pose.Position.Z,
			TSUnixMillis: ts,
			Room:         r.room,
			DeviceID:     r.device,
		}
		if err := r.store.InsertLabelEvent(row); err != nil {
			log.Printf("[store] journal write failed: %v", err)
		}
	}
}

// Dropped returns how many events were shed on a full queue.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close unsubscribes from the registry and drains the queue. Idempotent; a
// late notification that was already in flight when Close ran is dropped
// rather than written.
func (r *Recorder) Close() {
	r.cancel()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	close(r.events)
	<-r.done
}
