package label

import (
	"context"
	"sync"
	"time"

	"github.com/meridian-xr/scenelabel/internal/timeutil"
)

// DefaultQueueDepth is the apply-queue capacity.
const DefaultQueueDepth = 256

// Session funnels every registry mutation through one apply goroutine.
// Detection batches arrive from the frame cycle and anchor events from the
// feed read loop; both are enqueued here and drained sequentially, so the
// two ingestors never interleave and no half-applied create is observable.
//
// When the queue is full the submission is dropped with an ops log rather
// than blocking the source goroutine; the perception and network cycles must
// never stall on the engine.
type Session struct {
	Registry        *Registry
	DetectionIngest *DetectionIngestor
	AnchorIngest    *AnchorIngestor
	Gateway         *Gateway

	deviceID string
	room     string
	started  time.Time
	clock    timeutil.Clock

	queue chan func(context.Context)

	mu      sync.Mutex
	dropped int
}

// SessionConfig names the parts a Session wires together.
type SessionConfig struct {
	Registry        *Registry
	DetectionIngest *DetectionIngestor
	AnchorIngest    *AnchorIngestor
	Gateway         *Gateway
	DeviceID        string
	Room            string
	QueueDepth      int
	Clock           timeutil.Clock
}

// NewSession builds the engine's single-writer runtime. Call Run to start
// draining the queue.
func NewSession(cfg SessionConfig) *Session {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Session{
		Registry:        cfg.Registry,
		DetectionIngest: cfg.DetectionIngest,
		AnchorIngest:    cfg.AnchorIngest,
		Gateway:         cfg.Gateway,
		deviceID:        cfg.DeviceID,
		room:            cfg.Room,
		clock:           cfg.Clock,
		started:         cfg.Clock.Now(),
		queue:           make(chan func(context.Context), cfg.QueueDepth),
	}
}

// Run drains the apply queue until ctx is cancelled. It blocks; callers run
// it in a goroutine and wait on it during shutdown.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.queue:
			fn(ctx)
		}
	}
}

// SubmitDetections enqueues one frame's detection batch. The batch is copied
// so the caller may reuse its slice.
func (s *Session) SubmitDetections(batch []Detection) {
	copied := make([]Detection, len(batch))
	copy(copied, batch)
	s.enqueue(func(ctx context.Context) {
		s.DetectionIngest.OnDetections(ctx, copied)
	})
}

// SubmitAnchor enqueues one delivered anchor record.
func (s *Session) SubmitAnchor(a AnchorRecord) {
	s.enqueue(func(context.Context) {
		s.AnchorIngest.OnAnchor(a)
	})
}

// SubmitAnchorRemove enqueues one feed delete event.
func (s *Session) SubmitAnchorRemove(anchorID string) {
	s.enqueue(func(context.Context) {
		s.AnchorIngest.OnRemove(anchorID)
	})
}

// SubmitRemove enqueues removal of a label by record ID, e.g. from a UI
// dismissal.
func (s *Session) SubmitRemove(recordID string) {
	s.enqueue(func(context.Context) {
		s.Registry.Remove(recordID)
	})
}

// SubmitRemoveAllForKey enqueues bulk removal of every label carrying the
// given semantic key.
func (s *Session) SubmitRemoveAllForKey(semanticKey string) {
	s.enqueue(func(context.Context) {
		n := s.Registry.RemoveAllWhere(func(r Record) bool {
			return r.SemanticKey == semanticKey
		})
		Diagf("removed %d labels for key %q", n, semanticKey)
	})
}

func (s *Session) enqueue(fn func(context.Context)) {
	select {
	case s.queue <- fn:
	default:
		s.mu.Lock()
		s.dropped++
		n := s.dropped
		s.mu.Unlock()
		Opsf("apply queue full, dropping submission (%d dropped total)", n)
	}
}

// Drain processes everything currently queued, then returns. Test helper:
// production code runs Run in a goroutine instead.
func (s *Session) Drain(ctx context.Context) {
	for {
		select {
		case fn := <-s.queue:
			fn(ctx)
		default:
			return
		}
	}
}

// DeviceID returns this device's identity.
func (s *Session) DeviceID() string { return s.deviceID }

// Room returns the shared-session room name.
func (s *Session) Room() string { return s.room }

// Uptime returns how long the session has been running.
func (s *Session) Uptime() time.Duration { return s.clock.Since(s.started) }

// Dropped returns how many submissions were shed on a full queue.
func (s *Session) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
