package label

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-xr/scenelabel/internal/timeutil"
)

// AnchorPublisher is the slice of the transport feed the gateway needs.
// transport.Feed satisfies it.
type AnchorPublisher interface {
	Put(ctx context.Context, a AnchorRecord) error
	Delete(ctx context.Context, anchorID string) error
}

// DefaultPublishTimeout bounds a single feed write.
const DefaultPublishTimeout = 5 * time.Second

// Gateway publishes locally created labels to the anchor feed while a shared
// session is active. Delivery is fire-and-forget: no retry, no ack, and a
// failed publish never reverts local registry state.
//
// Only detection-origin events are published. Anchor-origin creations came
// FROM the feed; re-publishing them would make every receiver a rebroadcaster
// and the room would never go quiet.
type Gateway struct {
	feed     AnchorPublisher
	deviceID string
	clock    timeutil.Clock
	timeout  time.Duration

	mu        sync.Mutex
	sharing   bool
	published map[string]string // record ID -> anchor ID this node minted
	cancel    func()
}

// NewGateway subscribes a gateway to the registry's lifecycle events.
// Publication stays off until SetSharing(true).
func NewGateway(registry *Registry, feed AnchorPublisher, deviceID string, clock timeutil.Clock) *Gateway {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	g := &Gateway{
		feed:      feed,
		deviceID:  deviceID,
		clock:     clock,
		timeout:   DefaultPublishTimeout,
		published: make(map[string]string),
	}
	g.cancel = registry.Observe(g.onEvent)
	return g
}

// SetSharing toggles participation in a shared session. While off, local
// creations are not published and removals send no deletes.
func (g *Gateway) SetSharing(on bool) {
	g.mu.Lock()
	g.sharing = on
	g.mu.Unlock()
}

// Sharing reports whether publication is active.
func (g *Gateway) Sharing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sharing
}

// Close unsubscribes the gateway from the registry.
func (g *Gateway) Close() {
	if g.cancel != nil {
		g.cancel()
	}
}

func (g *Gateway) onEvent(ev Event) {
	if ev.Record.Origin != OriginDetection {
		return
	}
	switch ev.Kind {
	case EventCreated:
		g.publish(ev.Record)
	case EventRemoved:
		g.retract(ev.Record)
	}
}

func (g *Gateway) publish(rec Record) {
	g.mu.Lock()
	if !g.sharing {
		g.mu.Unlock()
		return
	}
	anchorID := uuid.New().String()
	g.published[rec.ID] = anchorID
	g.mu.Unlock()

	a := AnchorRecord{
		AnchorID:        anchorID,
		Position:        rec.Pose.Position,
		Orientation:     rec.Pose.Orientation,
		LabelKey:        rec.SemanticKey,
		CreatorID:       g.deviceID,
		CreatedAtMillis: g.clock.Now().UnixMilli(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	if err := g.feed.Put(ctx, a); err != nil {
		// Best effort: the local label stands either way.
		Opsf("anchor publish failed for %s: %v", rec.SemanticKey, err)
	}
}

// retract sends a best-effort delete for a label this node published, so
// peers drop it too. Same at-most-once semantics as publish.
func (g *Gateway) retract(rec Record) {
	g.mu.Lock()
	anchorID, ok := g.published[rec.ID]
	if ok {
		delete(g.published, rec.ID)
	}
	sharing := g.sharing
	g.mu.Unlock()
	if !ok || !sharing {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	if err := g.feed.Delete(ctx, anchorID); err != nil {
		Opsf("anchor delete failed for %s: %v", anchorID, err)
	}
}
