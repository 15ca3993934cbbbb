// Package transport defines the anchor feed: a room-scoped key-value
// pub/sub channel with at-least-once, unordered delivery and no
// transactional guarantees. The engine treats it purely as an unreliable
// broadcast; all dedup happens in the ingestion layer.
package transport

import (
	"context"
	"errors"

	"github.com/meridian-xr/scenelabel/internal/label"
)

// ErrClosed is returned by operations on a closed feed.
var ErrClosed = errors.New("transport: feed closed")

// Handler receives feed deliveries. Either callback may be nil.
type Handler struct {
	OnRecord func(label.AnchorRecord)
	OnRemove func(anchorID string)
}

// Feed is the wire boundary for anchor exchange. Put publishes a record
// keyed by its anchor ID, Delete retracts one, Subscribe registers a handler
// for deliveries and returns an unsubscribe func. Implementations may
// deliver duplicates and reorder freely; on subscribe they replay currently
// retained records so late joiners converge.
type Feed interface {
	Put(ctx context.Context, a label.AnchorRecord) error
	Delete(ctx context.Context, anchorID string) error
	Subscribe(h Handler) (func(), error)
	Close() error
}
