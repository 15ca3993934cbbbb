package transport

import (
	"context"
	"math/rand"
	"sync"

	"github.com/meridian-xr/scenelabel/internal/label"
)

// MemFeedOptions shape an in-process feed's delivery behaviour. The defaults
// deliver each event exactly once in publish order; tests crank Duplicates
// and Shuffle up to exercise the at-least-once, unordered contract.
type MemFeedOptions struct {
	// Duplicates delivers every event this many times (minimum 1).
	Duplicates int
	// Shuffle randomizes delivery order within one Put's fanout using Seed.
	Shuffle bool
	Seed    int64
}

// MemFeed is an in-process Feed for solo sessions and tests. Records are
// retained per anchor ID and replayed to late subscribers, mirroring the
// relay's snapshot-on-join behaviour. Delivery is synchronous: Put returns
// after every subscriber's handler has run.
type MemFeed struct {
	opts MemFeedOptions

	mu       sync.Mutex
	closed   bool
	retained map[string]label.AnchorRecord
	order    []string
	subs     map[int]Handler
	nextSub  int
	rng      *rand.Rand
}

// NewMemFeed returns an open in-process feed.
func NewMemFeed(opts MemFeedOptions) *MemFeed {
	if opts.Duplicates < 1 {
		opts.Duplicates = 1
	}
	return &MemFeed{
		opts:     opts,
		retained: make(map[string]label.AnchorRecord),
		subs:     make(map[int]Handler),
		rng:      rand.New(rand.NewSource(opts.Seed)),
	}
}

// Put retains the record and fans it out to every subscriber, applying the
// configured duplication and shuffling.
func (f *MemFeed) Put(ctx context.Context, a label.AnchorRecord) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if _, ok := f.retained[a.AnchorID]; !ok {
		f.order = append(f.order, a.AnchorID)
	}
	f.retained[a.AnchorID] = a
	handlers := f.snapshotSubsLocked()
	deliveries := f.fanoutLocked(len(handlers))
	f.mu.Unlock()

	for _, i := range deliveries {
		if h := handlers[i]; h.OnRecord != nil {
			h.OnRecord(a)
		}
	}
	return nil
}

// Delete clears the retained record and fans out the removal.
func (f *MemFeed) Delete(ctx context.Context, anchorID string) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if _, ok := f.retained[anchorID]; ok {
		delete(f.retained, anchorID)
		for i, id := range f.order {
			if id == anchorID {
				f.order = append(f.order[:i], f.order[i+1:]...)
				break
			}
		}
	}
	handlers := f.snapshotSubsLocked()
	deliveries := f.fanoutLocked(len(handlers))
	f.mu.Unlock()

	for _, i := range deliveries {
		if h := handlers[i]; h.OnRemove != nil {
			h.OnRemove(anchorID)
		}
	}
	return nil
}

// Subscribe registers h and synchronously replays the retained records to
// it, so a late joiner sees the room's current state.
func (f *MemFeed) Subscribe(h Handler) (func(), error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	id := f.nextSub
	f.nextSub++
	f.subs[id] = h
	replay := make([]label.AnchorRecord, 0, len(f.order))
	for _, anchorID := range f.order {
		replay = append(replay, f.retained[anchorID])
	}
	f.mu.Unlock()

	if h.OnRecord != nil {
		for _, a := range replay {
			h.OnRecord(a)
		}
	}
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}, nil
}

// Close marks the feed closed. Subsequent operations return ErrClosed.
func (f *MemFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.subs = make(map[int]Handler)
	return nil
}

// Retained returns the number of currently retained records.
func (f *MemFeed) Retained() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.retained)
}

// snapshotSubsLocked copies the subscriber list. Caller holds f.mu.
func (f *MemFeed) snapshotSubsLocked() []Handler {
	handlers := make([]Handler, 0, len(f.subs))
	for _, h := range f.subs {
		handlers = append(handlers, h)
	}
	return handlers
}

// fanoutLocked builds the delivery schedule: each subscriber index repeated
// Duplicates times, optionally shuffled. Caller holds f.mu.
func (f *MemFeed) fanoutLocked(n int) []int {
	deliveries := make([]int, 0, n*f.opts.Duplicates)
	for i := 0; i < n; i++ {
		for d := 0; d < f.opts.Duplicates; d++ {
			deliveries = append(deliveries, i)
		}
	}
	if f.opts.Shuffle {
		f.rng.Shuffle(len(deliveries), func(i, j int) {
			deliveries[i], deliveries[j] = deliveries[j], deliveries[i]
		})
	}
	return deliveries
}
