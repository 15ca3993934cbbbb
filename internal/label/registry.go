package label

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/meridian-xr/scenelabel/internal/geom"
	"github.com/meridian-xr/scenelabel/internal/timeutil"
)

// EventKind distinguishes registry lifecycle events.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventRemoved EventKind = "removed"
)

// Event is delivered to registry observers on every successful create or
// remove. Record is a value copy; observers never see registry internals.
type Event struct {
	Kind   EventKind
	Record Record
}

// Registry is the authoritative in-memory set of active labels. It holds two
// disjoint keyspaces, ObjectKey for detection-sourced records and anchor ID
// for anchor-sourced ones, plus a record-ID index so removal never scans.
//
// The registry never returns errors: a duplicate create is a normal outcome
// reported through the second return value, and removing an absent record is
// a silent no-op. All mutation is guarded by one mutex, so a half-applied
// create is never observable regardless of which goroutine calls in.
type Registry struct {
	mu       sync.Mutex
	clock    timeutil.Clock
	byObject map[ObjectKey]string
	byAnchor map[string]string
	byID     map[string]Record

	obsMu     sync.Mutex
	observers map[int]func(Event)
	nextObsID int
}

// NewRegistry returns an empty registry. A nil clock means wall-clock time.
func NewRegistry(clock timeutil.Clock) *Registry {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Registry{
		clock:     clock,
		byObject:  make(map[ObjectKey]string),
		byAnchor:  make(map[string]string),
		byID:      make(map[string]Record),
		observers: make(map[int]func(Event)),
	}
}

// CreateFromDetection inserts a label for a locally detected object. If the
// key already has a record the call is an idempotent no-op: the existing
// record is returned with created == false. This is the sole place duplicate
// local creation is prevented.
func (r *Registry) CreateFromDetection(key ObjectKey, d Detection, pose geom.Pose, displayText, languageCode string) (Record, bool) {
	r.mu.Lock()
	if id, ok := r.byObject[key]; ok {
		rec := r.byID[id]
		r.mu.Unlock()
		return rec, false
	}
	rec := Record{
		ID:              uuid.New().String(),
		Origin:          OriginDetection,
		ObjectKey:       key,
		SemanticKey:     d.Class,
		Pose:            pose,
		DisplayText:     displayText,
		LanguageCode:    languageCode,
		CreatedAtMillis: r.clock.Now().UnixMilli(),
	}
	r.byObject[key] = rec.ID
	r.byID[rec.ID] = rec
	r.mu.Unlock()

	Tracef("label created from detection: %s (%s)", key, rec.ID)
	r.notify(Event{Kind: EventCreated, Record: rec})
	return rec, true
}

// CreateFromAnchor inserts a label for a received anchor, keyed by its
// anchor ID. Same idempotency contract as CreateFromDetection.
func (r *Registry) CreateFromAnchor(a AnchorRecord, displayText, languageCode string) (Record, bool) {
	r.mu.Lock()
	if id, ok := r.byAnchor[a.AnchorID]; ok {
		rec := r.byID[id]
		r.mu.Unlock()
		return rec, false
	}
	rec := Record{
		ID:              uuid.New().String(),
		Origin:          OriginAnchor,
		AnchorID:        a.AnchorID,
		SemanticKey:     a.LabelKey,
		Pose:            geom.Pose{Position: a.Position, Orientation: a.Orientation},
		DisplayText:     displayText,
		LanguageCode:    languageCode,
		CreatedAtMillis: r.clock.Now().UnixMilli(),
	}
	r.byAnchor[a.AnchorID] = rec.ID
	r.byID[rec.ID] = rec
	r.mu.Unlock()

	Tracef("label created from anchor %s (%s)", a.AnchorID, rec.ID)
	r.notify(Event{Kind: EventCreated, Record: rec})
	return rec, true
}

// Remove deletes the record with the given ID and clears its source-key
// index entry. Removing an unknown ID is a silent no-op returning false.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	rec, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.deleteLocked(rec)
	r.mu.Unlock()

	r.notify(Event{Kind: EventRemoved, Record: rec})
	return true
}

// RemoveAllWhere removes every record matching pred and returns the count.
func (r *Registry) RemoveAllWhere(pred func(Record) bool) int {
	r.mu.Lock()
	var removed []Record
	for _, rec := range r.byID {
		if pred(rec) {
			removed = append(removed, rec)
		}
	}
	for _, rec := range removed {
		r.deleteLocked(rec)
	}
	r.mu.Unlock()

	for _, rec := range removed {
		r.notify(Event{Kind: EventRemoved, Record: rec})
	}
	return len(removed)
}

// deleteLocked removes rec from all three indexes. Caller holds r.mu.
func (r *Registry) deleteLocked(rec Record) {
	delete(r.byID, rec.ID)
	switch rec.Origin {
	case OriginDetection:
		delete(r.byObject, rec.ObjectKey)
	case OriginAnchor:
		delete(r.byAnchor, rec.AnchorID)
	}
}

// HasObject reports whether a detection-sourced record exists for key.
func (r *Registry) HasObject(key ObjectKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byObject[key]
	return ok
}

// HasAnchor reports whether an anchor-sourced record exists for anchorID.
func (r *Registry) HasAnchor(anchorID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byAnchor[anchorID]
	return ok
}

// Get returns a copy of the record with the given ID.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	return rec, ok
}

// GetByAnchor returns a copy of the record keyed by anchorID.
func (r *Registry) GetByAnchor(anchorID string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byAnchor[anchorID]
	if !ok {
		return Record{}, false
	}
	return r.byID[id], true
}

// ListActive returns value copies of every active record, ordered by
// creation time then ID so output is deterministic.
func (r *Registry) ListActive() []Record {
	r.mu.Lock()
	out := make([]Record, 0, len(r.byID))
	for _, rec := range r.byID {
		out = append(out, rec)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtMillis != out[j].CreatedAtMillis {
			return out[i].CreatedAtMillis < out[j].CreatedAtMillis
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Counts returns the number of active records in total and per origin.
func (r *Registry) Counts() (total, local, remote int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), len(r.byObject), len(r.byAnchor)
}

// Observe registers fn for lifecycle events and returns a cancel func.
// Events are delivered after the registry lock is released, in mutation
// order for any given key.
func (r *Registry) Observe(fn func(Event)) func() {
	r.obsMu.Lock()
	id := r.nextObsID
	r.nextObsID++
	r.observers[id] = fn
	r.obsMu.Unlock()

	return func() {
		r.obsMu.Lock()
		delete(r.observers, id)
		r.obsMu.Unlock()
	}
}

func (r *Registry) notify(ev Event) {
	r.obsMu.Lock()
	fns := make([]func(Event), 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.obsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
