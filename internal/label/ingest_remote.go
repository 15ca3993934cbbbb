package label

import (
	"sync"

	"github.com/meridian-xr/scenelabel/internal/translate"
)

// DefaultTombstoneCapacity bounds the removed-anchor memory.
const DefaultTombstoneCapacity = 4096

// AnchorIngestor absorbs the remote anchor feed: at-least-once, unordered,
// multi-writer. It is the registry's other writer.
//
// Idempotence is layered: the ingestor drops self-echoes (anchors this
// device created, broadcast back by the relay) and tombstoned IDs, and the
// registry's anchor keyspace absorbs plain duplicate deliveries. Because
// identity is solely the anchor ID, anchors commute: any delivery order and
// multiplicity converges to the same registry content.
//
// Tombstones record removed anchor IDs so a late duplicate delivery of a
// removed anchor does not resurrect the label. The memory is a bounded FIFO;
// after eviction an extremely late duplicate re-creates the label, an
// accepted degraded mode.
type AnchorIngestor struct {
	registry   *Registry
	translator translate.Translator
	deviceID   string
	language   string

	mu         sync.Mutex
	tombstones map[string]struct{}
	tombOrder  []string
	tombCap    int
}

// NewAnchorIngestor wires the remote ingestion path. deviceID is this
// device's identity, used to reject self-echoes. A non-positive capacity
// falls back to DefaultTombstoneCapacity.
func NewAnchorIngestor(registry *Registry, translator translate.Translator, deviceID, languageCode string, tombstoneCapacity int) *AnchorIngestor {
	if tombstoneCapacity <= 0 {
		tombstoneCapacity = DefaultTombstoneCapacity
	}
	if languageCode == "" {
		languageCode = "en"
	}
	in := &AnchorIngestor{
		registry:   registry,
		translator: translator,
		deviceID:   deviceID,
		language:   languageCode,
		tombstones: make(map[string]struct{}),
		tombCap:    tombstoneCapacity,
	}
	// Locally initiated removals of anchor-sourced labels must suppress a
	// later redelivery too, so tombstone on every such registry event.
	registry.Observe(func(ev Event) {
		if ev.Kind == EventRemoved && ev.Record.Origin == OriginAnchor {
			in.tombstone(ev.Record.AnchorID)
		}
	})
	return in
}

// OnAnchor handles one delivered anchor record. Self-echoes are dropped
// first: the creator must never accept its own anchor back as new. Then
// tombstones, then the registry's duplicate check. The anchor carries its
// own world pose, so no placement lookup is involved.
func (in *AnchorIngestor) OnAnchor(a AnchorRecord) {
	if a.CreatorID == in.deviceID {
		Tracef("anchor %s dropped: self-echo", a.AnchorID)
		return
	}
	if in.isTombstoned(a.AnchorID) {
		Tracef("anchor %s dropped: tombstoned", a.AnchorID)
		return
	}
	if in.registry.HasAnchor(a.AnchorID) {
		return
	}
	text := translate.DisplayText(in.translator, a.LabelKey, in.language)
	in.registry.CreateFromAnchor(a, text, in.language)
}

// OnRemove handles a feed delete event: remove the anchor-keyed label if
// present (silent no-op otherwise) and tombstone the ID either way, so a
// duplicate put that arrives after the delete stays dead.
func (in *AnchorIngestor) OnRemove(anchorID string) {
	in.tombstone(anchorID)
	if rec, ok := in.registry.GetByAnchor(anchorID); ok {
		in.registry.Remove(rec.ID)
	}
}

func (in *AnchorIngestor) isTombstoned(anchorID string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	_, ok := in.tombstones[anchorID]
	return ok
}

func (in *AnchorIngestor) tombstone(anchorID string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if _, ok := in.tombstones[anchorID]; ok {
		return
	}
	in.tombstones[anchorID] = struct{}{}
	in.tombOrder = append(in.tombOrder, anchorID)
	for len(in.tombOrder) > in.tombCap {
		evict := in.tombOrder[0]
		in.tombOrder = in.tombOrder[1:]
		delete(in.tombstones, evict)
	}
}
