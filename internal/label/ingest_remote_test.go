package label

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/meridian-xr/scenelabel/internal/geom"
	"github.com/meridian-xr/scenelabel/internal/translate"
)

const localDevice = "device-local"

func newRemoteHarness() (*AnchorIngestor, *Registry) {
	registry := NewRegistry(nil)
	ing := NewAnchorIngestor(registry, translate.NewStaticTranslator(), localDevice, "en", 0)
	return ing, registry
}

func peerAnchor(id, key string) AnchorRecord {
	return AnchorRecord{
		AnchorID:        id,
		Position:        geom.Vec3{X: 1, Z: -2},
		Orientation:     geom.IdentityQuat(),
		LabelKey:        key,
		CreatorID:       "device-peer",
		CreatedAtMillis: 99,
	}
}

func TestAtLeastOnceAbsorption(t *testing.T) {
	ing, registry := newRemoteHarness()

	a := peerAnchor("anchor-1", "cup")
	b := peerAnchor("anchor-2", "chair")
	// Duplicates interleaved with other anchors, every which way.
	for _, rec := range []AnchorRecord{a, b, a, a, b, a} {
		ing.OnAnchor(rec)
	}

	if total, _, remote := registry.Counts(); total != 2 || remote != 2 {
		t.Errorf("Counts() = %d total %d remote, want 2,2", total, remote)
	}
}

func TestOrderIndependence(t *testing.T) {
	anchors := []AnchorRecord{
		peerAnchor("anchor-a", "cup"),
		peerAnchor("anchor-b", "chair"),
		peerAnchor("anchor-c", "book"),
	}

	// Fields assigned at ingest time differ between runs; identity content
	// must not.
	ignore := cmpopts.IgnoreFields(Record{}, "ID", "CreatedAtMillis")

	var reference []Record
	for p, perm := range permutations(anchors) {
		ing, registry := newRemoteHarness()
		for _, a := range perm {
			ing.OnAnchor(a)
		}
		got := registry.ListActive()
		if len(got) != 3 {
			t.Fatalf("permutation %d: %d records, want 3", p, len(got))
		}
		// ListActive orders by creation time; compare as sets keyed by
		// anchor ID.
		byAnchor := func(recs []Record) map[string]Record {
			m := make(map[string]Record, len(recs))
			for _, r := range recs {
				m[r.AnchorID] = r
			}
			return m
		}
		if reference == nil {
			reference = got
			continue
		}
		if diff := cmp.Diff(byAnchor(reference), byAnchor(got), ignore); diff != "" {
			t.Errorf("permutation %d diverged (-first +got):\n%s", p, diff)
		}
	}
}

// permutations returns all orderings of the input.
func permutations(in []AnchorRecord) [][]AnchorRecord {
	if len(in) <= 1 {
		return [][]AnchorRecord{in}
	}
	var out [][]AnchorRecord
	for i := range in {
		rest := make([]AnchorRecord, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, tail := range permutations(rest) {
			out = append(out, append([]AnchorRecord{in[i]}, tail...))
		}
	}
	return out
}

func TestSelfEchoRejected(t *testing.T) {
	ing, registry := newRemoteHarness()

	echo := peerAnchor("anchor-own", "cup")
	echo.CreatorID = localDevice
	ing.OnAnchor(echo)
	ing.OnAnchor(echo)

	if total, _, _ := registry.Counts(); total != 0 {
		t.Errorf("self-echo created %d labels, want 0", total)
	}
}

func TestAnchorPoseCarriedDirectly(t *testing.T) {
	ing, registry := newRemoteHarness()

	a := peerAnchor("anchor-1", "cup")
	a.Position = geom.Vec3{X: 3, Y: 1, Z: -4}
	ing.OnAnchor(a)

	rec, ok := registry.GetByAnchor("anchor-1")
	if !ok {
		t.Fatal("record not found")
	}
	if rec.Pose.Position != a.Position {
		t.Errorf("pose position = %+v, want %+v", rec.Pose.Position, a.Position)
	}
	if rec.SemanticKey != "cup" {
		t.Errorf("semantic key = %q, want cup", rec.SemanticKey)
	}
}

func TestOnRemoveDeletesAndTombstones(t *testing.T) {
	ing, registry := newRemoteHarness()

	a := peerAnchor("anchor-1", "cup")
	ing.OnAnchor(a)
	ing.OnRemove("anchor-1")

	if total, _, _ := registry.Counts(); total != 0 {
		t.Fatalf("label not removed")
	}
	// A late duplicate delivery of the removed anchor stays dead.
	ing.OnAnchor(a)
	if total, _, _ := registry.Counts(); total != 0 {
		t.Error("tombstoned anchor was resurrected by a late duplicate")
	}
}

func TestOnRemoveUnknownAnchorIsNoOp(t *testing.T) {
	ing, registry := newRemoteHarness()
	ing.OnRemove("never-seen")
	if total, _, _ := registry.Counts(); total != 0 {
		t.Error("remove of unknown anchor changed state")
	}
	// The delete still tombstones, guarding against a put that arrives
	// after its own delete.
	ing.OnAnchor(peerAnchor("never-seen", "cup"))
	if total, _, _ := registry.Counts(); total != 0 {
		t.Error("put after delete should be suppressed")
	}
}

func TestLocalRemovalTombstones(t *testing.T) {
	// Removing an anchor-sourced label through the registry (a UI dismissal)
	// must suppress redelivery just like a feed delete.
	ing, registry := newRemoteHarness()

	a := peerAnchor("anchor-1", "cup")
	ing.OnAnchor(a)
	rec, _ := registry.GetByAnchor("anchor-1")
	registry.Remove(rec.ID)

	ing.OnAnchor(a)
	if total, _, _ := registry.Counts(); total != 0 {
		t.Error("locally removed anchor label was resurrected by redelivery")
	}
}

func TestTombstoneEviction(t *testing.T) {
	// The tombstone memory is a bounded FIFO: once an ID is evicted, a very
	// late duplicate legitimately re-creates the label.
	registry := NewRegistry(nil)
	ing := NewAnchorIngestor(registry, nil, localDevice, "en", 2)

	ing.OnRemove("anchor-1")
	ing.OnRemove("anchor-2")
	ing.OnRemove("anchor-3") // evicts anchor-1

	ing.OnAnchor(peerAnchor("anchor-1", "cup"))
	if total, _, _ := registry.Counts(); total != 1 {
		t.Errorf("evicted tombstone should allow re-creation, got %d labels", total)
	}
	ing.OnAnchor(peerAnchor("anchor-3", "book"))
	if total, _, _ := registry.Counts(); total != 1 {
		t.Error("retained tombstone should still suppress")
	}
}

func TestManyDuplicatesOneLabel(t *testing.T) {
	ing, registry := newRemoteHarness()
	for n := 1; n <= 50; n++ {
		ing.OnAnchor(peerAnchor("anchor-1", "cup"))
		if total, _, _ := registry.Counts(); total != 1 {
			t.Fatalf("after %d deliveries: %d labels, want 1", n, total)
		}
	}
}

func TestDistinctAnchorsDistinctLabels(t *testing.T) {
	ing, registry := newRemoteHarness()
	for i := 0; i < 10; i++ {
		ing.OnAnchor(peerAnchor(fmt.Sprintf("anchor-%d", i), "cup"))
	}
	if total, _, remote := registry.Counts(); total != 10 || remote != 10 {
		t.Errorf("Counts() = %d,%d, want 10,10", total, remote)
	}
}
