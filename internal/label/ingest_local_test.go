package label

import (
	"context"
	"testing"
	"time"

	"github.com/meridian-xr/scenelabel/internal/place"
	"github.com/meridian-xr/scenelabel/internal/timeutil"
	"github.com/meridian-xr/scenelabel/internal/translate"
)

func newLocalHarness(t *testing.T, placer place.Placer) (*DetectionIngestor, *Registry, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	registry := NewRegistry(clock)
	gate := NewCreationGate(2*time.Second, clock)
	ing := NewDetectionIngestor(registry, gate, placer, translate.NewStaticTranslator(), DetectionIngestorConfig{})
	return ing, registry, clock
}

func TestIngestorCreatesLabel(t *testing.T) {
	ing, registry, _ := newLocalHarness(t, place.Fixed(testPose()))

	ing.OnDetections(context.Background(), []Detection{det("cup", 0.5, 0.5)})

	active := registry.ListActive()
	if len(active) != 1 {
		t.Fatalf("got %d labels, want 1", len(active))
	}
	rec := active[0]
	if rec.SemanticKey != "cup" || rec.Origin != OriginDetection {
		t.Errorf("record = %s/%s, want cup/detection", rec.SemanticKey, rec.Origin)
	}
	if rec.Pose != testPose() {
		t.Errorf("pose = %+v, want %+v", rec.Pose, testPose())
	}
}

func TestIngestorConfidenceFilter(t *testing.T) {
	ing, registry, _ := newLocalHarness(t, place.Fixed(testPose()))

	low := det("cup", 0.5, 0.5)
	low.Confidence = 0.3
	ing.OnDetections(context.Background(), []Detection{low})

	if total, _, _ := registry.Counts(); total != 0 {
		t.Errorf("low-confidence detection created %d labels", total)
	}
}

func TestIngestorExplicitZeroConfidenceFloor(t *testing.T) {
	// An explicit floor of 0 accepts every detection; only a nil
	// MinConfidence falls back to the default.
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	registry := NewRegistry(clock)
	gate := NewCreationGate(time.Second, clock)
	zero := 0.0
	ing := NewDetectionIngestor(registry, gate, place.Fixed(testPose()), nil, DetectionIngestorConfig{MinConfidence: &zero})

	d := det("cup", 0.5, 0.5)
	d.Confidence = 0
	ing.OnDetections(context.Background(), []Detection{d})

	if total, _, _ := registry.Counts(); total != 1 {
		t.Errorf("zero-confidence detection with a 0 floor created %d labels, want 1", total)
	}
}

func TestIngestorIdempotentAcrossFrames(t *testing.T) {
	// The same object re-detected after the cooldown elapses still yields
	// exactly one label.
	ing, registry, clock := newLocalHarness(t, place.Fixed(testPose()))

	ing.OnDetections(context.Background(), []Detection{det("cup", 0.500, 0.500)})
	clock.Advance(5 * time.Second)
	ing.OnDetections(context.Background(), []Detection{det("cup", 0.503, 0.498)})

	if total, _, _ := registry.Counts(); total != 1 {
		t.Errorf("got %d labels, want 1", total)
	}
}

func TestIngestorRateLimit(t *testing.T) {
	// Two distinct new objects inside one cooldown window: only the first
	// lands.
	ing, registry, clock := newLocalHarness(t, place.Fixed(testPose()))

	ing.OnDetections(context.Background(), []Detection{det("cup", 0.2, 0.2)})
	clock.Advance(100 * time.Millisecond)
	ing.OnDetections(context.Background(), []Detection{det("chair", 0.8, 0.8)})

	if total, _, _ := registry.Counts(); total != 1 {
		t.Fatalf("got %d labels, want 1", total)
	}
	// After the cooldown the second object gets its turn.
	clock.Advance(2 * time.Second)
	ing.OnDetections(context.Background(), []Detection{det("chair", 0.8, 0.8)})
	if total, _, _ := registry.Counts(); total != 2 {
		t.Errorf("got %d labels after cooldown, want 2", total)
	}
}

func TestIngestorBatchObservesCooldown(t *testing.T) {
	// A single noisy frame with many distinct objects creates exactly one
	// label; the gate's check-and-set holds within one batch.
	ing, registry, _ := newLocalHarness(t, place.Fixed(testPose()))

	ing.OnDetections(context.Background(), []Detection{
		det("cup", 0.2, 0.2),
		det("chair", 0.5, 0.5),
		det("book", 0.8, 0.8),
	})

	if total, _, _ := registry.Counts(); total != 1 {
		t.Errorf("one batch created %d labels, want 1", total)
	}
}

func TestIngestorExistingObjectSkipsRateLimit(t *testing.T) {
	// Re-observing an already-labeled object must not consume the cooldown
	// window a genuinely new object needs: the existence check runs first.
	ing, registry, clock := newLocalHarness(t, place.Fixed(testPose()))

	ing.OnDetections(context.Background(), []Detection{det("cup", 0.5, 0.5)})
	clock.Advance(3 * time.Second)

	// Same frame: the already-labeled cup first, then a new chair. If the
	// cup burned the gate, the chair would be rejected.
	ing.OnDetections(context.Background(), []Detection{
		det("cup", 0.5, 0.5),
		det("chair", 0.8, 0.8),
	})

	if total, _, _ := registry.Counts(); total != 2 {
		t.Errorf("got %d labels, want 2 (existence check must precede rate limit)", total)
	}
}

func TestIngestorPlacementFailureConsumesCooldown(t *testing.T) {
	// Placement failure drops the detection silently but the cooldown stays
	// consumed; creation rate is bounded even when placement keeps failing.
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	registry := NewRegistry(clock)
	gate := NewCreationGate(2*time.Second, clock)
	ing := NewDetectionIngestor(registry, gate, place.NoSurface{}, nil, DetectionIngestorConfig{})

	ing.OnDetections(context.Background(), []Detection{det("cup", 0.5, 0.5)})
	if total, _, _ := registry.Counts(); total != 0 {
		t.Fatalf("placement failure still created %d labels", total)
	}
	if gate.TryAcquire() {
		t.Error("cooldown should have been consumed by the failed placement")
	}
}

func TestIngestorTranslatesDisplayText(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	registry := NewRegistry(clock)
	gate := NewCreationGate(time.Second, clock)
	ing := NewDetectionIngestor(registry, gate, place.Fixed(testPose()), translate.NewStaticTranslator(), DetectionIngestorConfig{
		LanguageCode: "es",
	})

	ing.OnDetections(context.Background(), []Detection{det("cup", 0.5, 0.5)})

	rec := registry.ListActive()[0]
	if rec.DisplayText != "taza" || rec.LanguageCode != "es" {
		t.Errorf("display = %q/%q, want taza/es", rec.DisplayText, rec.LanguageCode)
	}
	if rec.SemanticKey != "cup" {
		t.Errorf("semantic key = %q, want untranslated cup", rec.SemanticKey)
	}
}
