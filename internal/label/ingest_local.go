package label

import (
	"context"
	"errors"
	"time"

	"github.com/meridian-xr/scenelabel/internal/place"
	"github.com/meridian-xr/scenelabel/internal/translate"
)

// DefaultMinConfidence is the detection confidence floor.
const DefaultMinConfidence = 0.5

// DefaultPlacementTimeout bounds a single world-pose resolution.
const DefaultPlacementTimeout = 250 * time.Millisecond

// DetectionIngestorConfig tunes the local ingestion path. MinConfidence is a
// pointer, like the tuning file's field: nil means DefaultMinConfidence,
// while an explicit 0 accepts every detection.
type DetectionIngestorConfig struct {
	MinConfidence    *float64
	IdentityQuantum  float64
	PlacementTimeout time.Duration
	LanguageCode     string
}

// DetectionIngestor turns per-frame perception output into locally placed
// labels. It is one of the registry's two writers.
type DetectionIngestor struct {
	registry   *Registry
	gate       *CreationGate
	placer     place.Placer
	translator translate.Translator

	minConfidence    float64
	identityQuantum  float64
	placementTimeout time.Duration
	languageCode     string
}

// NewDetectionIngestor wires the local ingestion path. A nil MinConfidence
// and zero-valued remaining fields fall back to the package defaults.
func NewDetectionIngestor(registry *Registry, gate *CreationGate, placer place.Placer, translator translate.Translator, cfg DetectionIngestorConfig) *DetectionIngestor {
	minConfidence := DefaultMinConfidence
	if cfg.MinConfidence != nil {
		minConfidence = *cfg.MinConfidence
	}
	if cfg.IdentityQuantum == 0 {
		cfg.IdentityQuantum = DefaultIdentityQuantum
	}
	if cfg.PlacementTimeout == 0 {
		cfg.PlacementTimeout = DefaultPlacementTimeout
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en"
	}
	return &DetectionIngestor{
		registry:         registry,
		gate:             gate,
		placer:           placer,
		translator:       translator,
		minConfidence:    minConfidence,
		identityQuantum:  cfg.IdentityQuantum,
		placementTimeout: cfg.PlacementTimeout,
		languageCode:     cfg.LanguageCode,
	}
}

// OnDetections processes one frame's detection batch. Per detection: drop
// below the confidence floor; drop if the object is already labeled (the
// existence check runs before the rate limit on purpose, so re-observing a
// labeled object never burns the shared cooldown a genuinely new object
// needs); consume the creation gate; resolve a world pose; create.
//
// Placement is the only operation here that may block. It runs under its own
// timeout and touches no registry state, so a failed or slow placement
// leaves the registry exactly as it was. The cooldown stays consumed even
// when placement fails; that bounds creation rate across placement retries.
func (in *DetectionIngestor) OnDetections(ctx context.Context, batch []Detection) {
	for _, d := range batch {
		if d.Confidence < in.minConfidence {
			continue
		}
		key := ResolveObjectKey(d, in.identityQuantum)
		if in.registry.HasObject(key) {
			continue
		}
		if !in.gate.TryAcquire() {
			Tracef("detection %s dropped: creation cooldown", key)
			continue
		}

		cx, cy := d.Box.Center()
		placeCtx, cancel := context.WithTimeout(ctx, in.placementTimeout)
		pose, err := in.placer.ResolveWorldPose(placeCtx, cx, cy)
		cancel()
		if err != nil {
			if !errors.Is(err, place.ErrNoSurface) && !errors.Is(err, context.DeadlineExceeded) {
				Diagf("placement for %s failed: %v", key, err)
			}
			continue
		}

		text := translate.DisplayText(in.translator, d.Class, in.languageCode)
		in.registry.CreateFromDetection(key, d, pose, text, in.languageCode)
	}
}
