package label

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Tuning is the engine's JSON tuning file. All fields are pointers so a
// partial file only overrides what it names; the Get* accessors supply
// defaults for everything else.
type Tuning struct {
	MinConfidence     *float64 `json:"min_confidence,omitempty"`
	IdentityQuantum   *float64 `json:"identity_quantum,omitempty"`
	CreationCooldown  *string  `json:"creation_cooldown,omitempty"`  // duration string like "2s"
	PlacementTimeout  *string  `json:"placement_timeout,omitempty"`  // duration string like "250ms"
	TombstoneCapacity *int     `json:"tombstone_capacity,omitempty"`
	LanguageCode      *string  `json:"language_code,omitempty"`
	QueueDepth        *int     `json:"queue_depth,omitempty"`
}

// LoadTuning reads and validates a tuning file. Fields omitted from the JSON
// keep their defaults, so partial configs are safe.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("tuning file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}
	cfg := &Tuning{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse tuning JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return cfg, nil
}

// Validate checks that set fields hold usable values.
func (t *Tuning) Validate() error {
	if t.MinConfidence != nil {
		if *t.MinConfidence < 0 || *t.MinConfidence > 1 {
			return fmt.Errorf("min_confidence must be between 0 and 1, got %f", *t.MinConfidence)
		}
	}
	if t.IdentityQuantum != nil {
		if *t.IdentityQuantum <= 0 || *t.IdentityQuantum > 1 {
			return fmt.Errorf("identity_quantum must be in (0, 1], got %f", *t.IdentityQuantum)
		}
	}
	if t.CreationCooldown != nil && *t.CreationCooldown != "" {
		if _, err := time.ParseDuration(*t.CreationCooldown); err != nil {
			return fmt.Errorf("invalid creation_cooldown %q: %w", *t.CreationCooldown, err)
		}
	}
	if t.PlacementTimeout != nil && *t.PlacementTimeout != "" {
		if _, err := time.ParseDuration(*t.PlacementTimeout); err != nil {
			return fmt.Errorf("invalid placement_timeout %q: %w", *t.PlacementTimeout, err)
		}
	}
	if t.TombstoneCapacity != nil && *t.TombstoneCapacity < 0 {
		return fmt.Errorf("tombstone_capacity must be non-negative, got %d", *t.TombstoneCapacity)
	}
	if t.QueueDepth != nil && *t.QueueDepth < 0 {
		return fmt.Errorf("queue_depth must be non-negative, got %d", *t.QueueDepth)
	}
	return nil
}

// GetMinConfidence returns the min_confidence value or the default.
func (t *Tuning) GetMinConfidence() float64 {
	if t.MinConfidence == nil {
		return DefaultMinConfidence
	}
	return *t.MinConfidence
}

// GetIdentityQuantum returns the identity_quantum value or the default.
func (t *Tuning) GetIdentityQuantum() float64 {
	if t.IdentityQuantum == nil {
		return DefaultIdentityQuantum
	}
	return *t.IdentityQuantum
}

// GetCreationCooldown parses and returns the creation_cooldown duration.
func (t *Tuning) GetCreationCooldown() time.Duration {
	if t.CreationCooldown == nil || *t.CreationCooldown == "" {
		return DefaultCreationCooldown
	}
	d, err := time.ParseDuration(*t.CreationCooldown)
	if err != nil {
		return DefaultCreationCooldown
	}
	return d
}

// GetPlacementTimeout parses and returns the placement_timeout duration.
func (t *Tuning) GetPlacementTimeout() time.Duration {
	if t.PlacementTimeout == nil || *t.PlacementTimeout == "" {
		return DefaultPlacementTimeout
	}
	d, err := time.ParseDuration(*t.PlacementTimeout)
	if err != nil {
		return DefaultPlacementTimeout
	}
	return d
}

// GetTombstoneCapacity returns the tombstone_capacity value or the default.
func (t *Tuning) GetTombstoneCapacity() int {
	if t.TombstoneCapacity == nil || *t.TombstoneCapacity == 0 {
		return DefaultTombstoneCapacity
	}
	return *t.TombstoneCapacity
}

// GetLanguageCode returns the language_code value or "en".
func (t *Tuning) GetLanguageCode() string {
	if t.LanguageCode == nil || *t.LanguageCode == "" {
		return "en"
	}
	return *t.LanguageCode
}

// GetQueueDepth returns the queue_depth value or the default.
func (t *Tuning) GetQueueDepth() int {
	if t.QueueDepth == nil || *t.QueueDepth == 0 {
		return DefaultQueueDepth
	}
	return *t.QueueDepth
}
