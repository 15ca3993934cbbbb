package label

import (
	"github.com/meridian-xr/scenelabel/internal/geom"
)

// Origin says which ingestion path created a label record.
type Origin string

const (
	// OriginDetection marks a label placed from on-device perception.
	OriginDetection Origin = "detection"
	// OriginAnchor marks a label absorbed from the remote anchor feed.
	OriginAnchor Origin = "anchor"
)

// AnchorRecord is the unit of cross-device synchronization: one label's
// world pose and semantic content as published by its creator. AnchorID is
// assigned once by the creating device and is the sole identity used for
// dedup across devices; records are never mutated after creation.
type AnchorRecord struct {
	AnchorID        string    `json:"anchor_id"`
	Position        geom.Vec3 `json:"position"`
	Orientation     geom.Quat `json:"orientation"`
	LabelKey        string    `json:"label_key"`
	CreatorID       string    `json:"creator_id"`
	CreatedAtMillis int64     `json:"created_at_millis"`
}

// Record is one live label: the Registry's unit of truth.
//
// The source key is a tagged union on Origin: detection-sourced records are
// keyed by ObjectKey, anchor-sourced records by AnchorID. The two keyspaces
// never merge, even when they describe the same physical object; that
// mirrors the shipped behaviour and is a documented limitation. ID is
// registry-assigned and backs O(1) removal through the reverse index.
type Record struct {
	ID              string    `json:"id"`
	Origin          Origin    `json:"origin"`
	ObjectKey       ObjectKey `json:"object_key,omitzero"`
	AnchorID        string    `json:"anchor_id,omitempty"`
	SemanticKey     string    `json:"semantic_key"`
	Pose            geom.Pose `json:"pose"`
	DisplayText     string    `json:"display_text"`
	LanguageCode    string    `json:"language_code"`
	CreatedAtMillis int64     `json:"created_at_millis"`
}
