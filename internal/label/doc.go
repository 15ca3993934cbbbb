// Package label implements the spatial label state-synchronization engine:
// the single authoritative set of in-scene labels, fed by on-device
// detections on one side and a multi-writer anchor feed on the other.
//
// The Registry owns all label state. The two ingestors are its only writers:
// DetectionIngestor turns per-frame perception output into locally placed
// labels, and AnchorIngestor absorbs the at-least-once, unordered anchor
// feed. The Gateway publishes locally created labels back to the feed.
// Session funnels every mutation through one apply goroutine so that no
// half-applied create is ever observable.
//
// Locally created labels and remotely received anchors live in disjoint
// keyspaces (ObjectKey vs anchor ID) and are never merged, even when they
// describe the same physical object. That mirrors the shipped behaviour and
// is a known limitation, not an oversight.
package label
