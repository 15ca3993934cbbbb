// Package wsfeed carries the anchor feed over websockets: a Client that
// implements transport.Feed against a relay, and the Hub the relay serves.
//
// Wire protocol: JSON envelopes, one per websocket text message.
// "put" carries a record, "delete" carries an anchor ID, "snapshot" is sent
// by the hub on join and carries one retained record per envelope. Delivery
// is at-least-once and unordered; reconnects replay the room snapshot, so
// duplicates are routine and absorbed by the receiving ingestor.
package wsfeed

import "github.com/meridian-xr/scenelabel/internal/label"

const (
	OpPut      = "put"
	OpDelete   = "delete"
	OpSnapshot = "snapshot"
)

// Envelope is one feed message on the wire.
type Envelope struct {
	Op       string              `json:"op"`
	Record   *label.AnchorRecord `json:"record,omitempty"`
	AnchorID string              `json:"anchor_id,omitempty"`
}
