package label

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeFeed records puts and deletes, optionally failing them.
type fakeFeed struct {
	mu      sync.Mutex
	puts    []AnchorRecord
	deletes []string
	fail    bool
}

func (f *fakeFeed) Put(ctx context.Context, a AnchorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("feed unavailable")
	}
	f.puts = append(f.puts, a)
	return nil
}

func (f *fakeFeed) Delete(ctx context.Context, anchorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("feed unavailable")
	}
	f.deletes = append(f.deletes, anchorID)
	return nil
}

func (f *fakeFeed) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func newGatewayHarness(sharing bool) (*Registry, *fakeFeed, *Gateway) {
	registry := NewRegistry(nil)
	feed := &fakeFeed{}
	gw := NewGateway(registry, feed, localDevice, nil)
	gw.SetSharing(sharing)
	return registry, feed, gw
}

func TestGatewayPublishesLocalCreation(t *testing.T) {
	registry, feed, _ := newGatewayHarness(true)

	d := det("cup", 0.5, 0.5)
	rec, _ := registry.CreateFromDetection(ResolveObjectKey(d, 0.01), d, testPose(), "cup", "en")

	if feed.putCount() != 1 {
		t.Fatalf("published %d anchors, want 1", feed.putCount())
	}
	a := feed.puts[0]
	if a.AnchorID == "" {
		t.Error("published anchor has no ID")
	}
	if a.CreatorID != localDevice {
		t.Errorf("creator = %q, want %q", a.CreatorID, localDevice)
	}
	if a.LabelKey != "cup" {
		t.Errorf("label key = %q, want cup", a.LabelKey)
	}
	if a.Position != rec.Pose.Position {
		t.Errorf("position = %+v, want %+v", a.Position, rec.Pose.Position)
	}
}

func TestGatewayIgnoresAnchorOrigin(t *testing.T) {
	// Re-publishing received anchors would turn every receiver into a
	// rebroadcaster. Anchor-origin events must never reach the feed.
	registry, feed, _ := newGatewayHarness(true)

	registry.CreateFromAnchor(peerAnchor("anchor-1", "cup"), "cup", "en")

	if feed.putCount() != 0 {
		t.Errorf("anchor-origin creation was re-published %d times", feed.putCount())
	}
}

func TestGatewayRespectsSharingState(t *testing.T) {
	registry, feed, gw := newGatewayHarness(false)

	d := det("cup", 0.5, 0.5)
	registry.CreateFromDetection(ResolveObjectKey(d, 0.01), d, testPose(), "cup", "en")
	if feed.putCount() != 0 {
		t.Fatal("published while not sharing")
	}

	gw.SetSharing(true)
	d2 := det("chair", 0.8, 0.8)
	registry.CreateFromDetection(ResolveObjectKey(d2, 0.01), d2, testPose(), "chair", "en")
	if feed.putCount() != 1 {
		t.Errorf("published %d anchors after enabling sharing, want 1", feed.putCount())
	}
}

func TestGatewayPublishFailureKeepsLabel(t *testing.T) {
	registry, feed, _ := newGatewayHarness(true)
	feed.fail = true

	d := det("cup", 0.5, 0.5)
	registry.CreateFromDetection(ResolveObjectKey(d, 0.01), d, testPose(), "cup", "en")

	if total, _, _ := registry.Counts(); total != 1 {
		t.Errorf("publish failure reverted local state: %d labels", total)
	}
}

func TestGatewayRetractsPublishedLabel(t *testing.T) {
	registry, feed, _ := newGatewayHarness(true)

	d := det("cup", 0.5, 0.5)
	rec, _ := registry.CreateFromDetection(ResolveObjectKey(d, 0.01), d, testPose(), "cup", "en")
	published := feed.puts[0].AnchorID

	registry.Remove(rec.ID)

	if len(feed.deletes) != 1 || feed.deletes[0] != published {
		t.Errorf("deletes = %v, want [%s]", feed.deletes, published)
	}
}

func TestGatewayNoRetractForUnpublished(t *testing.T) {
	// A label created while solo was never published; its removal must not
	// send a delete.
	registry, feed, gw := newGatewayHarness(false)

	d := det("cup", 0.5, 0.5)
	rec, _ := registry.CreateFromDetection(ResolveObjectKey(d, 0.01), d, testPose(), "cup", "en")
	gw.SetSharing(true)
	registry.Remove(rec.ID)

	if len(feed.deletes) != 0 {
		t.Errorf("unpublished label removal sent deletes: %v", feed.deletes)
	}
}
