// Package place resolves where in the world a screen-space detection should
// be pinned. The real system ray-casts against live scene geometry; this
// package defines that boundary and ships a deterministic synthetic placer
// for demos, replays, and tests.
package place

import (
	"context"
	"errors"

	"github.com/meridian-xr/scenelabel/internal/geom"
)

// ErrNoSurface is returned when no physical surface lies along the ray
// through the given screen point. It is a normal, frequent outcome, not a
// failure: callers drop the detection and move on.
var ErrNoSurface = errors.New("place: no surface along ray")

// Placer resolves a world pose for a normalized screen point. The lookup may
// block (a ray cast against a yet-unconverged map), so it takes a context;
// callers bound it with a timeout.
type Placer interface {
	ResolveWorldPose(ctx context.Context, screenX, screenY float64) (geom.Pose, error)
}

// Fixed is a Placer that always returns the same pose. Test helper.
type Fixed geom.Pose

func (f Fixed) ResolveWorldPose(ctx context.Context, screenX, screenY float64) (geom.Pose, error) {
	return geom.Pose(f), nil
}

// NoSurface is a Placer that never finds a surface. Test helper.
type NoSurface struct{}

func (NoSurface) ResolveWorldPose(ctx context.Context, screenX, screenY float64) (geom.Pose, error) {
	return geom.Pose{}, ErrNoSurface
}
