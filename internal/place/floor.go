package place

import (
	"context"
	"math"

	"github.com/meridian-xr/scenelabel/internal/geom"
)

// FloorPlacerConfig describes the synthetic camera used by FloorPlacer.
type FloorPlacerConfig struct {
	// CameraHeight is the camera's height above the floor plane in metres.
	CameraHeight float64
	// PitchRadians tilts the camera about its X axis; negative looks down.
	PitchRadians float64
	// VerticalFOVRadians is the camera's vertical field of view.
	VerticalFOVRadians float64
	// AspectRatio is width over height of the camera frame.
	AspectRatio float64
}

// DefaultFloorPlacerConfig returns a camera resembling a handheld phone:
// 1.4m up, tilted 20 degrees down, 60 degree vertical FOV, 4:3 frame.
func DefaultFloorPlacerConfig() FloorPlacerConfig {
	return FloorPlacerConfig{
		CameraHeight:       1.4,
		PitchRadians:       -20 * math.Pi / 180,
		VerticalFOVRadians: 60 * math.Pi / 180,
		AspectRatio:        4.0 / 3.0,
	}
}

// FloorPlacer projects a normalized screen point through a pinhole camera
// onto the y=0 floor plane. Rays that point at or above the horizon miss the
// floor and yield ErrNoSurface. Fully deterministic, which makes it suitable
// for the demo walker and for end-to-end tests that assert exact poses.
type FloorPlacer struct {
	cfg FloorPlacerConfig
}

// NewFloorPlacer builds a FloorPlacer. The config is taken as given, zeros
// included; callers wanting the stock camera start from
// DefaultFloorPlacerConfig and override fields from there.
func NewFloorPlacer(cfg FloorPlacerConfig) *FloorPlacer {
	return &FloorPlacer{cfg: cfg}
}

// ResolveWorldPose intersects the camera ray through (screenX, screenY) with
// the floor. Screen coordinates are normalized to [0,1] with the origin at
// the top-left. The returned pose sits on the floor, oriented to face back
// toward the camera about the Y axis.
func (p *FloorPlacer) ResolveWorldPose(ctx context.Context, screenX, screenY float64) (geom.Pose, error) {
	if err := ctx.Err(); err != nil {
		return geom.Pose{}, err
	}

	// Ray direction in camera space. The camera looks down -Z; tan of the
	// half-FOV maps the normalized offsets onto the image plane at z=-1.
	tanHalf := math.Tan(p.cfg.VerticalFOVRadians / 2)
	dir := geom.Vec3{
		X: (screenX - 0.5) * 2 * tanHalf * p.cfg.AspectRatio,
		Y: -(screenY - 0.5) * 2 * tanHalf,
		Z: -1,
	}
	dir = geom.Quat{W: math.Cos(p.cfg.PitchRadians / 2), X: math.Sin(p.cfg.PitchRadians / 2)}.Rotate(dir)

	if dir.Y >= 0 {
		return geom.Pose{}, ErrNoSurface
	}

	origin := geom.Vec3{Y: p.cfg.CameraHeight}
	t := -origin.Y / dir.Y
	hit := origin.Add(dir.Scale(t))

	// Yaw the label to face the camera position.
	yaw := math.Atan2(origin.X-hit.X, origin.Z-hit.Z)
	return geom.Pose{Position: hit, Orientation: geom.YawQuat(yaw)}, nil
}
