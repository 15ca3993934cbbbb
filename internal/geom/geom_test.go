package geom

import (
	"encoding/json"
	"math"
	"testing"
)

const eps = 1e-12

func vecClose(a, b Vec3) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9 && math.Abs(a.Z-b.Z) < 1e-9
}

func TestVec3Arithmetic(t *testing.T) {
	a := Vec3{X: 1, Y: 2, Z: 3}
	b := Vec3{X: -1, Y: 0.5, Z: 2}

	if got := a.Add(b); !vecClose(got, Vec3{X: 0, Y: 2.5, Z: 5}) {
		t.Errorf("Add = %+v", got)
	}
	if got := a.Sub(b); !vecClose(got, Vec3{X: 2, Y: 1.5, Z: 1}) {
		t.Errorf("Sub = %+v", got)
	}
	if got := a.Scale(2); !vecClose(got, Vec3{X: 2, Y: 4, Z: 6}) {
		t.Errorf("Scale = %+v", got)
	}
	if got := (Vec3{X: 3, Y: 4}).Norm(); math.Abs(got-5) > eps {
		t.Errorf("Norm = %v, want 5", got)
	}
	if got := a.Distance(a); got != 0 {
		t.Errorf("Distance(self) = %v, want 0", got)
	}
}

func TestVec3Unit(t *testing.T) {
	u := Vec3{X: 0, Y: 0, Z: -9}.Unit()
	if !vecClose(u, Vec3{Z: -1}) {
		t.Errorf("Unit = %+v, want (0,0,-1)", u)
	}

	// Zero vector must not become NaN.
	z := Vec3{}.Unit()
	if z != (Vec3{}) {
		t.Errorf("Unit(zero) = %+v, want zero", z)
	}
}

func TestYawQuatRotate(t *testing.T) {
	tests := []struct {
		name string
		yaw  float64
		in   Vec3
		want Vec3
	}{
		{"yaw 90 takes +X to -Z", math.Pi / 2, Vec3{X: 1}, Vec3{Z: -1}},
		{"yaw 90 takes +Z to +X", math.Pi / 2, Vec3{Z: 1}, Vec3{X: 1}},
		{"yaw 180 takes +X to -X", math.Pi, Vec3{X: 1}, Vec3{X: -1}},
		{"yaw leaves +Y fixed", math.Pi / 3, Vec3{Y: 1}, Vec3{Y: 1}},
		{"identity leaves vector fixed", 0, Vec3{X: 0.3, Y: -1, Z: 2}, Vec3{X: 0.3, Y: -1, Z: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := YawQuat(tt.yaw).Rotate(tt.in)
			if !vecClose(got, tt.want) {
				t.Errorf("Rotate = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestQuatComposeAndNormalize(t *testing.T) {
	q := YawQuat(math.Pi / 2).Mul(YawQuat(math.Pi / 2))
	got := q.Rotate(Vec3{X: 1})
	if !vecClose(got, Vec3{X: -1}) {
		t.Errorf("two quarter turns = %+v, want (-1,0,0)", got)
	}

	// Scaling a quaternion must not change the rotation after Normalize.
	scaled := Quat{W: q.W * 3, X: q.X * 3, Y: q.Y * 3, Z: q.Z * 3}.Normalize()
	if got := scaled.Rotate(Vec3{X: 1}); !vecClose(got, Vec3{X: -1}) {
		t.Errorf("normalized rotation = %+v, want (-1,0,0)", got)
	}

	if got := (Quat{}).Normalize(); got != IdentityQuat() {
		t.Errorf("Normalize(zero) = %+v, want identity", got)
	}
}

func TestPoseDistance(t *testing.T) {
	a := Pose{Position: Vec3{X: 1}, Orientation: IdentityQuat()}
	b := Pose{Position: Vec3{X: 4, Y: 4}, Orientation: YawQuat(1)}
	if got := a.Distance(b); math.Abs(got-5) > eps {
		t.Errorf("Distance = %v, want 5", got)
	}
}

func TestPoseJSONRoundTrip(t *testing.T) {
	in := Pose{
		Position:    Vec3{X: 1.5, Y: 0, Z: -2.25},
		Orientation: YawQuat(math.Pi / 4),
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Pose
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !vecClose(in.Position, out.Position) {
		t.Errorf("position round trip = %+v, want %+v", out.Position, in.Position)
	}
	if math.Abs(in.Orientation.W-out.Orientation.W) > eps || math.Abs(in.Orientation.Y-out.Orientation.Y) > eps {
		t.Errorf("orientation round trip = %+v, want %+v", out.Orientation, in.Orientation)
	}
}
