package label

import (
	"fmt"
	"math"
)

// DefaultIdentityQuantum is the screen-space cell size used to collapse
// per-frame jitter of a tracked object onto one identity. 0.01 quantizes the
// normalized center to two decimal places.
const DefaultIdentityQuantum = 0.01

// ObjectKey identifies a locally detected object for dedup purposes: the
// object class plus the detection's screen center quantized to a grid cell.
// Cells are stored as integers so key equality is exact, with no
// floating-point formatting involved.
//
// This is a spatial debounce heuristic, not object re-identification: the
// same object re-detected in roughly the same screen region maps to the same
// key, but an object that moves far enough to change cell gets a fresh key.
type ObjectKey struct {
	Class string
	CellX int
	CellY int
}

// String renders the key for logs and diagnostics, e.g. "cup@50,50".
func (k ObjectKey) String() string {
	return fmt.Sprintf("%s@%d,%d", k.Class, k.CellX, k.CellY)
}

// ResolveObjectKey derives the dedup key for a detection. Pure and
// deterministic: sub-quantum jitter of the box center yields the same key.
// A non-positive quantum falls back to DefaultIdentityQuantum.
func ResolveObjectKey(d Detection, quantum float64) ObjectKey {
	if quantum <= 0 {
		quantum = DefaultIdentityQuantum
	}
	cx, cy := d.Box.Center()
	return ObjectKey{
		Class: d.Class,
		CellX: int(math.Round(cx / quantum)),
		CellY: int(math.Round(cy / quantum)),
	}
}
