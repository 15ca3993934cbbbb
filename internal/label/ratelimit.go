package label

import (
	"sync"
	"time"

	"github.com/meridian-xr/scenelabel/internal/timeutil"
)

// DefaultCreationCooldown is the minimum interval between label creations.
const DefaultCreationCooldown = 2 * time.Second

// CreationGate is a process-wide cooldown on label creation. It holds a
// single last-acquired timestamp shared across all object classes: the point
// is to stop one noisy frame from creating many labels in the same instant,
// not to provide per-object fairness. Deliberately not a token bucket.
type CreationGate struct {
	mu       sync.Mutex
	clock    timeutil.Clock
	cooldown time.Duration
	last     time.Time
}

// NewCreationGate returns a gate enforcing the given cooldown. A
// non-positive cooldown falls back to DefaultCreationCooldown. The first
// TryAcquire on a fresh gate always succeeds.
func NewCreationGate(cooldown time.Duration, clock timeutil.Clock) *CreationGate {
	if cooldown <= 0 {
		cooldown = DefaultCreationCooldown
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &CreationGate{clock: clock, cooldown: cooldown}
}

// TryAcquire reports whether a creation is allowed now, and if so records
// the instant. Check and set happen under one lock so two detections
// processed back to back in the same batch still observe a monotonically
// enforced cooldown.
func (g *CreationGate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if !g.last.IsZero() && now.Sub(g.last) < g.cooldown {
		return false
	}
	g.last = now
	return true
}
