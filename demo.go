package main

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/meridian-xr/scenelabel/internal/label"
)

// demoObject is one scripted object in the synthetic camera view. It drifts
// on a slow Lissajous path around its home point, which exercises the
// identity quantizer: sub-cell jitter collapses to one label, larger drift
// eventually lands in a new cell and (cooldown permitting) a new label.
type demoObject struct {
	class      string
	confidence float64
	homeX      float64
	homeY      float64
	ampX       float64
	ampY       float64
	freq       float64
	phase      float64
}

var demoScene = []demoObject{
	{class: "cup", confidence: 0.92, homeX: 0.30, homeY: 0.62, ampX: 0.004, ampY: 0.003, freq: 0.8},
	{class: "book", confidence: 0.85, homeX: 0.55, homeY: 0.70, ampX: 0.003, ampY: 0.004, freq: 0.6, phase: 1.1},
	{class: "plant", confidence: 0.78, homeX: 0.75, homeY: 0.58, ampX: 0.005, ampY: 0.003, freq: 0.5, phase: 2.3},
	{class: "chair", confidence: 0.88, homeX: 0.42, homeY: 0.80, ampX: 0.030, ampY: 0.020, freq: 0.15, phase: 0.7},
	// Deliberately below the default confidence floor; never labeled.
	{class: "bottle", confidence: 0.35, homeX: 0.60, homeY: 0.65, ampX: 0.004, ampY: 0.004, freq: 0.9, phase: 3.0},
}

// runDemoWalker submits synthetic detection batches at the given frame rate
// until ctx is cancelled.
func runDemoWalker(ctx context.Context, session *label.Session, fps float64) {
	if fps <= 0 {
		fps = 10
	}
	log.Printf("demo walker running at %.0f fps with %d scripted objects", fps, len(demoScene))

	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t := now.Sub(start).Seconds()
			batch := make([]label.Detection, 0, len(demoScene))
			for _, obj := range demoScene {
				cx := obj.homeX + obj.ampX*math.Sin(2*math.Pi*obj.freq*t+obj.phase)
				cy := obj.homeY + obj.ampY*math.Cos(2*math.Pi*obj.freq*t+obj.phase)
				const w, h = 0.12, 0.16
				batch = append(batch, label.Detection{
					Class:      obj.class,
					Confidence: obj.confidence,
					Box:        label.BoundingBox{X: cx - w/2, Y: cy - h/2, W: w, H: h},
				})
			}
			session.SubmitDetections(batch)
		}
	}
}
