// Command sessionreport renders an HTML activity report from a session
// agent's analytics database: label creations over time split by origin, the
// most-labeled semantic keys, and a summary table on stdout. An optional
// PNG of the timeline can be written alongside.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/meridian-xr/scenelabel/internal/store"
)

var (
	dbPath  = flag.String("db", "labels.db", "analytics database path")
	outPath = flag.String("out", "report.html", "HTML report output path")
	pngPath = flag.String("png", "", "optional PNG timeline output path")
	bucket  = flag.Duration("bucket", time.Minute, "timeline bucket width")
	topN    = flag.Int("top", 15, "number of semantic keys in the bar chart")
)

func main() {
	flag.Parse()

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer st.Close()

	summary, err := st.SessionSummary()
	if err != nil {
		log.Fatalf("failed to read summary: %v", err)
	}
	if summary.TotalEvents == 0 {
		fmt.Println("no label events recorded; nothing to report")
		return
	}

	from := time.UnixMilli(summary.FirstEvent)
	to := time.UnixMilli(summary.LastEvent).Add(time.Millisecond)
	events, err := st.EventsBetween(from, to)
	if err != nil {
		log.Fatalf("failed to read events: %v", err)
	}
	words, err := st.WordStats()
	if err != nil {
		log.Fatalf("failed to read word stats: %v", err)
	}

	buckets, local, remote := bucketize(events, from, *bucket)

	printSummary(summary, words)

	if err := writeHTML(*outPath, buckets, local, remote, words, *topN); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}
	fmt.Printf("wrote %s\n", *outPath)

	if *pngPath != "" {
		if err := writePNG(*pngPath, buckets, local, remote); err != nil {
			log.Fatalf("failed to write PNG: %v", err)
		}
		fmt.Printf("wrote %s\n", *pngPath)
	}
}

// bucketize counts creation events per time bucket, split by origin.
func bucketize(events []store.LabelEvent, from time.Time, width time.Duration) (labels []string, local, remote []int) {
	if width <= 0 {
		width = time.Minute
	}
	counts := map[int][2]int{}
	maxIdx := 0
	for _, ev := range events {
		if ev.Kind != "created" {
			continue
		}
		idx := int(time.UnixMilli(ev.TSUnixMillis).Sub(from) / width)
		if idx < 0 {
			idx = 0
		}
		if idx > maxIdx {
			maxIdx = idx
		}
		c := counts[idx]
		if ev.Origin == "detection" {
			c[0]++
		} else {
			c[1]++
		}
		counts[idx] = c
	}
	for i := 0; i <= maxIdx; i++ {
		labels = append(labels, from.Add(time.Duration(i)*width).Format("15:04:05"))
		c := counts[i]
		local = append(local, c[0])
		remote = append(remote, c[1])
	}
	return labels, local, remote
}

func printSummary(summary store.Summary, words []store.WordStat) {
	fmt.Printf("session: %s — %s\n",
		time.UnixMilli(summary.FirstEvent).Format(time.RFC3339),
		time.UnixMilli(summary.LastEvent).Format(time.RFC3339))
	fmt.Printf("events: %d total, %d local created, %d remote created, %d removed\n",
		summary.TotalEvents, summary.CreatedLocal, summary.CreatedRemote, summary.Removed)
	fmt.Printf("%-20s %8s %8s\n", "semantic key", "created", "removed")
	for _, w := range words {
		fmt.Printf("%-20s %8d %8d\n", w.SemanticKey, w.Created, w.Removed)
	}
}

func writeHTML(path string, buckets []string, local, remote []int, words []store.WordStat, topN int) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Label creations over time", Subtitle: "by origin"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	localData := make([]opts.LineData, len(local))
	remoteData := make([]opts.LineData, len(remote))
	for i := range local {
		localData[i] = opts.LineData{Value: local[i]}
		remoteData[i] = opts.LineData{Value: remote[i]}
	}
	line.SetXAxis(buckets).
		AddSeries("local", localData).
		AddSeries("remote", remoteData)

	sorted := make([]store.WordStat, len(words))
	copy(sorted, words)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Created > sorted[j].Created })
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	keys := make([]string, len(sorted))
	barData := make([]opts.BarData, len(sorted))
	for i, w := range sorted {
		keys[i] = w.SemanticKey
		barData[i] = opts.BarData{Value: w.Created}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Top semantic keys"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(keys).AddSeries("created", barData,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))

	page := components.NewPage()
	page.AddCharts(line, bar)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	return page.Render(f)
}

func writePNG(path string, buckets []string, local, remote []int) error {
	p := plot.New()
	p.Title.Text = "Label creations over time"
	p.X.Label.Text = "Bucket"
	p.Y.Label.Text = "Creations"

	localPts := make(plotter.XYs, len(local))
	remotePts := make(plotter.XYs, len(remote))
	for i := range local {
		localPts[i] = plotter.XY{X: float64(i), Y: float64(local[i])}
		remotePts[i] = plotter.XY{X: float64(i), Y: float64(remote[i])}
	}
	if err := plotutil.AddLines(p, "local", localPts, "remote", remotePts); err != nil {
		return fmt.Errorf("build line series: %w", err)
	}
	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}
