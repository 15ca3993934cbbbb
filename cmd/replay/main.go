// Command replay republishes a recorded anchor session into a live room.
// Input is either a JSONL file of anchor records (one per line) or a session
// agent's analytics database, from which every creation event is
// reconstructed as an anchor. Records are spaced by their original
// timestamps scaled by -speed, so a one-hour session replays in a minute at
// -speed 60.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-xr/scenelabel/internal/geom"
	"github.com/meridian-xr/scenelabel/internal/label"
	"github.com/meridian-xr/scenelabel/internal/store"
	"github.com/meridian-xr/scenelabel/internal/transport/wsfeed"
)

var (
	journalPath = flag.String("journal", "", "JSONL anchor journal to replay")
	dbPath      = flag.String("db", "", "analytics database to replay (alternative to -journal)")
	relayURL    = flag.String("relay", "ws://localhost:8090", "websocket relay URL")
	room        = flag.String("room", "default", "room to replay into")
	speed       = flag.Float64("speed", 1.0, "time compression factor")
	device      = flag.String("device", "", "creator identity for replayed anchors (default: random)")
)

func main() {
	flag.Parse()

	if (*journalPath == "") == (*dbPath == "") {
		log.Fatal("exactly one of -journal or -db is required")
	}
	if *speed <= 0 {
		log.Fatal("-speed must be positive")
	}

	creator := *device
	if creator == "" {
		creator = "replay-" + uuid.New().String()[:8]
	}

	var records []label.AnchorRecord
	var err error
	if *journalPath != "" {
		records, err = loadJournal(*journalPath)
	} else {
		records, err = loadDatabase(*dbPath)
	}
	if err != nil {
		log.Fatalf("failed to load records: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("nothing to replay")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := wsfeed.Dial(ctx, *relayURL, *room, creator)
	if err != nil {
		log.Fatalf("failed to join relay: %v", err)
	}
	defer client.Close()

	log.Printf("replaying %d anchors into room %q at %gx speed", len(records), *room, *speed)
	start := time.Now()
	base := records[0].CreatedAtMillis
	for i, rec := range records {
		// New creator identity so live agents don't self-filter the records.
		rec.CreatorID = creator

		offset := time.Duration(float64(rec.CreatedAtMillis-base)/(*speed)) * time.Millisecond
		if wait := time.Until(start.Add(offset)); wait > 0 {
			time.Sleep(wait)
		}
		if err := client.Put(ctx, rec); err != nil {
			log.Fatalf("publish %d/%d failed: %v", i+1, len(records), err)
		}
	}
	log.Printf("replay complete: %d anchors in %s", len(records), time.Since(start).Round(time.Millisecond))
}

// loadJournal reads one AnchorRecord per JSONL line. Blank lines are
// skipped.
func loadJournal(path string) ([]label.AnchorRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var records []label.AnchorRecord
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec label.AnchorRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return records, nil
}

// loadDatabase reconstructs anchor records from every creation event in the
// analytics journal, detection- and anchor-origin alike: the replay rewrites
// the creator identity anyway, so the original origin does not matter to the
// receiving room. Orientation is not journalled, so replayed anchors face
// identity. Each record gets a fresh anchor ID.
func loadDatabase(path string) ([]label.AnchorRecord, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	events, err := st.EventsBetween(time.UnixMilli(0), time.Now().Add(time.Hour))
	if err != nil {
		return nil, err
	}
	var records []label.AnchorRecord
	for _, ev := range events {
		if ev.Kind != "created" {
			continue
		}
		records = append(records, label.AnchorRecord{
			AnchorID:        uuid.New().String(),
			Position:        geom.Vec3{X: ev.X, Y: ev.Y, Z: ev.Z},
			Orientation:     geom.IdentityQuat(),
			LabelKey:        ev.SemanticKey,
			CreatorID:       ev.DeviceID,
			CreatedAtMillis: ev.TSUnixMillis,
		})
	}
	return records, nil
}
