// Command scenelabel runs the session agent: the label engine wired to a
// placement source, an anchor feed, the analytics journal, and the HTTP
// status API. With -relay it joins a shared room through a websocket relay;
// without one it runs solo on an in-process feed. -demo drives a synthetic
// detection walker so the whole pipeline can be exercised with no perception
// hardware at all.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/meridian-xr/scenelabel/internal/api"
	"github.com/meridian-xr/scenelabel/internal/label"
	"github.com/meridian-xr/scenelabel/internal/place"
	"github.com/meridian-xr/scenelabel/internal/store"
	"github.com/meridian-xr/scenelabel/internal/transport"
	"github.com/meridian-xr/scenelabel/internal/transport/wsfeed"
	"github.com/meridian-xr/scenelabel/internal/translate"
	"github.com/meridian-xr/scenelabel/internal/version"
)

var (
	listen     = flag.String("listen", ":8089", "HTTP status API listen address")
	room       = flag.String("room", "default", "shared-session room name")
	relayURL   = flag.String("relay", "", "websocket relay URL (empty = solo, in-process feed)")
	dbPath     = flag.String("db", "labels.db", "analytics database path (empty = no journal)")
	configPath = flag.String("config", "", "tuning JSON file")
	deviceID   = flag.String("device", "", "device identity (default: random UUID)")
	demoMode   = flag.Bool("demo", false, "run the synthetic detection walker")
	demoFPS    = flag.Float64("demo-fps", 10, "demo walker frame rate")
	verbose    = flag.Bool("verbose", false, "enable diag and trace log streams")
)

func main() {
	flag.Parse()

	// .env values fill in flags left at their defaults.
	if err := godotenv.Load(); err == nil {
		log.Printf("loaded environment from .env")
	}
	applyEnvDefaults()

	if *verbose {
		label.SetLogWriters(label.LogWriters{Ops: os.Stderr, Diag: os.Stderr, Trace: os.Stderr})
	} else {
		label.SetLogWriters(label.LogWriters{Ops: os.Stderr})
	}

	tuning := &label.Tuning{}
	if *configPath != "" {
		var err error
		tuning, err = label.LoadTuning(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning: %v", err)
		}
	}

	device := *deviceID
	if device == "" {
		device = uuid.New().String()
	}
	log.Printf("scenelabel %s starting: device=%s room=%s", version.Version, device, *room)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Anchor feed: websocket relay when configured, in-process otherwise.
	var feed transport.Feed
	if *relayURL != "" {
		client, err := wsfeed.Dial(ctx, *relayURL, *room, device)
		if err != nil {
			log.Fatalf("failed to join relay: %v", err)
		}
		feed = client
		log.Printf("joined relay %s room %q", *relayURL, *room)
	} else {
		feed = transport.NewMemFeed(transport.MemFeedOptions{})
		log.Printf("running solo on in-process feed")
	}
	defer feed.Close()

	engine, st, recorder, err := buildEngine(tuning, feed, device, *room, *dbPath)
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}
	if st != nil {
		defer st.Close()
	}
	if recorder != nil {
		defer recorder.Close()
	}
	defer engine.Gateway.Close()

	// Sharing is on whenever a relay is configured.
	engine.Gateway.SetSharing(*relayURL != "")

	unsubscribe, err := feed.Subscribe(transport.Handler{
		OnRecord: engine.SubmitAnchor,
		OnRemove: engine.SubmitAnchorRemove,
	})
	if err != nil {
		log.Fatalf("failed to subscribe to feed: %v", err)
	}
	defer unsubscribe()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.Run(ctx)
	}()

	if *demoMode {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runDemoWalker(ctx, engine, *demoFPS)
		}()
	}

	apiServer := api.NewServer(engine.Registry, st, engine, engine.Gateway)
	httpServer := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(apiServer.ServeMux()),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("status API listening on %s", *listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	wg.Wait()
	log.Printf("goodbye")
}

// buildEngine assembles the label pipeline from tuning values. The returned
// store is nil when journalling is disabled.
func buildEngine(tuning *label.Tuning, feed transport.Feed, device, room, dbPath string) (*label.Session, *store.Store, *store.Recorder, error) {
	registry := label.NewRegistry(nil)
	gate := label.NewCreationGate(tuning.GetCreationCooldown(), nil)
	translator := translate.NewStaticTranslator()
	placer := place.NewFloorPlacer(place.DefaultFloorPlacerConfig())

	detIngest := label.NewDetectionIngestor(registry, gate, placer, translator, label.DetectionIngestorConfig{
		MinConfidence:    tuning.MinConfidence,
		IdentityQuantum:  tuning.GetIdentityQuantum(),
		PlacementTimeout: tuning.GetPlacementTimeout(),
		LanguageCode:     tuning.GetLanguageCode(),
	})
	anchorIngest := label.NewAnchorIngestor(registry, translator, device, tuning.GetLanguageCode(), tuning.GetTombstoneCapacity())
	gateway := label.NewGateway(registry, feed, device, nil)

	var st *store.Store
	var recorder *store.Recorder
	if dbPath != "" {
		var err error
		st, err = store.Open(dbPath)
		if err != nil {
			return nil, nil, nil, err
		}
		recorder = store.NewRecorder(st, registry, room, device, 0)
	}

	session := label.NewSession(label.SessionConfig{
		Registry:        registry,
		DetectionIngest: detIngest,
		AnchorIngest:    anchorIngest,
		Gateway:         gateway,
		DeviceID:        device,
		Room:            room,
		QueueDepth:      tuning.GetQueueDepth(),
	})
	return session, st, recorder, nil
}

// applyEnvDefaults overrides flags still at their default from SCENELABEL_*
// environment variables, so a .env file can configure a deployment.
func applyEnvDefaults() {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if v := os.Getenv("SCENELABEL_ROOM"); v != "" && !set["room"] {
		*room = v
	}
	if v := os.Getenv("SCENELABEL_RELAY"); v != "" && !set["relay"] {
		*relayURL = v
	}
	if v := os.Getenv("SCENELABEL_DEVICE"); v != "" && !set["device"] {
		*deviceID = v
	}
	if v := os.Getenv("SCENELABEL_DB"); v != "" && !set["db"] {
		*dbPath = v
	}
	if v := os.Getenv("SCENELABEL_LISTEN"); v != "" && !set["listen"] {
		*listen = v
	}
}
