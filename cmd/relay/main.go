// Command relay is the standalone anchor room broker: a websocket server
// that fans anchor records out to every member of a room and retains them
// for late joiners. It is the shared-session rendezvous point; the session
// agents do all the dedup.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridian-xr/scenelabel/internal/httputil"
	"github.com/meridian-xr/scenelabel/internal/transport/wsfeed"
	"github.com/meridian-xr/scenelabel/internal/version"
)

var (
	listen     = flag.String("listen", "", "listen address (overrides config)")
	configPath = flag.String("config", "", "YAML config file")
)

func main() {
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("[relay] %v", err)
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	hub := wsfeed.NewHub(wsfeed.HubConfig{
		MaxClientsPerRoom: cfg.MaxClientsPerRoom,
		RetainedCap:       cfg.RetainedCap,
		WriteTimeout:      cfg.GetWriteTimeout(),
	})

	mux := http.NewServeMux()
	mux.Handle("/rooms/", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, map[string]string{"status": "ok", "version": version.Version})
	})

	server := &http.Server{Addr: cfg.Listen, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[relay] scenelabel relay %s listening on %s", version.Version, cfg.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[relay] server error: %v", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Printf("[relay] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[relay] shutdown error: %v", err)
	}
	hub.Close()
}
