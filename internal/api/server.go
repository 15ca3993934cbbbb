// Package api serves the read-only status surface of the session agent:
// active label snapshots, session stats, word stats, and health. All label
// state comes from registry snapshot queries; nothing here can mutate the
// engine.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/meridian-xr/scenelabel/internal/httputil"
	"github.com/meridian-xr/scenelabel/internal/label"
	"github.com/meridian-xr/scenelabel/internal/store"
	"github.com/meridian-xr/scenelabel/internal/version"
)

// ANSI escape codes for status colouring in request logs.
const (
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Server exposes the session agent's HTTP API.
type Server struct {
	registry *label.Registry
	store    *store.Store
	session  *label.Session
	gateway  *label.Gateway
}

// NewServer builds a Server. store and gateway may be nil; the matching
// endpoints degrade gracefully.
func NewServer(registry *label.Registry, st *store.Store, session *label.Session, gateway *label.Gateway) *Server {
	return &Server{registry: registry, store: st, session: session, gateway: gateway}
}

// ServeMux returns the API routing table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/labels", s.handleLabels)
	mux.HandleFunc("/api/session", s.handleSession)
	mux.HandleFunc("/api/words", s.handleWords)
	mux.HandleFunc("/api/health", s.handleHealth)
	return mux
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.registry.ListActive())
}

type sessionResponse struct {
	DeviceID      string `json:"device_id"`
	Room          string `json:"room"`
	Sharing       bool   `json:"sharing"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	LabelsTotal   int    `json:"labels_total"`
	LabelsLocal   int    `json:"labels_local"`
	LabelsRemote  int    `json:"labels_remote"`
	Dropped       int    `json:"dropped_submissions"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	total, local, remote := s.registry.Counts()
	resp := sessionResponse{
		DeviceID:      s.session.DeviceID(),
		Room:          s.session.Room(),
		UptimeSeconds: int64(s.session.Uptime().Seconds()),
		LabelsTotal:   total,
		LabelsLocal:   local,
		LabelsRemote:  remote,
		Dropped:       s.session.Dropped(),
	}
	if s.gateway != nil {
		resp.Sharing = s.gateway.Sharing()
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.WriteJSONOK(w, []store.WordStat{})
		return
	}
	stats, err := s.store.WordStats()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if stats == nil {
		stats = []store.WordStat{}
	}
	httputil.WriteJSONOK(w, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf("[%s] %s %s %vms",
			statusCodeColor(lrw.statusCode), r.Method, r.URL.Path,
			time.Since(start).Milliseconds())
	})
}
