// Package web serves the debug pages of a running server: its metrics, the
// connected clients and the scoreboard.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"badc0de.net/pkg/voidofdreams/server"
	"badc0de.net/pkg/voidofdreams/stats"
)

// ClientLister is implemented by *server.Server.
type ClientLister interface {
	Clients() []server.ClientInfo
}

// Scoreboarder is implemented by *stats.Store.
type Scoreboarder interface {
	Scoreboard() ([]stats.Entry, error)
}

type Handler struct {
	clients  ClientLister
	scores   Scoreboarder
	gatherer prometheus.Gatherer
}

// NewHandler constructs a debug handler. scores may be nil when no stats
// database is configured; the scoreboard then answers 404.
func NewHandler(clients ClientLister, scores Scoreboarder, gatherer prometheus.Gatherer) *Handler {
	return &Handler{
		clients:  clients,
		scores:   scores,
		gatherer: gatherer,
	}
}

func (h *Handler) clientsHandler(w http.ResponseWriter, r *http.Request) {
	infos := h.clients.Clients()
	if infos == nil {
		infos = []server.ClientInfo{}
	}
	writeJSON(w, infos)
}

func (h *Handler) scoreboardHandler(w http.ResponseWriter, r *http.Request) {
	if h.scores == nil {
		http.Error(w, "no stats database configured", http.StatusNotFound)
		return
	}
	entries, err := h.scores.Scoreboard()
	if err != nil {
		http.Error(w, "failed to read scoreboard", http.StatusInternalServerError)
		glog.Errorf("error reading scoreboard: %v", err)
		return
	}
	if entries == nil {
		entries = []stats.Entry{}
	}
	writeJSON(w, entries)
}

func minimetricsHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "runtime.NumGoroutine(): %d\n", runtime.NumGoroutine())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.V(1).Infof("error writing response: %v", err)
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	r.HandleFunc("/clients", h.clientsHandler).Methods(http.MethodGet)
	r.HandleFunc("/scoreboard", h.scoreboardHandler).Methods(http.MethodGet)
	r.HandleFunc("/debug/minimetrics", minimetricsHandler)
}
