// Package broadcast serves live readings over HTTP and websockets.
package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

// writeWait bounds a single write so a stalled client cannot block Notify.
var writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans out new readings to websocket clients and remembers the latest
// reading per tariff.
type Hub struct {
	logger   logrus.FieldLogger
	gatherer prometheus.Gatherer

	clientsMu sync.RWMutex
	clients   map[*client]struct{}

	latestMu sync.RWMutex
	latest   map[types.Tariff]types.Reading
}

// client serializes writes; gorilla connections allow one concurrent writer.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// NewHub creates a hub. gatherer backs /metrics; nil uses the default
// registry.
func NewHub(logger logrus.FieldLogger, gatherer prometheus.Gatherer) *Hub {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Hub{
		logger:   logger,
		gatherer: gatherer,
		clients:  make(map[*client]struct{}),
		latest:   make(map[types.Tariff]types.Reading),
	}
}

// Notify records r as latest and broadcasts it.
func (h *Hub) Notify(r types.Reading) {
	h.latestMu.Lock()
	h.latest[r.Tariff] = r
	h.latestMu.Unlock()

	h.Broadcast(r)
}

func (h *Hub) Broadcast(r types.Reading) {
	payload := r.ToJsonBytes()

	h.clientsMu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		if err := c.write(payload); err != nil {
			h.logger.WithError(err).Debug("dropping websocket client")
			h.remove(c)
		}
	}
}

// Latest returns the most recent reading per tariff in canonical tariff
// order. It is empty until the first reading arrives.
func (h *Hub) Latest() []types.Reading {
	h.latestMu.RLock()
	defer h.latestMu.RUnlock()

	var out []types.Reading
	for _, tariff := range types.Tariffs {
		if r, ok := h.latest[tariff]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(conn *websocket.Conn) *client {
	c := &client{conn: conn}
	h.clientsMu.Lock()
	h.clients[c] = struct{}{}
	h.clientsMu.Unlock()
	return c
}

func (h *Hub) remove(c *client) {
	h.clientsMu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.clientsMu.Unlock()
	if ok {
		c.conn.Close()
	}
}

// Handler exposes /, /latest, /ws and /metrics.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleStatus)
	mux.HandleFunc("/latest", h.handleLatest)
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	return mux
}

func (h *Hub) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "European Smart Meter API",
		"status":  "running",
		"clients": h.Clients(),
	})
}

func (h *Hub) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest := h.Latest()
	if len(latest) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "No readings available yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := h.add(conn)

	// Catch the client up before live updates.
	for _, reading := range h.Latest() {
		if err := c.write(reading.ToJsonBytes()); err != nil {
			h.remove(c)
			return
		}
	}

	// Clients never send data; reading only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
