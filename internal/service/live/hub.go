package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	"DemandLoop/internal/service/metrics"
	applogger "DemandLoop/pkg/logger"
)

// ErrHubBusy is returned when the broadcast queue is full and an event was dropped.
var ErrHubBusy = errors.New("live hub busy")

type broadcast struct {
	placeID string
	payload []byte
}

// Hub pushes prediction events to connected WebSocket clients.
// A client may subscribe to specific places; with no subscription it gets everything.
type Hub struct {
	l            *applogger.Logger
	upgrader     websocket.Upgrader
	sendBuffer   int
	pingInterval time.Duration

	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	done       chan struct{}
	stopOnce   sync.Once

	mu      sync.RWMutex
	clients map[*Client]struct{}
	nextID  atomic.Uint64
}

type Option func(*Hub)

// WithSendBuffer sets the per-client outbound queue length.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithCheckOrigin overrides the upgrader's origin check.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

func NewHub(l *applogger.Logger, opts ...Option) *Hub {
	if l == nil {
		l = applogger.NewNop()
	}
	h := &Hub{
		l: l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
		},
		sendBuffer:   16,
		pingInterval: 30 * time.Second,
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan broadcast, 256),
		done:         make(chan struct{}),
		clients:      make(map[*Client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ domrepo.PredictionPublisher = (*Hub)(nil)

// Run processes registrations and broadcasts until ctx is done, then closes all clients.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			n := h.ClientCount()
			h.closeAll()
			h.l.Info("live hub stopped", applogger.Int("clients_closed", n))
			return ctx.Err()
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.l.Debug("live client connected", applogger.Int("total_clients", n))
		case c := <-h.unregister:
			h.remove(c)
		case b := <-h.broadcast:
			h.deliver(b)
		}
	}
}

// PublishPrediction queues a prediction.updated event for delivery. It never blocks
// and is a no-op once the hub has stopped.
func (h *Hub) PublishPrediction(_ context.Context, p *models.Prediction) error {
	if p == nil {
		return nil
	}
	select {
	case <-h.done:
		return nil
	default:
	}
	payload, err := json.Marshal(models.NewPredictionEvent(*p))
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- broadcast{placeID: p.VenueID, payload: payload}:
		return nil
	default:
		metrics.LiveBroadcastDropped.Inc()
		return ErrHubBusy
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches a client subscribed to placeIDs.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, placeIDs []string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := newClient(h, conn, placeIDs)
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return errors.New("live hub stopped")
	case <-r.Context().Done():
		_ = conn.Close()
		return r.Context().Err()
	}
	go c.writePump()
	go c.readPump()
	return nil
}

func (h *Hub) deliver(b broadcast) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(b.placeID) {
			clients = append(clients, c)
		}
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, c := range clients {
		select {
		case c.send <- b.payload:
		default:
			// slow consumer
			close(c.send)
			delete(h.clients, c)
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}
