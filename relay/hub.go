package relay

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nulltrace/core/router"
)

// Hub is an in-memory reference relay server: it registers one connection
// per cid and routes each incoming frame either to the addressed recipient
// (frame.To) or to every other registered connection (broadcast). Delivery
// is best-effort: frames are in order within a single connection's own
// write queue, a frame is dropped when that queue is full, and there is no
// ordering guarantee across different senders.
type Hub struct {
	upgrader     websocket.Upgrader
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu    sync.Mutex
	conns map[string]*hubConn
}

type hubConn struct {
	cid  string
	conn *websocket.Conn
	out  chan router.Frame
}

// NewHub creates an empty relay hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		readTimeout:  90 * time.Second,
		writeTimeout: 10 * time.Second,
		conns:        make(map[string]*hubConn),
	}
}

// Handler upgrades incoming HTTP requests to WebSocket connections
// identified by the "cid" query parameter.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.URL.Query().Get("cid")
		if cid == "" {
			http.Error(w, "missing cid", http.StatusBadRequest)
			return
		}
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, fmt.Sprintf("upgrade failed: %v", err), http.StatusBadRequest)
			return
		}

		hc := &hubConn{cid: cid, conn: conn, out: make(chan router.Frame, 64)}
		h.register(hc)
		defer h.unregister(hc)

		go hc.writePump(h.writeTimeout)
		hc.readPump(h)
	})
}

func (h *Hub) register(hc *hubConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[hc.cid] = hc
}

func (h *Hub) unregister(hc *hubConn) {
	h.mu.Lock()
	delete(h.conns, hc.cid)
	h.mu.Unlock()
	close(hc.out)
	_ = hc.conn.Close()
}

func (hc *hubConn) readPump(h *Hub) {
	for {
		if err := hc.conn.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
			return
		}
		var f router.Frame
		if err := hc.conn.ReadJSON(&f); err != nil {
			return
		}
		h.route(hc.cid, f)
	}
}

func (hc *hubConn) writePump(writeTimeout time.Duration) {
	for f := range hc.out {
		if err := hc.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := hc.conn.WriteJSON(f); err != nil {
			return
		}
	}
}

// route delivers f to its addressed recipient, or to every connection other
// than the sender when f carries no "to".
func (h *Hub) route(fromCID string, f router.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if f.To != "" {
		if target, ok := h.conns[f.To]; ok {
			h.deliver(target, f)
		}
		return
	}
	for cid, c := range h.conns {
		if cid == fromCID {
			continue
		}
		h.deliver(c, f)
	}
}

func (h *Hub) deliver(c *hubConn, f router.Frame) {
	select {
	case c.out <- f:
	default:
		// Slow consumer: drop rather than block the sender's read goroutine
		// while it holds the hub lock. The relay is explicitly best-effort; callers above the
		// core are responsible for any redelivery policy.
	}
}
