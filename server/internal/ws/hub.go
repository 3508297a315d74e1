package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/radartrack/radartrack/server/internal/api"
)

// Connection tuning for snapshot viewers.
const (
	frameWriteDeadline = 10 * time.Second
	viewerIdleLimit    = 60 * time.Second
	heartbeatEvery     = 54 * time.Second // under viewerIdleLimit
	viewerBacklog      = 16               // snapshots queued per viewer
	inboundFrameLimit  = 512              // viewers only send control frames
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  inboundFrameLimit,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Message is the frame every viewer receives.
type Message struct {
	Event string               `json:"event"`
	Data  api.SnapshotResponse `json:"data"`
}

// Hub pushes the tracker picture to every connected viewer.
type Hub struct {
	src      api.Source
	interval time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	viewers map[*viewer]struct{}
}

type viewer struct {
	conn   *websocket.Conn
	frames chan []byte
}

// New returns a Hub that snapshots src every interval.
func New(src api.Source, interval time.Duration) *Hub {
	return &Hub{
		src:      src,
		interval: interval,
		now:      time.Now,
		viewers:  make(map[*viewer]struct{}),
	}
}

// Run broadcasts until ctx ends, then hangs up on every viewer.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.hangUpAll()
			return
		case <-t.C:
			h.broadcast()
		}
	}
}

// ServeHTTP upgrades r and streams snapshots to it, starting with the current
// one. It returns when the viewer disconnects or is dropped.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade already answered 400
	}

	v := &viewer{conn: conn, frames: make(chan []byte, viewerBacklog)}
	if frame, err := h.snapshotFrame(); err == nil {
		v.frames <- frame
	}
	h.join(v)
	defer h.leave(v)

	slog.Debug("ws: viewer joined", "remote", r.RemoteAddr)
	go v.forward()
	v.drain()
}

// Count reports connected viewers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

func (h *Hub) join(v *viewer) {
	h.mu.Lock()
	h.viewers[v] = struct{}{}
	h.mu.Unlock()
}

// leave closes v's queue once; forward then sends a close frame.
func (h *Hub) leave(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.viewers[v]; ok {
		delete(h.viewers, v)
		close(v.frames)
	}
}

func (h *Hub) hangUpAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.viewers {
		delete(h.viewers, v)
		close(v.frames)
	}
}

// broadcast queues one snapshot for every viewer. A viewer whose backlog is
// full is dropped.
func (h *Hub) broadcast() {
	frame, err := h.snapshotFrame()
	if err != nil {
		slog.Error("ws: encode snapshot", "err", err)
		return
	}

	var lagging []*viewer
	h.mu.RLock() // held across sends so leave cannot close a queue under us
	for v := range h.viewers {
		select {
		case v.frames <- frame:
		default:
			lagging = append(lagging, v)
		}
	}
	h.mu.RUnlock()

	for _, v := range lagging {
		slog.Warn("ws: dropping lagging viewer", "remote", v.conn.RemoteAddr().String())
		h.leave(v)
	}
}

func (h *Hub) snapshotFrame() ([]byte, error) {
	return json.Marshal(Message{Event: "snapshot", Data: api.BuildSnapshot(h.src, h.now())})
}

// forward writes queued frames and heartbeats to the socket. It owns all
// writes on v.conn.
func (v *viewer) forward() {
	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()
	defer v.conn.Close()

	for {
		var kind int
		var payload []byte
		select {
		case frame, open := <-v.frames:
			if !open {
				v.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(frameWriteDeadline)) //nolint:errcheck
				return
			}
			kind, payload = websocket.TextMessage, frame
		case <-heartbeat.C:
			kind = websocket.PingMessage
		}
		v.conn.SetWriteDeadline(time.Now().Add(frameWriteDeadline)) //nolint:errcheck
		if err := v.conn.WriteMessage(kind, payload); err != nil {
			return
		}
	}
}

// drain reads until the viewer goes away or stops answering heartbeats.
func (v *viewer) drain() {
	defer v.conn.Close()
	v.conn.SetReadLimit(inboundFrameLimit)
	v.conn.SetReadDeadline(time.Now().Add(viewerIdleLimit)) //nolint:errcheck
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(viewerIdleLimit))
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}
