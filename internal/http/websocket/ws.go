// Package websocket upgrades HTTP connections into hub connections: it owns
// the gorilla/websocket transport, the per-connection outbound mailbox, and
// the read loop that feeds every inbound frame to the hub for dispatch.
package websocket

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/opensignal/signalhub/internal/config"
	"github.com/opensignal/signalhub/internal/hub"
)

const (
	readBufferSize  = 1024
	writeBufferSize = 1024
	// outboxCapacity bounds the non-blocking mailbox; a connection that
	// can't keep up with its outbound queue gets frames dropped rather
	// than blocking the rest of the hub.
	outboxCapacity = 64
	writeTimeout   = 10 * time.Second
)

// WSHandler upgrades connections and wires them into a shared Hub.
type WSHandler struct {
	h          *hub.Hub
	wsUpgrader websocket.Upgrader
}

func CreateHandler(h *hub.Hub, corsOrigins []string) *WSHandler {
	return &WSHandler{
		h: h,
		wsUpgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return originAllowed(r.Header.Get("Origin"), corsOrigins) },
		},
	}
}

func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// clientAddress prefers CF-Connecting-IP, then the first hop of
// X-Forwarded-For, falling back to "unknown" when neither header is
// present (this hub never trusts r.RemoteAddr alone, since it is expected
// to run behind a reverse proxy).
func clientAddress(r *http.Request) string {
	if cf := r.Header.Get("CF-Connecting-IP"); cf != "" {
		return cf
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	return "unknown"
}

func newConnID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// mailbox is the Hub.Mailbox implementation backing one live connection: a
// buffered channel drained by a single writer goroutine, so a slow client
// never blocks the goroutine delivering it a broadcast.
type mailbox struct {
	out    chan []byte
	closed chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{out: make(chan []byte, outboxCapacity), closed: make(chan struct{})}
}

// Send never blocks: a full outbox means the client is too far behind, and
// the frame is dropped rather than stalling the rest of the hub.
func (m *mailbox) Send(frame []byte) bool {
	select {
	case m.out <- frame:
		return true
	case <-m.closed:
		return false
	default:
		return false
	}
}

func (m *mailbox) close() {
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
}

func (m *mailbox) writeLoop(conn *websocket.Conn) {
	for {
		select {
		case frame := <-m.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				m.close()
				return
			}
		case <-m.closed:
			return
		}
	}
}

// Serve upgrades the request, registers the connection's mailbox, and runs
// the read loop until the socket closes, then runs Teardown exactly once.
func (h *WSHandler) Serve(c *gin.Context) {
	address := clientAddress(c.Request)
	if !h.h.Conns.Admit(address) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "connection limit reached"})
		return
	}

	conn, err := h.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.h.Conns.Release(address)
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	hubConn := &hub.Connection{ID: newConnID(), Address: address}
	mb := newMailbox()
	h.h.Signaling.AddConnection(hubConn.ID, mb)

	go mb.writeLoop(conn)

	defer func() {
		mb.close()
		h.h.Teardown(hubConn)
		h.h.Conns.Release(address)
		if err := conn.Close(); err != nil {
			slog.Error("failed to close websocket", "error", err)
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !h.h.RateLimiter.Allow(address) {
			mb.Send(rateLimitedErrorFrame)
			continue
		}
		h.h.Dispatch(hubConn, raw)
	}
}

// rateLimitedErrorFrame matches the wire shape of the hub's own Error
// replies (see internal/hub/messages.go). Rate limiting happens ahead of
// Dispatch, so it is the one error this transport builds itself.
var rateLimitedErrorFrame = []byte(`{"type":"Error","message":"rate limit exceeded"}`)

// ApplyRoutes mounts the single upgrade endpoint.
func (h *WSHandler) ApplyRoutes(r *gin.Engine) {
	r.GET("/ws", h.Serve)
}

// NewHandler is a convenience constructor reading CORS origins off cfg,
// matching the shape the rest of this package's callers expect.
func NewHandler(h *hub.Hub, cfg *config.Config) *WSHandler {
	return CreateHandler(h, cfg.HTTP.CORSOrigins)
}
