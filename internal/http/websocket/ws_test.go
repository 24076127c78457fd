package websocket_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opensignal/signalhub/internal/config"
	"github.com/opensignal/signalhub/internal/db"
	"github.com/opensignal/signalhub/internal/hub"
	"github.com/opensignal/signalhub/internal/http/websocket"
	"github.com/opensignal/signalhub/internal/kv"
	"github.com/opensignal/signalhub/internal/metrics"
	"github.com/opensignal/signalhub/internal/pubsub"
	"github.com/USA-RedDragon/configulator"
	"github.com/gin-gonic/gin"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *hub.Hub {
	t.Helper()
	cfg, err := configulator.New[config.Config]().Default()
	require.NoError(t, err)
	cfg.Database.Database = ""
	cfg.Database.ExtraParameters = []string{}

	database, err := db.MakeDB(&cfg)
	require.NoError(t, err)
	kvStore, err := kv.MakeKV(t.Context(), &cfg)
	require.NoError(t, err)
	ps, err := pubsub.MakePubSub(t.Context(), &cfg)
	require.NoError(t, err)

	return hub.New(&cfg, database, kvStore, ps, metrics.New())
}

func setupTestServer(t *testing.T, h *hub.Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	websocket.CreateHandler(h, []string{"*"}).ApplyRoutes(router)
	return httptest.NewServer(router)
}

func dialWS(t *testing.T, serverURL string) *gorillaWS.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	dialer := gorillaWS.Dialer{}
	header := http.Header{}
	header.Set("Origin", serverURL)
	conn, resp, err := dialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn
}

func TestUpgradeRegistersConnection(t *testing.T) {
	t.Parallel()
	h := newTestHub(t)
	server := setupTestServer(t, h)
	defer server.Close()

	conn := dialWS(t, server.URL)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return h.StatsSnapshot().ConnectionCount == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDisconnectTearsDownConnection(t *testing.T) {
	t.Parallel()
	h := newTestHub(t)
	server := setupTestServer(t, h)
	defer server.Close()

	conn := dialWS(t, server.URL)
	require.Eventually(t, func() bool {
		return h.StatsSnapshot().ConnectionCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return h.StatsSnapshot().ConnectionCount == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConcurrentUpgrades(t *testing.T) {
	t.Parallel()
	h := newTestHub(t)
	server := setupTestServer(t, h)
	defer server.Close()

	const numClients = 5
	conns := make([]*gorillaWS.Conn, numClients)
	for i := 0; i < numClients; i++ {
		conns[i] = dialWS(t, server.URL)
	}
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()

	require.Eventually(t, func() bool {
		return h.StatsSnapshot().ConnectionCount == numClients
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInvalidFrameReturnsErrorReply(t *testing.T) {
	t.Parallel()
	h := newTestHub(t)
	server := setupTestServer(t, h)
	defer server.Close()

	conn := dialWS(t, server.URL)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(gorillaWS.TextMessage, []byte("not json")))

	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\"type\":\"Error\"")
}
