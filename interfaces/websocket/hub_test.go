package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mirror-backend/application/state"
	"mirror-backend/pkg/observability"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(zap.NewNop(), nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(NewServer(hub, nil, zap.NewNop()))
	t.Cleanup(srv.Close)

	return hub, srv
}

func dialTestHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestHub_ConnectionEstablished(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dialTestHub(t, srv)

	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, "CONNECTION_ESTABLISHED", msg["type"])
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub, srv := newTestHub(t)

	first := dialTestHub(t, srv)
	second := dialTestHub(t, srv)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 2 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast(EventStateChanged, StateSummary{Reflections: 3, Status: "ready"}))

	for _, conn := range []*websocket.Conn{first, second} {
		var msg map[string]interface{}
		// skip the connection banner
		require.NoError(t, conn.ReadJSON(&msg))
		require.NoError(t, conn.ReadJSON(&msg))

		assert.Equal(t, EventStateChanged, msg["type"])
		data := msg["data"].(map[string]interface{})
		assert.Equal(t, float64(3), data["reflections"])
		assert.Equal(t, "ready", data["status"])
	}
}

func TestBridge_CrisisTransitionGetsOwnEvent(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dialTestHub(t, srv)

	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 },
		time.Second, 10*time.Millisecond)

	bridge := &Bridge{hub: hub, logger: zap.NewNop()}
	bridge.onSnapshot(state.Snapshot{CrisisMode: true})

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventStateChanged, msg["type"])

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventCrisisMode, msg["type"])
	assert.Equal(t, map[string]interface{}{"active": true}, msg["data"].(map[string]interface{}))

	// no transition, no crisis event
	bridge.onSnapshot(state.Snapshot{CrisisMode: true})
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventStateChanged, msg["type"])

	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	require.Error(t, conn.ReadJSON(&msg), "expected no further events")
}

func TestHub_ConnectionGaugeIndependentOfSubscribers(t *testing.T) {
	collector := observability.NewCollector("mirror")

	hub := NewHub(zap.NewNop(), collector)
	go hub.Run()
	t.Cleanup(hub.Stop)
	srv := httptest.NewServer(NewServer(hub, nil, zap.NewNop()))
	t.Cleanup(srv.Close)

	manager := state.NewManager(nil, nil, nil, zap.NewNop(), collector)
	unsubscribe := manager.Subscribe(func(state.Snapshot) {})
	defer unsubscribe()

	conn := dialTestHub(t, srv)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(collector.WebSocketConnections) == 1
	}, time.Second, 10*time.Millisecond)

	// the connection must not disturb the manager's subscriber count
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.Subscribers))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(collector.WebSocketConnections) == 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.Subscribers))
}
