package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/napolitain/factory-env/internal/metrics"
	"github.com/napolitain/factory-env/internal/protocol"
	"github.com/napolitain/factory-env/internal/resolver"
)

func startServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	srv, err := NewServer(opts)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func hello(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "test"})
	var w protocol.WelcomeMsg
	require.NoError(t, conn.ReadJSON(&w))
	require.Equal(t, protocol.TypeWelcome, w.Type)
	return w
}

func TestServerEpisodeOverWebsocket(t *testing.T) {
	collector := metrics.NewEpisodeMetricsCollector()
	require.NoError(t, collector.Register(prometheus.NewRegistry()))

	ts := startServer(t, Options{Horizon: 10, MaxSessions: 4, Metrics: collector})
	conn := dial(t, ts)

	w := hello(t, conn)
	assert.Equal(t, 10.0, w.Horizon)
	assert.Equal(t, []string{"build_a", "build_b", "build_power", "wait"}, w.Actions)
	assert.NotEmpty(t, w.SessionID)

	var obs protocol.ObsMsg
	send(t, conn, protocol.ResetMsg{Type: protocol.TypeReset})
	require.NoError(t, conn.ReadJSON(&obs))
	assert.Equal(t, protocol.TypeObs, obs.Type)

	send(t, conn, map[string]any{"type": protocol.TypeStep, "action": "wait"})
	require.NoError(t, conn.ReadJSON(&obs))
	assert.True(t, obs.Done)
	assert.Equal(t, []float64{1050, 1030, 1, 1, 1, 10}, obs.Observation)

	var e protocol.ErrorMsg
	send(t, conn, map[string]any{"type": protocol.TypeStep, "action": 0})
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, protocol.ErrEpisodeDone, e.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.ActiveSessions()))
}

func TestServerRejectsBadHandshake(t *testing.T) {
	ts := startServer(t, Options{Horizon: 10, MaxSessions: 2})

	conn := dial(t, ts)
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1"})

	var e protocol.ErrorMsg
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, protocol.ErrProtoVersion, e.Code)

	conn = dial(t, ts)
	send(t, conn, protocol.ResetMsg{Type: protocol.TypeReset})
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, protocol.ErrProtoBadRequest, e.Code)
}

func TestServerSessionLimit(t *testing.T) {
	ts := startServer(t, Options{Horizon: 10, MaxSessions: 1})

	first := dial(t, ts)
	hello(t, first)

	second := dial(t, ts)
	var e protocol.ErrorMsg
	require.NoError(t, second.ReadJSON(&e))
	assert.Equal(t, protocol.ErrServerBusy, e.Code)
}

func TestIndependentSessions(t *testing.T) {
	ts := startServer(t, Options{Horizon: 100, MaxSessions: 2, Valuation: resolver.PurchasedValuation})

	a := dial(t, ts)
	b := dial(t, ts)
	hello(t, a)
	hello(t, b)

	var obs protocol.ObsMsg
	for _, conn := range []*websocket.Conn{a, b} {
		send(t, conn, protocol.ResetMsg{Type: protocol.TypeReset})
		require.NoError(t, conn.ReadJSON(&obs))
	}

	send(t, a, map[string]any{"type": protocol.TypeStep, "action": "build_power"})
	require.NoError(t, a.ReadJSON(&obs))
	assert.Equal(t, 2.0, obs.Observation[4])

	send(t, b, map[string]any{"type": protocol.TypeStep, "action": "build_b"})
	require.NoError(t, b.ReadJSON(&obs))
	assert.Equal(t, 1.0, obs.Observation[4], "b must not see a's power level")
	assert.Equal(t, 1.0, obs.Observation[3], "b's build is power-blocked")
}

func TestNewServerValidates(t *testing.T) {
	_, err := NewServer(Options{Horizon: -1, MaxSessions: 1})
	assert.ErrorIs(t, err, resolver.ErrInvalidHorizon)

	_, err = NewServer(Options{Horizon: 10})
	assert.Error(t, err)
}

func TestServerDropsOversizedFrames(t *testing.T) {
	ts := startServer(t, Options{Horizon: 10, MaxSessions: 1})
	conn := dial(t, ts)
	hello(t, conn)

	big := strings.Repeat("x", maxMessageSize+1)
	send(t, conn, map[string]any{"type": protocol.TypeStep, "action": big})

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseMessageTooBig), "got %v", err)
}
