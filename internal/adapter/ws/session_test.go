package ws

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adilzhm/tably/internal/adapter/logger"
	"github.com/adilzhm/tably/internal/interfaces"
)

const probeInterval = 100 * time.Millisecond

func dialHub(t *testing.T) (*Hub, *websocket.Conn, func()) {
	t.Helper()

	h := NewHub(logger.NewWithWriter("test", io.Discard))
	srv := httptest.NewServer(h.ServeHTTP([]byte("test-secret"), probeInterval))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.Len() == 1 },
		time.Second, 10*time.Millisecond, "session registers after upgrade")

	return h, conn, func() {
		conn.Close()
		srv.Close()
	}
}

func readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestLiveness_PongReplyKeepsSession(t *testing.T) {
	h, conn, cleanup := dialHub(t)
	defer cleanup()

	// The default ping handler answers with a pong while the read loop
	// runs, so the session outlives several probe cycles.
	go readLoop(conn)

	time.Sleep(4 * probeInterval)
	assert.Equal(t, 1, h.Len())
}

func TestLiveness_MissedPongForcesClose(t *testing.T) {
	h, conn, cleanup := dialHub(t)
	defer cleanup()

	// Swallow pings instead of answering them; the read deadline on the
	// server side expires after one missed probe cycle.
	conn.SetPingHandler(func(string) error { return nil })
	go readLoop(conn)

	assert.Eventually(t, func() bool { return h.Len() == 0 },
		time.Second, 10*time.Millisecond, "unresponsive session is removed")
}

func TestLiveness_BroadcastReachesLiveClient(t *testing.T) {
	h, conn, cleanup := dialHub(t)
	defer cleanup()

	n := h.Broadcast("acropolis-street-food/orders/ready", []byte(`{"order_id":9}`), interfaces.Targeting{})
	assert.Equal(t, 1, n)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"topic":"acropolis-street-food/orders/ready","data":{"order_id":9}}`, string(frame))
}

func TestLiveness_ClientDisconnectUnregisters(t *testing.T) {
	h, conn, cleanup := dialHub(t)
	defer cleanup()

	conn.Close()

	assert.Eventually(t, func() bool { return h.Len() == 0 },
		time.Second, 10*time.Millisecond, "disconnect removes the session")
}
