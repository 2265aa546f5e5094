package futures

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/pkg/config"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// streamServer accepts websocket sessions and records every subscribe
// message, so a test can drop a connection and watch the client recover.
type streamServer struct {
	*httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
	msgs  chan subscribeMessage
}

func newStreamServer(t *testing.T) *streamServer {
	s := &streamServer{msgs: make(chan subscribeMessage, 16)}
	upgrader := websocket.Upgrader{}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		for {
			var msg subscribeMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			s.msgs <- msg
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *streamServer) url() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

func (s *streamServer) conn(i int) *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[i]
}

func (s *streamServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *streamServer) nextMessage(t *testing.T) subscribeMessage {
	select {
	case msg := <-s.msgs:
		return msg
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for a stream message")
		return subscribeMessage{}
	}
}

func TestStream_ReconnectsAndRestoresSubscriptions(t *testing.T) {
	server := newStreamServer(t)

	stream := NewStream(config.FuturesConfig{StreamURL: server.url()}, logger.Nop())
	spreads := make(chan contracts.SpreadQuote, 1)
	stream.OnSpread(func(q contracts.SpreadQuote) { spreads <- q })

	require.NoError(t, stream.Connect(context.Background()))
	defer stream.Disconnect()
	require.True(t, stream.IsConnected())

	require.NoError(t, stream.Subscribe("ZNZ6", "ZNH7"))
	first := server.nextMessage(t)
	assert.Equal(t, "subscribe", first.Action)
	assert.Equal(t, []string{"ZNZ6", "ZNH7"}, first.Symbols)

	// Kill the session server-side: the client must redial on its own
	// and re-register everything it was subscribed to.
	server.conn(0).Close()

	second := server.nextMessage(t)
	assert.Equal(t, "subscribe", second.Action)
	assert.ElementsMatch(t, []string{"ZNZ6", "ZNH7"}, second.Symbols)

	require.Eventually(t, stream.IsConnected, 5*time.Second, 50*time.Millisecond)
	require.Equal(t, 2, server.connCount())

	// The restored session must still deliver ticks.
	payload := `{"type":"spread","payload":{"near_symbol":"ZNZ6","far_symbol":"ZNH7","bid":-6.85,"ask":-6.75}}`
	require.NoError(t, server.conn(1).WriteMessage(websocket.TextMessage, []byte(payload)))

	select {
	case q := <-spreads:
		assert.Equal(t, "ZNZ6", q.NearSymbol)
		assert.InDelta(t, -6.8, q.Mid(), 1e-12)
	case <-time.After(10 * time.Second):
		t.Fatal("spread tick not delivered after reconnect")
	}
}

func TestStream_SubscribeDedupesAndUnsubscribes(t *testing.T) {
	server := newStreamServer(t)

	stream := NewStream(config.FuturesConfig{StreamURL: server.url()}, logger.Nop())
	require.NoError(t, stream.Connect(context.Background()))
	defer stream.Disconnect()

	require.NoError(t, stream.Subscribe("ZTZ6"))
	assert.Equal(t, []string{"ZTZ6"}, server.nextMessage(t).Symbols)

	// A repeat subscription and an unknown unsubscribe send nothing.
	require.NoError(t, stream.Subscribe("ZTZ6"))
	require.NoError(t, stream.Unsubscribe("ZFZ6"))

	require.NoError(t, stream.Unsubscribe("ZTZ6"))
	msg := server.nextMessage(t)
	assert.Equal(t, "unsubscribe", msg.Action)
	assert.Equal(t, []string{"ZTZ6"}, msg.Symbols)
}

func TestStream_ConnectRequiresStreamURL(t *testing.T) {
	stream := NewStream(config.FuturesConfig{}, logger.Nop())
	require.Error(t, stream.Connect(context.Background()))
}
