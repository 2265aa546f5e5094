package futures

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/pkg/config"
	"github.com/rwaltman/basisengine/pkg/logger"
)

const (
	pingInterval          = 30 * time.Second
	reconnectInitialDelay = 1 * time.Second
	reconnectMaxDelay     = 30 * time.Second
	maxReconnectAttempts  = 10
)

// Stream maintains a websocket subscription to the gateway's push feed for
// outright and spread quotes. It feeds the engine's in-memory quote board
// between polling cycles; the engine still works without it.
type Stream struct {
	cfg    config.FuturesConfig
	logger *logger.Logger

	conn         *websocket.Conn
	connMu       sync.Mutex
	connected    bool
	reconnecting bool

	subscriptions map[string]bool
	subMu         sync.RWMutex

	onQuote  func(contracts.FuturesQuote)
	onSpread func(contracts.SpreadQuote)
	onError  func(error)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewStream creates a stream client. Connect must be called before use.
func NewStream(cfg config.FuturesConfig, log *logger.Logger) *Stream {
	return &Stream{
		cfg:           cfg,
		logger:        log,
		subscriptions: make(map[string]bool),
		stopCh:        make(chan struct{}),
	}
}

// Callback setters. Set before Connect; not safe to change afterwards.
func (s *Stream) OnQuote(fn func(contracts.FuturesQuote)) { s.onQuote = fn }
func (s *Stream) OnSpread(fn func(contracts.SpreadQuote)) { s.onSpread = fn }
func (s *Stream) OnError(fn func(error))                  { s.onError = fn }

// Connect dials the push endpoint and starts the read and ping loops.
func (s *Stream) Connect(ctx context.Context) error {
	if s.cfg.StreamURL == "" {
		return fmt.Errorf("stream URL not configured")
	}

	if err := s.dial(ctx); err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	s.logger.Info("Futures quote stream connected")
	return nil
}

func (s *Stream) dial(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.cfg.StreamURL, nil)
	if err != nil {
		return err
	}

	s.conn = conn
	s.connected = true
	return nil
}

// Disconnect closes the connection and waits for the loops to exit.
func (s *Stream) Disconnect() error {
	close(s.stopCh)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.connected = false
	}
	s.connMu.Unlock()

	s.wg.Wait()
	s.logger.Info("Futures quote stream disconnected")
	return nil
}

// IsConnected reports connection status.
func (s *Stream) IsConnected() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.connected
}

type subscribeMessage struct {
	Action  string   `json:"action"` // subscribe, unsubscribe
	Symbols []string `json:"symbols"`
}

// Subscribe registers outright or spread symbols for push updates.
func (s *Stream) Subscribe(symbols ...string) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	fresh := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if !s.subscriptions[sym] {
			fresh = append(fresh, sym)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	if err := s.send(subscribeMessage{Action: "subscribe", Symbols: fresh}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	for _, sym := range fresh {
		s.subscriptions[sym] = true
	}

	s.logger.WithField("symbols", fresh).Debug("Subscribed to quote stream")
	return nil
}

// Unsubscribe removes symbol subscriptions.
func (s *Stream) Unsubscribe(symbols ...string) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	active := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if s.subscriptions[sym] {
			active = append(active, sym)
		}
	}
	if len(active) == 0 {
		return nil
	}

	if err := s.send(subscribeMessage{Action: "unsubscribe", Symbols: active}); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	for _, sym := range active {
		delete(s.subscriptions, sym)
	}
	return nil
}

func (s *Stream) send(v interface{}) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected")
	}
	return s.conn.WriteJSON(v)
}

// streamMessage is the gateway's push envelope.
type streamMessage struct {
	Type    string          `json:"type"` // quote, spread
	Payload json.RawMessage `json:"payload"`
}

func (s *Stream) readLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			if s.onError != nil {
				s.onError(fmt.Errorf("read error: %w", err))
			}
			s.handleDisconnect()
			return
		}

		s.handleMessage(message)
	}
}

func (s *Stream) handleMessage(data []byte) {
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.WithError(err).Warn("Malformed stream message")
		return
	}

	switch msg.Type {
	case "quote":
		var q contracts.FuturesQuote
		if err := json.Unmarshal(msg.Payload, &q); err != nil {
			s.logger.WithError(err).Warn("Malformed quote payload")
			return
		}
		if s.onQuote != nil {
			s.onQuote(q)
		}
	case "spread":
		var q contracts.SpreadQuote
		if err := json.Unmarshal(msg.Payload, &q); err != nil {
			s.logger.WithError(err).Warn("Malformed spread payload")
			return
		}
		if s.onSpread != nil {
			s.onSpread(q)
		}
	}
}

func (s *Stream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.connMu.Lock()
			conn := s.conn
			s.connMu.Unlock()

			if conn == nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if s.onError != nil {
					s.onError(fmt.Errorf("ping error: %w", err))
				}
				s.handleDisconnect()
				return
			}
		}
	}
}

// handleDisconnect tears down the dead connection and schedules a
// reconnect. Both loops can observe the same failure; only the first
// schedules, and a closed stopCh suppresses it entirely.
func (s *Stream) handleDisconnect() {
	s.connMu.Lock()
	s.connected = false
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.reconnecting {
		s.connMu.Unlock()
		return
	}
	select {
	case <-s.stopCh:
		s.connMu.Unlock()
		return
	default:
	}
	s.reconnecting = true
	s.connMu.Unlock()

	go func() {
		defer func() {
			s.connMu.Lock()
			s.reconnecting = false
			s.connMu.Unlock()
		}()
		if err := s.Reconnect(context.Background()); err != nil {
			if s.onError != nil {
				s.onError(fmt.Errorf("reconnect: %w", err))
			}
		}
	}()
}

// Reconnect redials with exponential backoff and restores subscriptions.
func (s *Stream) Reconnect(ctx context.Context) error {
	delay := reconnectInitialDelay

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return fmt.Errorf("stream closed")
		case <-time.After(delay):
		}

		s.logger.WithField("attempt", attempt).Info("Attempting stream reconnection")

		if err := s.dial(ctx); err != nil {
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		s.subMu.Lock()
		symbols := make([]string, 0, len(s.subscriptions))
		for sym := range s.subscriptions {
			symbols = append(symbols, sym)
		}
		s.subscriptions = make(map[string]bool)
		s.subMu.Unlock()

		if len(symbols) > 0 {
			if err := s.Subscribe(symbols...); err != nil {
				s.logger.WithError(err).Warn("Failed to restore stream subscriptions")
			}
		}

		s.wg.Add(2)
		go s.readLoop()
		go s.pingLoop()

		s.logger.Info("Quote stream reconnected")
		return nil
	}

	return fmt.Errorf("max reconnect attempts reached")
}
