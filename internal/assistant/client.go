package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrAlreadyRunning is returned by Start while a session is active.
var ErrAlreadyRunning = errors.New("assistant session already running")

// Config configures the assistant connection.
type Config struct {
	URL            string
	ReconnectDelay time.Duration
	MaxReconnects  int
}

// Client maintains a WebSocket subscription to the assistant's
// character-timing stream. Producer failures are never surfaced as errors
// downstream; they only mean no further units arrive until reconnect.
type Client struct {
	cfg  Config
	sink UnitSink
	log  zerolog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	running   bool
	connected bool
	onStatus  func(connected bool)
}

// NewClient creates a Client. The sink must not be nil.
func NewClient(cfg Config, sink UnitSink, logger zerolog.Logger) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = 10
	}
	return &Client{
		cfg:  cfg,
		sink: sink,
		log:  logger.With().Str("component", "assistant").Logger(),
	}
}

// OnStatus registers a callback invoked whenever the stream connection
// goes up or down.
func (c *Client) OnStatus(fn func(connected bool)) {
	c.mu.Lock()
	c.onStatus = fn
	c.mu.Unlock()
}

// Start resets session state and begins streaming units. The reset happens
// before the first dial so a fresh episode never inherits a highlight.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	c.sink.Reset()

	go c.run(ctx)
	return nil
}

// Stop ends the assistant session and resets session state.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.sink.Reset()
}

// IsRunning reports whether a session is active.
func (c *Client) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// IsConnected reports whether the stream connection is currently up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) run(ctx context.Context) {
	attempts := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			attempts++
			c.log.Warn().Err(err).Int("attempt", attempts).Msg("assistant dial failed")
			if attempts >= c.cfg.MaxReconnects {
				c.log.Error().Int("attempts", attempts).Msg("giving up on assistant connection")
				return
			}
			if !sleepCtx(ctx, c.cfg.ReconnectDelay) {
				return
			}
			continue
		}

		attempts = 0
		c.setConnected(true)
		c.log.Info().Str("url", c.cfg.URL).Msg("connected to assistant")

		c.readLoop(ctx, conn)

		c.setConnected(false)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		c.log.Info().Dur("delay", c.cfg.ReconnectDelay).Msg("assistant stream closed, reconnecting")
		if !sleepCtx(ctx, c.cfg.ReconnectDelay) {
			return
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage when the session stops.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn().Err(err).Msg("assistant read error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn().Err(err).Msg("malformed assistant frame, skipping")
			continue
		}
		if msg.Type != MessageTypeTranscription {
			continue
		}

		c.sink.Receive(msg.Text, msg.StartTime, msg.EndTime)
	}
}

func (c *Client) setConnected(connected bool) {
	c.mu.Lock()
	c.connected = connected
	fn := c.onStatus
	c.mu.Unlock()

	if fn != nil {
		fn(connected)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
