package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
)

const (
	// DefaultStreamURL is the base URL for the spot market websocket API.
	DefaultStreamURL = "wss://stream.binance.com:9443/ws"

	streamReadTimeout  = 90 * time.Second
	streamRedialDelay  = 5 * time.Second
	streamDialTimeout  = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// TickerUpdate is a single mini-ticker frame from the stream.
type TickerUpdate struct {
	Symbol    string
	Close     float64
	Open      float64
	High      float64
	Low       float64
	Volume    float64
	EventTime time.Time
}

// miniTickerFrame is the raw miniTicker websocket payload. Numeric fields
// arrive as strings, same as the REST API.
type miniTickerFrame struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
}

// parseMiniTicker decodes a raw websocket frame into a TickerUpdate.
func parseMiniTicker(data []byte) (*TickerUpdate, error) {
	var frame miniTickerFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("failed to decode stream frame: %w", err)
	}
	if frame.Symbol == "" {
		return nil, &MalformedDataError{Endpoint: "miniTicker", Detail: "frame missing symbol"}
	}

	update := &TickerUpdate{
		Symbol:    frame.Symbol,
		EventTime: time.UnixMilli(frame.EventTime).UTC(),
	}
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"c", frame.Close, &update.Close},
		{"o", frame.Open, &update.Open},
		{"h", frame.High, &update.High},
		{"l", frame.Low, &update.Low},
		{"v", frame.Volume, &update.Volume},
	}
	for _, f := range fields {
		v, err := toFloat64(f.raw)
		if err != nil {
			return nil, &MalformedDataError{
				Endpoint: "miniTicker",
				Detail:   fmt.Sprintf("field %s: %v", f.name, err),
			}
		}
		*f.dst = v
	}

	return update, nil
}

// Stream maintains a websocket subscription to a symbol's mini-ticker feed
// and delivers updates to a handler. It reconnects on read failure until the
// context is cancelled.
type Stream struct {
	baseURL string
	symbol  string
	logger  arbor.ILogger
}

// NewStream creates a stream for one symbol.
func NewStream(baseURL, symbol string, logger arbor.ILogger) *Stream {
	if baseURL == "" {
		baseURL = DefaultStreamURL
	}
	return &Stream{
		baseURL: baseURL,
		symbol:  symbol,
		logger:  logger,
	}
}

// endpoint builds the per-symbol stream URL. Stream names are lowercase.
func (s *Stream) endpoint() string {
	return fmt.Sprintf("%s/%s@miniTicker", s.baseURL, strings.ToLower(s.symbol))
}

// Run connects and dispatches updates until ctx is cancelled. Connection
// failures are logged and retried.
func (s *Stream) Run(ctx context.Context, handler func(*TickerUpdate)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.readLoop(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.logger != nil {
				s.logger.Warn().
					Err(err).
					Str("symbol", s.symbol).
					Msg("Stream disconnected, reconnecting")
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(streamRedialDelay):
		}
	}
}

func (s *Stream) readLoop(ctx context.Context, handler func(*TickerUpdate)) error {
	dialer := websocket.Dialer{HandshakeTimeout: streamDialTimeout}
	conn, _, err := dialer.DialContext(ctx, s.endpoint(), nil)
	if err != nil {
		return fmt.Errorf("failed to dial stream: %w", err)
	}
	defer conn.Close()

	if s.logger != nil {
		s.logger.Info().
			Str("symbol", s.symbol).
			Str("url", s.endpoint()).
			Msg("Stream connected")
	}

	// Close the connection when the context is cancelled so ReadMessage
	// unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go s.keepAlive(ctx, conn)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("stream read failed: %w", err)
		}

		update, err := parseMiniTicker(data)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn().
					Err(err).
					Str("symbol", s.symbol).
					Msg("Skipping malformed stream frame")
			}
			continue
		}

		handler(update)
	}
}

func (s *Stream) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
