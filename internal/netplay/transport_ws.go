package netplay

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// WSTransport is a websocket client connection to the game server. Frames
// are JSON envelopes in both directions.
type WSTransport struct {
	conn *websocket.Conn
	log  zerolog.Logger
}

// DialWS connects to the server's websocket endpoint.
func DialWS(ctx context.Context, url string, log zerolog.Logger) (*WSTransport, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &WSTransport{conn: conn, log: log}, nil
}

// Send writes one outbound frame.
func (t *WSTransport) Send(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

// Listen reads frames until the context ends or the connection drops,
// handing each to the handler. Ping keepalives run alongside.
func (t *WSTransport) Listen(ctx context.Context, handler func([]byte) error) error {
	go func() {
		ping := time.NewTicker(15 * time.Second)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				if err := t.conn.Ping(ctx); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := t.conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err := handler(data); err != nil {
			// Malformed frames are dropped, not fatal.
			t.log.Warn().Err(err).Msg("frame handler rejected message")
		}
	}
}

// Close shuts the connection down cleanly.
func (t *WSTransport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "bye")
}
