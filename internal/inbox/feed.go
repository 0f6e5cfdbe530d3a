package inbox

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wolfman30/agency-backoffice/internal/notify"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

const (
	minReconnectDelay = 500 * time.Millisecond
	maxReconnectDelay = 30 * time.Second
)

// WebsocketFeed reads the admin change stream and reconnects with doubling
// delays until ctx ends. Each reconnect is announced with a ChangeResync.
type WebsocketFeed struct {
	url    string
	token  string
	dialer *websocket.Dialer
	logger *logging.Logger
}

// NewWebsocketFeed dials streamURL (ws:// or wss://) with a bearer token.
func NewWebsocketFeed(streamURL, token string, logger *logging.Logger) *WebsocketFeed {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebsocketFeed{
		url:    streamURL,
		token:  token,
		dialer: websocket.DefaultDialer,
		logger: logger,
	}
}

// Subscribe makes the first connection synchronously so bad credentials
// surface to the caller.
func (f *WebsocketFeed) Subscribe(ctx context.Context) (<-chan notify.Change, error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan notify.Change, 16)
	go f.loop(ctx, conn, out)
	return out, nil
}

func (f *WebsocketFeed) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{"Authorization": {"Bearer " + f.token}}
	conn, _, err := f.dialer.DialContext(ctx, f.url, header)
	return conn, err
}

func (f *WebsocketFeed) loop(ctx context.Context, conn *websocket.Conn, out chan<- notify.Change) {
	defer close(out)
	delay := minReconnectDelay
	for {
		f.read(ctx, conn, out)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}

		for {
			f.logger.Warn("inbox: feed disconnected, reconnecting", "delay", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			next, err := f.dial(ctx)
			if err == nil {
				conn = next
				delay = minReconnectDelay
				break
			}
			f.logger.Debug("inbox: feed redial failed", "error", err)
			delay *= 2
			if delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}
		}

		select {
		case out <- notify.Change{Kind: ChangeResync}:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}
	}
}

func (f *WebsocketFeed) read(ctx context.Context, conn *websocket.Conn, out chan<- notify.Change) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	for {
		var change notify.Change
		if err := conn.ReadJSON(&change); err != nil {
			return
		}
		select {
		case out <- change:
		case <-ctx.Done():
			return
		}
	}
}

var _ Feed = (*WebsocketFeed)(nil)
