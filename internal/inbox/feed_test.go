package inbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/agency-backoffice/internal/http/middleware"
	"github.com/wolfman30/agency-backoffice/internal/notify"
	"github.com/wolfman30/agency-backoffice/internal/realtime"
)

func adminToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestWebsocketFeedReceivesChanges(t *testing.T) {
	hub := realtime.NewHub(nil)
	srv := httptest.NewServer(middleware.AdminJWT("s3cret")(realtime.NewHandler(hub, nil)))
	defer srv.Close()

	feed := NewWebsocketFeed("ws"+strings.TrimPrefix(srv.URL, "http"), adminToken(t, "s3cret", "a1"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Subscribers("a1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(ctx, notify.Change{Kind: notify.ChangeInsert, New: notify.Notification{ID: "n1", UserID: "a1"}})

	select {
	case got := <-changes:
		assert.Equal(t, notify.ChangeInsert, got.Kind)
		assert.Equal(t, "n1", got.New.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change received")
	}

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("feed did not close after cancel")
		}
	}
}

func TestWebsocketFeedAnnouncesResyncAfterReconnect(t *testing.T) {
	var conns atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if conns.Add(1) == 1 {
			_ = conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	feed := NewWebsocketFeed("ws"+strings.TrimPrefix(srv.URL, "http"), "token", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	select {
	case got := <-changes:
		assert.Equal(t, ChangeResync, got.Kind)
		assert.Equal(t, int32(2), conns.Load())
	case <-time.After(3 * time.Second):
		t.Fatal("no resync after reconnect")
	}
}

func TestWebsocketFeedRejectsBadToken(t *testing.T) {
	hub := realtime.NewHub(nil)
	srv := httptest.NewServer(middleware.AdminJWT("s3cret")(realtime.NewHandler(hub, nil)))
	defer srv.Close()

	feed := NewWebsocketFeed("ws"+strings.TrimPrefix(srv.URL, "http"), adminToken(t, "wrong", "a1"), nil)
	_, err := feed.Subscribe(context.Background())
	assert.Error(t, err)
}
