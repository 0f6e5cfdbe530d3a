package inbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/agency-backoffice/internal/notify"
)

func TestClientCallsAdminAPI(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/admin/notifications":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"notifications": []notify.Notification{{ID: "n1", Title: "New Lead Received"}},
				"unread_count":  1,
			})
		case "/admin/settings/notifications":
			s := notify.DefaultSettings("a1")
			if r.Method == http.MethodPut {
				var patch notify.SettingsPatch
				require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
				s = patch.Apply(s)
			}
			_ = json.NewEncoder(w).Encode(s)
		case "/admin/notifications/read-all":
			_ = json.NewEncoder(w).Encode(notify.MarkAllReadResponse{Updated: 1, IDs: []string{"n1"}})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/admin/", "tok")
	ctx := context.Background()

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "n1", list[0].ID)

	settings, err := c.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "22:00", settings.DNDStart)

	tz := "Asia/Tokyo"
	settings, err = c.UpdateSettings(ctx, notify.SettingsPatch{Timezone: &tz})
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", settings.Timezone)

	require.NoError(t, c.MarkRead(ctx, "n1"))
	ids, err := c.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, ids)

	assert.Equal(t, []string{
		"GET /admin/notifications",
		"GET /admin/settings/notifications",
		"PUT /admin/settings/notifications",
		"POST /admin/notifications/n1/read",
		"POST /admin/notifications/read-all",
	}, calls)
}

func TestClientReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"notification not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "tok").MarkRead(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
