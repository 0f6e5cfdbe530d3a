package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

// PageView is what the site reports for each navigation.
type PageView struct {
	Path        string `json:"path"`
	Referrer    string `json:"referrer,omitempty"`
	SessionID   string `json:"session_id"`
	UserAgent   string `json:"user_agent,omitempty"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
}

const (
	trackerSessionTTL = 12 * time.Hour
	trackerCoolOff    = time.Minute
)

// Tracker forwards page views to the visit-tracking endpoint. A failed
// delivery turns tracking off for that visitor's session, and pauses all
// delivery for a short cool-off so a dead endpoint is not hit per visitor.
// A request abandoned by the caller is not a failure.
type Tracker struct {
	endpoint   string
	httpClient *http.Client
	logger     *logging.Logger
	now        func() time.Time
	coolOff    time.Duration

	pausedUntil atomic.Int64 // unix nanos

	mu       sync.Mutex
	sessions map[string]time.Time // session id -> disabled until
}

// NewTracker returns nil when tracking is off or no endpoint is set.
func NewTracker(enabled bool, endpoint string, logger *logging.Logger) *Tracker {
	endpoint = strings.TrimSpace(endpoint)
	if !enabled || endpoint == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Tracker{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
		now:        time.Now,
		coolOff:    trackerCoolOff,
		sessions:   make(map[string]time.Time),
	}
}

// Enabled reports whether the tracker is outside a cool-off.
func (t *Tracker) Enabled() bool {
	return t != nil && t.now().UnixNano() >= t.pausedUntil.Load()
}

// EnabledFor reports whether a page view from sessionID would be sent.
func (t *Tracker) EnabledFor(sessionID string) bool {
	if !t.Enabled() {
		return false
	}
	if sessionID == "" {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	until, ok := t.sessions[sessionID]
	if !ok {
		return true
	}
	if t.now().After(until) {
		delete(t.sessions, sessionID)
		return true
	}
	return false
}

// Track posts pv. It returns false without a request while the session is
// disabled or the tracker is cooling off.
func (t *Tracker) Track(ctx context.Context, pv PageView) bool {
	if !t.EnabledFor(pv.SessionID) {
		return false
	}
	err := t.post(ctx, pv)
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		t.logger.Debug("visit tracking abandoned by caller", "error", err, "session_id", pv.SessionID)
		return false
	}

	now := t.now()
	t.pausedUntil.Store(now.Add(t.coolOff).UnixNano())
	if pv.SessionID != "" {
		t.mu.Lock()
		if len(t.sessions) >= 1024 {
			for id, until := range t.sessions {
				if now.After(until) {
					delete(t.sessions, id)
				}
			}
		}
		t.sessions[pv.SessionID] = now.Add(trackerSessionTTL)
		t.mu.Unlock()
	}
	t.logger.Warn("visit tracking failed, disabled for session", "error", err, "session_id", pv.SessionID, "cool_off", t.coolOff)
	return false
}

func (t *Tracker) post(ctx context.Context, pv PageView) error {
	body, err := json.Marshal(pv)
	if err != nil {
		return fmt.Errorf("analytics: marshal page view: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("analytics: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analytics: track request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("analytics: track endpoint returned %d", resp.StatusCode)
	}
	return nil
}
