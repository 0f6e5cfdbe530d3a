package geo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wolfman30/agency-backoffice/internal/observability/metrics"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Source explains how a resolution was produced.
type Source string

const (
	SourceIP      Source = "ip"
	SourceBlocked Source = "blocked"
	SourceNone    Source = "none"
)

const (
	DefaultProviderTimeout = 4 * time.Second
	DefaultSessionTTL      = 12 * time.Hour
)

// DefaultBlockedAgents are user-agent fragments of browsers that block
// third-party geolocation calls.
var DefaultBlockedAgents = []string{"Brave", "DuckDuckGo", "Focus/"}

// Request identifies who is being located.
type Request struct {
	SessionID string
	IP        string
	UserAgent string
}

// Resolution is the outcome of Resolve. It is never an error.
type Resolution struct {
	Result
	Source Source `json:"geo_source"`
}

// Cache stores resolved locations by IP across sessions.
type Cache interface {
	Get(ctx context.Context, ip string) (Result, bool, error)
	Set(ctx context.Context, ip string, res Result) error
}

// Options tunes a Locator. Zero values take the defaults.
type Options struct {
	ProviderTimeout time.Duration
	SessionTTL      time.Duration
	BlockedAgents   []string
	IPCache         Cache
	Metrics         *metrics.PipelineMetrics
}

type sessionEntry struct {
	res     Resolution
	expires time.Time
}

// Locator tries providers in order and caches the outcome per session.
type Locator struct {
	providers []Provider
	timeout   time.Duration
	ttl       time.Duration
	blocked   []string
	ipCache   Cache
	metrics   *metrics.PipelineMetrics
	logger    *logging.Logger
	tracer    trace.Tracer
	now       func() time.Time

	attempts atomic.Uint64
	group    singleflight.Group

	mu       sync.Mutex
	sessions map[string]sessionEntry
}

// NewLocator builds a locator over providers, tried strictly in order.
func NewLocator(providers []Provider, opts Options, logger *logging.Logger) *Locator {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.BlockedAgents == nil {
		opts.BlockedAgents = DefaultBlockedAgents
	}
	blocked := make([]string, 0, len(opts.BlockedAgents))
	for _, a := range opts.BlockedAgents {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			blocked = append(blocked, a)
		}
	}
	return &Locator{
		providers: providers,
		timeout:   opts.ProviderTimeout,
		ttl:       opts.SessionTTL,
		blocked:   blocked,
		ipCache:   opts.IPCache,
		metrics:   opts.Metrics,
		logger:    logger,
		tracer:    otel.Tracer("agency.internal.geo"),
		now:       time.Now,
		sessions:  make(map[string]sessionEntry),
	}
}

// Resolve returns the visitor's location. The first call in a session does
// the network work; later calls return the cached value, all-null included.
func (l *Locator) Resolve(ctx context.Context, req Request) Resolution {
	if res, ok := l.cached(req.SessionID); ok {
		return res
	}

	key := req.SessionID
	if key == "" {
		key = "ip:" + req.IP
	}
	v, _, _ := l.group.Do(key, func() (any, error) {
		if res, ok := l.cached(req.SessionID); ok {
			return res, nil
		}
		res := l.resolve(ctx, req)
		l.remember(req.SessionID, res)
		return res, nil
	})
	return v.(Resolution)
}

// Forget drops the cached resolution for a session.
func (l *Locator) Forget(sessionID string) {
	l.mu.Lock()
	delete(l.sessions, sessionID)
	l.mu.Unlock()
}

// Blocked reports whether the user agent belongs to an environment that
// blocks outbound geolocation calls.
func (l *Locator) Blocked(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, frag := range l.blocked {
		if strings.Contains(ua, frag) {
			return true
		}
	}
	return false
}

func (l *Locator) resolve(ctx context.Context, req Request) Resolution {
	ctx, span := l.tracer.Start(ctx, "geo.resolve")
	defer span.End()

	if l.Blocked(req.UserAgent) {
		l.metrics.ObserveGeoResolution(string(SourceBlocked))
		span.SetAttributes(attribute.String("geo.source", string(SourceBlocked)))
		return Resolution{Source: SourceBlocked}
	}

	if l.ipCache != nil && req.IP != "" {
		res, ok, err := l.ipCache.Get(ctx, req.IP)
		if err != nil {
			l.logger.Warn("geo cache read failed", "error", err)
		} else if ok {
			l.metrics.ObserveGeoResolution(string(SourceIP))
			return Resolution{Result: res, Source: SourceIP}
		}
	}

	guard := &attemptGuard{}
	for _, p := range l.providers {
		res, ok := l.try(ctx, guard, p, req.IP)
		if !ok {
			continue
		}
		if l.ipCache != nil && req.IP != "" {
			if err := l.ipCache.Set(ctx, req.IP, res); err != nil {
				l.logger.Warn("geo cache write failed", "error", err)
			}
		}
		l.metrics.ObserveGeoResolution(string(SourceIP))
		span.SetAttributes(
			attribute.String("geo.source", string(SourceIP)),
			attribute.String("geo.provider", p.Name()),
		)
		return Resolution{Result: res, Source: SourceIP}
	}

	l.logger.Debug("geo providers exhausted", "providers", len(l.providers))
	l.metrics.ObserveGeoResolution(string(SourceNone))
	span.SetAttributes(attribute.String("geo.source", string(SourceNone)))
	return Resolution{Source: SourceNone}
}

// try runs one provider under its own deadline. The lookup reports back
// through guard, which only accepts the most recently issued attempt.
func (l *Locator) try(ctx context.Context, guard *attemptGuard, p Provider, ip string) (Result, bool) {
	id := l.attempts.Add(1)
	guard.issue(id)

	attemptCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		res, err := p.Lookup(attemptCtx, ip)
		if err == nil && !guard.accept(id, res) {
			l.metrics.ObserveGeoAttempt(p.Name(), "stale")
			l.logger.Debug("geo discarded stale response", "provider", p.Name(), "attempt", id)
			err = errStale
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			l.metrics.ObserveGeoAttempt(p.Name(), attemptOutcome(err))
			l.logger.Debug("geo provider failed", "provider", p.Name(), "error", err)
			return Result{}, false
		}
		l.metrics.ObserveGeoAttempt(p.Name(), "ok")
		return guard.result(), true
	case <-attemptCtx.Done():
		// The lookup may have been accepted just as the deadline fired.
		if res, won := guard.abandon(id); won {
			l.metrics.ObserveGeoAttempt(p.Name(), "ok")
			return res, true
		}
		l.metrics.ObserveGeoAttempt(p.Name(), "timeout")
		l.logger.Debug("geo provider timed out", "provider", p.Name(), "attempt", id)
		return Result{}, false
	}
}

func (l *Locator) cached(sessionID string) (Resolution, bool) {
	if sessionID == "" {
		return Resolution{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.sessions[sessionID]
	if !ok {
		return Resolution{}, false
	}
	if l.now().After(entry.expires) {
		delete(l.sessions, sessionID)
		return Resolution{}, false
	}
	return entry.res, true
}

func (l *Locator) remember(sessionID string, res Resolution) {
	if sessionID == "" {
		return
	}
	l.mu.Lock()
	l.sessions[sessionID] = sessionEntry{res: res, expires: l.now().Add(l.ttl)}
	l.mu.Unlock()
}

var errStale = errors.New("geo: stale attempt")

func attemptOutcome(err error) string {
	switch {
	case errors.Is(err, errStale):
		return "stale"
	case errors.Is(err, ErrNoUsableField):
		return "empty"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// attemptGuard holds the winning result of one Resolve call. Only the
// latest issued attempt may write it, so a slow abandoned lookup can never
// replace a result from a later provider.
type attemptGuard struct {
	mu     sync.Mutex
	latest uint64
	won    bool
	res    Result
}

func (g *attemptGuard) issue(id uint64) {
	g.mu.Lock()
	g.latest = id
	g.mu.Unlock()
}

// abandon retires attempt id unless it already won, in which case the
// winning result is returned and the attempt stands.
func (g *attemptGuard) abandon(id uint64) (Result, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.latest != id {
		return Result{}, false
	}
	if g.won {
		return g.res, true
	}
	g.latest = 0
	return Result{}, false
}

func (g *attemptGuard) accept(id uint64, res Result) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.won || id != g.latest {
		return false
	}
	g.won = true
	g.res = res
	return true
}

func (g *attemptGuard) result() Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.res
}
