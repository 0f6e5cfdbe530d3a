package inbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/agency-backoffice/internal/notify"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

// API is the subset of the admin back-office the session needs.
type API interface {
	Settings(ctx context.Context) (notify.Settings, error)
	UpdateSettings(ctx context.Context, patch notify.SettingsPatch) (notify.Settings, error)
	List(ctx context.Context) ([]notify.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) ([]string, error)
}

// ChangeResync is emitted by a feed after it reconnects. Changes published
// while it was away are lost, so the session reloads history.
const ChangeResync notify.ChangeKind = "resync"

// Feed streams row changes for the signed-in admin. The channel closes when
// ctx ends or the feed gives up.
type Feed interface {
	Subscribe(ctx context.Context) (<-chan notify.Change, error)
}

// Options selects delivery channels. Toaster is required; the others may be nil.
type Options struct {
	Beeper  Beeper
	Desktop DesktopNotifier
	Toaster Toaster
}

// Session holds one admin's live inbox. Feed events and mark-read calls may
// interleave; every mutation goes through the row id under mu.
type Session struct {
	api    API
	feed   Feed
	opts   Options
	logger *logging.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	settings notify.Settings
}

// NewSession wires a session. Call Start before reading state.
func NewSession(api API, feed Feed, opts Options, logger *logging.Logger) *Session {
	if api == nil || feed == nil || opts.Toaster == nil {
		panic("inbox: api, feed and toaster required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Session{
		api:      api,
		feed:     feed,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		settings: notify.DefaultSettings(""),
	}
}

// Start loads settings then history. A settings failure keeps the defaults.
func (s *Session) Start(ctx context.Context) error {
	settings, err := s.api.Settings(ctx)
	if err != nil {
		s.logger.Warn("inbox: load settings failed, using defaults", "error", err)
	} else {
		s.mu.Lock()
		s.settings = settings
		s.mu.Unlock()
	}

	list, err := s.api.List(ctx)
	if err != nil {
		return fmt.Errorf("inbox: load notifications: %w", err)
	}
	s.mu.Lock()
	s.state = NewState(list)
	s.mu.Unlock()
	return nil
}

// Run applies feed changes until the feed closes or ctx ends. History is
// reloaded once subscribed, covering rows created since Start.
func (s *Session) Run(ctx context.Context) error {
	changes, err := s.feed.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("inbox: subscribe: %w", err)
	}
	s.resync(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			s.Apply(ctx, change)
		}
	}
}

// Apply folds one change into the session and delivers new arrivals.
func (s *Session) Apply(ctx context.Context, change notify.Change) {
	switch change.Kind {
	case notify.ChangeInsert:
		s.mu.Lock()
		next, added := ApplyInsert(s.state, change.New)
		s.state = next
		settings := s.settings
		s.mu.Unlock()
		if added {
			s.deliver(ctx, settings, change.New)
		}
	case notify.ChangeUpdate:
		s.mu.Lock()
		s.state = ApplyUpdate(s.state, change.Old, change.New)
		s.mu.Unlock()
	case ChangeResync:
		s.resync(ctx)
	default:
		s.logger.Debug("inbox: ignoring change", "event", change.Kind)
	}
}

// resync merges the server's current listing. Rows found this way are
// counted but not delivered; they are backlog, not arrivals.
func (s *Session) resync(ctx context.Context) {
	list, err := s.api.List(ctx)
	if err != nil {
		s.logger.Warn("inbox: reload notifications failed", "error", err)
		return
	}
	s.mu.Lock()
	s.state = Merge(s.state, list)
	s.mu.Unlock()
}

// deliver applies the arrival policy: nothing during DND, otherwise sound
// and desktop when enabled, and always a toast.
func (s *Session) deliver(ctx context.Context, settings notify.Settings, n notify.Notification) {
	if IsInDND(settings, s.now()) {
		return
	}
	if settings.SoundEnabled && s.opts.Beeper != nil {
		if err := s.opts.Beeper.Beep(ctx, NotificationBeep); err != nil {
			s.logger.Debug("inbox: beep failed", "error", err)
		}
	}
	if settings.DesktopPush && s.opts.Desktop != nil && s.opts.Desktop.Permitted() {
		if err := s.opts.Desktop.Show(n.Title, n.Message); err != nil {
			s.logger.Debug("inbox: desktop notification failed", "error", err)
		}
	}
	s.opts.Toaster.Toast(n)
}

// MarkAsRead is idempotent: an already-read row makes no request and leaves
// the counter alone.
func (s *Session) MarkAsRead(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.state.index(id)
	alreadyRead := i >= 0 && s.state.Notifications[i].Read
	s.mu.Unlock()
	if alreadyRead {
		return nil
	}

	if err := s.api.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("inbox: mark read: %w", err)
	}
	s.mu.Lock()
	s.state, _ = markRead(s.state, id)
	s.mu.Unlock()
	return nil
}

// MarkAllAsRead flips the rows the server marked and recounts in one step.
func (s *Session) MarkAllAsRead(ctx context.Context) error {
	ids, err := s.api.MarkAllRead(ctx)
	if err != nil {
		return fmt.Errorf("inbox: mark all read: %w", err)
	}
	s.mu.Lock()
	s.state = markAllRead(s.state, ids)
	s.mu.Unlock()
	return nil
}

// UpdateSettings saves a patch and adopts the stored result.
func (s *Session) UpdateSettings(ctx context.Context, patch notify.SettingsPatch) (notify.Settings, error) {
	saved, err := s.api.UpdateSettings(ctx, patch)
	if err != nil {
		return notify.Settings{}, fmt.Errorf("inbox: update settings: %w", err)
	}
	s.mu.Lock()
	s.settings = saved
	s.mu.Unlock()
	return saved, nil
}

// Snapshot returns a copy of the current list and counter.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Notifications: append([]notify.Notification(nil), s.state.Notifications...),
		Unread:        s.state.Unread,
	}
}

func (s *Session) Settings() notify.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// InDND reports whether delivery is currently suppressed.
func (s *Session) InDND() bool {
	return IsInDND(s.Settings(), s.now())
}
