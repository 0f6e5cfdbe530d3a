package notify

import (
	"context"

	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

// Service serves an admin's inbox: listing, read state and settings.
// Read-state changes are published so the admin's other tabs reconcile.
type Service struct {
	store     *Store
	settings  *SettingsStore
	publisher Publisher
	logger    *logging.Logger
}

// NewService creates an inbox service. publisher may be nil.
func NewService(store *Store, settings *SettingsStore, publisher Publisher, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:     store,
		settings:  settings,
		publisher: publisher,
		logger:    logger,
	}
}

// List returns the admin's notification history, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

// MarkRead is idempotent: marking an already-read row reports changed=false
// and publishes nothing.
func (s *Service) MarkRead(ctx context.Context, userID, id string) (Notification, bool, error) {
	n, changed, err := s.store.MarkRead(ctx, userID, id)
	if err != nil || !changed {
		return n, changed, err
	}
	s.publishRead(ctx, n)
	return n, true, nil
}

// MarkAllRead flips every unread row and returns the ids it changed.
func (s *Service) MarkAllRead(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, n := range rows {
		ids = append(ids, n.ID)
		s.publishRead(ctx, n)
	}
	s.logger.Debug("notifications marked read", "user_id", userID, "count", len(rows))
	return ids, nil
}

func (s *Service) Settings(ctx context.Context, userID string) (Settings, error) {
	return s.settings.GetOrCreate(ctx, userID)
}

func (s *Service) UpdateSettings(ctx context.Context, userID string, patch SettingsPatch) (Settings, error) {
	return s.settings.Update(ctx, userID, patch)
}

func (s *Service) publishRead(ctx context.Context, n Notification) {
	if s.publisher == nil {
		return
	}
	old := n
	old.Read = false
	s.publisher.Publish(ctx, Change{Kind: ChangeUpdate, New: n, Old: &old})
}
