package notify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInvalidSettings wraps a rejected settings patch.
var ErrInvalidSettings = errors.New("notify: invalid settings")

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

const settingsColumns = `user_id, sound_enabled, desktop_push, dnd_enabled, dnd_start, dnd_end, timezone, updated_at`

// SettingsStore keeps exactly one settings row per admin.
type SettingsStore struct {
	pool querier
}

// NewSettingsStore initializes a store backed by pgxpool.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	if pool == nil {
		panic("notify: pgx pool required")
	}
	return &SettingsStore{pool: pool}
}

func newSettingsStoreWithExec(exec querier) *SettingsStore {
	return &SettingsStore{pool: exec}
}

// GetOrCreate returns the admin's settings, writing defaults on first access.
func (s *SettingsStore) GetOrCreate(ctx context.Context, userID string) (Settings, error) {
	d := DefaultSettings(userID)
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO admin_settings (user_id, sound_enabled, desktop_push, dnd_enabled, dnd_start, dnd_end, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, d.SoundEnabled, d.DesktopPush, d.DNDEnabled, d.DNDStart, d.DNDEnd, d.Timezone,
	); err != nil {
		return Settings{}, fmt.Errorf("notify: create default settings: %w", err)
	}

	row := s.pool.QueryRow(ctx, `SELECT `+settingsColumns+` FROM admin_settings WHERE user_id = $1`, userID)
	out, err := scanSettings(row)
	if err != nil {
		return Settings{}, fmt.Errorf("notify: load settings: %w", err)
	}
	return out, nil
}

// Update validates and saves a patch, creating the row first if needed.
func (s *SettingsStore) Update(ctx context.Context, userID string, patch SettingsPatch) (Settings, error) {
	current, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return Settings{}, err
	}
	next := patch.Apply(current)
	if err := ValidateSettings(next); err != nil {
		return Settings{}, err
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE admin_settings
		SET sound_enabled = $2, desktop_push = $3, dnd_enabled = $4,
		    dnd_start = $5, dnd_end = $6, timezone = $7, updated_at = now()
		WHERE user_id = $1
		RETURNING `+settingsColumns,
		userID, next.SoundEnabled, next.DesktopPush, next.DNDEnabled, next.DNDStart, next.DNDEnd, next.Timezone,
	)
	out, err := scanSettings(row)
	if err != nil {
		return Settings{}, fmt.Errorf("notify: update settings: %w", err)
	}
	return out, nil
}

// ValidateSettings checks the DND clock values and timezone.
func ValidateSettings(s Settings) error {
	if !clockPattern.MatchString(s.DNDStart) {
		return fmt.Errorf("%w: dnd_start must be HH:MM", ErrInvalidSettings)
	}
	if !clockPattern.MatchString(s.DNDEnd) {
		return fmt.Errorf("%w: dnd_end must be HH:MM", ErrInvalidSettings)
	}
	if strings.TrimSpace(s.Timezone) == "" {
		return fmt.Errorf("%w: timezone is required", ErrInvalidSettings)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSettings, s.Timezone)
	}
	return nil
}

type settingsRow interface {
	Scan(dest ...any) error
}

func scanSettings(row settingsRow) (Settings, error) {
	var out Settings
	err := row.Scan(&out.UserID, &out.SoundEnabled, &out.DesktopPush, &out.DNDEnabled,
		&out.DNDStart, &out.DNDEnd, &out.Timezone, &out.UpdatedAt)
	return out, err
}
