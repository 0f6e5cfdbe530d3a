package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settingsRowColumns = []string{"user_id", "sound_enabled", "desktop_push", "dnd_enabled", "dnd_start", "dnd_end", "timezone", "updated_at"}

func expectGetOrCreate(mock pgxmock.PgxPoolIface, userID string, s Settings) {
	mock.ExpectExec("INSERT INTO admin_settings").
		WithArgs(userID, true, false, false, "22:00", "07:00", "Asia/Manila").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT (.+) FROM admin_settings").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(settingsRowColumns).
			AddRow(s.UserID, s.SoundEnabled, s.DesktopPush, s.DNDEnabled, s.DNDStart, s.DNDEnd, s.Timezone, time.Now()))
}

func TestSettingsGetOrCreateWritesDefaults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newSettingsStoreWithExec(mock)
	expectGetOrCreate(mock, "u1", DefaultSettings("u1"))

	got, err := store.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, got.SoundEnabled)
	assert.False(t, got.DesktopPush)
	assert.Equal(t, "22:00", got.DNDStart)
	assert.Equal(t, "Asia/Manila", got.Timezone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsUpdateAppliesPatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newSettingsStoreWithExec(mock)
	expectGetOrCreate(mock, "u1", DefaultSettings("u1"))
	mock.ExpectQuery("UPDATE admin_settings").
		WithArgs("u1", true, true, true, "21:30", "07:00", "Asia/Tokyo").
		WillReturnRows(pgxmock.NewRows(settingsRowColumns).
			AddRow("u1", true, true, true, "21:30", "07:00", "Asia/Tokyo", time.Now()))

	on := true
	start := "21:30"
	tz := "Asia/Tokyo"
	got, err := store.Update(context.Background(), "u1", SettingsPatch{DesktopPush: &on, DNDEnabled: &on, DNDStart: &start, Timezone: &tz})
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", got.Timezone)
	assert.True(t, got.DNDEnabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsUpdateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		patch SettingsPatch
	}{
		{"bad start", SettingsPatch{DNDStart: strPtr("25:00")}},
		{"bad end", SettingsPatch{DNDEnd: strPtr("7am")}},
		{"bad timezone", SettingsPatch{Timezone: strPtr("Mars/Olympus")}},
		{"empty timezone", SettingsPatch{Timezone: strPtr(" ")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			store := newSettingsStoreWithExec(mock)
			expectGetOrCreate(mock, "u1", DefaultSettings("u1"))

			_, err = store.Update(context.Background(), "u1", tt.patch)
			assert.True(t, errors.Is(err, ErrInvalidSettings), "got %v", err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func strPtr(s string) *string { return &s }
