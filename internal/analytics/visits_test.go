package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var visitColumns = []string{
	"id", "occurred_at", "path", "referrer", "utm_source", "utm_medium", "utm_campaign",
	"country", "region", "city", "device", "browser", "ip_hash", "session_id",
}

func TestVisitReaderListSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	at := since.Add(time.Hour)
	mock.ExpectQuery("FROM visits WHERE occurred_at >= \\$1 ORDER BY occurred_at DESC").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows(visitColumns).
			AddRow("v1", at, "/", "https://google.com", "", "", "", "Philippines", "Metro Manila", "Makati", "mobile", "Chrome", "h1", "s1").
			AddRow("v2", at, "/work", "", "fb", "social", "launch", "", "", "", "desktop", "Firefox", "", "s2"))

	visits, err := NewVisitReader(sqlx.NewDb(db, "postgres")).ListSince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, "Makati", visits[0].City)
	assert.Equal(t, "h1", visits[0].IPHash)
	assert.Equal(t, "launch", visits[1].UTMCampaign)
	assert.True(t, visits[1].OccurredAt.Equal(at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitReaderError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM visits").WillReturnError(errors.New("boom"))
	_, err = NewVisitReader(sqlx.NewDb(db, "postgres")).ListSince(context.Background(), time.Now())
	assert.ErrorContains(t, err, "analytics: list visits")
}
