// Package analytics turns site visits and leads into the admin dashboard's
// KPIs and breakdowns.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Visit is one tracked page view. Missing values read as "".
type Visit struct {
	ID          string    `db:"id" json:"id"`
	OccurredAt  time.Time `db:"occurred_at" json:"occurred_at"`
	Path        string    `db:"path" json:"path"`
	Referrer    string    `db:"referrer" json:"referrer"`
	UTMSource   string    `db:"utm_source" json:"utm_source"`
	UTMMedium   string    `db:"utm_medium" json:"utm_medium"`
	UTMCampaign string    `db:"utm_campaign" json:"utm_campaign"`
	Country     string    `db:"country" json:"country"`
	Region      string    `db:"region" json:"region"`
	City        string    `db:"city" json:"city"`
	Device      string    `db:"device" json:"device"`
	Browser     string    `db:"browser" json:"browser"`
	IPHash      string    `db:"ip_hash" json:"-"`
	SessionID   string    `db:"session_id" json:"session_id"`
}

// VisitReader loads visits written by the tracking endpoint.
type VisitReader struct {
	db *sqlx.DB
}

func NewVisitReader(db *sqlx.DB) *VisitReader {
	if db == nil {
		panic("analytics: sqlx db required")
	}
	return &VisitReader{db: db}
}

// ListSince returns visits at or after since, newest first.
func (r *VisitReader) ListSince(ctx context.Context, since time.Time) ([]Visit, error) {
	const q = `
		SELECT id::text AS id, occurred_at,
		       COALESCE(path, '') AS path, COALESCE(referrer, '') AS referrer,
		       COALESCE(utm_source, '') AS utm_source, COALESCE(utm_medium, '') AS utm_medium,
		       COALESCE(utm_campaign, '') AS utm_campaign,
		       COALESCE(country, '') AS country, COALESCE(region, '') AS region, COALESCE(city, '') AS city,
		       COALESCE(device, '') AS device, COALESCE(browser, '') AS browser,
		       COALESCE(ip_hash, '') AS ip_hash, COALESCE(session_id, '') AS session_id
		FROM visits
		WHERE occurred_at >= $1
		ORDER BY occurred_at DESC`
	visits := []Visit{}
	if err := r.db.SelectContext(ctx, &visits, q, since); err != nil {
		return nil, fmt.Errorf("analytics: list visits: %w", err)
	}
	return visits, nil
}
