package notify

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// AdminDirectory resolves who should receive a fanout. It runs with
// service credentials, so it works from unauthenticated public requests.
type AdminDirectory interface {
	AdminIDs(ctx context.Context) ([]string, error)
}

// SQLAdminDirectory reads admin user ids from user_roles.
type SQLAdminDirectory struct {
	db    *sqlx.DB
	roles []string
}

// NewSQLAdminDirectory returns a directory matching any of roles (default "admin").
func NewSQLAdminDirectory(db *sqlx.DB, roles ...string) *SQLAdminDirectory {
	if db == nil {
		panic("notify: sqlx db required")
	}
	if len(roles) == 0 {
		roles = []string{"admin"}
	}
	return &SQLAdminDirectory{db: db, roles: roles}
}

func (d *SQLAdminDirectory) AdminIDs(ctx context.Context) ([]string, error) {
	var ids []string
	q := `SELECT DISTINCT user_id::text FROM user_roles WHERE role = ANY($1) ORDER BY 1`
	if err := d.db.SelectContext(ctx, &ids, q, pq.Array(d.roles)); err != nil {
		return nil, fmt.Errorf("notify: list admin ids: %w", err)
	}
	return ids, nil
}

// StaticAdminDirectory is a fixed list, used in development and tests.
type StaticAdminDirectory []string

func (s StaticAdminDirectory) AdminIDs(ctx context.Context) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}
