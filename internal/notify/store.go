package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotificationNotFound is returned when the id does not belong to the user.
var ErrNotificationNotFound = errors.New("notify: notification not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const notificationColumns = `id, user_id, type, title, message, meta, read, created_at`

// Store persists admin notifications in PostgreSQL.
type Store struct {
	pool querier
}

// NewStore initializes a store backed by pgxpool.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("notify: pgx pool required")
	}
	return &Store{pool: pool}
}

func newStoreWithExec(exec querier) *Store {
	if exec == nil {
		panic("notify: exec required")
	}
	return &Store{pool: exec}
}

// InsertForUsers writes one unread row per user in a single statement.
func (s *Store) InsertForUsers(ctx context.Context, userIDs []string, ev Event) ([]Notification, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	meta, err := encodeMeta(ev.Meta)
	if err != nil {
		return nil, err
	}
	query := `
		INSERT INTO admin_notifications (user_id, type, title, message, meta)
		SELECT uid, $2, $3, $4, $5 FROM unnest($1::uuid[]) AS uid
		RETURNING ` + notificationColumns
	return s.queryNotifications(ctx, query, userIDs, string(ev.Type), ev.Title, ev.Message, meta)
}

// ListByUser returns the user's notifications newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + notificationColumns + ` FROM admin_notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	return s.queryNotifications(ctx, query, userID, limit)
}

// MarkRead flips one row to read. changed is false if it was already read.
func (s *Store) MarkRead(ctx context.Context, userID, id string) (Notification, bool, error) {
	query := `
		UPDATE admin_notifications SET read = true
		WHERE id = $1 AND user_id = $2 AND read = false
		RETURNING ` + notificationColumns
	n, err := scanNotification(s.pool.QueryRow(ctx, query, id, userID))
	if err == nil {
		return n, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Notification{}, false, fmt.Errorf("notify: mark read: %w", err)
	}

	query = `SELECT ` + notificationColumns + ` FROM admin_notifications WHERE id = $1 AND user_id = $2`
	n, err = scanNotification(s.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, false, ErrNotificationNotFound
		}
		return Notification{}, false, fmt.Errorf("notify: load notification: %w", err)
	}
	return n, false, nil
}

// MarkAllRead flips every unread row for the user and returns the rows it changed.
func (s *Store) MarkAllRead(ctx context.Context, userID string) ([]Notification, error) {
	query := `
		UPDATE admin_notifications SET read = true
		WHERE user_id = $1 AND read = false
		RETURNING ` + notificationColumns
	return s.queryNotifications(ctx, query, userID)
}

func (s *Store) queryNotifications(ctx context.Context, query string, args ...any) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("notify: query: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("notify: scan: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notify: rows: %w", err)
	}
	return out, nil
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	var typ string
	var meta []byte
	if err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &meta, &n.Read, &n.CreatedAt); err != nil {
		return Notification{}, err
	}
	n.Type = Type(typ)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &n.Meta); err != nil {
			return Notification{}, fmt.Errorf("decode meta: %w", err)
		}
	}
	return n, nil
}

func encodeMeta(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("notify: encode meta: %w", err)
	}
	return b, nil
}
