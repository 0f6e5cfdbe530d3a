package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const leadColumns = `id, name, phone, message, where_did_you_find_us, contact_method, status, notes, country, region, city, geo_source, created_at`

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithExec(exec querier) *PostgresRepository {
	if exec == nil {
		panic("leads: exec required")
	}
	return &PostgresRepository{pool: exec}
}

// Insert writes exactly one row.
func (r *PostgresRepository) Insert(ctx context.Context, lead *Lead) (*Lead, error) {
	id := uuid.New()
	status := lead.Status
	if status == "" {
		status = StatusNew
	}
	geoSource := lead.GeoSource
	if geoSource == "" {
		geoSource = GeoSourceNone
	}

	query := `
		INSERT INTO leads (id, name, phone, message, where_did_you_find_us, contact_method, status, country, region, city, geo_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		lead.Name,
		nullable(lead.Phone),
		lead.Message,
		nullable(lead.WhereFound),
		string(lead.ContactMethod),
		string(status),
		nullable(lead.Country),
		nullable(lead.Region),
		nullable(lead.City),
		string(geoSource),
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	out := *lead
	out.ID = id.String()
	out.Status = status
	out.GeoSource = geoSource
	out.CreatedAt = createdAt
	return &out, nil
}

// GetByID fetches a single lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// List returns leads newest first, narrowed by the filter.
func (r *PostgresRepository) List(ctx context.Context, filter ListLeadsFilter) ([]*Lead, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		where = append(where, fmt.Sprintf("where_did_you_find_us = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + leadColumns + ` FROM leads`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return r.queryLeads(ctx, query, args...)
}

// ListSince returns leads created at or after since.
func (r *PostgresRepository) ListSince(ctx context.Context, since time.Time) ([]*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE created_at >= $1 ORDER BY created_at DESC`
	return r.queryLeads(ctx, query, since)
}

// Update changes status and/or notes and returns the new row.
func (r *PostgresRepository) Update(ctx context.Context, id string, upd LeadUpdate) (*Lead, error) {
	var status, notes any
	if upd.Status != nil {
		status = string(*upd.Status)
	}
	if upd.Notes != nil {
		notes = *upd.Notes
	}
	query := `
		UPDATE leads
		SET status = COALESCE($2, status),
		    notes = COALESCE($3, notes)
		WHERE id = $1
		RETURNING ` + leadColumns
	lead, err := scanLead(r.pool.QueryRow(ctx, query, id, status, notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: update failed: %w", err)
	}
	return lead, nil
}

// Delete hard-deletes a lead. There is no undo.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("leads: delete failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (r *PostgresRepository) queryLeads(ctx context.Context, query string, args ...any) ([]*Lead, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	var method, status, geoSource string
	var phone, whereFound, notes, country, region, city pgtype.Text
	if err := row.Scan(
		&lead.ID,
		&lead.Name,
		&phone,
		&lead.Message,
		&whereFound,
		&method,
		&status,
		&notes,
		&country,
		&region,
		&city,
		&geoSource,
		&lead.CreatedAt,
	); err != nil {
		return nil, err
	}
	lead.Phone = phone.String
	lead.WhereFound = whereFound.String
	lead.ContactMethod = ContactMethod(method)
	lead.Status = Status(status)
	lead.Notes = notes.String
	lead.Country = country.String
	lead.Region = region.String
	lead.City = city.String
	lead.GeoSource = GeoSource(geoSource)
	return &lead, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
