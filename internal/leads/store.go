package leads

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/agency-backoffice/internal/observability/metrics"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Notifier receives lead lifecycle events. Implementations are best-effort
// and report failures through their own logging.
type Notifier interface {
	NotifyNewLead(ctx context.Context, lead *Lead)
	NotifyLeadStatusChanged(ctx context.Context, lead *Lead, from, to Status)
	NotifyLeadNoteAdded(ctx context.Context, lead *Lead)
}

const defaultNotifyTimeout = 10 * time.Second

// Store persists validated leads and triggers admin notifications.
type Store struct {
	repo          Repository
	notifier      Notifier
	metrics       *metrics.PipelineMetrics
	logger        *logging.Logger
	tracer        trace.Tracer
	notifyTimeout time.Duration

	inflight sync.WaitGroup
}

// NewStore wires a lead store. notifier and m may be nil.
func NewStore(repo Repository, notifier Notifier, m *metrics.PipelineMetrics, logger *logging.Logger) *Store {
	if repo == nil {
		panic("leads: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		repo:          repo,
		notifier:      notifier,
		metrics:       m,
		logger:        logger,
		tracer:        otel.Tracer("agency.internal.leads"),
		notifyTimeout: defaultNotifyTimeout,
	}
}

// Create validates req again, inserts one row and kicks off the new-lead
// fanout in the background. A fanout failure never fails the create.
func (s *Store) Create(ctx context.Context, req CreateLeadRequest, loc Location) (*Lead, error) {
	ctx, span := s.tracer.Start(ctx, "leads.create")
	defer span.End()

	normalized, err := Validate(req)
	if err != nil {
		s.metrics.ObserveLead(req.ContactMethod, "invalid")
		return nil, err
	}
	if !normalized.ContactMethod.Persisted() {
		s.metrics.ObserveLead(string(normalized.ContactMethod), "skipped")
		return nil, ErrPhoneChannelNotStored
	}
	span.SetAttributes(attribute.String("lead.contact_method", string(normalized.ContactMethod)))

	if loc.Source == "" {
		loc.Source = GeoSourceNone
	}
	lead, err := s.repo.Insert(ctx, &Lead{
		Name:          normalized.Name,
		Phone:         normalized.Phone,
		Message:       normalized.Message,
		WhereFound:    normalized.WhereFound,
		ContactMethod: normalized.ContactMethod,
		Status:        StatusNew,
		Country:       loc.Country,
		Region:        loc.Region,
		City:          loc.City,
		GeoSource:     loc.Source,
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveLead(string(normalized.ContactMethod), "failed")
		s.logger.Error("lead insert failed", "error", err, "contact_method", normalized.ContactMethod)
		return nil, &StoreError{Op: "insert", Err: err}
	}

	s.metrics.ObserveLead(string(lead.ContactMethod), "created")
	s.logger.Info("lead created", "id", lead.ID, "contact_method", lead.ContactMethod, "geo_source", lead.GeoSource)

	created := *lead
	s.detach(ctx, "new_lead", func(ctx context.Context) {
		if s.notifier != nil {
			s.notifier.NotifyNewLead(ctx, &created)
		}
	})
	return lead, nil
}

// Get returns a single lead.
func (s *Store) Get(ctx context.Context, id string) (*Lead, error) {
	if !validID(id) {
		return nil, ErrLeadNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// List returns leads for the admin table.
func (s *Store) List(ctx context.Context, filter ListLeadsFilter) ([]*Lead, error) {
	return s.repo.List(ctx, filter)
}

// ListSince returns leads created at or after since.
func (s *Store) ListSince(ctx context.Context, since time.Time) ([]*Lead, error) {
	return s.repo.ListSince(ctx, since)
}

// Update applies an admin edit and notifies on status or note changes.
func (s *Store) Update(ctx context.Context, id string, upd LeadUpdate) (*Lead, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if !validID(id) {
		return nil, ErrLeadNotFound
	}
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	after, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "update", Err: err}
	}

	updated := *after
	if after.Status != before.Status {
		from, to := before.Status, after.Status
		s.detach(ctx, "status_changed", func(ctx context.Context) {
			if s.notifier != nil {
				s.notifier.NotifyLeadStatusChanged(ctx, &updated, from, to)
			}
		})
	}
	if upd.Notes != nil && after.Notes != "" && after.Notes != before.Notes {
		s.detach(ctx, "note_added", func(ctx context.Context) {
			if s.notifier != nil {
				s.notifier.NotifyLeadNoteAdded(ctx, &updated)
			}
		})
	}
	return after, nil
}

// Delete permanently removes a lead.
func (s *Store) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrLeadNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			return err
		}
		return &StoreError{Op: "delete", Err: err}
	}
	s.logger.Info("lead deleted", "id", id)
	return nil
}

// validID reports whether id can name a lead. Lead ids are uuid columns.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Wait blocks until detached notification work has finished.
func (s *Store) Wait() {
	s.inflight.Wait()
}

// detach runs fn on its own goroutine with a context that outlives the
// request. Errors and panics are logged only.
func (s *Store) detach(parent context.Context, name string, fn func(ctx context.Context)) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("lead notification panicked", "task", name, "panic", fmt.Sprint(r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.notifyTimeout)
		defer cancel()
		fn(ctx)
	}()
}
