package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/agency-backoffice/internal/leads"
	"github.com/wolfman30/agency-backoffice/internal/observability/metrics"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Publisher pushes row changes to connected admin clients.
type Publisher interface {
	Publish(ctx context.Context, change Change)
}

// NotificationWriter inserts one row per user for an event.
type NotificationWriter interface {
	InsertForUsers(ctx context.Context, userIDs []string, ev Event) ([]Notification, error)
}

const defaultDetachTimeout = 15 * time.Second

// Fanout turns one event into one notification row per admin. It never
// returns errors; failures are logged and the triggering write stands.
type Fanout struct {
	directory AdminDirectory
	writer    NotificationWriter
	publisher Publisher
	alerter   *EmailAlerter
	metrics   *metrics.PipelineMetrics
	logger    *logging.Logger
	tracer    trace.Tracer
	timeout   time.Duration

	inflight sync.WaitGroup
}

// NewFanout wires a fanout. publisher, alerter and m may be nil.
func NewFanout(directory AdminDirectory, writer NotificationWriter, publisher Publisher, alerter *EmailAlerter, m *metrics.PipelineMetrics, logger *logging.Logger) *Fanout {
	if directory == nil || writer == nil {
		panic("notify: directory and writer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Fanout{
		directory: directory,
		writer:    writer,
		publisher: publisher,
		alerter:   alerter,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("agency.internal.notify"),
		timeout:   defaultDetachTimeout,
	}
}

// Notify resolves the admins and inserts identical unread rows for each.
// Zero admins is a no-op.
func (f *Fanout) Notify(ctx context.Context, ev Event) {
	ctx, span := f.tracer.Start(ctx, "notify.fanout")
	defer span.End()
	span.SetAttributes(attribute.String("notify.type", string(ev.Type)))

	f.insert(ctx, span, ev)
	// Rows and realtime changes come first; the email copy never gates them.
	f.alerter.Alert(ctx, ev)
}

func (f *Fanout) insert(ctx context.Context, span trace.Span, ev Event) {
	ids, err := f.directory.AdminIDs(ctx)
	if err != nil {
		span.RecordError(err)
		f.logger.Error("fanout: resolve admins failed", "error", err, "title", ev.Title)
		return
	}
	if len(ids) == 0 {
		f.logger.Debug("fanout: no admin users", "title", ev.Title)
		return
	}

	rows, err := f.writer.InsertForUsers(ctx, ids, ev)
	if err != nil {
		span.RecordError(err)
		f.logger.Error("fanout: insert notifications failed", "error", err, "title", ev.Title, "admins", len(ids))
		return
	}
	f.metrics.ObserveFanout(string(ev.Type), len(rows))
	span.SetAttributes(attribute.Int("notify.rows", len(rows)))

	if f.publisher == nil {
		return
	}
	for _, row := range rows {
		f.publisher.Publish(ctx, Change{Kind: ChangeInsert, New: row})
	}
}

// Go runs Notify on a detached goroutine that outlives ctx's cancellation.
func (f *Fanout) Go(ctx context.Context, ev Event) {
	f.inflight.Add(1)
	go func() {
		defer f.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				f.logger.Error("fanout panicked", "title", ev.Title, "panic", fmt.Sprint(r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()
		f.Notify(ctx, ev)
	}()
}

// Wait blocks until detached fanouts have finished.
func (f *Fanout) Wait() {
	f.inflight.Wait()
}

// NotifyNewLead implements leads.Notifier. The lead store already runs it detached.
func (f *Fanout) NotifyNewLead(ctx context.Context, lead *leads.Lead) {
	f.Notify(ctx, NewLead(lead.Name, lead.ID))
}

func (f *Fanout) NotifyLeadStatusChanged(ctx context.Context, lead *leads.Lead, from, to leads.Status) {
	f.Notify(ctx, LeadStatusChanged(lead.Name, string(from), string(to), lead.ID))
}

func (f *Fanout) NotifyLeadNoteAdded(ctx context.Context, lead *leads.Lead) {
	f.Notify(ctx, LeadNoteAdded(lead.Name, lead.ID))
}

// NotifyLeadsExported implements leads.ExportNotifier.
func (f *Fanout) NotifyLeadsExported(ctx context.Context, rows int) {
	f.Go(ctx, LeadsExportComplete(rows))
}

// NotifyVisitsExported is called after an analytics CSV download.
func (f *Fanout) NotifyVisitsExported(ctx context.Context, rows int) {
	f.Go(ctx, AnalyticsExportComplete(rows))
}

// ReportFailure tells admins about an operational failure they should act on.
func (f *Fanout) ReportFailure(ctx context.Context, message string) {
	f.Go(ctx, SystemError(message))
}

var (
	_ leads.Notifier       = (*Fanout)(nil)
	_ leads.ExportNotifier = (*Fanout)(nil)
)
