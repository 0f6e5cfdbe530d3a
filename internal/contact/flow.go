// Package contact runs the public contact form: bot and rate checks,
// validation, geolocation, lead persistence and the outbound channel link.
package contact

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/agency-backoffice/internal/geo"
	"github.com/wolfman30/agency-backoffice/internal/leads"
	"github.com/wolfman30/agency-backoffice/internal/observability/metrics"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// State is a step of a submission.
type State string

const (
	StateIdle          State = "idle"
	StateValidating    State = "validating"
	StateRejected      State = "rejected"
	StateGeolocating   State = "geolocating"
	StatePersisting    State = "persisting"
	StatePersistFailed State = "persist_failed"
	StatePersisted     State = "persisted"
	StateRedirecting   State = "redirecting"
)

const (
	DefaultCooldown      = 3 * time.Second
	DefaultRedirectAfter = 1500 * time.Millisecond

	MsgTooQuickly    = "You're submitting too quickly. Please wait a moment."
	MsgPersistFailed = "Failed to submit your message. Please try again."
	MsgSent          = "Message sent! Redirecting you now..."
)

// Form is the submitted contact form. Website is the honeypot field.
type Form struct {
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	CountryCode   string `json:"country_code,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Message       string `json:"message"`
	WhereFound    string `json:"where_did_you_find_us,omitempty"`
	ContactMethod string `json:"contact_method"`
	Website       string `json:"website,omitempty"`
}

// Client identifies the submitter for rate limiting and geolocation.
type Client struct {
	SessionID string
	IP        string
	UserAgent string
}

func (c Client) key() string {
	if c.SessionID != "" {
		return c.SessionID
	}
	return "ip:" + c.IP
}

// Outcome is what the caller shows the visitor.
type Outcome struct {
	State         State         `json:"state"`
	Silent        bool          `json:"-"`
	Field         string        `json:"field,omitempty"`
	Message       string        `json:"message,omitempty"`
	Notice        string        `json:"notice,omitempty"`
	RedirectURL   string        `json:"redirect_url,omitempty"`
	RedirectAfter time.Duration `json:"-"`
	LeadID        string        `json:"lead_id,omitempty"`
	Trail         []State       `json:"-"`
}

// LeadCreator persists a lead.
type LeadCreator interface {
	Create(ctx context.Context, req leads.CreateLeadRequest, loc leads.Location) (*leads.Lead, error)
}

// Locator resolves a visitor location and never fails.
type Locator interface {
	Resolve(ctx context.Context, req geo.Request) geo.Resolution
}

// FailureReporter tells the back office a submission was lost.
type FailureReporter interface {
	ReportFailure(ctx context.Context, message string)
}

// Config tunes a Flow. Zero durations take the defaults.
type Config struct {
	Channels      Channels
	Cooldown      time.Duration
	RedirectAfter time.Duration
}

// Flow orchestrates one submission at a time per call; it holds no
// per-submission state of its own.
type Flow struct {
	store    LeadCreator
	locator  Locator
	clock    SubmissionClock
	reporter FailureReporter
	cfg      Config
	metrics  *metrics.PipelineMetrics
	logger   *logging.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewFlow wires a flow. locator, clock, reporter and m may be nil.
func NewFlow(store LeadCreator, locator Locator, clock SubmissionClock, reporter FailureReporter, cfg Config, m *metrics.PipelineMetrics, logger *logging.Logger) *Flow {
	if store == nil {
		panic("contact: lead store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.RedirectAfter <= 0 {
		cfg.RedirectAfter = DefaultRedirectAfter
	}
	return &Flow{
		store:    store,
		locator:  locator,
		clock:    clock,
		reporter: reporter,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("agency.internal.contact"),
		now:      time.Now,
	}
}

// Submit runs the form through the flow. It never returns an error; every
// failure is described by the outcome.
func (f *Flow) Submit(ctx context.Context, client Client, form Form) Outcome {
	ctx, span := f.tracer.Start(ctx, "contact.submit")
	defer span.End()

	out := f.submit(ctx, client, form)
	span.SetAttributes(attribute.String("contact.state", string(out.State)))
	f.metrics.ObserveContact(string(out.State))
	return out
}

func (f *Flow) submit(ctx context.Context, client Client, form Form) Outcome {
	trail := []State{StateIdle}
	step := func(s State) { trail = append(trail, s) }
	done := func(o Outcome) Outcome {
		o.Trail = append(trail, o.State)
		return o
	}

	if form.Website != "" {
		f.logger.Debug("contact: honeypot tripped", "ip", client.IP)
		return done(Outcome{State: StateRejected, Silent: true})
	}

	if f.limited(ctx, client) {
		return done(Outcome{State: StateRejected, Message: MsgTooQuickly})
	}

	step(StateValidating)
	phone := NormalizePhone(form.CountryCode, form.Phone)
	normalized, err := leads.Validate(leads.CreateLeadRequest{
		Name:          form.Name,
		Email:         form.Email,
		Phone:         phone,
		Message:       form.Message,
		WhereFound:    form.WhereFound,
		ContactMethod: form.ContactMethod,
	})
	if err != nil {
		var verr *leads.ValidationError
		if errors.As(err, &verr) {
			return done(Outcome{State: StateRejected, Field: verr.Field, Message: verr.Message})
		}
		return done(Outcome{State: StateRejected, Message: err.Error()})
	}

	if !normalized.ContactMethod.Persisted() {
		return done(Outcome{
			State:       StateRedirecting,
			RedirectURL: f.cfg.Channels.DeepLink(normalized.ContactMethod, ""),
		})
	}

	step(StateGeolocating)
	loc := leads.Location{Source: leads.GeoSourceNone}
	if f.locator != nil {
		res := f.locator.Resolve(ctx, geo.Request{SessionID: client.SessionID, IP: client.IP, UserAgent: client.UserAgent})
		loc = leads.Location{Country: res.Country, Region: res.Region, City: res.City, Source: leads.GeoSource(res.Source)}
	}

	step(StatePersisting)
	lead, err := f.store.Create(ctx, normalized.Request(), loc)
	if err != nil {
		f.logger.Error("contact: lead not saved", "error", err, "contact_method", normalized.ContactMethod)
		if f.reporter != nil {
			f.reporter.ReportFailure(ctx, "A contact form submission could not be saved: "+err.Error())
		}
		return done(Outcome{State: StatePersistFailed, Message: MsgPersistFailed})
	}
	step(StatePersisted)

	if f.clock != nil {
		if err := f.clock.Mark(ctx, client.key(), f.now()); err != nil {
			f.logger.Warn("contact: submission clock unavailable", "error", err)
		}
	}

	body := Body(normalized.Name, normalized.Email, normalized.Phone, normalized.Message, normalized.WhereFound)
	return done(Outcome{
		State:         StateRedirecting,
		Message:       MsgSent,
		Notice:        f.cfg.Channels.Notice(normalized.ContactMethod),
		RedirectURL:   f.cfg.Channels.DeepLink(normalized.ContactMethod, body),
		RedirectAfter: f.cfg.RedirectAfter,
		LeadID:        lead.ID,
	})
}

// limited reports a prior successful submission inside the cooldown. An
// unreadable clock never limits.
func (f *Flow) limited(ctx context.Context, client Client) bool {
	if f.clock == nil {
		return false
	}
	last, ok, err := f.clock.Last(ctx, client.key())
	if err != nil {
		f.logger.Warn("contact: submission clock unavailable", "error", err)
		return false
	}
	return ok && f.now().Sub(last) < f.cfg.Cooldown
}
