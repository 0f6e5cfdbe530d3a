package leads

import (
	"time"
)

// ContactMethod is the channel a visitor picked on the contact form.
type ContactMethod string

const (
	MethodWhatsApp  ContactMethod = "whatsapp"
	MethodViber     ContactMethod = "viber"
	MethodMessenger ContactMethod = "messenger"
	MethodEmail     ContactMethod = "email"
	// MethodPhone selects the call-us branch. Phone intents are never stored.
	MethodPhone ContactMethod = "phone"
)

// Valid reports whether m is one of the five form channels.
func (m ContactMethod) Valid() bool {
	switch m {
	case MethodWhatsApp, MethodViber, MethodMessenger, MethodEmail, MethodPhone:
		return true
	}
	return false
}

// Persisted reports whether submissions on this channel create a lead row.
func (m ContactMethod) Persisted() bool {
	return m.Valid() && m != MethodPhone
}

// Status tracks where a lead is in the follow-up pipeline.
type Status string

const (
	StatusNew      Status = "New"
	StatusFollowUp Status = "Follow Up"
	StatusClosed   Status = "Closed"
)

func (s Status) Valid() bool {
	return s == StatusNew || s == StatusFollowUp || s == StatusClosed
}

// GeoSource explains why the location columns are filled, empty or skipped.
type GeoSource string

const (
	GeoSourceIP      GeoSource = "ip"
	GeoSourceBlocked GeoSource = "blocked"
	GeoSourceNone    GeoSource = "none"
)

// Location is the best-effort geolocation attached to a lead.
// Each field may be empty independently.
type Location struct {
	Country string    `json:"country,omitempty"`
	Region  string    `json:"region,omitempty"`
	City    string    `json:"city,omitempty"`
	Source  GeoSource `json:"geo_source"`
}

// Lead represents a contact form submission kept for CRM follow-up
type Lead struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Phone         string        `json:"phone,omitempty"`
	Message       string        `json:"message"`
	WhereFound    string        `json:"where_did_you_find_us,omitempty"`
	ContactMethod ContactMethod `json:"contact_method"`
	Status        Status        `json:"status"`
	Notes         string        `json:"notes,omitempty"`
	Country       string        `json:"country,omitempty"`
	Region        string        `json:"region,omitempty"`
	City          string        `json:"city,omitempty"`
	GeoSource     GeoSource     `json:"geo_source"`
	CreatedAt     time.Time     `json:"created_at"`
}

// CreateLeadRequest is the raw contact form payload before validation
type CreateLeadRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Message       string `json:"message"`
	WhereFound    string `json:"where_did_you_find_us,omitempty"`
	ContactMethod string `json:"contact_method"`
}

// NormalizedLead is a trimmed, validated submission.
type NormalizedLead struct {
	Name          string
	Email         string
	Phone         string
	Message       string
	WhereFound    string
	ContactMethod ContactMethod
}

// LeadUpdate carries the admin-editable fields. Nil means unchanged.
type LeadUpdate struct {
	Status *Status `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// ListLeadsFilter narrows the admin lead list.
type ListLeadsFilter struct {
	Status Status
	Source string
	Search string
	Limit  int
	Offset int
}
