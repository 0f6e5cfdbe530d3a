// Package notify fans admin-relevant events out to one notification row per
// admin and serves each admin's inbox and delivery settings.
package notify

import (
	"time"
)

// Type groups notifications for icons and filtering.
type Type string

const (
	TypeLead      Type = "lead"
	TypeAnalytics Type = "analytics"
	TypeAccount   Type = "account"
	TypeSystem    Type = "system"
)

// Notification is one admin's copy of an event.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      Type           `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}

// Event is what gets fanned out. Every admin receives identical fields.
type Event struct {
	Type    Type
	Title   string
	Message string
	Meta    map[string]any
	// Alert also sends the event to the configured alert mailboxes.
	Alert bool
}

// ChangeKind is the realtime event name.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
)

// Change is a realtime row event scoped to New.UserID. Old is set on updates.
type Change struct {
	Kind ChangeKind    `json:"event"`
	New  Notification  `json:"new"`
	Old  *Notification `json:"old,omitempty"`
}

// Settings controls how an admin's client delivers new notifications.
type Settings struct {
	UserID       string    `json:"user_id"`
	SoundEnabled bool      `json:"sound_enabled"`
	DesktopPush  bool      `json:"desktop_push"`
	DNDEnabled   bool      `json:"dnd_enabled"`
	DNDStart     string    `json:"dnd_start"`
	DNDEnd       string    `json:"dnd_end"`
	Timezone     string    `json:"timezone"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DefaultSettings are written on first access.
func DefaultSettings(userID string) Settings {
	return Settings{
		UserID:       userID,
		SoundEnabled: true,
		DesktopPush:  false,
		DNDEnabled:   false,
		DNDStart:     "22:00",
		DNDEnd:       "07:00",
		Timezone:     "Asia/Manila",
	}
}

// SettingsPatch carries the fields an admin changed. Nil means unchanged.
type SettingsPatch struct {
	SoundEnabled *bool   `json:"sound_enabled,omitempty"`
	DesktopPush  *bool   `json:"desktop_push,omitempty"`
	DNDEnabled   *bool   `json:"dnd_enabled,omitempty"`
	DNDStart     *string `json:"dnd_start,omitempty"`
	DNDEnd       *string `json:"dnd_end,omitempty"`
	Timezone     *string `json:"timezone,omitempty"`
}

// Apply returns s with the patch applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.DesktopPush != nil {
		s.DesktopPush = *p.DesktopPush
	}
	if p.DNDEnabled != nil {
		s.DNDEnabled = *p.DNDEnabled
	}
	if p.DNDStart != nil {
		s.DNDStart = *p.DNDStart
	}
	if p.DNDEnd != nil {
		s.DNDEnd = *p.DNDEnd
	}
	if p.Timezone != nil {
		s.Timezone = *p.Timezone
	}
	return s
}
