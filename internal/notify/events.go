package notify

import (
	"fmt"
)

// NewLead is sent when a visitor's contact form is stored.
func NewLead(leadName, leadID string) Event {
	return Event{
		Type:    TypeLead,
		Title:   "New Lead Received",
		Message: fmt.Sprintf("%s submitted a contact form", leadName),
		Meta:    map[string]any{"lead_id": leadID},
		Alert:   true,
	}
}

func LeadStatusChanged(leadName, oldStatus, newStatus, leadID string) Event {
	return Event{
		Type:    TypeLead,
		Title:   "Lead Status Updated",
		Message: fmt.Sprintf("%s: %s → %s", leadName, oldStatus, newStatus),
		Meta:    map[string]any{"lead_id": leadID, "old_status": oldStatus, "new_status": newStatus},
	}
}

func LeadNoteAdded(leadName, leadID string) Event {
	return Event{
		Type:    TypeLead,
		Title:   "Note Added",
		Message: fmt.Sprintf("Note added to %s's lead", leadName),
		Meta:    map[string]any{"lead_id": leadID},
	}
}

func LeadsExportComplete(rows int) Event {
	return Event{
		Type:    TypeLead,
		Title:   "Export Complete",
		Message: fmt.Sprintf("%d leads exported successfully", rows),
		Meta:    map[string]any{"row_count": rows},
	}
}

func AnalyticsExportComplete(rows int) Event {
	return Event{
		Type:    TypeAnalytics,
		Title:   "Export Complete",
		Message: fmt.Sprintf("%d analytics records exported successfully", rows),
		Meta:    map[string]any{"row_count": rows},
	}
}

func AdminLogin(email string) Event {
	return Event{
		Type:    TypeAccount,
		Title:   "Admin Login",
		Message: fmt.Sprintf("%s logged in successfully", email),
		Meta:    map[string]any{"email": email},
	}
}

func SettingsSaved() Event {
	return Event{
		Type:    TypeAccount,
		Title:   "Settings Saved",
		Message: "Notification settings updated successfully",
	}
}

func SystemError(message string) Event {
	return Event{
		Type:    TypeSystem,
		Title:   "System Error",
		Message: message,
	}
}
