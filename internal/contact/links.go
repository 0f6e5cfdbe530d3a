package contact

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/wolfman30/agency-backoffice/internal/leads"
)

// Channels holds the business's own handles for each outbound channel.
type Channels struct {
	WhatsAppNumber  string // E.164 digits without "+"
	ViberNumber     string // E.164 digits without "+"
	Email           string
	EmailSubject    string
	MessengerHandle string
	PhoneNumber     string // dialable, with "+"
}

// Body is the prefilled message sent to chat channels.
func Body(name, email, phone, message, whereFound string) string {
	return fmt.Sprintf("Name: %s\nEmail: %s\nPhone: %s\n\n%s\n\nFound us via: %s", name, email, phone, message, whereFound)
}

// DeepLink returns the outbound URL for method. Channels that cannot carry
// a prefilled message ignore body. Unknown methods return "".
func (c Channels) DeepLink(method leads.ContactMethod, body string) string {
	switch method {
	case leads.MethodWhatsApp:
		link := "https://wa.me/" + strings.TrimPrefix(c.WhatsAppNumber, "+")
		if body != "" {
			link += "?text=" + escapeComponent(body)
		}
		return link
	case leads.MethodViber:
		return "viber://contact?number=%2B" + strings.TrimPrefix(c.ViberNumber, "+")
	case leads.MethodEmail:
		link := "mailto:" + c.Email + "?subject=" + escapeComponent(c.EmailSubject)
		if body != "" {
			link += "&body=" + escapeComponent(body)
		}
		return link
	case leads.MethodMessenger:
		return "https://m.me/" + c.MessengerHandle
	case leads.MethodPhone:
		return "tel:" + c.PhoneNumber
	}
	return ""
}

// Notice is an extra hint for channels that may not open cleanly.
func (c Channels) Notice(method leads.ContactMethod) string {
	switch method {
	case leads.MethodViber:
		return fmt.Sprintf("If Viber doesn't open, please search for +%s in your Viber app", strings.TrimPrefix(c.ViberNumber, "+"))
	case leads.MethodMessenger:
		return "Please send your message in the chat that opens"
	}
	return ""
}

// escapeComponent percent-encodes s for a query value, spaces as %20.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
