package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

const defaultAlertTimeout = 10 * time.Second

// EmailAlerter mails a copy of alert-worthy events to a fixed list of
// operator mailboxes, so a new lead is seen even with no admin app open.
type EmailAlerter struct {
	sender     EmailSender
	recipients []string
	timeout    time.Duration
	logger     *logging.Logger
}

// NewEmailAlerter returns nil when there is no sender or no recipients.
func NewEmailAlerter(sender EmailSender, recipients []string, logger *logging.Logger) *EmailAlerter {
	var to []string
	seen := map[string]bool{}
	for _, r := range recipients {
		r = strings.TrimSpace(r)
		if r == "" || seen[strings.ToLower(r)] {
			continue
		}
		seen[strings.ToLower(r)] = true
		to = append(to, r)
	}
	if sender == nil || len(to) == 0 {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailAlerter{sender: sender, recipients: to, timeout: defaultAlertTimeout, logger: logger}
}

// Alert sends ev to all recipients in one message. It runs under its own
// deadline detached from ctx. Failures are logged.
func (a *EmailAlerter) Alert(ctx context.Context, ev Event) {
	if a == nil || !ev.Alert {
		return
	}
	msg, err := renderAlert(ev)
	if err != nil {
		a.logger.Error("alert email render failed", "error", err, "title", ev.Title)
		return
	}
	msg.To = a.recipients

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()
	if err := a.sender.Send(ctx, msg); err != nil {
		a.logger.Warn("alert email failed", "error", err, "recipients", len(a.recipients), "title", ev.Title)
	}
}

type alertField struct {
	Label string
	Value string
}

var alertHTML = template.Must(template.New("alert").Parse(`<h2>{{.Title}}</h2>
<p>{{.Message}}</p>
{{- if .Fields}}
<table>
{{- range .Fields}}
<tr><th align="left">{{.Label}}</th><td>{{.Value}}</td></tr>
{{- end}}
</table>
{{- end}}
`))

// renderAlert builds the text and HTML bodies. Meta keys become labelled
// rows in key order; values are escaped by the template.
func renderAlert(ev Event) (EmailMessage, error) {
	fields := alertFields(ev.Meta)

	var text strings.Builder
	text.WriteString(ev.Message)
	if len(fields) > 0 {
		text.WriteString("\n")
		for _, f := range fields {
			fmt.Fprintf(&text, "\n%s: %s", f.Label, f.Value)
		}
	}

	var html bytes.Buffer
	err := alertHTML.Execute(&html, struct {
		Title   string
		Message string
		Fields  []alertField
	}{ev.Title, ev.Message, fields})
	if err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render alert: %w", err)
	}

	return EmailMessage{
		Subject:  ev.Title,
		Text:     text.String(),
		HTML:     html.String(),
		Category: string(ev.Type),
	}, nil
}

func alertFields(meta map[string]any) []alertField {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]alertField, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, alertField{
			Label: strings.ReplaceAll(k, "_", " "),
			Value: fmt.Sprint(meta[k]),
		})
	}
	return fields
}
