package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "alerts@technofy.ph",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "alerts@technofy.ph",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != defaultFromName {
		t.Errorf("expected default from name %q, got %q", defaultFromName, sender.fromName)
	}
}

func TestSendGridSender_Send_Rejects(t *testing.T) {
	if err := (&SendGridSender{}).Send(context.Background(), EmailMessage{To: []string{"ops@technofy.ph"}}); err == nil {
		t.Error("expected error when client is nil")
	}
	sender := NewSendGridSender(SendGridConfig{APIKey: "k", FromEmail: "alerts@technofy.ph"}, nil)
	if err := sender.Send(context.Background(), EmailMessage{Subject: "x"}); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("expected ErrNoRecipients, got %v", err)
	}
}

func TestSendGridSender_BuildsOnePersonalization(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "k", FromEmail: "alerts@technofy.ph", FromName: "Technofy"}, nil)
	body := mail.GetRequestBody(sender.build(EmailMessage{
		To:       []string{"ops@technofy.ph", "owner@technofy.ph"},
		Subject:  "New Lead Received",
		Text:     "Ana submitted a contact form",
		HTML:     "<p>Ana submitted a contact form</p>",
		Category: "lead",
	}))

	var payload struct {
		From struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"from"`
		Subject          string `json:"subject"`
		Personalizations []struct {
			To []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations"`
		Content []struct {
			Type string `json:"type"`
		} `json:"content"`
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if payload.From.Email != "alerts@technofy.ph" || payload.From.Name != "Technofy" {
		t.Errorf("unexpected from: %+v", payload.From)
	}
	if len(payload.Personalizations) != 1 || len(payload.Personalizations[0].To) != 2 {
		t.Fatalf("expected both recipients on one personalization, got %+v", payload.Personalizations)
	}
	if len(payload.Content) != 2 || payload.Content[0].Type != "text/plain" || payload.Content[1].Type != "text/html" {
		t.Errorf("expected text then html content, got %+v", payload.Content)
	}
	if len(payload.Categories) != 1 || payload.Categories[0] != "lead" {
		t.Errorf("unexpected categories: %v", payload.Categories)
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_BuildsMessage(t *testing.T) {
	client := &fakeSES{}
	sender := &SESSender{client: client, from: "Technofy <alerts@technofy.ph>", logger: logging.Default()}

	err := sender.Send(context.Background(), EmailMessage{
		To:       []string{"ops@technofy.ph", "owner@technofy.ph"},
		Subject:  "New Lead Received",
		Text:     "Ana submitted a contact form",
		Category: "lead",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := aws.ToString(client.input.FromEmailAddress); got != "Technofy <alerts@technofy.ph>" {
		t.Errorf("unexpected from: %s", got)
	}
	if got := client.input.Destination.ToAddresses; len(got) != 2 || got[1] != "owner@technofy.ph" {
		t.Errorf("unexpected to: %v", got)
	}
	if client.input.Content.Simple.Body.Html != nil {
		t.Error("html body should be unset without HTML")
	}
	if tags := client.input.EmailTags; len(tags) != 1 || aws.ToString(tags[0].Value) != "lead" {
		t.Errorf("unexpected tags: %+v", tags)
	}

	if err := sender.Send(context.Background(), EmailMessage{}); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("expected ErrNoRecipients, got %v", err)
	}
	client.err = errors.New("throttled")
	if err := sender.Send(context.Background(), EmailMessage{To: []string{"ops@technofy.ph"}}); err == nil {
		t.Error("expected SES error to surface")
	}
}

func TestNewSESSender_NilWithoutSender(t *testing.T) {
	if NewSESSender(nil, SESConfig{FromEmail: "a@b.c"}, nil) != nil {
		t.Error("expected nil without client")
	}
}

type recordingSender struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func TestEmailAlerter_OnlyAlertEvents(t *testing.T) {
	sender := &recordingSender{}
	alerter := NewEmailAlerter(sender, []string{" ops@technofy.ph ", "", "OPS@technofy.ph", "owner@technofy.ph"}, nil)

	alerter.Alert(context.Background(), NewLead("Ana <script>", "lead-1"))
	alerter.Alert(context.Background(), SettingsSaved())

	if len(sender.sent) != 1 {
		t.Fatalf("expected a single alert email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if len(msg.To) != 2 || msg.To[0] != "ops@technofy.ph" || msg.To[1] != "owner@technofy.ph" {
		t.Errorf("unexpected recipients: %v", msg.To)
	}
	if msg.Subject != "New Lead Received" || msg.Category != "lead" {
		t.Errorf("unexpected alert: %+v", msg)
	}
	if !strings.Contains(msg.Text, "lead id: lead-1") {
		t.Errorf("expected meta in text body, got %q", msg.Text)
	}
	if !strings.Contains(msg.HTML, "<td>lead-1</td>") || strings.Contains(msg.HTML, "<script>") {
		t.Errorf("expected escaped html with meta row, got %q", msg.HTML)
	}
}

func TestEmailAlerter_FailureIsLogged(t *testing.T) {
	sender := &recordingSender{err: errors.New("mailbox full")}
	alerter := NewEmailAlerter(sender, []string{"ops@technofy.ph"}, nil)
	alerter.Alert(context.Background(), NewLead("Ana", "lead-1"))
	if len(sender.sent) != 0 {
		t.Errorf("expected nothing recorded, got %d", len(sender.sent))
	}
}

func TestNewEmailAlerter_NilWhenUnconfigured(t *testing.T) {
	if NewEmailAlerter(nil, []string{"ops@technofy.ph"}, nil) != nil {
		t.Error("expected nil alerter without sender")
	}
	if NewEmailAlerter(NewLogSender(nil), nil, nil) != nil {
		t.Error("expected nil alerter without recipients")
	}
	var a *EmailAlerter
	a.Alert(context.Background(), NewLead("x", "y"))
}
