package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wolfman30/agency-backoffice/internal/leads"
)

func TestDeepLinks(t *testing.T) {
	body := "Hi & bye"
	tests := []struct {
		method leads.ContactMethod
		want   string
	}{
		{leads.MethodWhatsApp, "https://wa.me/639458751971?text=Hi%20%26%20bye"},
		{leads.MethodViber, "viber://contact?number=%2B639458751971"},
		{leads.MethodEmail, "mailto:technofyph@gmail.com?subject=Inquiry%20-%20Technofy&body=Hi%20%26%20bye"},
		{leads.MethodMessenger, "https://m.me/technofy.ph"},
		{leads.MethodPhone, "tel:+63287402151"},
		{leads.ContactMethod("fax"), ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.Equal(t, tt.want, testChannels.DeepLink(tt.method, body))
		})
	}
}

func TestDeepLinkWithoutBody(t *testing.T) {
	assert.Equal(t, "https://wa.me/639458751971", testChannels.DeepLink(leads.MethodWhatsApp, ""))
}

func TestNotice(t *testing.T) {
	assert.Contains(t, testChannels.Notice(leads.MethodViber), "+639458751971")
	assert.NotEmpty(t, testChannels.Notice(leads.MethodMessenger))
	assert.Empty(t, testChannels.Notice(leads.MethodEmail))
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		code, local, want string
	}{
		{"+63", "09171234567", "+639171234567"},
		{"+63", " 917 123 4567 ", "+639171234567"},
		{"+1-US", "2025550123", "+12025550123"},
		{"+1-CA", "004165550123", "+14165550123"},
		{"", "9171234567", "+639171234567"},
		{"+999", "123456", "+999123456"},
		{"+63", "", ""},
		{"+63", "000", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.code, tt.local), "%s %q", tt.code, tt.local)
	}
}
