package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wolfman30/agency-backoffice/internal/leads"
)

func visit(ipHash, country, device, referrer string) Visit {
	return Visit{IPHash: ipHash, Country: country, Device: device, Referrer: referrer}
}

func lead(country string, method leads.ContactMethod) *leads.Lead {
	return &leads.Lead{Country: country, ContactMethod: method}
}

func TestAggregateKPIs(t *testing.T) {
	visits := []Visit{
		visit("h1", "Philippines", "mobile", "https://www.google.com/search?q=x"),
		visit("h1", "Philippines", "mobile", ""),
		visit("h2", "Philippines", "desktop", "google.com"),
		visit("h3", "Japan", "desktop", "https://m.facebook.com/"),
		visit("", "Japan", "mobile", ""),
	}
	leadRows := []*leads.Lead{
		lead("Philippines", leads.MethodWhatsApp),
		lead("Philippines", leads.MethodViber),
		lead("", leads.MethodWhatsApp),
	}

	report := Aggregate(visits, leadRows)

	assert.Equal(t, 3, report.UniqueVisitors)
	assert.Equal(t, 3, report.TotalLeads)
	assert.Equal(t, "100.00", report.ConversionRate)

	assert.Equal(t, []CountryRow{
		{Country: "Philippines", Visitors: 3, Leads: 2, Conversion: "66.67"},
		{Country: "Japan", Visitors: 2, Leads: 0, Conversion: "0.00"},
	}, report.Countries)
	assert.Equal(t, []DeviceRow{{"mobile", 3}, {"desktop", 2}}, report.Devices)
	assert.Equal(t, []ReferrerRow{{"google.com", 2}, {"facebook.com", 1}}, report.Referrers)
	assert.Equal(t, []MethodRow{{"whatsapp", 2}, {"viber", 1}}, report.ContactMethods)
}

func TestAggregateEmpty(t *testing.T) {
	report := Aggregate(nil, nil)
	assert.Equal(t, 0, report.UniqueVisitors)
	assert.Equal(t, "0.00", report.ConversionRate)
	assert.NotNil(t, report.Countries)
	assert.Empty(t, report.Referrers)
}

func TestAggregateKeepsTopFive(t *testing.T) {
	var visits []Visit
	for i, c := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		for n := 0; n <= i; n++ {
			visits = append(visits, visit("", c, "", "https://"+c+".com"))
		}
	}
	report := Aggregate(visits, nil)

	assert.Len(t, report.Countries, 5)
	assert.Equal(t, "G", report.Countries[0].Country)
	assert.Equal(t, "C", report.Countries[4].Country)
	assert.Len(t, report.Referrers, 5)
	assert.Equal(t, "g.com", report.Referrers[0].Referrer)
}

func TestAggregateTiesBreakByName(t *testing.T) {
	report := Aggregate([]Visit{visit("", "Japan", "", ""), visit("", "Canada", "", "")}, nil)
	assert.Equal(t, "Canada", report.Countries[0].Country)
	assert.Equal(t, "Japan", report.Countries[1].Country)
}

func TestReferrerDomain(t *testing.T) {
	tests := map[string]string{
		"":                                  "",
		"https://www.google.com/search?q=x": "google.com",
		"http://news.bbc.co.uk/article":     "bbc.co.uk",
		"l.facebook.com/path":               "facebook.com",
		"HTTPS://Example.COM:8443/":         "example.com",
		"localhost":                         "localhost",
	}
	for in, want := range tests {
		assert.Equal(t, want, ReferrerDomain(in), in)
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("")
	assert.NoError(t, err)
	assert.Equal(t, Range7Days, r)

	r, err = ParseRange("30d")
	assert.NoError(t, err)
	assert.Equal(t, Range30Days, r)

	_, err = ParseRange("1y")
	assert.Error(t, err)
}

func TestRangeSince(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	assert.NoError(t, err)
	// 2026-03-09 23:30 UTC is 2026-03-10 07:30 in Manila.
	now := time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)

	assert.True(t, RangeToday.Since(now, manila).Equal(time.Date(2026, 3, 9, 16, 0, 0, 0, time.UTC)))
	assert.True(t, Range7Days.Since(now, manila).Equal(now.Add(-7*24*time.Hour)))
	assert.True(t, Range30Days.Since(now, nil).Equal(now.Add(-30*24*time.Hour)))
	assert.True(t, RangeToday.Since(now, nil).Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)))
}
