package analytics

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/wolfman30/agency-backoffice/internal/leads"
	"golang.org/x/net/publicsuffix"
)

const topN = 5

// Report is the dashboard summary for one date range.
type Report struct {
	UniqueVisitors int           `json:"unique_visitors"`
	TotalLeads     int           `json:"total_leads"`
	ConversionRate string        `json:"conversion_rate"`
	Countries      []CountryRow  `json:"countries"`
	Devices        []DeviceRow   `json:"devices"`
	Referrers      []ReferrerRow `json:"referrers"`
	ContactMethods []MethodRow   `json:"contact_methods"`
}

type CountryRow struct {
	Country    string `json:"country"`
	Visitors   int    `json:"visitors"`
	Leads      int    `json:"leads"`
	Conversion string `json:"conversion"`
}

type DeviceRow struct {
	Device   string `json:"device"`
	Visitors int    `json:"visitors"`
}

type ReferrerRow struct {
	Referrer string `json:"referrer"`
	Visitors int    `json:"visitors"`
}

type MethodRow struct {
	Method string `json:"method"`
	Count  int    `json:"count"`
}

// Aggregate computes KPIs and breakdowns. Unique visitors count distinct
// non-empty ip hashes; breakdown visitor columns count visits.
func Aggregate(visits []Visit, leadRows []*leads.Lead) Report {
	hashes := make(map[string]struct{})
	countries := make(map[string]*CountryRow)
	devices := make(map[string]int)
	referrers := make(map[string]int)
	methods := make(map[string]int)

	country := func(name string) *CountryRow {
		row, ok := countries[name]
		if !ok {
			row = &CountryRow{Country: name}
			countries[name] = row
		}
		return row
	}

	for _, v := range visits {
		if h := strings.TrimSpace(v.IPHash); h != "" {
			hashes[h] = struct{}{}
		}
		if v.Country != "" {
			country(v.Country).Visitors++
		}
		if v.Device != "" {
			devices[v.Device]++
		}
		if ref := ReferrerDomain(v.Referrer); ref != "" {
			referrers[ref]++
		}
	}
	for _, l := range leadRows {
		if l.Country != "" {
			country(l.Country).Leads++
		}
		if l.ContactMethod != "" {
			methods[string(l.ContactMethod)]++
		}
	}

	report := Report{
		UniqueVisitors: len(hashes),
		TotalLeads:     len(leadRows),
		ConversionRate: percent(len(leadRows), len(hashes)),
		Countries:      []CountryRow{},
		Devices:        []DeviceRow{},
		Referrers:      []ReferrerRow{},
		ContactMethods: []MethodRow{},
	}

	for _, row := range countries {
		row.Conversion = percent(row.Leads, row.Visitors)
		report.Countries = append(report.Countries, *row)
	}
	sort.Slice(report.Countries, func(i, j int) bool {
		a, b := report.Countries[i], report.Countries[j]
		if a.Visitors != b.Visitors {
			return a.Visitors > b.Visitors
		}
		return a.Country < b.Country
	})
	report.Countries = top(report.Countries)

	for name, n := range devices {
		report.Devices = append(report.Devices, DeviceRow{Device: name, Visitors: n})
	}
	sort.Slice(report.Devices, func(i, j int) bool {
		a, b := report.Devices[i], report.Devices[j]
		if a.Visitors != b.Visitors {
			return a.Visitors > b.Visitors
		}
		return a.Device < b.Device
	})

	for name, n := range referrers {
		report.Referrers = append(report.Referrers, ReferrerRow{Referrer: name, Visitors: n})
	}
	sort.Slice(report.Referrers, func(i, j int) bool {
		a, b := report.Referrers[i], report.Referrers[j]
		if a.Visitors != b.Visitors {
			return a.Visitors > b.Visitors
		}
		return a.Referrer < b.Referrer
	})
	report.Referrers = top(report.Referrers)

	for name, n := range methods {
		report.ContactMethods = append(report.ContactMethods, MethodRow{Method: name, Count: n})
	}
	sort.Slice(report.ContactMethods, func(i, j int) bool {
		a, b := report.ContactMethods[i], report.ContactMethods[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Method < b.Method
	})
	return report
}

func top[T any](rows []T) []T {
	if len(rows) > topN {
		return rows[:topN]
	}
	return rows
}

// percent renders num/den as a percentage with two decimals; "0.00" when den is 0.
func percent(num, den int) string {
	if den <= 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(num)*100/float64(den))
}

// ReferrerDomain reduces a referrer URL or hostname to its registrable
// domain, so www.google.com and google.com group together.
func ReferrerDomain(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	host := ref
	if strings.Contains(ref, "://") {
		if u, err := url.Parse(ref); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	} else if i := strings.IndexAny(host, "/:"); i >= 0 {
		host = host[:i]
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}
