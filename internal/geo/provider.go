// Package geo resolves a visitor's approximate location from their IP address.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

var (
	// ErrNoUsableField is returned when a provider answered but filled no field.
	ErrNoUsableField = errors.New("geo: no usable field")

	// ErrUnknownProvider is returned for a provider name with no built-in client.
	ErrUnknownProvider = errors.New("geo: unknown provider")
)

// Result is a best-effort location. Empty fields mean unknown.
type Result struct {
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`
}

// Empty reports whether no field was resolved.
func (r Result) Empty() bool {
	return r.Country == "" && r.Region == "" && r.City == ""
}

// Provider is one third-party IP geolocation service.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, ip string) (Result, error)
}

// HTTPProvider calls a JSON geolocation endpoint and maps its fields.
type HTTPProvider struct {
	name       string
	baseURL    string
	path       func(ip string) string
	decode     func(body []byte) (Result, error)
	httpClient *http.Client
}

// Name returns the provider's short name.
func (p *HTTPProvider) Name() string { return p.name }

// SetBaseURL overrides the API base URL (useful for testing).
func (p *HTTPProvider) SetBaseURL(base string) {
	p.baseURL = strings.TrimRight(base, "/")
}

// Lookup fetches the location for ip. An empty ip asks the provider to use the caller's address.
func (p *HTTPProvider) Lookup(ctx context.Context, ip string) (Result, error) {
	url := p.baseURL + p.path(strings.TrimSpace(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("geo: %s: create request: %w", p.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("geo: %s: request: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("geo: %s: unexpected status %d", p.name, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Result{}, fmt.Errorf("geo: %s: read response: %w", p.name, err)
	}
	res, err := p.decode(body)
	if err != nil {
		return Result{}, fmt.Errorf("geo: %s: %w", p.name, err)
	}
	res = Result{
		Country: strings.TrimSpace(res.Country),
		Region:  strings.TrimSpace(res.Region),
		City:    strings.TrimSpace(res.City),
	}
	if res.Empty() {
		return Result{}, fmt.Errorf("geo: %s: %w", p.name, ErrNoUsableField)
	}
	return res, nil
}

// NewIPAPIProvider returns a client for ipapi.co.
func NewIPAPIProvider(client *http.Client) *HTTPProvider {
	return &HTTPProvider{
		name:    "ipapi",
		baseURL: "https://ipapi.co",
		path: func(ip string) string {
			if ip == "" {
				return "/json/"
			}
			return "/" + ip + "/json/"
		},
		decode: func(body []byte) (Result, error) {
			var payload struct {
				Error   bool   `json:"error"`
				Reason  string `json:"reason"`
				Country string `json:"country_name"`
				Region  string `json:"region"`
				City    string `json:"city"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return Result{}, fmt.Errorf("decode: %w", err)
			}
			if payload.Error {
				return Result{}, fmt.Errorf("api error: %s", payload.Reason)
			}
			return Result{Country: payload.Country, Region: payload.Region, City: payload.City}, nil
		},
		httpClient: orDefault(client),
	}
}

// NewIPWhoProvider returns a client for ipwho.is.
func NewIPWhoProvider(client *http.Client) *HTTPProvider {
	return &HTTPProvider{
		name:    "ipwho",
		baseURL: "https://ipwho.is",
		path:    func(ip string) string { return "/" + ip },
		decode: func(body []byte) (Result, error) {
			var payload struct {
				Success *bool  `json:"success"`
				Message string `json:"message"`
				Country string `json:"country"`
				Region  string `json:"region"`
				City    string `json:"city"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return Result{}, fmt.Errorf("decode: %w", err)
			}
			if payload.Success != nil && !*payload.Success {
				return Result{}, fmt.Errorf("api error: %s", payload.Message)
			}
			return Result{Country: payload.Country, Region: payload.Region, City: payload.City}, nil
		},
		httpClient: orDefault(client),
	}
}

// NewIPAPIComProvider returns a client for ip-api.com.
func NewIPAPIComProvider(client *http.Client) *HTTPProvider {
	return &HTTPProvider{
		name:    "ipapicom",
		baseURL: "http://ip-api.com",
		path:    func(ip string) string { return "/json/" + ip },
		decode: func(body []byte) (Result, error) {
			var payload struct {
				Status  string `json:"status"`
				Message string `json:"message"`
				Country string `json:"country"`
				Region  string `json:"regionName"`
				City    string `json:"city"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return Result{}, fmt.Errorf("decode: %w", err)
			}
			if payload.Status != "" && payload.Status != "success" {
				return Result{}, fmt.Errorf("api error: %s", payload.Message)
			}
			return Result{Country: payload.Country, Region: payload.Region, City: payload.City}, nil
		},
		httpClient: orDefault(client),
	}
}

// ProvidersByName builds the built-in providers in the given order.
func ProvidersByName(names []string, client *http.Client) ([]Provider, error) {
	out := make([]Provider, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "ipapi":
			out = append(out, NewIPAPIProvider(client))
		case "ipwho":
			out = append(out, NewIPWhoProvider(client))
		case "ipapicom":
			out = append(out, NewIPAPIComProvider(client))
		case "":
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
		}
	}
	return out, nil
}

func orDefault(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}
