package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveCORS(origins []string, req *http.Request) (*httptest.ResponseRecorder, bool) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	CORS(origins)(handler).ServeHTTP(rec, req)
	return rec, called
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/contact", nil)
	req.Header.Set("Origin", "https://technofy.ph")

	rec, called := serveCORS([]string{"https://technofy.ph/"}, req)

	if !called {
		t.Fatalf("expected handler to be called")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://technofy.ph" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "Content-Disposition") {
		t.Fatalf("expected content disposition to be exposed, got %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") != "" {
		t.Fatalf("allow methods belong on preflight only")
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/contact", nil)
	req.Header.Set("Origin", "https://phish.example")

	rec, called := serveCORS([]string{"https://technofy.ph"}, req)

	if !called {
		t.Fatalf("simple requests still reach the handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow origin header, got %q", got)
	}
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/contact", nil)
	req.Header.Set("Origin", "https://random.example")

	rec, _ := serveCORS([]string{"*"}, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://random.example" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
}

func TestCORSHandlesPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/contact", nil)
	req.Header.Set("Origin", "https://technofy.ph")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec, called := serveCORS([]string{"https://technofy.ph"}, req)

	if called {
		t.Fatalf("expected handler to not be called on preflight")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "X-Session-Id") {
		t.Fatalf("expected session header to be allowed, got %q", got)
	}
}

func TestCORSRefusesForeignPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/admin/leads", nil)
	req.Header.Set("Origin", "https://phish.example")
	req.Header.Set("Access-Control-Request-Method", "DELETE")

	rec, called := serveCORS([]string{"https://technofy.ph"}, req)

	if called {
		t.Fatalf("foreign preflight must not reach routes")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestOriginPolicyWildcardSubdomains(t *testing.T) {
	p := NewOriginPolicy([]string{"https://*.technofy.ph", "http://localhost:5173"})

	cases := map[string]bool{
		"https://preview-42.technofy.ph": true,
		"https://technofy.ph":            false,
		"http://preview.technofy.ph":     false,
		"https://eviltechnofy.ph":        false,
		"http://localhost:5173":          true,
		"HTTP://LOCALHOST:5173":          true,
		"":                               false,
	}
	for origin, want := range cases {
		if got := p.Allows(origin); got != want {
			t.Errorf("Allows(%q) = %v, want %v", origin, got, want)
		}
	}
}
