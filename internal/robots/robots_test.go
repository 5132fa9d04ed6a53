package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerAllowed(t *testing.T) {
	t.Parallel()

	content := []byte(`User-agent: *
Disallow: /admin/
Disallow: /private

User-agent: ChoopScoop
Disallow: /internal/
`)

	t.Run("matches specific user agent group", func(t *testing.T) {
		t.Parallel()
		checker, err := Parse(content, "ChoopScoop")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if checker.Allowed("/internal/reports") {
			t.Error("expected /internal/ to be disallowed for ChoopScoop")
		}
		if !checker.Allowed("/admin/panel") {
			t.Error("expected /admin/ to be allowed for ChoopScoop")
		}
	})

	t.Run("falls back to wildcard group", func(t *testing.T) {
		t.Parallel()
		checker, err := Parse(content, "SomeOtherBot")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if checker.Allowed("/admin/panel") {
			t.Error("expected /admin/ to be disallowed by wildcard group")
		}
		if !checker.Allowed("/products") {
			t.Error("expected /products to be allowed")
		}
	})

	t.Run("empty path treated as root", func(t *testing.T) {
		t.Parallel()
		checker, err := Parse(content, "*")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if !checker.Allowed("") {
			t.Error("expected root to be allowed")
		}
	})

	t.Run("zero value permits everything", func(t *testing.T) {
		t.Parallel()
		var checker Checker
		if !checker.Allowed("/anything") {
			t.Error("zero value checker must fail open")
		}
	})
}

func TestFetch(t *testing.T) {
	t.Parallel()

	t.Run("fetches and applies rules", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/robots.txt" {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte("User-agent: *\nDisallow: /blocked/\n"))
		}))
		defer srv.Close()

		checker, err := Fetch(context.Background(), srv.Client(), srv.URL+"/page", "ChoopScoop")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if checker.Allowed("/blocked/page") {
			t.Error("expected /blocked/ to be disallowed")
		}
		if !checker.Allowed("/open") {
			t.Error("expected /open to be allowed")
		}
	})

	t.Run("missing robots file fails open", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		checker, err := Fetch(context.Background(), srv.Client(), srv.URL, "ChoopScoop")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if !checker.Allowed("/anything") {
			t.Error("expected permit-all checker when robots.txt is missing")
		}
	})

	t.Run("unreachable host fails open", func(t *testing.T) {
		t.Parallel()
		checker, err := Fetch(context.Background(), &http.Client{}, "http://127.0.0.1:1/", "ChoopScoop")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if !checker.Allowed("/anything") {
			t.Error("expected permit-all checker on network error")
		}
	})

	t.Run("invalid url is rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := Fetch(context.Background(), nil, "http://bad url/", "ChoopScoop"); err == nil {
			t.Error("expected error for unparseable URL")
		}
	})
}
