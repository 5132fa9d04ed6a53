package classifier

import (
	"testing"

	"github.com/JerushaGray/ChoopScoop/internal/config"
)

// TestClassifyTags tests detection of common tags by inline pattern and
// by resource URL.
func TestClassifyTags(t *testing.T) {
	t.Parallel()

	c := New()

	t.Run("detects GTM by container ID", func(t *testing.T) {
		t.Parallel()
		html := `<script>(function(w,d,s,l,i){...})(window,document,'script','dataLayer','GTM-ABC1234');</script>`
		result := c.Classify(html)
		if !contains(result.Tags, "google_tag_manager") {
			t.Errorf("expected google_tag_manager in %v", result.Tags)
		}
	})

	t.Run("detects GA4 by script URL", func(t *testing.T) {
		t.Parallel()
		html := `<script async src="https://www.googletagmanager.com/gtag/js?id=G-XXXXXXXXXX"></script>`
		result := c.Classify(html)
		if !contains(result.Tags, "google_analytics_4") {
			t.Errorf("expected google_analytics_4 in %v", result.Tags)
		}
	})

	t.Run("detects facebook pixel init", func(t *testing.T) {
		t.Parallel()
		html := `<script>fbq('init', '1234567890123456');fbq('track', 'PageView');</script>`
		result := c.Classify(html)
		if !contains(result.Tags, "facebook_pixel") {
			t.Errorf("expected facebook_pixel in %v", result.Tags)
		}
	})

	t.Run("detects consent and ecommerce platforms", func(t *testing.T) {
		t.Parallel()
		html := `<script src="https://quantcast.mgr.consensu.org/cmp.js"></script>
		<script>Shopify.analytics.publish('page_viewed');</script>
		<script src="https://pi.pardot.com/pd.js"></script>`
		result := c.Classify(html)
		for _, want := range []string{"quantcast", "shopify_analytics", "pardot"} {
			if !contains(result.Tags, want) {
				t.Errorf("expected %s in %v", want, result.Tags)
			}
		}
	})

	t.Run("empty page has no tags", func(t *testing.T) {
		t.Parallel()
		result := c.Classify(`<html><body><p>hello</p></body></html>`)
		if len(result.Tags) != 0 {
			t.Errorf("expected no tags, got %v", result.Tags)
		}
	})

	t.Run("same content classifies identically", func(t *testing.T) {
		t.Parallel()
		html := `<script src="https://static.hotjar.com/c/hotjar-123.js"></script>UA-12345-1`
		a := c.Classify(html)
		b := c.Classify(html)
		if len(a.Tags) != len(b.Tags) {
			t.Fatalf("classification not deterministic: %v vs %v", a.Tags, b.Tags)
		}
		for i := range a.Tags {
			if a.Tags[i] != b.Tags[i] {
				t.Errorf("tag order differs: %v vs %v", a.Tags, b.Tags)
			}
		}
	})
}

// TestClassifyTechnologies tests framework detection.
func TestClassifyTechnologies(t *testing.T) {
	t.Parallel()

	c := New()
	html := `<link rel="stylesheet" href="/wp-content/themes/x/style.css">
	<div id="root" data-reactroot=""></div>
	<script src="https://cdnjs.cloudflare.com/ajax/libs/lodash.js"></script>`

	result := c.Classify(html)
	if !contains(result.Technologies, "wordpress") {
		t.Errorf("expected wordpress in %v", result.Technologies)
	}
	if !contains(result.Technologies, "react") {
		t.Errorf("expected react in %v", result.Technologies)
	}
	if !contains(result.Technologies, "cloudflare") {
		t.Errorf("expected cloudflare in %v", result.Technologies)
	}
}

// TestExtractDataLayerEvents tests parsing of dataLayer pushes and
// gtag event calls.
func TestExtractDataLayerEvents(t *testing.T) {
	t.Parallel()

	t.Run("parses JSON push", func(t *testing.T) {
		t.Parallel()
		html := `<script>dataLayer.push({"event": "purchase", "value": 42.5, "currency": "USD"});</script>`
		events := extractDataLayerEvents(html)
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if events[0].Event != "purchase" || !events[0].Known {
			t.Errorf("unexpected event: %+v", events[0])
		}
		if events[0].Parameters["currency"] != "USD" {
			t.Errorf("parameters not preserved: %v", events[0].Parameters)
		}
	})

	t.Run("parses JS object literal push", func(t *testing.T) {
		t.Parallel()
		html := `dataLayer.push({event: 'add_to_cart', items: 3});`
		events := extractDataLayerEvents(html)
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if events[0].Event != "add_to_cart" || !events[0].Known {
			t.Errorf("unexpected event: %+v", events[0])
		}
	})

	t.Run("parses gtag event call", func(t *testing.T) {
		t.Parallel()
		html := `gtag('event', 'sign_up', {method: 'email'});`
		events := extractDataLayerEvents(html)
		if len(events) != 1 || events[0].Event != "sign_up" {
			t.Fatalf("unexpected events: %+v", events)
		}
	})

	t.Run("unknown event names are flagged", func(t *testing.T) {
		t.Parallel()
		html := `dataLayer.push({"event": "custom_hero_impression"});`
		events := extractDataLayerEvents(html)
		if len(events) != 1 || events[0].Known {
			t.Fatalf("expected one unknown event, got %+v", events)
		}
	})

	t.Run("duplicate events collapse", func(t *testing.T) {
		t.Parallel()
		html := `dataLayer.push({"event": "page_view"}); dataLayer.push({"event": "page_view"});`
		events := extractDataLayerEvents(html)
		if len(events) != 1 {
			t.Errorf("expected 1 deduplicated event, got %d", len(events))
		}
	})

	t.Run("non-object pushes are skipped", func(t *testing.T) {
		t.Parallel()
		html := `dataLayer.push(arguments); dataLayer.push(['js', new Date()]);`
		if events := extractDataLayerEvents(html); len(events) != 0 {
			t.Errorf("expected no events, got %+v", events)
		}
	})
}

// TestNewWithExtras tests user-supplied pattern extension.
func TestNewWithExtras(t *testing.T) {
	t.Parallel()

	t.Run("extra pattern detects custom tag", func(t *testing.T) {
		t.Parallel()
		c, err := NewWithExtras([]config.PatternConfig{
			{
				Name:     "acme_beacon",
				Category: "Analytics",
				Patterns: []string{`ACME-[0-9]{6}`},
				URLs:     []string{"cdn.acme.test/beacon.js"},
			},
		})
		if err != nil {
			t.Fatalf("NewWithExtras failed: %v", err)
		}

		result := c.Classify(`<script>var id = "ACME-123456";</script>`)
		if !contains(result.Tags, "acme_beacon") {
			t.Errorf("expected acme_beacon in %v", result.Tags)
		}
		if c.Category("acme_beacon") != "Analytics" {
			t.Errorf("unexpected category: %q", c.Category("acme_beacon"))
		}
	})

	t.Run("invalid regex is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := NewWithExtras([]config.PatternConfig{
			{Name: "bad", Patterns: []string{`([`}},
		})
		if err == nil {
			t.Error("expected error for invalid regex")
		}
	})
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
