package classifier

import "regexp"

// TagPattern describes how to detect one marketing or tracking tag.
// A tag matches when any of its regex patterns matches the page HTML
// or any of its URL substrings appears in the page's resource URLs.
type TagPattern struct {
	// Name is the tag identifier reported in page records.
	Name string

	// Category groups the tag in reports (e.g., "Analytics").
	Category string

	// Patterns are compiled regexes matched against the raw HTML.
	Patterns []*regexp.Regexp

	// URLs are substrings matched against the HTML (covering script
	// src attributes and inline loader snippets alike).
	URLs []string
}

// builtinTagPatterns is the built-in detection catalog.
// Identifier formats (GTM-*, G-*, UA-*, pixel IDs) follow each vendor's
// published format.
var builtinTagPatterns = []TagPattern{
	// Google products
	{
		Name:     "google_tag_manager",
		Category: "Tag Management",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`GTM-[A-Z0-9]{4,}`)},
		URLs:     []string{"googletagmanager.com/gtm.js", "googletagmanager.com/ns.html"},
	},
	{
		Name:     "google_analytics_4",
		Category: "Analytics",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`G-[A-Z0-9]{10,}`)},
		URLs:     []string{"googletagmanager.com/gtag/js", "google-analytics.com/g/collect"},
	},
	{
		Name:     "universal_analytics",
		Category: "Analytics",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`UA-\d+-\d+`)},
		URLs:     []string{"google-analytics.com/analytics.js", "google-analytics.com/ga.js"},
	},
	{
		Name:     "google_ads",
		Category: "Advertising",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`AW-\d+`)},
		URLs:     []string{"googleadservices.com/pagead/conversion"},
	},
	{
		Name:     "google_optimize",
		Category: "A/B Testing",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`GTM-[A-Z0-9]{4,}`)},
		URLs:     []string{"www.googleoptimize.com/optimize.js"},
	},

	// Meta
	{
		Name:     "facebook_pixel",
		Category: "Advertising",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`fbq\(['"]init['"]\s*,\s*['"]\d+['"]`)},
		URLs:     []string{"connect.facebook.net/en_US/fbevents.js"},
	},
	{
		Name:     "facebook_capi",
		Category: "Server-Side Tracking",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`facebook\.com/tr`)},
		URLs:     []string{"graph.facebook.com"},
	},

	// Social advertising
	{
		Name:     "linkedin_insight",
		Category: "Advertising",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`_linkedin_partner_id\s*=\s*['"]\d+['"]`)},
		URLs:     []string{"snap.licdn.com/li.lms-analytics", "px.ads.linkedin.com"},
	},
	{
		Name:     "tiktok_pixel",
		Category: "Advertising",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`ttq\.load\(['"][A-Z0-9]+['"]`)},
		URLs:     []string{"analytics.tiktok.com/i18n/pixel/events.js"},
	},
	{
		Name:     "twitter_pixel",
		Category: "Advertising",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`twq\(['"]init['"]`)},
		URLs:     []string{"static.ads-twitter.com/uwt.js"},
	},
	{
		Name:     "pinterest_tag",
		Category: "Advertising",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`pintrk\(['"]load['"]`)},
		URLs:     []string{"s.pinimg.com/ct/core.js"},
	},
	{
		Name:     "snapchat_pixel",
		Category: "Advertising",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`snaptr\(['"]init['"]`)},
		URLs:     []string{"sc-static.net/scevent.min.js"},
	},
	{
		Name:     "reddit_pixel",
		Category: "Advertising",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`rdt\(['"]init['"]`)},
		URLs:     []string{"www.redditstatic.com/ads/pixel.js"},
	},
	{
		Name:     "bing_ads",
		Category: "Advertising",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`UET_TAG_ID`)},
		URLs:     []string{"bat.bing.com"},
	},

	// Adobe
	{
		Name:     "adobe_analytics",
		Category: "Analytics",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`s_account\s*=`),
			regexp.MustCompile(`var s=s_gi\(`),
		},
		URLs: []string{"omtrdc.net", "adobedtm.com"},
	},
	{
		Name:     "adobe_launch",
		Category: "Tag Management",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`//assets\.adobedtm\.com/`)},
		URLs:     []string{"assets.adobedtm.com/launch"},
	},
	{
		Name:     "adobe_target",
		Category: "A/B Testing",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`adobe\.target`)},
		URLs:     []string{"tt.omtrdc.net"},
	},

	// Other tag managers and CDPs
	{
		Name:     "tealium",
		Category: "Tag Management",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`utag\.js`)},
		URLs:     []string{"tags.tiqcdn.com"},
	},
	{
		Name:     "segment",
		Category: "Customer Data Platform",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`analytics\.load\(['"][a-zA-Z0-9]+['"]`)},
		URLs:     []string{"cdn.segment.com/analytics.js"},
	},

	// Analytics platforms
	{
		Name:     "matomo",
		Category: "Analytics",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`_paq\.push`),
			regexp.MustCompile(`Matomo\.getTracker`),
		},
		URLs: []string{"matomo.js", "piwik.js"},
	},
	{
		Name:     "mixpanel",
		Category: "Analytics",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`mixpanel\.init\(['"][a-zA-Z0-9]+['"]`)},
		URLs:     []string{"cdn.mxpnl.com/libs/mixpanel"},
	},
	{
		Name:     "heap",
		Category: "Analytics",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`heap\.load\(['"]\d+['"]`)},
		URLs:     []string{"cdn.heapanalytics.com"},
	},
	{
		Name:     "amplitude",
		Category: "Analytics",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`amplitude\.getInstance\(\)\.init\(['"][a-zA-Z0-9]+['"]`)},
		URLs:     []string{"cdn.amplitude.com"},
	},
	{
		Name:     "yandex_metrica",
		Category: "Analytics",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`ym\(\d+`)},
		URLs:     []string{"mc.yandex.ru/metrika"},
	},
	{
		Name:     "kissmetrics",
		Category: "Analytics",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`_kmq\.push`)},
		URLs:     []string{"i.kissmetrics.com"},
	},
	{
		Name:     "clicky",
		Category: "Analytics",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`clicky_site_ids\.push\(\d+\)`)},
		URLs:     []string{"static.getclicky.com"},
	},

	// Heatmaps and session recording
	{
		Name:     "hotjar",
		Category: "Heatmaps",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`hjid:\s*\d+`),
			regexp.MustCompile(`hj\(['"](?:hjid|identify)['"]`),
		},
		URLs: []string{"static.hotjar.com"},
	},
	{
		Name:     "fullstory",
		Category: "Session Recording",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`FS\.identify`)},
		URLs:     []string{"fullstory.com/s/fs.js"},
	},
	{
		Name:     "microsoft_clarity",
		Category: "Analytics",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`clarity\(['"](?:start|set)['"]`)},
		URLs:     []string{"www.clarity.ms", "clarity.ms"},
	},
	{
		Name:     "mouseflow",
		Category: "Heatmaps",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`_mfq\.push`)},
		URLs:     []string{"cdn.mouseflow.com"},
	},
	{
		Name:     "crazy_egg",
		Category: "Heatmaps",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`crazyegg`)},
		URLs:     []string{"script.crazyegg.com"},
	},
	{
		Name:     "lucky_orange",
		Category: "Heatmaps",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`_loq\.push`),
			regexp.MustCompile(`LOQ_`),
		},
		URLs: []string{"d10lpsik1i8c69.cloudfront.net"},
	},

	// A/B testing
	{
		Name:     "optimizely",
		Category: "A/B Testing",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`optimizely`)},
		URLs:     []string{"cdn.optimizely.com"},
	},
	{
		Name:     "vwo",
		Category: "A/B Testing",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`_vwo_`)},
		URLs:     []string{"dev.visualwebsiteoptimizer.com"},
	},
	{
		Name:     "ab_tasty",
		Category: "A/B Testing",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`ABTasty`)},
		URLs:     []string{"try.abtasty.com"},
	},

	// Consent management
	{
		Name:     "onetrust",
		Category: "Consent Management",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`OneTrust`),
			regexp.MustCompile(`optanon`),
		},
		URLs: []string{"cdn.cookielaw.org"},
	},
	{
		Name:     "cookiebot",
		Category: "Consent Management",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`Cookiebot`)},
		URLs:     []string{"consent.cookiebot.com"},
	},
	{
		Name:     "trustarc",
		Category: "Consent Management",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`TrustArc`)},
		URLs:     []string{"consent.trustarc.com"},
	},
	{
		Name:     "quantcast",
		Category: "Consent Management",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`quantserve\.com`),
			regexp.MustCompile(`__qca`),
		},
		URLs: []string{"quantcast.mgr.consensu.org"},
	},

	// Marketing automation and support
	{
		Name:     "hubspot",
		Category: "Marketing Automation",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`_hsq\.push`),
			regexp.MustCompile(`portalId:\s*\d+`),
		},
		URLs: []string{"js.hs-scripts.com", "js.hubspot.com"},
	},
	{
		Name:     "marketo",
		Category: "Marketing Automation",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`Munchkin\.init\(['"][0-9]+-[A-Z0-9-]+['"]`)},
		URLs:     []string{"munchkin.marketo.net"},
	},
	{
		Name:     "pardot",
		Category: "Marketing Automation",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`piTracker`),
			regexp.MustCompile(`pardot`),
		},
		URLs: []string{"pi.pardot.com"},
	},
	{
		Name:     "intercom",
		Category: "Customer Support",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`Intercom\(['"]boot['"]`)},
		URLs:     []string{"widget.intercom.io"},
	},
	{
		Name:     "drift",
		Category: "Customer Support",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`drift\.load\(['"][a-z0-9]+['"]`)},
		URLs:     []string{"js.driftt.com"},
	},
	{
		Name:     "zendesk",
		Category: "Customer Support",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`zE\(function\(\)`)},
		URLs:     []string{"static.zdassets.com"},
	},

	// E-commerce
	{
		Name:     "shopify_analytics",
		Category: "E-commerce",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`Shopify\.analytics`)},
		URLs:     []string{"cdn.shopify.com/s/javascripts/tricorder"},
	},

	// Retargeting
	{
		Name:     "criteo",
		Category: "Retargeting",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`criteo`)},
		URLs:     []string{"static.criteo.net"},
	},
}

// builtinTechnologyPatterns detects site frameworks and platforms.
var builtinTechnologyPatterns = []TagPattern{
	{
		Name:     "wordpress",
		Category: "CMS",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`wp-content/`),
			regexp.MustCompile(`wp-includes/`),
		},
	},
	{
		Name:     "shopify",
		Category: "E-commerce",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`cdn\.shopify\.com`),
			regexp.MustCompile(`Shopify\.theme`),
		},
	},
	{
		Name:     "react",
		Category: "JavaScript Framework",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`React\.createElement`),
			regexp.MustCompile(`__REACT`),
			regexp.MustCompile(`data-reactroot`),
		},
	},
	{
		Name:     "vue",
		Category: "JavaScript Framework",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`__VUE__`),
			regexp.MustCompile(`Vue\.js`),
		},
	},
	{
		Name:     "angular",
		Category: "JavaScript Framework",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`ng-app`),
			regexp.MustCompile(`ng-controller`),
		},
	},
	{
		Name:     "next_js",
		Category: "JavaScript Framework",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`__NEXT_DATA__`),
			regexp.MustCompile(`_next/static`),
		},
	},
	{
		Name:     "jquery",
		Category: "JavaScript Library",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`(?i)jquery`)},
	},
	{
		Name:     "bootstrap",
		Category: "CSS Framework",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`(?i)bootstrap`)},
	},
	{
		Name:     "cloudflare",
		Category: "CDN",
		Patterns: []*regexp.Regexp{regexp.MustCompile(`cloudflare`)},
	},
}

// ga4Events is the GA4 recommended event catalog, used to flag known
// event names in dataLayer pushes.
var ga4Events = map[string]string{
	"page_view":           "Page View",
	"scroll":              "Scroll Tracking",
	"click":               "Click Tracking",
	"view_item":           "Product View",
	"add_to_cart":         "Add to Cart",
	"remove_from_cart":    "Remove from Cart",
	"view_cart":           "View Cart",
	"begin_checkout":      "Begin Checkout",
	"add_payment_info":    "Payment Info Added",
	"add_shipping_info":   "Shipping Info Added",
	"purchase":            "Purchase",
	"refund":              "Refund",
	"view_item_list":      "Product List View",
	"select_item":         "Product Click",
	"view_promotion":      "Promotion View",
	"select_promotion":    "Promotion Click",
	"login":               "Login",
	"sign_up":             "Sign Up",
	"share":               "Share",
	"search":              "Search",
	"generate_lead":       "Lead Generation",
	"view_search_results": "Search Results View",
	"file_download":       "File Download",
	"form_start":          "Form Start",
	"form_submit":         "Form Submit",
}

// KnownGA4Event reports whether name is a GA4 recommended event.
func KnownGA4Event(name string) bool {
	_, ok := ga4Events[name]
	return ok
}
