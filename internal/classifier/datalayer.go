package classifier

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/JerushaGray/ChoopScoop/internal/model"
)

// dataLayerPushMarker locates dataLayer.push call sites in page HTML.
const dataLayerPushMarker = "dataLayer.push("

var (
	// gtagEventPattern matches gtag("event", "name", ...) calls, the
	// other common way GA4 events enter a page.
	gtagEventPattern = regexp.MustCompile(`gtag\(\s*['"]event['"]\s*,\s*['"]([\w.-]+)['"]`)

	// eventKeyPattern pulls the event name out of a push argument when
	// the full object cannot be parsed.
	eventKeyPattern = regexp.MustCompile(`['"]?event['"]?\s*:\s*['"]([^'"]+)['"]`)

	// unquotedKeyPattern quotes bare JS object keys so the literal
	// parses as JSON.
	unquotedKeyPattern = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][\w$]*)\s*:`)

	// singleQuotedPattern rewrites single-quoted JS strings as
	// double-quoted JSON strings. Good enough for the object literals
	// sites actually emit; anything stranger falls back to the event
	// key regex.
	singleQuotedPattern = regexp.MustCompile(`'([^'\\]*)'`)
)

// extractDataLayerEvents parses dataLayer.push({...}) object literals
// and gtag("event", ...) calls out of raw HTML. Events are deduplicated
// by name; the first occurrence's parameters win.
func extractDataLayerEvents(content string) []model.DataLayerEvent {
	var events []model.DataLayerEvent
	seen := make(map[string]bool)

	add := func(ev model.DataLayerEvent) {
		if ev.Event == "" || seen[ev.Event] {
			return
		}
		seen[ev.Event] = true
		ev.Known = KnownGA4Event(ev.Event)
		events = append(events, ev)
	}

	for _, literal := range findPushArguments(content) {
		obj, ok := parseObjectLiteral(literal)
		if !ok {
			// Unparseable literal: salvage the event name alone.
			if m := eventKeyPattern.FindStringSubmatch(literal); m != nil {
				add(model.DataLayerEvent{Event: m[1]})
			}
			continue
		}

		name, _ := obj["event"].(string)
		if name == "" {
			continue
		}
		delete(obj, "event")
		if len(obj) == 0 {
			obj = nil
		}
		add(model.DataLayerEvent{Event: name, Parameters: obj})
	}

	for _, m := range gtagEventPattern.FindAllStringSubmatch(content, -1) {
		add(model.DataLayerEvent{Event: m[1]})
	}

	return events
}

// findPushArguments returns the brace-balanced object literal passed to
// each dataLayer.push call in the content. Pushes whose argument is not
// an object literal (arrays, variables) are skipped.
func findPushArguments(content string) []string {
	var literals []string

	for offset := 0; ; {
		idx := strings.Index(content[offset:], dataLayerPushMarker)
		if idx < 0 {
			break
		}
		start := offset + idx + len(dataLayerPushMarker)
		offset = start

		// Skip whitespace up to the argument
		for start < len(content) && (content[start] == ' ' || content[start] == '\n' || content[start] == '\t' || content[start] == '\r') {
			start++
		}
		if start >= len(content) || content[start] != '{' {
			continue
		}

		if literal, ok := balancedBraces(content[start:]); ok {
			literals = append(literals, literal)
			offset = start + len(literal)
		}
	}

	return literals
}

// balancedBraces returns the prefix of s spanning one balanced {...}
// group, tracking string literals so braces inside strings don't count.
func balancedBraces(s string) (string, bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]

		if quote != 0 {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}

		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// parseObjectLiteral converts a JS object literal into a map.
// Strict JSON is tried first; if that fails, bare keys are quoted and
// single-quoted strings rewritten before a second attempt.
func parseObjectLiteral(literal string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(literal), &obj); err == nil {
		return obj, true
	}

	fixed := singleQuotedPattern.ReplaceAllString(literal, `"$1"`)
	fixed = unquotedKeyPattern.ReplaceAllString(fixed, `$1"$2":`)
	if err := json.Unmarshal([]byte(fixed), &obj); err == nil {
		return obj, true
	}

	return nil, false
}
