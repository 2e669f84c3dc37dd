package transcript

import (
	"regexp"
	"strings"
)

// directiveTags are inline markup spans the CLI injects into message bodies.
// Both the tags and everything between them are removed before filtering.
var directiveTags = []string{"skill"}

// markerSubstrings identify machine-generated segments that never belong in
// an export. A segment containing any of these is dropped whole.
var markerSubstrings = []string{
	"<system-reminder>",
	"<command-name>",
	"<command-message>",
	"<local-command-stdout>",
	"<local-command-stderr>",
	"[Request interrupted",
	"Caveat: the messages below were generated by the user",
}

// noResponsePrefix is assistant boilerplate emitted when a turn needs no reply.
const noResponsePrefix = "no response requested"

var directivePatterns = compileDirectivePatterns()

func compileDirectivePatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(directiveTags))
	for _, tag := range directiveTags {
		patterns = append(patterns, regexp.MustCompile(`(?s)<`+tag+`[^>]*>.*?</`+tag+`>`))
	}
	return patterns
}

// stripDirectives removes every directive span, body included.
func stripDirectives(s string) string {
	for _, re := range directivePatterns {
		s = re.ReplaceAllString(s, "")
	}
	return s
}

// cleanSegment normalizes one text segment for export. It returns the
// trimmed text and false when the segment should be dropped.
func cleanSegment(role Role, text string) (string, bool) {
	text = strings.TrimSpace(stripDirectives(text))
	if text == "" {
		return "", false
	}
	for _, marker := range markerSubstrings {
		if strings.Contains(text, marker) {
			return "", false
		}
	}
	if role == RoleAssistant && strings.HasPrefix(strings.ToLower(text), noResponsePrefix) {
		return "", false
	}
	return text, true
}
