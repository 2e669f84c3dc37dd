// Package markdown renders transcript messages into append-ready Markdown.
package markdown

import (
	"strings"
	"time"

	"github.com/jayjongcheolpark/chat2md/internal/transcript"
)

const (
	userLabel      = "**User**:"
	assistantLabel = "**Claude**:"
)

// unsafeFilenameChars are replaced with dashes when a project name becomes
// part of a filename.
const unsafeFilenameChars = `/\:*?"<>|`

// ConvertForAppend renders messages in order. Each message becomes a role
// label line, the body, and a trailing blank line. Bodies that open with a
// table row get one extra blank line first so renderers treat them as a
// table start rather than a continuation of the label line.
func ConvertForAppend(messages []transcript.Message) string {
	var sb strings.Builder
	for _, msg := range messages {
		label := userLabel
		if msg.Role == transcript.RoleAssistant {
			label = assistantLabel
		}
		sb.WriteString(label)
		sb.WriteString("\n")
		if strings.HasPrefix(msg.Content, "|") {
			sb.WriteString("\n")
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n\n")
	}
	return sb.String()
}

// Filename returns the dated destination name for a project's export. The
// date component makes a project roll over to a fresh file each calendar
// day.
func Filename(project string, date time.Time) string {
	return date.Format("2006-01-02") + "-" + Sanitize(project) + ".md"
}

// Sanitize replaces filesystem-unsafe characters in a project name with
// dashes.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeFilenameChars, r) {
			return '-'
		}
		return r
	}, name)
}
