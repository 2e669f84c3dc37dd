// Package transcript decodes newline-delimited chat logs incrementally.
//
// A transcript is append-only: the parser counts line terminators to compute
// the offset watermark and only ever looks at records past the previous one,
// so a file that hasn't grown costs a single read and no decoding.
package transcript

import (
	"encoding/json"
	"os"
	"strings"
	"time"
)

// Role identifies the speaker of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one exported conversation message.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time // zero when the record carried none
}

// ParseResult holds the messages extracted from one incremental read and the
// new offset watermark. TotalLines counts line terminators in the file, so a
// trailing unterminated line is left for a later pass.
type ParseResult struct {
	Messages   []Message
	TotalLines int
}

// record mirrors one transcript line.
type record struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Message   struct {
		Content content `json:"content"`
	} `json:"message"`
}

// ParseNewLines reads the transcript at path and extracts messages from
// records [afterLine, totalLines). since, when non-zero, drops messages
// whose parseable timestamp is earlier. An unreadable file yields an empty
// result with the watermark unchanged; malformed records are skipped
// individually and never abort the file.
func ParseNewLines(path string, afterLine int, since time.Time) ParseResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ParseResult{TotalLines: afterLine}
	}

	text := string(data)
	totalLines := strings.Count(text, "\n")
	if totalLines <= afterLine {
		return ParseResult{TotalLines: totalLines}
	}

	var messages []Message
	records := strings.Split(text, "\n")
	for _, raw := range records[afterLine:totalLines] {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		role := Role(rec.Type)
		if role != RoleUser && role != RoleAssistant {
			continue
		}
		ts := parseTimestamp(rec.Timestamp)
		if !since.IsZero() && !ts.IsZero() && ts.Before(since) {
			continue
		}
		for _, seg := range rec.Message.Content.Segments() {
			cleaned, ok := cleanSegment(role, seg)
			if !ok {
				continue
			}
			messages = append(messages, Message{Role: role, Content: cleaned, Timestamp: ts})
		}
	}
	return ParseResult{Messages: messages, TotalLines: totalLines}
}

// parseTimestamp tries the timestamp formats observed in transcript logs:
// RFC3339, RFC3339 with fractional seconds, and a timezone-less ISO form.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
