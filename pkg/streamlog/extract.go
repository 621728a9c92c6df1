package streamlog

import (
	"regexp"
	"strings"
)

// RobotGlyph prefixes every notification message.
const RobotGlyph = "🤖"

var (
	// ansiPattern matches SGR and erase-in-line sequences: ESC [ params m|K.
	ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*[mK]")

	// quotedTaskPattern matches a JSON-style "task": "value" field.
	quotedTaskPattern = regexp.MustCompile(`(?i)"task"\s*:\s*"(.*?)"`)

	// colonTaskPattern matches a task: value line.
	colonTaskPattern = regexp.MustCompile(`(?i)task\s*:\s*([^\n]*)`)
)

// Sanitize removes ANSI color and erase-line escape sequences from s.
// No other character is altered. Removal repeats until no sequence remains,
// so Sanitize(Sanitize(s)) == Sanitize(s) even when stripping one sequence
// splices the bytes around it into another.
func Sanitize(s string) string {
	for strings.Contains(s, "\x1b[") {
		next := ansiPattern.ReplaceAllString(s, "")
		if len(next) == len(s) {
			break
		}
		s = next
	}
	return s
}

// ExtractNotification looks for a task field in text.
//
// A quoted JSON-style field ("task": "value") takes precedence; when it is
// present its captured value is the payload even if a colon-style line also
// exists. Otherwise a colon-delimited task: line supplies the payload with
// surrounding whitespace trimmed. ok is false when neither pattern matches or
// the payload is empty.
func ExtractNotification(text string) (payload string, ok bool) {
	if m := quotedTaskPattern.FindStringSubmatch(text); m != nil {
		payload = m[1]
	} else if m := colonTaskPattern.FindStringSubmatch(text); m != nil {
		payload = strings.TrimSpace(m[1])
	}
	return payload, payload != ""
}

// notificationText formats a payload for display.
func notificationText(payload string) string {
	return RobotGlyph + " " + payload
}
