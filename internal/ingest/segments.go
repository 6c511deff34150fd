package ingest

import "strings"

type segment struct {
	isMath bool
	text   string
}

const (
	mathOpen  = "[imath]"
	mathClose = "[/imath]"
)

// splitSegments splits a document body into alternating plain-text and
// math segments delimited by [imath]...[/imath] markers.
func splitSegments(body string) []segment {
	var out []segment
	rest := body
	for {
		start := strings.Index(rest, mathOpen)
		if start < 0 {
			if rest != "" {
				out = append(out, segment{text: rest})
			}
			return out
		}
		if start > 0 {
			out = append(out, segment{text: rest[:start]})
		}
		rest = rest[start+len(mathOpen):]

		end := strings.Index(rest, mathClose)
		if end < 0 {
			// Unterminated marker: treat the remainder as plain text
			// rather than dropping it silently.
			out = append(out, segment{text: rest})
			return out
		}
		out = append(out, segment{isMath: true, text: rest[:end]})
		rest = rest[end+len(mathClose):]
	}
}

// tokenize splits plain text into lowercase word tokens, the minimal
// policy internal/textindex needs; stemming and stop-word removal are out
// of scope.
func tokenize(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	for _, r := range text {
		if isWordRune(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
