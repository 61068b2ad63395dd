package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CodeBlock is a fenced block from agent output.
type CodeBlock struct {
	// Language is the fence info string, e.g. "go". May be empty.
	Language string `json:"language"`
	Content  string `json:"content"`
}

// ExtractCodeBlocks returns every closed ``` fenced block in order.
// An unterminated trailing fence is ignored.
func ExtractCodeBlocks(text string) []CodeBlock {
	var blocks []CodeBlock
	var content strings.Builder
	inBlock := false
	lang := ""
	for _, line := range strings.Split(text, "\n") {
		if rest, ok := strings.CutPrefix(line, "```"); ok {
			if inBlock {
				blocks = append(blocks, CodeBlock{Language: lang, Content: strings.TrimSpace(content.String())})
				content.Reset()
				inBlock = false
			} else {
				inBlock = true
				lang = strings.TrimSpace(rest)
			}
			continue
		}
		if inBlock {
			content.WriteString(line)
			content.WriteByte('\n')
		}
	}
	return blocks
}

// ExtractJSONBlocks returns brace-balanced blocks that start on a line
// beginning with "{" or a ```json fence. Brace depth counts raw characters,
// so braces inside string literals are not special.
func ExtractJSONBlocks(text string) []string {
	var blocks []string
	var cur strings.Builder
	inJSON := false
	depth := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inJSON && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "```json")) {
			inJSON = true
			depth = 0
			cur.Reset()
		}
		if !inJSON {
			continue
		}
		if strings.HasPrefix(trimmed, "```") {
			if depth == 0 && cur.Len() > 0 {
				inJSON = false
			}
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth <= 0 && strings.Contains(line, "}") {
			blocks = append(blocks, strings.TrimSpace(cur.String()))
			cur.Reset()
			inJSON = false
			depth = 0
		}
	}
	return blocks
}

type timestampPattern struct {
	re    *regexp.Regexp
	parse func(match string) (int64, bool)
}

func epochSeconds(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func epochMillis(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n / 1000, err == nil
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

func isoSeconds(s string) (int64, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), true
		}
	}
	return 0, false
}

// Patterns are tried in order; the first that matches and parses wins.
var timestampPatterns = []timestampPattern{
	{regexp.MustCompile(`\[(\d{10})\]`), epochSeconds},
	{regexp.MustCompile(`\[(\d{13})\]`), epochMillis},
	{regexp.MustCompile(`T(\d{10})`), epochSeconds},
	{regexp.MustCompile(`(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})?)`), isoSeconds},
}

// ParseTimestamp extracts an epoch-seconds timestamp from text. Supported
// forms: [1700000000], [1700000000000], T1700000000 and ISO-8601 date-times
// (UTC when no zone is given).
func ParseTimestamp(text string) (int64, bool) {
	for _, p := range timestampPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if ts, ok := p.parse(m[1]); ok {
			return ts, true
		}
	}
	return 0, false
}
