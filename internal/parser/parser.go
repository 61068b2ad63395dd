// Package parser classifies raw agent output into typed response events.
//
// Classification is a fixed, ordered list of rules: the first rule whose
// markers appear in the text decides the kind. Text matching no rule is a
// plain message. Parsing is pure: the same input always yields the same
// Response, and nothing depends on the clock.
package parser

import (
	"strings"
)

// Kind is the classified type of an agent response.
type Kind string

const (
	KindMessage    Kind = "message"
	KindToolCall   Kind = "tool_call"
	KindError      Kind = "error"
	KindCompletion Kind = "completion"
)

// ToolCall is one tool invocation found in agent output.
type ToolCall struct {
	ToolName  string            `json:"tool_name"`
	Arguments map[string]string `json:"arguments"`
}

// Response is the classification of one block of agent output.
type Response struct {
	Success   bool       `json:"success"`
	Kind      Kind       `json:"kind"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// Error holds the matched error lines. Empty unless Kind is KindError.
	Error string `json:"error,omitempty"`
}

// Rule recognizes one kind of agent output.
type Rule interface {
	// Kind returns the kind this rule produces.
	Kind() Kind

	// Match reports whether text carries this rule's markers.
	Match(text string) bool

	// Parse extracts the response. It is only called when Match is true.
	Parse(text string) Response
}

// Registry holds an ordered list of rules and tries each one.
type Registry struct {
	rules []Rule
}

// NewRegistry creates a registry with the default precedence:
// error, then tool call, then completion.
func NewRegistry() *Registry {
	return NewRegistryWith(ErrorRule{}, ToolCallRule{}, CompletionRule{})
}

// NewRegistryWith creates a registry with a custom rule order.
func NewRegistryWith(rules ...Rule) *Registry {
	return &Registry{rules: rules}
}

// Rules returns the rules in precedence order.
func (r *Registry) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Parse classifies text. The first matching rule wins; otherwise the text is
// returned unchanged as a message.
func (r *Registry) Parse(text string) Response {
	for _, rule := range r.rules {
		if rule.Match(text) {
			return rule.Parse(text)
		}
	}
	return Response{Success: true, Kind: KindMessage, Content: text}
}

// ParseMultiple splits text into segments at each line that introduces a new
// marker, then classifies each segment independently. Blank segments are
// dropped.
func (r *Registry) ParseMultiple(text string) []Response {
	var out []Response
	for _, seg := range splitSegments(text) {
		out = append(out, r.Parse(seg))
	}
	return out
}

var defaultRegistry = NewRegistry()

// Parse classifies text with the default rules.
func Parse(text string) Response {
	return defaultRegistry.Parse(text)
}

// ParseMultiple splits and classifies text with the default rules.
func ParseMultiple(text string) []Response {
	return defaultRegistry.ParseMultiple(text)
}

// segmentMarkers start a new segment when present on a line. A marker in the
// middle of a segment does not split the lines already accumulated.
var segmentMarkers = []string{
	errorOpenTag, "Error:", "error:",
	toolCallOpenTag, "Running:",
	completeOpenTag,
}

func startsSegment(line string) bool {
	for _, m := range segmentMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

func splitSegments(text string) []string {
	var segments []string
	var cur strings.Builder
	flush := func() {
		if strings.TrimSpace(cur.String()) != "" {
			segments = append(segments, cur.String())
		}
		cur.Reset()
	}
	for _, line := range strings.Split(text, "\n") {
		if startsSegment(line) {
			flush()
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	flush()
	return segments
}

// joinLines joins kept lines and trims the result.
func joinLines(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
