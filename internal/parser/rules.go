package parser

import (
	"regexp"
	"strings"
)

const (
	errorOpenTag     = "<error>"
	errorCloseTag    = "</error>"
	toolCallOpenTag  = "<tool_call>"
	toolCallCloseTag = "</tool_call>"
	completeOpenTag  = "<complete>"
	completeCloseTag = "</complete>"
	runningPrefix    = "Running: "
)

// completionPhrases mark a finished turn when no tag is present.
var completionPhrases = []string{"I'll complete", "Done."}

// --- Error ---

// ErrorRule matches an <error> tag or a line containing "Error:"/"error:".
type ErrorRule struct{}

func (ErrorRule) Kind() Kind { return KindError }

func (ErrorRule) Match(text string) bool {
	return strings.Contains(text, errorOpenTag) || hasErrorLabel(text)
}

func (ErrorRule) Parse(text string) Response {
	return Response{
		Success: false,
		Kind:    KindError,
		Content: stripErrors(text),
		Error:   joinLines(errorLines(text)),
	}
}

func hasErrorLabel(s string) bool {
	return strings.Contains(s, "Error:") || strings.Contains(s, "error:")
}

func stripErrorTags(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, errorOpenTag, ""), errorCloseTag, "")
}

// errorLines returns the lines that carry an error marker, including every
// line inside a multi-line <error>...</error> span, with tags removed.
func errorLines(text string) []string {
	var lines []string
	inSpan := false
	for _, line := range strings.Split(text, "\n") {
		open := strings.LastIndex(line, errorOpenTag)
		closeIdx := strings.LastIndex(line, errorCloseTag)
		matched := inSpan || open >= 0 || hasErrorLabel(line)
		if open >= 0 {
			inSpan = closeIdx < open
		} else if closeIdx >= 0 {
			inSpan = false
		}
		if !matched {
			continue
		}
		if l := strings.TrimSpace(stripErrorTags(line)); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// stripErrors removes error tags and drops "Error:"/"error:" lines.
func stripErrors(text string) string {
	var kept []string
	for _, line := range strings.Split(stripErrorTags(text), "\n") {
		if hasErrorLabel(line) {
			continue
		}
		kept = append(kept, line)
	}
	return joinLines(kept)
}

// ExtractErrors returns every error-marked line with tags removed.
func ExtractErrors(text string) []string {
	return errorLines(text)
}

// --- Tool call ---

// ToolCallRule matches "Running:" lines and <tool_call> spans.
type ToolCallRule struct{}

func (ToolCallRule) Kind() Kind { return KindToolCall }

func (ToolCallRule) Match(text string) bool {
	return strings.Contains(text, "Running:") || strings.Contains(text, toolCallOpenTag)
}

func (ToolCallRule) Parse(text string) Response {
	return Response{
		Success:   true,
		Kind:      KindToolCall,
		Content:   toolCallContent(text),
		ToolCalls: ExtractToolCalls(text),
	}
}

var (
	toolCallSpanRe = regexp.MustCompile(`<tool_call>(.*?)</tool_call>`)
	kvRe           = regexp.MustCompile(`([A-Za-z_][\w.-]*)=("[^"]*"|\S+)`)
)

// ExtractToolCalls collects every tool call in line order. A "Running: "
// line yields the tool name, the raw argument string under "raw_args", the
// full command under "command", and any key=value pairs. A <tool_call> span
// yields the tool name and its key="value" pairs.
func ExtractToolCalls(text string) []ToolCall {
	var calls []ToolCall
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if rest, ok := strings.CutPrefix(trimmed, runningPrefix); ok {
			if call, ok := parseRunning(strings.TrimSpace(rest)); ok {
				calls = append(calls, call)
			}
		}
		for _, m := range toolCallSpanRe.FindAllStringSubmatch(line, -1) {
			if call, ok := parseToolCallSpan(m[1]); ok {
				calls = append(calls, call)
			}
		}
	}
	return calls
}

func parseRunning(command string) (ToolCall, bool) {
	name, args, ok := ExtractCommandLine(command)
	if !ok {
		return ToolCall{}, false
	}
	arguments := keyValues(strings.Join(args, " "))
	arguments["raw_args"] = strings.Join(args, " ")
	arguments["command"] = command
	return ToolCall{ToolName: name, Arguments: arguments}, true
}

func parseToolCallSpan(body string) (ToolCall, bool) {
	body = strings.TrimSpace(body)
	if body == "" {
		return ToolCall{}, false
	}
	name, rest, _ := strings.Cut(body, " ")
	return ToolCall{ToolName: name, Arguments: keyValues(rest)}, true
}

func keyValues(s string) map[string]string {
	out := map[string]string{}
	for _, m := range kvRe.FindAllStringSubmatch(s, -1) {
		out[m[1]] = strings.Trim(m[2], `"`)
	}
	return out
}

// toolCallContent drops "Running:" lines and removes <tool_call> spans.
func toolCallContent(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "Running:") {
			continue
		}
		line = toolCallSpanRe.ReplaceAllString(line, "")
		if strings.HasPrefix(strings.TrimSpace(line), toolCallOpenTag) {
			continue
		}
		kept = append(kept, line)
	}
	return joinLines(kept)
}

// ExtractCommandLine splits a command into its name and whitespace-separated
// arguments.
func ExtractCommandLine(command string) (string, []string, bool) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

// --- Completion ---

// CompletionRule matches a <complete> tag or a completion phrase.
type CompletionRule struct{}

func (CompletionRule) Kind() Kind { return KindCompletion }

func (CompletionRule) Match(text string) bool {
	if strings.Contains(text, completeOpenTag) {
		return true
	}
	return hasCompletionPhrase(text)
}

func (CompletionRule) Parse(text string) Response {
	stripped := strings.ReplaceAll(strings.ReplaceAll(text, completeOpenTag, ""), completeCloseTag, "")
	var kept []string
	for _, line := range strings.Split(stripped, "\n") {
		if hasCompletionPhrase(line) {
			continue
		}
		kept = append(kept, line)
	}
	return Response{Success: true, Kind: KindCompletion, Content: joinLines(kept)}
}

func hasCompletionPhrase(s string) bool {
	for _, p := range completionPhrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
