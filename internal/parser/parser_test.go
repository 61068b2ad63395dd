package parser

import (
	"reflect"
	"strings"
	"testing"
)

// --- Classification ---

func TestParse_RunningToolCall(t *testing.T) {
	r := Parse("Running: read filePath=/tmp/x.txt")
	if r.Kind != KindToolCall || !r.Success {
		t.Fatalf("kind: got %q success=%v, want tool_call", r.Kind, r.Success)
	}
	if len(r.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(r.ToolCalls))
	}
	call := r.ToolCalls[0]
	if call.ToolName != "read" {
		t.Errorf("tool name: got %q, want %q", call.ToolName, "read")
	}
	if call.Arguments["raw_args"] != "filePath=/tmp/x.txt" {
		t.Errorf("raw_args: got %q", call.Arguments["raw_args"])
	}
	if call.Arguments["command"] != "read filePath=/tmp/x.txt" {
		t.Errorf("command: got %q", call.Arguments["command"])
	}
	if call.Arguments["filePath"] != "/tmp/x.txt" {
		t.Errorf("filePath: got %q", call.Arguments["filePath"])
	}
}

func TestParse_ErrorTag(t *testing.T) {
	r := Parse("<error>disk full</error>")
	if r.Success {
		t.Error("expected success=false")
	}
	if r.Kind != KindError {
		t.Fatalf("kind: got %q, want error", r.Kind)
	}
	if !strings.Contains(r.Error, "disk full") {
		t.Errorf("error: got %q, want it to contain %q", r.Error, "disk full")
	}
	if strings.Contains(r.Content, "<error>") {
		t.Errorf("content still has tags: %q", r.Content)
	}
}

func TestParse_ErrorLabelLines(t *testing.T) {
	text := "building project\nError: missing module foo\nretrying\nerror: exit 2"
	r := Parse(text)
	if r.Kind != KindError {
		t.Fatalf("kind: got %q", r.Kind)
	}
	if r.Error != "Error: missing module foo\nerror: exit 2" {
		t.Errorf("error: got %q", r.Error)
	}
	if r.Content != "building project\nretrying" {
		t.Errorf("content: got %q", r.Content)
	}
}

func TestParse_MultilineErrorSpan(t *testing.T) {
	text := "before\n<error>\nfirst\nsecond\n</error>\nafter"
	r := Parse(text)
	if r.Error != "first\nsecond" {
		t.Errorf("error: got %q", r.Error)
	}
	if ExtractErrors(text)[0] != "first" {
		t.Errorf("ExtractErrors: %v", ExtractErrors(text))
	}
}

func TestParse_ErrorBeatsToolCall(t *testing.T) {
	r := Parse("Running: bash ls\nError: permission denied")
	if r.Kind != KindError {
		t.Errorf("kind: got %q, want error (error takes precedence)", r.Kind)
	}
}

func TestParse_ToolCallBeatsCompletion(t *testing.T) {
	r := Parse("Running: go test ./...\nDone.")
	if r.Kind != KindToolCall {
		t.Errorf("kind: got %q, want tool_call", r.Kind)
	}
}

func TestParse_XMLToolCalls(t *testing.T) {
	text := `planning
<tool_call>edit path="/a b.go" line=3</tool_call> <tool_call>write path=/c.go</tool_call>
<tool_call>   </tool_call>`
	r := Parse(text)
	if r.Kind != KindToolCall {
		t.Fatalf("kind: got %q", r.Kind)
	}
	want := []ToolCall{
		{ToolName: "edit", Arguments: map[string]string{"path": "/a b.go", "line": "3"}},
		{ToolName: "write", Arguments: map[string]string{"path": "/c.go"}},
	}
	if !reflect.DeepEqual(r.ToolCalls, want) {
		t.Errorf("tool calls:\n got %+v\nwant %+v", r.ToolCalls, want)
	}
	if r.Content != "planning" {
		t.Errorf("content: got %q", r.Content)
	}
}

func TestParse_ToolCallsInLineOrder(t *testing.T) {
	text := "Running: ls -la\n<tool_call>read path=x</tool_call>\nRunning: cat y"
	r := Parse(text)
	var names []string
	for _, c := range r.ToolCalls {
		names = append(names, c.ToolName)
	}
	if !reflect.DeepEqual(names, []string{"ls", "read", "cat"}) {
		t.Errorf("order: got %v", names)
	}
}

func TestParse_Completion(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		content string
	}{
		{"tag", "<complete>all tests pass</complete>", "all tests pass"},
		{"done phrase", "summary line\nDone.", "summary line"},
		{"ill complete phrase", "I'll complete the refactor now\nok", "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Parse(tt.text)
			if r.Kind != KindCompletion || !r.Success {
				t.Fatalf("kind: got %q success=%v", r.Kind, r.Success)
			}
			if r.Content != tt.content {
				t.Errorf("content: got %q, want %q", r.Content, tt.content)
			}
		})
	}
}

func TestParse_PlainMessage(t *testing.T) {
	text := "  just thinking out loud  "
	r := Parse(text)
	if r.Kind != KindMessage || !r.Success || r.Content != text {
		t.Errorf("got %+v", r)
	}
	if r.Error != "" || len(r.ToolCalls) != 0 {
		t.Errorf("message should carry no error or tool calls: %+v", r)
	}
}

func TestParse_Deterministic(t *testing.T) {
	text := "Running: read filePath=/x\n<tool_call>grep pattern=\"a b\"</tool_call>"
	a, b := Parse(text), Parse(text)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("parse is not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestRegistry_CustomOrder(t *testing.T) {
	reg := NewRegistryWith(CompletionRule{}, ErrorRule{})
	r := reg.Parse("Error: boom\nDone.")
	if r.Kind != KindCompletion {
		t.Errorf("custom order: got %q, want completion", r.Kind)
	}
	kinds := []Kind{}
	for _, rule := range NewRegistry().Rules() {
		kinds = append(kinds, rule.Kind())
	}
	if !reflect.DeepEqual(kinds, []Kind{KindError, KindToolCall, KindCompletion}) {
		t.Errorf("default order: %v", kinds)
	}
}

// --- Segmentation ---

func TestParseMultiple_SplitsAtMarkers(t *testing.T) {
	text := `looking at the repo
Running: ls
file.go
<error>oops</error>
recovering
<complete>finished</complete>`
	rs := ParseMultiple(text)
	var kinds []Kind
	for _, r := range rs {
		kinds = append(kinds, r.Kind)
	}
	want := []Kind{KindMessage, KindToolCall, KindError, KindCompletion}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds: got %v, want %v", kinds, want)
	}
	if rs[1].Content != "file.go" {
		t.Errorf("tool segment content: got %q", rs[1].Content)
	}
	if rs[2].Content != "oops\nrecovering" {
		t.Errorf("error segment content: got %q", rs[2].Content)
	}
}

func TestParseMultiple_SkipsBlankSegments(t *testing.T) {
	if rs := ParseMultiple("\n\n   \n"); len(rs) != 0 {
		t.Errorf("expected no segments, got %d", len(rs))
	}
	rs := ParseMultiple("\n\nRunning: ls\n")
	if len(rs) != 1 {
		t.Errorf("leading blank lines should not form a segment, got %d", len(rs))
	}
}
