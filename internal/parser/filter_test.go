package parser

import (
	"reflect"
	"strings"
	"testing"
)

func sampleResponses() []Response {
	return ParseMultiple(`[1700000300] thinking
Running: read path=/src/main.go
<tool_call>edit path=/src/main.go</tool_call>
Running: read path=/src/util.go
Error: [1700000100] compile failed
<complete>[1700000200] done</complete>`)
}

func TestFilters(t *testing.T) {
	rs := sampleResponses()
	if len(rs) != 6 {
		t.Fatalf("expected 6 segments, got %d", len(rs))
	}

	if got := len(FilterByKind(rs, KindToolCall)); got != 3 {
		t.Errorf("FilterByKind(tool_call) = %d, want 3", got)
	}
	if got := len(FilterBySuccess(rs, false)); got != 1 {
		t.Errorf("FilterBySuccess(false) = %d, want 1", got)
	}
	if got := len(FilterByTool(rs, "read")); got != 2 {
		t.Errorf("FilterByTool(read) = %d, want 2", got)
	}
	if got := len(FilterWithToolCalls(rs)); got != 3 {
		t.Errorf("FilterWithToolCalls = %d, want 3", got)
	}
	if got := len(FilterByFile(rs, "/src/main.go")); got != 2 {
		t.Errorf("FilterByFile = %d, want 2", got)
	}
	if got := len(FilterByContent(rs, "thinking")); got != 1 {
		t.Errorf("FilterByContent = %d, want 1", got)
	}
	if got := len(FilterByTimeRange(rs, 1700000000, 1700000250)); got != 1 {
		t.Errorf("FilterByTimeRange = %d, want 1", got)
	}

	counts := CountByKind(rs)
	if counts[KindToolCall] != 3 || counts[KindError] != 1 || counts[KindCompletion] != 1 || counts[KindMessage] != 1 {
		t.Errorf("CountByKind = %v", counts)
	}
	if c := CountByTool(rs); c["read"] != 2 || c["edit"] != 1 {
		t.Errorf("CountByTool = %v", c)
	}
	if names := UniqueToolNames(rs); !reflect.DeepEqual(names, []string{"edit", "read"}) {
		t.Errorf("UniqueToolNames = %v", names)
	}

	first, ok := FirstError(rs)
	if !ok || first.Kind != KindError {
		t.Errorf("FirstError = %+v, %v", first, ok)
	}
	if msgs := ErrorMessages(rs); len(msgs) != 1 {
		t.Errorf("ErrorMessages = %v", msgs)
	}
	if last, ok := LastMessage(rs); !ok || strings.TrimSpace(last.Content) != "[1700000300] thinking" {
		t.Errorf("LastMessage = %+v, %v", last, ok)
	}
}

func TestSearch(t *testing.T) {
	rs := sampleResponses()
	got, err := Search(rs, `^\[\d+\] thinking`)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("Search = %d, want 1", len(got))
	}
	if _, err := Search(rs, "("); err == nil {
		t.Error("expected error for bad pattern")
	}
}

func TestDeduplicate(t *testing.T) {
	rs := []Response{
		{Kind: KindMessage, Success: true, Content: "a"},
		{Kind: KindMessage, Success: true, Content: "a"},
		{Kind: KindMessage, Success: true, Content: "b"},
		{Kind: KindError, Success: false, Content: "a"},
	}
	if got := Deduplicate(rs); len(got) != 3 {
		t.Errorf("Deduplicate = %d, want 3", len(got))
	}
}

func TestSortByTimestamp(t *testing.T) {
	rs := []Response{
		{Content: "[1700000300] c"},
		{Content: "undated"},
		{Content: "[1700000100] a"},
	}
	asc := SortByTimestamp(rs, true)
	if asc[0].Content != "undated" || asc[1].Content != "[1700000100] a" || asc[2].Content != "[1700000300] c" {
		t.Errorf("ascending = %+v", asc)
	}
	desc := SortByTimestamp(rs, false)
	if desc[0].Content != "[1700000300] c" {
		t.Errorf("descending = %+v", desc)
	}
	if rs[0].Content != "[1700000300] c" {
		t.Error("input was mutated")
	}
}

func TestPaginate(t *testing.T) {
	rs := make([]Response, 5)
	for i := range rs {
		rs[i].Content = string(rune('a' + i))
	}
	tests := []struct {
		page, size int
		want       int
	}{
		{0, 2, 2},
		{2, 2, 1},
		{3, 2, 0},
		{0, 0, 0},
		{-1, 2, 0},
	}
	for _, tt := range tests {
		if got := len(Paginate(rs, tt.page, tt.size)); got != tt.want {
			t.Errorf("Paginate(%d, %d) = %d, want %d", tt.page, tt.size, got, tt.want)
		}
	}
}
