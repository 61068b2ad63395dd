package parser

import (
	"regexp"
	"sort"
	"strings"
)

// Filters over parsed responses. Each returns a new slice and leaves the
// input untouched.

func filter(rs []Response, keep func(Response) bool) []Response {
	var out []Response
	for _, r := range rs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByKind keeps responses of the given kind.
func FilterByKind(rs []Response, kind Kind) []Response {
	return filter(rs, func(r Response) bool { return r.Kind == kind })
}

// FilterBySuccess keeps responses whose Success equals success.
func FilterBySuccess(rs []Response, success bool) []Response {
	return filter(rs, func(r Response) bool { return r.Success == success })
}

// FilterByTool keeps responses that invoked the named tool.
func FilterByTool(rs []Response, tool string) []Response {
	return filter(rs, func(r Response) bool {
		for _, c := range r.ToolCalls {
			if c.ToolName == tool {
				return true
			}
		}
		return false
	})
}

// FilterWithToolCalls keeps responses carrying at least one tool call.
func FilterWithToolCalls(rs []Response) []Response {
	return filter(rs, func(r Response) bool { return len(r.ToolCalls) > 0 })
}

// FilterByContent keeps responses whose content contains substr.
func FilterByContent(rs []Response, substr string) []Response {
	return filter(rs, func(r Response) bool { return strings.Contains(r.Content, substr) })
}

// FilterByFile keeps responses that mention path in their content or in any
// tool argument.
func FilterByFile(rs []Response, path string) []Response {
	return filter(rs, func(r Response) bool {
		if strings.Contains(r.Content, path) {
			return true
		}
		for _, c := range r.ToolCalls {
			for _, v := range c.Arguments {
				if strings.Contains(v, path) {
					return true
				}
			}
		}
		return false
	})
}

// FilterByTimeRange keeps responses whose content carries a timestamp in
// [start, end]. Responses without a timestamp are dropped.
func FilterByTimeRange(rs []Response, start, end int64) []Response {
	return filter(rs, func(r Response) bool {
		ts, ok := ParseTimestamp(r.Content)
		return ok && ts >= start && ts <= end
	})
}

// FilterNonEmpty drops responses with blank content.
func FilterNonEmpty(rs []Response) []Response {
	return filter(rs, func(r Response) bool { return strings.TrimSpace(r.Content) != "" })
}

// Search keeps responses whose content matches the regular expression.
func Search(rs []Response, pattern string) ([]Response, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return filter(rs, func(r Response) bool { return re.MatchString(r.Content) }), nil
}

// CountByKind tallies responses per kind.
func CountByKind(rs []Response) map[Kind]int {
	out := map[Kind]int{}
	for _, r := range rs {
		out[r.Kind]++
	}
	return out
}

// CountByTool tallies tool invocations per tool name.
func CountByTool(rs []Response) map[string]int {
	out := map[string]int{}
	for _, r := range rs {
		for _, c := range r.ToolCalls {
			out[c.ToolName]++
		}
	}
	return out
}

// UniqueToolNames returns the sorted set of invoked tool names.
func UniqueToolNames(rs []Response) []string {
	counts := CountByTool(rs)
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FirstError returns the first error response.
func FirstError(rs []Response) (Response, bool) {
	for _, r := range rs {
		if r.Kind == KindError {
			return r, true
		}
	}
	return Response{}, false
}

// LastMessage returns the last plain message.
func LastMessage(rs []Response) (Response, bool) {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i].Kind == KindMessage {
			return rs[i], true
		}
	}
	return Response{}, false
}

// ErrorMessages returns the Error field of every error response.
func ErrorMessages(rs []Response) []string {
	var out []string
	for _, r := range rs {
		if r.Kind == KindError && r.Error != "" {
			out = append(out, r.Error)
		}
	}
	return out
}

// Deduplicate drops responses identical in kind, success and content to an
// earlier one.
func Deduplicate(rs []Response) []Response {
	type key struct {
		kind    Kind
		success bool
		content string
	}
	seen := map[key]bool{}
	return filter(rs, func(r Response) bool {
		k := key{r.Kind, r.Success, r.Content}
		if seen[k] {
			return false
		}
		seen[k] = true
		return true
	})
}

// SortByTimestamp orders responses by the timestamp in their content.
// Responses without one sort as zero; ties keep input order.
func SortByTimestamp(rs []Response, ascending bool) []Response {
	out := append([]Response(nil), rs...)
	ts := func(r Response) int64 {
		t, _ := ParseTimestamp(r.Content)
		return t
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return ts(out[i]) < ts(out[j])
		}
		return ts(out[i]) > ts(out[j])
	})
	return out
}

// Paginate returns page (zero-based) of size pageSize.
func Paginate(rs []Response, page, pageSize int) []Response {
	if page < 0 || pageSize <= 0 {
		return nil
	}
	start := page * pageSize
	if start >= len(rs) {
		return nil
	}
	end := min(start+pageSize, len(rs))
	return append([]Response(nil), rs[start:end]...)
}
