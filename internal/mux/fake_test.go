package mux

import (
	"context"
	"strings"
	"sync"
)

// fakeRunner returns scripted results keyed by the joined argv and records
// every call.
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]Result
	errs    map[string]error
	calls   [][]string
	// block makes Run wait for ctx cancellation.
	block bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: map[string]Result{}, errs: map[string]error{}}
}

func (f *fakeRunner) on(args string, res Result) {
	f.results[args] = res
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), args...))
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return Result{ExitCode: -1}, nil
	}
	key := strings.Join(args, " ")
	if err, ok := f.errs[key]; ok {
		return Result{}, err
	}
	if res, ok := f.results[key]; ok {
		return res, nil
	}
	return Result{}, nil
}

func (f *fakeRunner) joinedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = strings.Join(c, " ")
	}
	return out
}

// scriptTree wires a two-session tree:
//
//	$1 work (attached) -> @1 editor (active) -> %1, %2
//	$2 scratch         -> @2 sh -> %3
func scriptTree(f *fakeRunner) {
	f.on("list-sessions -F "+sessionFormat, Result{Stdout: "$1:work:1\n$2:scratch:0\n"})
	f.on("list-windows -t $1 -F "+windowFormat, Result{Stdout: "@1:editor:1\n"})
	f.on("list-windows -t $2 -F "+windowFormat, Result{Stdout: "@2:sh:0\n"})
	f.on("list-panes -t @1 -F "+paneFormat, Result{Stdout: "%1:/home/u/src:100:1\n%2:/tmp:101:0\n"})
	f.on("list-panes -t @2 -F "+paneFormat, Result{Stdout: "%3:/:oops:1\n"})
}
