package testutil

import (
	"context"
	"strings"
	"sync"

	"gitnet/internal/errors"
)

// FakeRunner is an executor.Runner that answers from canned responses
// instead of spawning git. It is safe for concurrent use.
type FakeRunner struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     [][]string
}

type fakeResponse struct {
	prefix []string
	output string
	err    error
}

// NewFakeRunner creates a FakeRunner with no responses.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// On registers the reply for commands whose arguments start with prefix.
// The longest matching prefix wins; among equal lengths the latest
// registration wins.
func (f *FakeRunner) On(output string, err error, prefix ...string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{prefix: prefix, output: output, err: err})
	return f
}

// Run implements executor.Runner.
func (f *FakeRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, append([]string(nil), args...))

	if err := ctx.Err(); err != nil {
		return "", err
	}

	best := -1
	for i, r := range f.responses {
		if !hasPrefix(args, r.prefix) {
			continue
		}
		if best < 0 || len(r.prefix) >= len(f.responses[best].prefix) {
			best = i
		}
	}
	if best < 0 {
		return "", errors.New(errors.CommandFailed, "unexpected command: git "+strings.Join(args, " "), nil, nil)
	}

	r := f.responses[best]
	return r.output, r.err
}

// Calls returns every recorded argument list in call order.
func (f *FakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many calls started with prefix.
func (f *FakeRunner) CallCount(prefix ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if hasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls, keeping the responses.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func hasPrefix(args, prefix []string) bool {
	if len(prefix) > len(args) {
		return false
	}
	for i, p := range prefix {
		if args[i] != p {
			return false
		}
	}
	return true
}
