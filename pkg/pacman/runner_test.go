package pacman

import (
	"context"
	"strings"
	"sync"
)

// fakeRunner records invocations and answers them through handle.
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	handle func(name string, args []string) (string, error)
}

func (f *fakeRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.handle == nil {
		return "", nil
	}
	return f.handle(name, args)
}

func (f *fakeRunner) count(substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if strings.Contains(strings.Join(call, " "), substr) {
			n++
		}
	}
	return n
}
