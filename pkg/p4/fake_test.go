package p4

import (
	"context"
	"os"
	"strings"
	"sync"
)

// call is one recorded invocation
type call struct {
	args    []string
	input   string
	argFile []string // contents of a -x argument file, read during the call
}

// fakeRunner answers commands by their first non-global argument
type fakeRunner struct {
	mu        sync.Mutex
	calls     []call
	responses map[string]string
	errs      map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: map[string]string{}, errs: map[string]error{}}
}

func commandOf(args []string) string {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-ztag":
			continue
		case "-x":
			i++
			continue
		}
		return args[i]
	}
	return ""
}

func (f *fakeRunner) Run(ctx context.Context, input string, args ...string) (string, error) {
	c := call{args: append([]string(nil), args...), input: input}
	for i, a := range args {
		if a == "-x" && i+1 < len(args) {
			data, err := os.ReadFile(args[i+1])
			if err == nil {
				c.argFile = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	cmd := commandOf(args)
	return f.responses[cmd], f.errs[cmd]
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, strings.Join(c.args, " "))
	}
	return out
}
