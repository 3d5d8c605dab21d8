package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ScriptedExecutor stands in for the external conversion tool. It materializes
// the configured files in the scratch directory taken from the -o template,
// prefixing each name with the invocation's work token, then returns the
// configured error. With Block set it waits for context cancellation instead,
// which exercises timeout and cancel paths.
type ScriptedExecutor struct {
	// Files maps name suffixes to contents; each is written as
	// "<workToken>-<suffix>" so callers need not know the generated token.
	Files map[string]string
	Err   error
	Block bool

	mu    sync.Mutex
	calls [][]string
}

// Run implements the runner executor contract.
func (s *ScriptedExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string(nil), args...))
	s.mu.Unlock()

	dir, token := outputTemplate(args)
	for name, content := range s.Files {
		if err := os.WriteFile(filepath.Join(dir, token+"-"+name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	if onOutput != nil {
		onOutput("[download] scripted tool output")
	}
	if s.Block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.Err
}

// Calls returns the argument vectors of every invocation so far.
func (s *ScriptedExecutor) Calls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// outputTemplate splits the -o template into the scratch directory and the
// work token that prefixes the output name.
func outputTemplate(args []string) (dir, token string) {
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			template := args[i+1]
			base := filepath.Base(template)
			token, _, _ = strings.Cut(base, "-%(")
			return filepath.Dir(template), token
		}
	}
	return "", "output"
}
