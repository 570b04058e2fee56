package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubExec struct {
	loggedIn bool
	calls    []string
}

func (s *stubExec) isLoggedIn() bool { return s.loggedIn }

func (s *stubExec) record(name string) error {
	s.calls = append(s.calls, name)
	return nil
}

func (s *stubExec) Register(context.Context) error        { return s.record("register") }
func (s *stubExec) Login(context.Context) error           { return s.record("login") }
func (s *stubExec) Logout(context.Context) error          { return s.record("logout") }
func (s *stubExec) AddNote(context.Context) error         { return s.record("add") }
func (s *stubExec) List(context.Context) error            { return s.record("list") }
func (s *stubExec) Sync(context.Context) error            { return s.record("sync") }
func (s *stubExec) Status(context.Context) error          { return s.record("status") }
func (s *stubExec) Show(_ context.Context, args []string) error {
	return s.record("show " + strings.Join(args, " "))
}
func (s *stubExec) Delete(_ context.Context, args []string) error {
	return s.record("delete " + strings.Join(args, " "))
}
func (s *stubExec) Move(_ context.Context, args []string) error {
	return s.record("move " + strings.Join(args, " "))
}
func (s *stubExec) Pin(_ context.Context, args []string) error {
	return s.record("pin " + strings.Join(args, " "))
}
func (s *stubExec) Task(_ context.Context, args []string) error {
	return s.record("task " + strings.Join(args, " "))
}
func (s *stubExec) Tags(_ context.Context, args []string) error {
	return s.record("tags " + strings.Join(args, " "))
}

func runScript(t *testing.T, a execIface, script string) []string {
	t.Helper()

	var out []string
	orig := printlnFn
	printlnFn = func(args ...any) (int, error) {
		parts := make([]string, len(args))
		for i, v := range args {
			parts[i] = strings.TrimSpace(strings.Trim(strings.TrimSpace(toString(v)), "\n"))
		}
		out = append(out, strings.Join(parts, " "))
		return 0, nil
	}
	defer func() { printlnFn = orig }()

	scanner := bufio.NewScanner(strings.NewReader(script))
	runREPL(context.Background(), a, func() string { return "" }, scanner)
	return out
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func TestREPL_DispatchesCommands(t *testing.T) {
	a := &stubExec{loggedIn: true}

	runScript(t, a, "add\nlist\nshow 2\npin 1\nsync\nexit\n")

	assert.Equal(t, []string{"add", "list", "show 2", "pin 1", "sync"}, a.calls)
}

func TestREPL_UnknownCommandReported(t *testing.T) {
	a := &stubExec{}

	out := runScript(t, a, "frobnicate\nexit\n")

	found := false
	for _, line := range out {
		if strings.Contains(line, "Unknown command:") {
			found = true
		}
	}
	assert.True(t, found)
	assert.Empty(t, a.calls)
}

func TestREPL_EmptyLinesSkipped(t *testing.T) {
	a := &stubExec{}

	runScript(t, a, "\n\n   \nlist\nexit\n")

	assert.Equal(t, []string{"list"}, a.calls)
}

func TestREPL_ExitsOnEOF(t *testing.T) {
	a := &stubExec{}

	runScript(t, a, "list\n")

	assert.Equal(t, []string{"list"}, a.calls)
}

func TestREPL_HelpVariesWithLogin(t *testing.T) {
	out := runScript(t, &stubExec{loggedIn: false}, "help\nexit\n")
	joined := strings.Join(out, "\n")
	assert.Contains(t, joined, "register")

	out = runScript(t, &stubExec{loggedIn: true}, "help\nexit\n")
	joined = strings.Join(out, "\n")
	assert.Contains(t, joined, "logout")
}
