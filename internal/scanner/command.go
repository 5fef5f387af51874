// Package scanner composes sqlmap invocations for cleaned URL lists and
// runs them through an injectable executor.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultBinary is the scanner executable looked up on PATH
const DefaultBinary = "sqlmap"

// PresetFlags is the aggressive batch preset appended to every command
var PresetFlags = []string{"--batch", "--level", "5", "--risk", "3", "--dbs"}

// ErrNoTargets is returned when composing against an empty target file
var ErrNoTargets = errors.New("no target URLs to scan")

// ErrAborted is returned by a Confirmer when the operator cancels the whole
// run rather than answering for one domain
var ErrAborted = errors.New("aborted by operator")

// Command is a composed scanner invocation. It is never run by the composer.
type Command struct {
	Binary string
	Args   []string
}

// String renders the command for display and copy/paste, quoting arguments
// that the shell would otherwise split or expand
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, shellQuote(c.Binary))
	for _, a := range c.Args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

// Composer builds scanner commands
type Composer struct {
	Binary    string
	ProxyURL  string   // passed as --proxy when set
	ExtraArgs []string // appended after the preset
}

// Compose returns the invocation scanning every URL in cleanedFile with the
// fixed preset. targets is the number of URLs in the file; zero yields
// ErrNoTargets so that no command is produced for an empty list.
func (c Composer) Compose(cleanedFile string, targets int) (Command, error) {
	if targets == 0 {
		return Command{}, ErrNoTargets
	}
	if cleanedFile == "" {
		return Command{}, fmt.Errorf("cleaned file path is empty")
	}

	bin := c.Binary
	if bin == "" {
		bin = DefaultBinary
	}

	args := []string{"-m", cleanedFile}
	args = append(args, PresetFlags...)
	if c.ProxyURL != "" {
		args = append(args, "--proxy", c.ProxyURL)
	}
	args = append(args, c.ExtraArgs...)

	return Command{Binary: bin, Args: args}, nil
}

// Executor runs a composed command
type Executor interface {
	Execute(ctx context.Context, cmd Command) error
}

// ExecExecutor runs commands as child processes attached to the terminal
type ExecExecutor struct{}

// Execute starts the scanner and waits for it to exit
func (ExecExecutor) Execute(ctx context.Context, cmd Command) error {
	path, err := exec.LookPath(cmd.Binary)
	if err != nil {
		return fmt.Errorf("scanner not found: %w", err)
	}

	c := exec.CommandContext(ctx, path, cmd.Args...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("scanner exited with error: %w", err)
	}
	return nil
}

// Confirmer asks the operator whether a composed command should run
type Confirmer interface {
	Confirm(domain string, cmd Command, rawCount, cleanCount int) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(domain string, cmd Command, rawCount, cleanCount int) (bool, error)

// Confirm calls f
func (f ConfirmFunc) Confirm(domain string, cmd Command, rawCount, cleanCount int) (bool, error) {
	return f(domain, cmd, rawCount, cleanCount)
}

// Always answers every confirmation with the same value
func Always(answer bool) Confirmer {
	return ConfirmFunc(func(string, Command, int, int) (bool, error) { return answer, nil })
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`&|;<>()*?[]{}!#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
