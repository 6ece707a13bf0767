package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// IsNonInteractive reports whether prompts should be skipped.
func IsNonInteractive() bool {
	if nonInteractive {
		return true
	}
	if _, ok := os.LookupEnv("AUTOCLICK_NON_INTERACTIVE"); ok {
		return true
	}
	return !hasTTY()
}

// IsInteractive reports whether the session can prompt for user input.
func IsInteractive() bool {
	return !IsNonInteractive()
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// prompter asks yes/no questions. Tests replace in and out.
type prompter struct {
	in          io.Reader
	out         io.Writer
	assumeYes   bool
	interactive func() bool
}

func newPrompter(assumeYes bool) *prompter {
	return &prompter{in: os.Stdin, out: os.Stderr, assumeYes: assumeYes, interactive: IsInteractive}
}

// confirm asks question and reports the answer. Without a terminal and without
// --yes it fails rather than guessing.
func (p *prompter) confirm(question string) (bool, error) {
	if p.assumeYes {
		return true, nil
	}
	if !p.interactive() {
		return false, &PreflightError{
			Message:  "confirmation required: " + question,
			Hint:     "Re-run with --yes to accept",
		}
	}
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
