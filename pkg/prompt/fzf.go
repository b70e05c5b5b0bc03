package prompt

import (
	"fmt"
	"os"
	"strings"

	fzf "github.com/junegunn/fzf/src"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/term"
)

const descriptionSeparator = "  │  "

// FzfRunner defines the interface for running fzf
type FzfRunner interface {
	Run(opts *fzf.Options) (int, error)
}

// DefaultFzfRunner runs the real fzf library
type DefaultFzfRunner struct{}

// Run executes fzf with the given options
func (r *DefaultFzfRunner) Run(opts *fzf.Options) (int, error) {
	return fzf.Run(opts)
}

// Fzf picks options with fzf and asks yes/no questions on a line prompter.
// When stdin is not a terminal, or fzf fails, choices fall back to the line prompter.
type Fzf struct {
	line       *Line
	runner     FzfRunner
	isTerminal func() bool
}

// NewFzf creates an fzf chooser that falls back to line
func NewFzf(line *Line) *Fzf {
	return &Fzf{
		line:   line,
		runner: &DefaultFzfRunner{},
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// NewFzfWithRunner creates an fzf chooser with a custom runner, for testing
func NewFzfWithRunner(line *Line, runner FzfRunner) *Fzf {
	return &Fzf{
		line:       line,
		runner:     runner,
		isTerminal: func() bool { return true },
	}
}

// Confirm delegates to the line prompter
func (f *Fzf) Confirm(message string) (bool, error) {
	return f.line.Confirm(message)
}

// Choose lets the operator pick an option with fzf
func (f *Fzf) Choose(message string, options []Option) (string, error) {
	if len(options) == 0 {
		return "", errors.New("no options available")
	}
	if !f.isTerminal() {
		return f.line.Choose(message, options)
	}

	args := []string{
		"--prompt=" + message + " ",
		"--height=10",
		"--layout=reverse",
		"--no-multi",
		"--cycle",
		"--no-sort",
		"--no-mouse",
		"--border=none",
	}

	opts, err := fzf.ParseOptions(true, args)
	if err != nil {
		return "", errors.Errorf("failed to parse fzf options: %w", err)
	}

	input := make(chan string, len(options))
	for _, option := range options {
		line := option.Value
		if option.Description != "" {
			line = fmt.Sprintf("%s%s%s", option.Value, descriptionSeparator, option.Description)
		}
		input <- line
	}
	close(input)

	output := make(chan string, len(options))
	opts.Input = input
	opts.Output = output

	exitCode, err := f.runner.Run(opts)
	if err != nil {
		return f.line.Choose(message, options)
	}
	if exitCode != fzf.ExitOk {
		return DefaultValue(options), nil
	}

	var selected string
	select {
	case selected = <-output:
	default:
		return DefaultValue(options), nil
	}

	value := strings.TrimSpace(strings.SplitN(selected, descriptionSeparator, 2)[0])
	for _, option := range options {
		if option.Value == value {
			return option.Value, nil
		}
	}
	return DefaultValue(options), nil
}

var _ Prompter = (*Fzf)(nil)
