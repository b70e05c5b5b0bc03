// Package prompt provides the operator questions asked during a run.
//
// A Prompter answers yes/no questions and picks one of a fixed set of options.
// Line reads answers from a terminal, Fzf picks options with fzf and Auto
// answers everything without input for unattended runs.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gitlab.com/tozd/go/errors"
)

// Prompter asks the operator questions
type Prompter interface {
	// Confirm asks a yes/no question. An empty answer means no.
	Confirm(message string) (bool, error)

	// Choose asks the operator to pick one option and returns its value.
	// An empty or unrecognized answer selects the default option.
	Choose(message string, options []Option) (string, error)
}

// Option is one answer of a Choose question
type Option struct {
	Value       string
	Description string
	Default     bool
}

// DefaultValue returns the value of the default option, or the first option when none is marked
func DefaultValue(options []Option) string {
	for _, option := range options {
		if option.Default {
			return option.Value
		}
	}
	if len(options) > 0 {
		return options[0].Value
	}
	return ""
}

// Line prompts on a line based terminal
type Line struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewLine creates a prompter reading answers from in and writing questions to out
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

func (l *Line) ask(message, hint string) (string, error) {
	fmt.Fprintf(l.out, "%s (%s): ", color.New(color.FgRed).Sprint(message), hint)

	answer, err := l.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Errorf("reading answer: %w", err)
	}
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(l.out)
	}

	return strings.ToLower(strings.TrimSpace(answer)), nil
}

// Confirm asks a y/N question
func (l *Line) Confirm(message string) (bool, error) {
	answer, err := l.ask(message, "y/N")
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "yes", nil
}

// Choose asks for one of the option values, shown as "y/N/archive" with the default capitalized
func (l *Line) Choose(message string, options []Option) (string, error) {
	if len(options) == 0 {
		return "", errors.New("no options available")
	}

	fallback := DefaultValue(options)
	hints := make([]string, 0, len(options))
	for _, option := range options {
		if option.Value == fallback && option.Value != "" {
			hints = append(hints, strings.ToUpper(option.Value[:1])+option.Value[1:])
		} else {
			hints = append(hints, option.Value)
		}
	}

	answer, err := l.ask(message, strings.Join(hints, "/"))
	if err != nil {
		return "", err
	}

	for _, option := range options {
		if strings.EqualFold(option.Value, answer) {
			return option.Value, nil
		}
	}
	return fallback, nil
}

// Auto answers every question without reading input
type Auto struct {
	// Answer is returned by Confirm
	Answer bool
}

// Confirm returns the configured answer
func (a Auto) Confirm(string) (bool, error) {
	return a.Answer, nil
}

// Choose returns the default option
func (a Auto) Choose(_ string, options []Option) (string, error) {
	if len(options) == 0 {
		return "", errors.New("no options available")
	}
	return DefaultValue(options), nil
}

var (
	_ Prompter = (*Line)(nil)
	_ Prompter = Auto{}
)
