// Package console drives a navigator from a line-oriented terminal.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tree_nav/internal/navigator"
)

const (
	cmdReset = "r"
	cmdQuit  = "q"
)

// Walk prompts on out and reads answers from in until the user quits or in is
// exhausted. An answer is an option label or, failing that, its 1-based
// number. It returns the last state reached.
func Walk(in io.Reader, out io.Writer, s navigator.State) (navigator.State, error) {
	scanner := bufio.NewScanner(in)
	for {
		if err := render(out, s); err != nil {
			return s, err
		}
		if !scanner.Scan() {
			return s, scanner.Err()
		}
		answer := strings.TrimSpace(scanner.Text())
		switch answer {
		case "":
			continue
		case cmdQuit:
			return s, nil
		case cmdReset:
			s = s.Reset()
			continue
		}
		if s.Status() != navigator.AtNode {
			fmt.Fprintf(out, "type %s to start over or %s to quit\n", cmdReset, cmdQuit)
			continue
		}

		next, err := choose(s, answer)
		if errors.Is(err, navigator.ErrInvalidChoice) {
			fmt.Fprintf(out, "not an option: %s\n", answer)
			continue
		}
		if err != nil {
			return s, err
		}
		s = next
	}
}

// choose prefers an exact label, so numeric class labels are not read as
// positions.
func choose(s navigator.State, answer string) (navigator.State, error) {
	next, err := s.ChooseValue(answer)
	if err == nil {
		return next, nil
	}
	if n, convErr := strconv.Atoi(answer); convErr == nil {
		return s.ChooseIndex(n - 1)
	}
	return s, err
}

func render(out io.Writer, s navigator.State) error {
	var sb strings.Builder
	switch s.Status() {
	case navigator.NoTree:
		sb.WriteString("no tree loaded\n")
	case navigator.AtNode:
		n := s.Current()
		fmt.Fprintf(&sb, "\n%s?\n", n.Question)
		for i, b := range n.Options {
			fmt.Fprintf(&sb, "  %d) %s\n", i+1, b.Value)
		}
		sb.WriteString("> ")
	case navigator.AtResult:
		sb.WriteString("\nyour path:\n")
		for _, step := range s.Path() {
			fmt.Fprintf(&sb, "  %s: %s\n", step.Question, step.Answer)
		}
		if result, ok := s.Outcome(); ok {
			fmt.Fprintf(&sb, "result: %s\n", result)
		} else {
			sb.WriteString("result: none\n")
		}
		fmt.Fprintf(&sb, "[%s] start over, [%s] quit\n> ", cmdReset, cmdQuit)
	}
	_, err := io.WriteString(out, sb.String())
	return err
}
