// Package navigator walks a decision tree one answer at a time. State is an
// immutable value; every transition returns a new State and leaves the
// receiver untouched.
package navigator

import (
	"errors"
	"fmt"

	"tree_nav/internal/domain/tree"
)

type Status int

const (
	NoTree Status = iota
	AtNode
	AtResult
)

func (s Status) String() string {
	switch s {
	case AtNode:
		return "at_node"
	case AtResult:
		return "at_result"
	default:
		return "no_tree"
	}
}

var ErrInvalidChoice = errors.New("choice is not an option of the current question")

type State struct {
	tree     *tree.Tree
	current  *tree.DecisionNode
	path     []tree.PathStep
	result   string
	resolved bool
}

// Load starts navigation at the root of t with an empty path. An empty tree or
// a root without options is an unresolved terminal state.
func Load(t *tree.Tree) State {
	s := State{tree: t}
	if !t.Empty() && len(t.Root.Options) > 0 {
		s.current = t.Root
	}
	return s
}

// Reset is Load on the same tree. The tree is not re-parsed.
func (s State) Reset() State {
	if s.tree == nil {
		return State{}
	}
	return Load(s.tree)
}

func (s State) Status() Status {
	switch {
	case s.tree == nil:
		return NoTree
	case s.current != nil:
		return AtNode
	default:
		return AtResult
	}
}

func (s State) Tree() *tree.Tree {
	return s.tree
}

// Current is the open question, nil unless Status is AtNode.
func (s State) Current() *tree.DecisionNode {
	return s.current
}

// Path returns a copy of the answers given since the last Load or Reset.
func (s State) Path() []tree.PathStep {
	out := make([]tree.PathStep, len(s.path))
	copy(out, s.path)
	return out
}

// Outcome reports the leaf result. ok is false when navigation has not
// reached a leaf, including the empty tree.
func (s State) Outcome() (result string, ok bool) {
	return s.result, s.resolved
}

// Choose follows b, which must be one of the current node's options. On error
// the returned state is s.
func (s State) Choose(b *tree.Branch) (State, error) {
	if s.current == nil || b == nil {
		return s, ErrInvalidChoice
	}
	for i := range s.current.Options {
		if &s.current.Options[i] == b {
			return s.ChooseIndex(i)
		}
	}
	return s, ErrInvalidChoice
}

func (s State) ChooseIndex(i int) (State, error) {
	if s.current == nil {
		return s, fmt.Errorf("%w: nothing left to answer", ErrInvalidChoice)
	}
	if i < 0 || i >= len(s.current.Options) {
		return s, fmt.Errorf("%w: option %d of %d", ErrInvalidChoice, i, len(s.current.Options))
	}
	b := s.current.Options[i]

	next := State{tree: s.tree}
	next.path = make([]tree.PathStep, len(s.path), len(s.path)+1)
	copy(next.path, s.path)
	next.path = append(next.path, tree.PathStep{Question: s.current.Question, Answer: b.Value})

	if b.Child != nil {
		next.current = b.Child
	} else {
		next.result = b.Result
		next.resolved = true
	}
	return next, nil
}

// ChooseValue picks the first option labeled v.
func (s State) ChooseValue(v string) (State, error) {
	if s.current == nil {
		return s, fmt.Errorf("%w: nothing left to answer", ErrInvalidChoice)
	}
	for i, b := range s.current.Options {
		if b.Value == v {
			return s.ChooseIndex(i)
		}
	}
	return s, fmt.Errorf("%w: %q", ErrInvalidChoice, v)
}

// Replay loads t and applies choices in order, stopping at the first invalid
// one.
func Replay(t *tree.Tree, choices []int) (State, error) {
	s := Load(t)
	for _, c := range choices {
		next, err := s.ChooseIndex(c)
		if err != nil {
			return s, err
		}
		s = next
	}
	return s, nil
}
