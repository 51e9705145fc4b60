package tree

import (
	"errors"
	"fmt"
	"time"
)

// DecisionNode is an internal node of the tree: one question and the ordered
// answers that leave it.
type DecisionNode struct {
	Question string   `json:"question" bson:"question" yaml:"question"`
	Options  []Branch `json:"options" bson:"options" yaml:"options"`
}

// Branch is one labeled edge of a DecisionNode. Exactly one of Child and
// Result is set.
type Branch struct {
	Value  string        `json:"value" bson:"value" yaml:"value"`
	Child  *DecisionNode `json:"child,omitempty" bson:"child,omitempty" yaml:"child,omitempty"`
	Result string        `json:"result,omitempty" bson:"result,omitempty" yaml:"result,omitempty"`
}

func (b Branch) IsTerminal() bool {
	return b.Child == nil
}

// Tree owns the whole node graph. A nil Root is the empty tree.
type Tree struct {
	Root *DecisionNode `json:"root" bson:"root" yaml:"root"`
}

// PathStep records one answered question.
type PathStep struct {
	Question string `json:"question" bson:"question"`
	Answer   string `json:"answer" bson:"answer"`
}

// Stats summarizes the shape of a tree.
type Stats struct {
	Nodes  int `json:"nodes" bson:"nodes"`
	Leaves int `json:"leaves" bson:"leaves"`
	Depth  int `json:"depth" bson:"depth"`
}

// Upload is an uploaded export together with its parsed tree.
type Upload struct {
	ID        string        `json:"tree_id" bson:"tree_id"`
	FileName  string        `json:"file_name" bson:"file_name"`
	Format    string        `json:"format" bson:"format"`
	Source    string        `json:"-" bson:"source"`
	Root      *DecisionNode `json:"root" bson:"root"`
	Stats     Stats         `json:"stats" bson:"stats"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

func (u *Upload) Tree() *Tree {
	return &Tree{Root: u.Root}
}

var (
	ErrBranchWithoutTarget = errors.New("branch has neither child nor result")
	ErrBranchWithBoth      = errors.New("branch has both child and result")
	ErrBranchWithoutValue  = errors.New("branch has no value")
)

func (t *Tree) Empty() bool {
	return t == nil || t.Root == nil
}

// Stats walks the tree once. Depth counts decision nodes on the longest path.
func (t *Tree) Stats() Stats {
	var s Stats
	if t.Empty() {
		return s
	}
	var walk func(n *DecisionNode, depth int)
	walk = func(n *DecisionNode, depth int) {
		s.Nodes++
		if depth > s.Depth {
			s.Depth = depth
		}
		for _, b := range n.Options {
			if b.Child != nil {
				walk(b.Child, depth+1)
			} else {
				s.Leaves++
			}
		}
	}
	walk(t.Root, 1)
	return s
}

// Validate checks the branch invariants of a tree built outside the parser.
func (t *Tree) Validate() error {
	if t.Empty() {
		return nil
	}
	return validateNode(t.Root, t.Root.Question)
}

func validateNode(n *DecisionNode, trail string) error {
	for i, b := range n.Options {
		where := fmt.Sprintf("%s[%d]", trail, i)
		switch {
		case b.Value == "":
			return fmt.Errorf("%s: %w", where, ErrBranchWithoutValue)
		case b.Child != nil && b.Result != "":
			return fmt.Errorf("%s: %w", where, ErrBranchWithBoth)
		case b.Child == nil && b.Result == "":
			return fmt.Errorf("%s: %w", where, ErrBranchWithoutTarget)
		case b.Child != nil:
			if err := validateNode(b.Child, where+"/"+b.Child.Question); err != nil {
				return err
			}
		}
	}
	return nil
}
