// Package outline renders a decision tree as a text outline.
package outline

import (
	"fmt"
	"io"
	"strings"

	"github.com/ddddddO/gtree"

	"tree_nav/internal/domain/tree"
)

const emptyTree = "(empty tree)"

// Write prints t to w. Options are prefixed with their index so that equal
// labels under one question stay distinct nodes.
func Write(w io.Writer, t *tree.Tree) error {
	if t.Empty() {
		_, err := fmt.Fprintln(w, emptyTree)
		return err
	}
	root := gtree.NewRoot(questionText(t.Root))
	addOptions(root, t.Root)
	if err := gtree.OutputFromRoot(w, root); err != nil {
		return fmt.Errorf("render outline: %w", err)
	}
	return nil
}

func String(t *tree.Tree) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, t); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func addOptions(parent *gtree.Node, n *tree.DecisionNode) {
	for i, b := range n.Options {
		if b.Child == nil {
			parent.Add(fmt.Sprintf("[%d] %s => %s", i, b.Value, b.Result))
			continue
		}
		child := parent.Add(fmt.Sprintf("[%d] %s -> %s", i, b.Value, questionText(b.Child)))
		addOptions(child, b.Child)
	}
}

func questionText(n *tree.DecisionNode) string {
	return n.Question + "?"
}
