// Package parser turns an indentation-structured text export of a decision
// tree into a tree.Tree. It is permissive: lines it does not understand are
// skipped, and input without any node line yields the empty tree.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"tree_nav/internal/domain/tree"
)

const maxLineBytes = 1 << 20

type options struct {
	classifier LineClassifier
}

type Option func(*options)

// WithClassifier fixes the line classifier instead of detecting it.
func WithClassifier(c LineClassifier) Option {
	return func(o *options) {
		o.classifier = c
	}
}

// Parse builds a tree from text. It never fails.
func Parse(text string, opts ...Option) *tree.Tree {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.classifier == nil {
		o.classifier = Detect(text)
	}

	b := newBuilder()
	for _, raw := range strings.Split(text, "\n") {
		b.add(o.classifier.Classify(raw))
	}
	return &tree.Tree{Root: b.root}
}

// ParseReader reads r to completion and parses it. A read error discards
// everything read so far.
func ParseReader(r io.Reader, opts ...Option) (*tree.Tree, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		sb.Write(scanner.Bytes())
		sb.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tree source: %w", err)
	}
	return Parse(sb.String(), opts...), nil
}

type frame struct {
	depth int
	node  *tree.DecisionNode
	// pending labels the next branch appended to node
	pending string
}

type builder struct {
	root  *tree.DecisionNode
	stack []*frame
}

func newBuilder() *builder {
	return &builder{}
}

func (b *builder) top() *frame {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *builder) pop() {
	b.stack = b.stack[:len(b.stack)-1]
}

func (b *builder) add(line Line) {
	switch line.Kind {
	case KindNode:
		for top := b.top(); top != nil && top.depth >= line.Depth; top = b.top() {
			b.pop()
		}
		node := &tree.DecisionNode{Question: line.Question}
		b.attach(node, line.Label)
		b.stack = append(b.stack, &frame{depth: line.Depth, node: node})

	case KindCondition:
		for top := b.top(); top != nil && top.depth > line.Depth; top = b.top() {
			b.pop()
		}
		if top := b.top(); top != nil && top.depth == line.Depth {
			if top.node.Question == line.Question {
				top.pending = line.Label
				return
			}
			b.pop()
		}
		node := &tree.DecisionNode{Question: line.Question}
		b.attach(node, "")
		b.stack = append(b.stack, &frame{depth: line.Depth, node: node, pending: line.Label})

	case KindLeaf:
		top := b.top()
		if top == nil {
			return
		}
		value := line.Result
		if top.pending != "" {
			value = top.pending
			top.pending = ""
		}
		top.node.Options = append(top.node.Options, tree.Branch{Value: value, Result: line.Result})
	}
}

// attach links node under the open parent, or makes it the root. The branch
// label falls back from the line's own label to the parent's pending label to
// the child's question.
func (b *builder) attach(node *tree.DecisionNode, label string) {
	parent := b.top()
	if parent == nil {
		b.root = node
		return
	}
	if label == "" {
		label = parent.pending
	}
	if label == "" {
		label = node.Question
	}
	parent.pending = ""
	parent.node.Options = append(parent.node.Options, tree.Branch{Value: label, Child: node})
}
