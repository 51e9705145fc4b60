package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Kind int

const (
	KindIgnore Kind = iota
	// KindNode opens a new decision node (`if question ...`).
	KindNode
	// KindCondition opens a node, or continues the open node at the same depth
	// when it asks the same question, and names the node's next branch.
	KindCondition
	// KindLeaf adds a terminal branch to the open node.
	KindLeaf
)

// Line is the classified form of one raw input line.
type Line struct {
	Kind     Kind
	Depth    int
	Question string
	Label    string
	Result   string
}

// LineClassifier decides what a raw line means. Implementations must not
// retain the line.
type LineClassifier interface {
	Name() string
	Classify(raw string) Line
}

const (
	FormatAuto    = "auto"
	FormatPlain   = "plain"
	FormatSkLearn = "sklearn"
)

// ClassifierFor resolves a format name. FormatAuto returns nil, which makes
// Parse pick a classifier from the text itself.
func ClassifierFor(format string) (LineClassifier, error) {
	switch format {
	case "", FormatAuto:
		return nil, nil
	case FormatPlain:
		return Plain{}, nil
	case FormatSkLearn:
		return SkLearn{}, nil
	default:
		return nil, fmt.Errorf("unknown tree format %q", format)
	}
}

// Detect guesses the export format of text.
func Detect(text string) LineClassifier {
	if strings.Contains(text, skLearnGuide) {
		return SkLearn{}
	}
	return Plain{}
}

// Plain reads the `if <question>` / `class: <value>` pretty-print format. Depth
// is the count of leading whitespace characters.
type Plain struct{}

func (Plain) Name() string { return FormatPlain }

func (Plain) Classify(raw string) Line {
	indent := strings.IndexFunc(raw, func(r rune) bool {
		return !unicode.IsSpace(r)
	})
	if indent < 0 {
		return Line{Kind: KindIgnore}
	}
	depth := utf8.RuneCountInString(raw[:indent])
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return Line{Kind: KindIgnore, Depth: depth}
	}
	switch fields[0] {
	case "if":
		return Line{
			Kind:     KindNode,
			Depth:    depth,
			Question: fields[1],
			Label:    strings.Join(fields[2:], " "),
		}
	case "class:":
		return Line{Kind: KindLeaf, Depth: depth, Result: fields[1]}
	}
	return Line{Kind: KindIgnore, Depth: depth}
}

const skLearnGuide = "|---"

// SkLearn reads scikit-learn export_text output:
//
//	|--- petal width (cm) <= 0.80
//	|   |--- class: 0
//	|--- petal width (cm) >  0.80
//	|   |--- class: 1
//
// Depth is the number of `|` guides before the arrow.
type SkLearn struct{}

func (SkLearn) Name() string { return FormatSkLearn }

var skLearnOperators = []string{"<=", ">=", "<", ">", "=="}

func (SkLearn) Classify(raw string) Line {
	at := strings.Index(raw, skLearnGuide)
	if at < 0 {
		return Line{Kind: KindIgnore}
	}
	depth := strings.Count(raw[:at], "|")
	body := strings.TrimSpace(raw[at+len(skLearnGuide):])
	if body == "" {
		return Line{Kind: KindIgnore, Depth: depth}
	}

	if rest, ok := strings.CutPrefix(body, "class:"); ok {
		result := strings.TrimSpace(rest)
		if result == "" {
			return Line{Kind: KindIgnore, Depth: depth}
		}
		return Line{Kind: KindLeaf, Depth: depth, Result: result}
	}
	// show_weights=True prints the class after the sample weights
	if strings.HasPrefix(body, "weights:") {
		_, rest, ok := strings.Cut(body, "class:")
		result := strings.TrimSpace(rest)
		if !ok || result == "" {
			return Line{Kind: KindIgnore, Depth: depth}
		}
		return Line{Kind: KindLeaf, Depth: depth, Result: result}
	}
	// value: [...] and truncated branches carry no structure
	if strings.HasPrefix(body, "value:") || strings.HasPrefix(body, "truncated") {
		return Line{Kind: KindIgnore, Depth: depth}
	}

	for _, op := range skLearnOperators {
		i := strings.Index(body, " "+op+" ")
		if i < 0 {
			continue
		}
		feature := strings.TrimSpace(body[:i])
		threshold := strings.TrimSpace(body[i+len(op)+2:])
		if feature == "" || threshold == "" {
			break
		}
		return Line{
			Kind:     KindCondition,
			Depth:    depth,
			Question: feature,
			Label:    op + " " + threshold,
		}
	}
	return Line{Kind: KindIgnore, Depth: depth}
}
