package tree

import "fmt"

// AsMap encodes the tree with only strings, slices and maps so it fits into a
// google.protobuf.Struct.
func (t *Tree) AsMap() map[string]any {
	if t.Empty() {
		return map[string]any{}
	}
	return map[string]any{"root": nodeAsMap(t.Root)}
}

func nodeAsMap(n *DecisionNode) map[string]any {
	options := make([]any, 0, len(n.Options))
	for _, b := range n.Options {
		option := map[string]any{"value": b.Value}
		if b.Child != nil {
			option["child"] = nodeAsMap(b.Child)
		} else {
			option["result"] = b.Result
		}
		options = append(options, option)
	}
	return map[string]any{
		"question": n.Question,
		"options":  options,
	}
}

// FromMap is the inverse of AsMap. The decoded tree is validated.
func FromMap(m map[string]any) (*Tree, error) {
	raw, ok := m["root"]
	if !ok || raw == nil {
		return &Tree{}, nil
	}
	rootMap, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("root: expected object, got %T", raw)
	}
	root, err := nodeFromMap(rootMap)
	if err != nil {
		return nil, err
	}
	t := &Tree{Root: root}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func nodeFromMap(m map[string]any) (*DecisionNode, error) {
	question, _ := m["question"].(string)
	n := &DecisionNode{Question: question}

	rawOptions, _ := m["options"].([]any)
	for i, raw := range rawOptions {
		om, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s.options[%d]: expected object, got %T", question, i, raw)
		}
		b := Branch{}
		b.Value, _ = om["value"].(string)
		b.Result, _ = om["result"].(string)
		if childRaw, ok := om["child"]; ok && childRaw != nil {
			cm, ok := childRaw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s.options[%d].child: expected object, got %T", question, i, childRaw)
			}
			child, err := nodeFromMap(cm)
			if err != nil {
				return nil, err
			}
			b.Child = child
		}
		n.Options = append(n.Options, b)
	}
	return n, nil
}
