package navigation

import (
	"tree_nav/internal/domain/session"
	"tree_nav/internal/domain/tree"
	"tree_nav/internal/navigator"
)

type OptionView struct {
	Index    int    `json:"index"`
	Value    string `json:"value"`
	Terminal bool   `json:"terminal"`
}

// View is what a client sees of a session after every operation.
type View struct {
	SessionID string          `json:"session_id"`
	TreeID    string          `json:"tree_id"`
	FileName  string          `json:"file_name,omitempty"`
	Status    string          `json:"status"`
	Question  string          `json:"question,omitempty"`
	Options   []OptionView    `json:"options,omitempty"`
	Path      []tree.PathStep `json:"path"`
	Result    string          `json:"result,omitempty"`
	HasResult bool            `json:"has_result"`
	Stats     tree.Stats      `json:"stats"`
}

func newView(s session.Session, upload *tree.Upload, state navigator.State) View {
	v := View{
		SessionID: s.ID,
		TreeID:    upload.ID,
		FileName:  upload.FileName,
		Status:    state.Status().String(),
		Path:      state.Path(),
		Stats:     upload.Stats,
	}
	if v.Path == nil {
		v.Path = []tree.PathStep{}
	}

	if n := state.Current(); n != nil {
		v.Question = n.Question
		v.Options = make([]OptionView, 0, len(n.Options))
		for i, b := range n.Options {
			v.Options = append(v.Options, OptionView{Index: i, Value: b.Value, Terminal: b.IsTerminal()})
		}
	}

	v.Result, v.HasResult = state.Outcome()
	return v
}
