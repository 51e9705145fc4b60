package session

import "time"

// Session is the persisted navigation slot of one user. Its navigator state is
// rebuilt by replaying Choices over the tree identified by TreeID.
type Session struct {
	ID        string    `json:"session_id"`
	TreeID    string    `json:"tree_id"`
	Choices   []int     `json:"choices"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateRequest struct {
	TreeID string `json:"tree_id" validate:"required,uuid"`
}

// ChooseRequest selects an option either by index or by its value.
type ChooseRequest struct {
	Option *int   `json:"option,omitempty" validate:"omitempty,min=0"`
	Value  string `json:"value,omitempty" validate:"required_without=Option"`
}
