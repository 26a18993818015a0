package models

import "time"

type Subtask struct {
	ID          int64
	CardID      int64
	Title       string
	IsCompleted bool
	Order       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubtaskInput is one element of a full-array subtask replacement.
// A nil ID marks an entry the store has not seen yet.
type SubtaskInput struct {
	ID          *int64
	Title       string
	IsCompleted bool
}
