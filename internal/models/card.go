package models

import "time"

const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

const (
	MinPriority = 0
	MaxPriority = 3
)

type Card struct {
	ID        int64
	ListID    int64
	Title     string
	Order     int
	Status    string
	Priority  int
	DueDate   *time.Time
	Emotion   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CardOrder is one (id, order, container) triple of a reorder batch.
type CardOrder struct {
	ID     int64
	Order  int
	ListID int64
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}
