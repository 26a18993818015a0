package models

import "time"

type Board struct {
	ID        int64
	UserID    string
	Title     string
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type List struct {
	ID        int64
	BoardID   int64
	Title     string
	Order     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BoardView is a board together with its lists and their cards,
// each level sorted by order ascending.
type BoardView struct {
	Board Board
	Lists []ListView
}

type ListView struct {
	List  List
	Cards []Card
}
