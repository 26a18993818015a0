// Package storage defines the transactional store the services run against.
// Backends live in the postgres and sqlite subpackages.
package storage

import (
	"context"
	"errors"

	"github.com/adanyl0v/go-boards/internal/models"
)

var (
	// ErrNotFound is returned when a keyed read or write matches no row.
	ErrNotFound = errors.New("not found")

	// ErrConstraint wraps foreign key, unique, check and not-null violations.
	ErrConstraint = errors.New("constraint violation")
)

// Kind names an entity kind in the ownership index.
type Kind string

const (
	KindBoard   Kind = "board"
	KindList    Kind = "list"
	KindCard    Kind = "card"
	KindSubtask Kind = "subtask"
)

type Store interface {
	// InTx runs fn inside one transaction bound to one pooled connection.
	// The transaction is committed when fn returns nil and rolled back
	// otherwise; the connection is released on every exit path.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Tx is the set of statements available inside a transaction.
//
// Owner rows are written explicitly by the caller through InsertOwner,
// while every Delete* method removes the owner rows of the deleted item
// and of all its cascade children in the same transaction.
type Tx interface {
	// CountOwned returns how many distinct ids of the given kind are
	// owned by userID. Ids are expected to be deduplicated.
	CountOwned(ctx context.Context, userID string, kind Kind, ids []int64) (int, error)
	InsertOwner(ctx context.Context, kind Kind, itemID int64, userID string) error

	InsertBoard(ctx context.Context, board *models.Board) error
	GetBoard(ctx context.Context, id int64) (*models.Board, error)
	DeleteBoard(ctx context.Context, id int64) error

	InsertList(ctx context.Context, list *models.List) error
	// NextListOrder returns one past the highest order on the board, or 0.
	NextListOrder(ctx context.Context, boardID int64) (int, error)
	ListListsByBoard(ctx context.Context, boardID int64) ([]models.List, error)
	DeleteList(ctx context.Context, id int64) error

	InsertCard(ctx context.Context, card *models.Card) error
	NextCardOrder(ctx context.Context, listID int64) (int, error)
	ListCardsByBoard(ctx context.Context, boardID int64) ([]models.Card, error)
	// UpdateCardPosition returns ErrNotFound when no card has the given id.
	UpdateCardPosition(ctx context.Context, id int64, order int, listID int64) error
	DeleteCard(ctx context.Context, id int64) error

	BoardIDsByLists(ctx context.Context, listIDs []int64) ([]int64, error)
	BoardIDsByCards(ctx context.Context, cardIDs []int64) ([]int64, error)

	SubtaskIDs(ctx context.Context, cardID int64) ([]int64, error)
	NextSubtaskOrder(ctx context.Context, cardID int64) (int, error)
	InsertSubtask(ctx context.Context, subtask *models.Subtask) error
	// UpdateSubtask returns ErrNotFound when no subtask of the card has the id.
	UpdateSubtask(ctx context.Context, subtask *models.Subtask) error
	DeleteSubtasks(ctx context.Context, cardID int64, ids []int64) error
	ListSubtasks(ctx context.Context, cardID int64) ([]models.Subtask, error)
}
