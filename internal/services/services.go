package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adanyl0v/go-boards/internal/models"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrStorage      = errors.New("storage failure")
)

// ValidationError rejects a request before any transaction is opened.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// StorageError reports a failed statement or transaction. The whole
// transaction it happened in has been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

type OrderService interface {
	// ReorderCards assigns (order, list) to every card of the batch in one
	// transaction. The batch is rejected with ErrForbidden, without side
	// effects, unless the user owns every card and every destination list.
	//
	// There is no version check: two overlapping batches touching the same
	// list interleave at the store's isolation level and the last commit wins.
	ReorderCards(ctx context.Context, userID string, batch []models.CardOrder) error
}

type SubtaskService interface {
	// ReplaceAll makes the card's stored subtasks exactly equal to the given
	// array, in array order, and returns the canonical sorted result.
	//
	// It is destructive: every stored subtask whose id is absent from the
	// array is deleted. Entries without an id, or with an id the card does
	// not have, are inserted with a fresh id.
	ReplaceAll(ctx context.Context, userID string, cardID int64, subtasks []models.SubtaskInput) ([]models.Subtask, error)

	// List returns the card's subtasks sorted by order.
	List(ctx context.Context, userID string, cardID int64) ([]models.Subtask, error)

	// Add appends a single subtask to the card.
	Add(ctx context.Context, userID string, cardID int64, title string) (*models.Subtask, error)
}

type BoardService interface {
	CreateBoard(ctx context.Context, userID, title string) (*models.Board, error)
	GetBoard(ctx context.Context, userID string, boardID int64) (*models.BoardView, error)
	DeleteBoard(ctx context.Context, userID string, boardID int64) error

	// CreateList appends a list to the board.
	CreateList(ctx context.Context, userID string, boardID int64, title string) (*models.List, error)
	DeleteList(ctx context.Context, userID string, listID int64) error

	// CreateCard appends a card to the list.
	CreateCard(ctx context.Context, params CreateCardParams) (*models.Card, error)
	DeleteCard(ctx context.Context, userID string, cardID int64) error
}

type CreateCardParams struct {
	UserID string
	ListID int64
	Title  string
	// Status defaults to models.StatusTodo when empty.
	Status   string
	Priority int
	DueDate  *time.Time
	Emotion  *string
}
