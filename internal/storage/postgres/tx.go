package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/adanyl0v/go-boards/internal/models"
	"github.com/adanyl0v/go-boards/internal/storage"
)

type tx struct {
	tx pgx.Tx
}

func (t *tx) CountOwned(ctx context.Context, userID string, kind storage.Kind, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const countOwnedQuery = `
SELECT COUNT(DISTINCT item_id)
FROM item_owners
WHERE kind = $1 AND user_id = $2 AND item_id = ANY($3)
`
	var count int
	err := t.tx.QueryRow(ctx, countOwnedQuery, string(kind), userID, ids).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (t *tx) InsertOwner(ctx context.Context, kind storage.Kind, itemID int64, userID string) error {
	const insertOwnerQuery = `
INSERT INTO item_owners (kind, item_id, user_id)
VALUES ($1, $2, $3)
`
	_, err := t.tx.Exec(ctx, insertOwnerQuery, string(kind), itemID, userID)
	return wrapErr(err)
}

func (t *tx) InsertBoard(ctx context.Context, board *models.Board) error {
	const insertBoardQuery = `
INSERT INTO boards (user_id, title, archived, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`
	err := t.tx.QueryRow(ctx, insertBoardQuery,
		board.UserID,
		board.Title,
		board.Archived,
		board.CreatedAt,
		board.UpdatedAt,
	).Scan(&board.ID)
	return wrapErr(err)
}

func (t *tx) GetBoard(ctx context.Context, id int64) (*models.Board, error) {
	const selectBoardQuery = `
SELECT id, user_id, title, archived, created_at, updated_at
FROM boards WHERE id = $1
`
	var board models.Board
	err := t.tx.QueryRow(ctx, selectBoardQuery, id).Scan(
		&board.ID,
		&board.UserID,
		&board.Title,
		&board.Archived,
		&board.CreatedAt,
		&board.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &board, nil
}

func (t *tx) DeleteBoard(ctx context.Context, id int64) error {
	const deleteBoardOwnersQuery = `
DELETE FROM item_owners
WHERE (kind = 'board' AND item_id = $1)
   OR (kind = 'list' AND item_id IN (SELECT id FROM lists WHERE board_id = $1))
   OR (kind = 'card' AND item_id IN (
        SELECT c.id FROM cards c JOIN lists l ON l.id = c.list_id WHERE l.board_id = $1))
   OR (kind = 'subtask' AND item_id IN (
        SELECT s.id FROM subtasks s
        JOIN cards c ON c.id = s.card_id
        JOIN lists l ON l.id = c.list_id
        WHERE l.board_id = $1))
`
	if _, err := t.tx.Exec(ctx, deleteBoardOwnersQuery, id); err != nil {
		return wrapErr(err)
	}
	return t.deleteByID(ctx, `DELETE FROM boards WHERE id = $1`, id)
}

func (t *tx) InsertList(ctx context.Context, list *models.List) error {
	const insertListQuery = `
INSERT INTO lists (board_id, title, "order", created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`
	err := t.tx.QueryRow(ctx, insertListQuery,
		list.BoardID,
		list.Title,
		list.Order,
		list.CreatedAt,
		list.UpdatedAt,
	).Scan(&list.ID)
	return wrapErr(err)
}

func (t *tx) NextListOrder(ctx context.Context, boardID int64) (int, error) {
	return t.count(ctx, `SELECT COALESCE(MAX("order") + 1, 0) FROM lists WHERE board_id = $1`, boardID)
}

func (t *tx) ListListsByBoard(ctx context.Context, boardID int64) ([]models.List, error) {
	const selectListsQuery = `
SELECT id, board_id, title, "order", created_at, updated_at
FROM lists
WHERE board_id = $1
ORDER BY "order", id
`
	rows, err := t.tx.Query(ctx, selectListsQuery, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []models.List
	for rows.Next() {
		var list models.List
		err = rows.Scan(
			&list.ID,
			&list.BoardID,
			&list.Title,
			&list.Order,
			&list.CreatedAt,
			&list.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

func (t *tx) DeleteList(ctx context.Context, id int64) error {
	const deleteListOwnersQuery = `
DELETE FROM item_owners
WHERE (kind = 'list' AND item_id = $1)
   OR (kind = 'card' AND item_id IN (SELECT id FROM cards WHERE list_id = $1))
   OR (kind = 'subtask' AND item_id IN (
        SELECT s.id FROM subtasks s JOIN cards c ON c.id = s.card_id WHERE c.list_id = $1))
`
	if _, err := t.tx.Exec(ctx, deleteListOwnersQuery, id); err != nil {
		return wrapErr(err)
	}
	return t.deleteByID(ctx, `DELETE FROM lists WHERE id = $1`, id)
}

func (t *tx) InsertCard(ctx context.Context, card *models.Card) error {
	const insertCardQuery = `
INSERT INTO cards (list_id, title, "order", status, priority, due_date, emotion, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id
`
	err := t.tx.QueryRow(ctx, insertCardQuery,
		card.ListID,
		card.Title,
		card.Order,
		card.Status,
		card.Priority,
		card.DueDate,
		card.Emotion,
		card.CreatedAt,
		card.UpdatedAt,
	).Scan(&card.ID)
	return wrapErr(err)
}

func (t *tx) NextCardOrder(ctx context.Context, listID int64) (int, error) {
	return t.count(ctx, `SELECT COALESCE(MAX("order") + 1, 0) FROM cards WHERE list_id = $1`, listID)
}

func (t *tx) ListCardsByBoard(ctx context.Context, boardID int64) ([]models.Card, error) {
	const selectCardsQuery = `
SELECT c.id, c.list_id, c.title, c."order", c.status, c.priority,
       c.due_date, c.emotion, c.created_at, c.updated_at
FROM cards c
JOIN lists l ON l.id = c.list_id
WHERE l.board_id = $1
ORDER BY c.list_id, c."order", c.id
`
	rows, err := t.tx.Query(ctx, selectCardsQuery, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var card models.Card
		err = rows.Scan(
			&card.ID,
			&card.ListID,
			&card.Title,
			&card.Order,
			&card.Status,
			&card.Priority,
			&card.DueDate,
			&card.Emotion,
			&card.CreatedAt,
			&card.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (t *tx) UpdateCardPosition(ctx context.Context, id int64, order int, listID int64) error {
	const updateCardPositionQuery = `
UPDATE cards SET "order" = $1, list_id = $2, updated_at = $3
WHERE id = $4
`
	tag, err := t.tx.Exec(ctx, updateCardPositionQuery, order, listID, time.Now(), id)
	if err != nil {
		return wrapErr(err)
	}
	return requireAffected(tag)
}

func (t *tx) DeleteCard(ctx context.Context, id int64) error {
	const deleteCardOwnersQuery = `
DELETE FROM item_owners
WHERE (kind = 'card' AND item_id = $1)
   OR (kind = 'subtask' AND item_id IN (SELECT id FROM subtasks WHERE card_id = $1))
`
	if _, err := t.tx.Exec(ctx, deleteCardOwnersQuery, id); err != nil {
		return wrapErr(err)
	}
	return t.deleteByID(ctx, `DELETE FROM cards WHERE id = $1`, id)
}

func (t *tx) BoardIDsByLists(ctx context.Context, listIDs []int64) ([]int64, error) {
	if len(listIDs) == 0 {
		return nil, nil
	}
	return t.ids(ctx, `SELECT DISTINCT board_id FROM lists WHERE id = ANY($1) ORDER BY board_id`, listIDs)
}

func (t *tx) BoardIDsByCards(ctx context.Context, cardIDs []int64) ([]int64, error) {
	if len(cardIDs) == 0 {
		return nil, nil
	}
	const selectBoardIDsByCardsQuery = `
SELECT DISTINCT l.board_id
FROM cards c JOIN lists l ON l.id = c.list_id
WHERE c.id = ANY($1)
ORDER BY l.board_id
`
	return t.ids(ctx, selectBoardIDsByCardsQuery, cardIDs)
}

func (t *tx) SubtaskIDs(ctx context.Context, cardID int64) ([]int64, error) {
	return t.ids(ctx, `SELECT id FROM subtasks WHERE card_id = $1 ORDER BY "order", id`, cardID)
}

func (t *tx) NextSubtaskOrder(ctx context.Context, cardID int64) (int, error) {
	return t.count(ctx, `SELECT COALESCE(MAX("order") + 1, 0) FROM subtasks WHERE card_id = $1`, cardID)
}

func (t *tx) InsertSubtask(ctx context.Context, subtask *models.Subtask) error {
	const insertSubtaskQuery = `
INSERT INTO subtasks (card_id, title, is_completed, "order", created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`
	err := t.tx.QueryRow(ctx, insertSubtaskQuery,
		subtask.CardID,
		subtask.Title,
		subtask.IsCompleted,
		subtask.Order,
		subtask.CreatedAt,
		subtask.UpdatedAt,
	).Scan(&subtask.ID)
	return wrapErr(err)
}

func (t *tx) UpdateSubtask(ctx context.Context, subtask *models.Subtask) error {
	const updateSubtaskQuery = `
UPDATE subtasks SET title = $1, is_completed = $2, "order" = $3, updated_at = $4
WHERE id = $5 AND card_id = $6
`
	tag, err := t.tx.Exec(ctx, updateSubtaskQuery,
		subtask.Title,
		subtask.IsCompleted,
		subtask.Order,
		subtask.UpdatedAt,
		subtask.ID,
		subtask.CardID,
	)
	if err != nil {
		return wrapErr(err)
	}
	return requireAffected(tag)
}

func (t *tx) DeleteSubtasks(ctx context.Context, cardID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	const deleteSubtaskOwnersQuery = `
DELETE FROM item_owners
WHERE kind = 'subtask' AND item_id IN (
    SELECT id FROM subtasks WHERE card_id = $1 AND id = ANY($2))
`
	if _, err := t.tx.Exec(ctx, deleteSubtaskOwnersQuery, cardID, ids); err != nil {
		return wrapErr(err)
	}

	const deleteSubtasksQuery = `
DELETE FROM subtasks
WHERE card_id = $1 AND id = ANY($2)
`
	if _, err := t.tx.Exec(ctx, deleteSubtasksQuery, cardID, ids); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (t *tx) ListSubtasks(ctx context.Context, cardID int64) ([]models.Subtask, error) {
	const selectSubtasksQuery = `
SELECT id, card_id, title, is_completed, "order", created_at, updated_at
FROM subtasks
WHERE card_id = $1
ORDER BY "order", id
`
	rows, err := t.tx.Query(ctx, selectSubtasksQuery, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subtasks := make([]models.Subtask, 0)
	for rows.Next() {
		var subtask models.Subtask
		err = rows.Scan(
			&subtask.ID,
			&subtask.CardID,
			&subtask.Title,
			&subtask.IsCompleted,
			&subtask.Order,
			&subtask.CreatedAt,
			&subtask.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		subtasks = append(subtasks, subtask)
	}
	return subtasks, rows.Err()
}

func (t *tx) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *tx) ids(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *tx) deleteByID(ctx context.Context, query string, id int64) error {
	tag, err := t.tx.Exec(ctx, query, id)
	if err != nil {
		return wrapErr(err)
	}
	return requireAffected(tag)
}

func requireAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no rows affected: %w", storage.ErrNotFound)
	}
	return nil
}
