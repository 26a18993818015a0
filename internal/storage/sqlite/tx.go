package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adanyl0v/go-boards/internal/models"
	"github.com/adanyl0v/go-boards/internal/storage"
)

type tx struct {
	tx *sql.Tx
}

func (t *tx) CountOwned(ctx context.Context, userID string, kind storage.Kind, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inClause(ids)
	query := `
SELECT COUNT(DISTINCT item_id)
FROM item_owners
WHERE kind = ? AND user_id = ? AND item_id IN (` + in + `)
`
	var count int
	err := t.tx.QueryRowContext(ctx, query, append([]any{string(kind), userID}, args...)...).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (t *tx) InsertOwner(ctx context.Context, kind storage.Kind, itemID int64, userID string) error {
	const insertOwnerQuery = `
INSERT INTO item_owners (kind, item_id, user_id)
VALUES (?, ?, ?)
`
	_, err := t.tx.ExecContext(ctx, insertOwnerQuery, string(kind), itemID, userID)
	return wrapErr(err)
}

func (t *tx) InsertBoard(ctx context.Context, board *models.Board) error {
	const insertBoardQuery = `
INSERT INTO boards (user_id, title, archived, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
`
	res, err := t.tx.ExecContext(ctx, insertBoardQuery,
		board.UserID,
		board.Title,
		boolToInt(board.Archived),
		formatTime(board.CreatedAt),
		formatTime(board.UpdatedAt),
	)
	if err != nil {
		return wrapErr(err)
	}
	board.ID, err = res.LastInsertId()
	return err
}

func (t *tx) GetBoard(ctx context.Context, id int64) (*models.Board, error) {
	const selectBoardQuery = `
SELECT id, user_id, title, archived, created_at, updated_at
FROM boards WHERE id = ?
`
	var (
		board                models.Board
		archived             int
		createdAt, updatedAt string
	)
	err := t.tx.QueryRowContext(ctx, selectBoardQuery, id).Scan(
		&board.ID,
		&board.UserID,
		&board.Title,
		&archived,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	board.Archived = archived == 1
	if board.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if board.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &board, nil
}

func (t *tx) DeleteBoard(ctx context.Context, id int64) error {
	const deleteBoardOwnersQuery = `
DELETE FROM item_owners
WHERE (kind = 'board' AND item_id = ?1)
   OR (kind = 'list' AND item_id IN (SELECT id FROM lists WHERE board_id = ?1))
   OR (kind = 'card' AND item_id IN (
        SELECT c.id FROM cards c JOIN lists l ON l.id = c.list_id WHERE l.board_id = ?1))
   OR (kind = 'subtask' AND item_id IN (
        SELECT s.id FROM subtasks s
        JOIN cards c ON c.id = s.card_id
        JOIN lists l ON l.id = c.list_id
        WHERE l.board_id = ?1))
`
	if _, err := t.tx.ExecContext(ctx, deleteBoardOwnersQuery, id); err != nil {
		return wrapErr(err)
	}
	return t.deleteByID(ctx, `DELETE FROM boards WHERE id = ?`, id)
}

func (t *tx) InsertList(ctx context.Context, list *models.List) error {
	const insertListQuery = `
INSERT INTO lists (board_id, title, "order", created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
`
	res, err := t.tx.ExecContext(ctx, insertListQuery,
		list.BoardID,
		list.Title,
		list.Order,
		formatTime(list.CreatedAt),
		formatTime(list.UpdatedAt),
	)
	if err != nil {
		return wrapErr(err)
	}
	list.ID, err = res.LastInsertId()
	return err
}

func (t *tx) NextListOrder(ctx context.Context, boardID int64) (int, error) {
	return t.count(ctx, `SELECT COALESCE(MAX("order") + 1, 0) FROM lists WHERE board_id = ?`, boardID)
}

func (t *tx) ListListsByBoard(ctx context.Context, boardID int64) ([]models.List, error) {
	const selectListsQuery = `
SELECT id, board_id, title, "order", created_at, updated_at
FROM lists
WHERE board_id = ?
ORDER BY "order", id
`
	rows, err := t.tx.QueryContext(ctx, selectListsQuery, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []models.List
	for rows.Next() {
		var (
			list                 models.List
			createdAt, updatedAt string
		)
		if err = rows.Scan(&list.ID, &list.BoardID, &list.Title, &list.Order, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if list.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if list.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

func (t *tx) DeleteList(ctx context.Context, id int64) error {
	const deleteListOwnersQuery = `
DELETE FROM item_owners
WHERE (kind = 'list' AND item_id = ?1)
   OR (kind = 'card' AND item_id IN (SELECT id FROM cards WHERE list_id = ?1))
   OR (kind = 'subtask' AND item_id IN (
        SELECT s.id FROM subtasks s JOIN cards c ON c.id = s.card_id WHERE c.list_id = ?1))
`
	if _, err := t.tx.ExecContext(ctx, deleteListOwnersQuery, id); err != nil {
		return wrapErr(err)
	}
	return t.deleteByID(ctx, `DELETE FROM lists WHERE id = ?`, id)
}

func (t *tx) InsertCard(ctx context.Context, card *models.Card) error {
	const insertCardQuery = `
INSERT INTO cards (list_id, title, "order", status, priority, due_date, emotion, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	var dueDate any
	if card.DueDate != nil {
		dueDate = formatTime(*card.DueDate)
	}
	res, err := t.tx.ExecContext(ctx, insertCardQuery,
		card.ListID,
		card.Title,
		card.Order,
		card.Status,
		card.Priority,
		dueDate,
		card.Emotion,
		formatTime(card.CreatedAt),
		formatTime(card.UpdatedAt),
	)
	if err != nil {
		return wrapErr(err)
	}
	card.ID, err = res.LastInsertId()
	return err
}

func (t *tx) NextCardOrder(ctx context.Context, listID int64) (int, error) {
	return t.count(ctx, `SELECT COALESCE(MAX("order") + 1, 0) FROM cards WHERE list_id = ?`, listID)
}

func (t *tx) ListCardsByBoard(ctx context.Context, boardID int64) ([]models.Card, error) {
	const selectCardsQuery = `
SELECT c.id, c.list_id, c.title, c."order", c.status, c.priority,
       c.due_date, c.emotion, c.created_at, c.updated_at
FROM cards c
JOIN lists l ON l.id = c.list_id
WHERE l.board_id = ?
ORDER BY c.list_id, c."order", c.id
`
	rows, err := t.tx.QueryContext(ctx, selectCardsQuery, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var (
			card                 models.Card
			dueDate              *string
			createdAt, updatedAt string
		)
		err = rows.Scan(
			&card.ID,
			&card.ListID,
			&card.Title,
			&card.Order,
			&card.Status,
			&card.Priority,
			&dueDate,
			&card.Emotion,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, err
		}
		if dueDate != nil {
			parsed, err := parseTime(*dueDate)
			if err != nil {
				return nil, err
			}
			card.DueDate = &parsed
		}
		if card.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if card.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (t *tx) UpdateCardPosition(ctx context.Context, id int64, order int, listID int64) error {
	const updateCardPositionQuery = `
UPDATE cards SET "order" = ?, list_id = ?, updated_at = ?
WHERE id = ?
`
	res, err := t.tx.ExecContext(ctx, updateCardPositionQuery, order, listID, formatTime(time.Now()), id)
	if err != nil {
		return wrapErr(err)
	}
	return requireAffected(res)
}

func (t *tx) DeleteCard(ctx context.Context, id int64) error {
	const deleteCardOwnersQuery = `
DELETE FROM item_owners
WHERE (kind = 'card' AND item_id = ?1)
   OR (kind = 'subtask' AND item_id IN (SELECT id FROM subtasks WHERE card_id = ?1))
`
	if _, err := t.tx.ExecContext(ctx, deleteCardOwnersQuery, id); err != nil {
		return wrapErr(err)
	}
	return t.deleteByID(ctx, `DELETE FROM cards WHERE id = ?`, id)
}

func (t *tx) BoardIDsByLists(ctx context.Context, listIDs []int64) ([]int64, error) {
	if len(listIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(listIDs)
	return t.ids(ctx, `SELECT DISTINCT board_id FROM lists WHERE id IN (`+in+`) ORDER BY board_id`, args...)
}

func (t *tx) BoardIDsByCards(ctx context.Context, cardIDs []int64) ([]int64, error) {
	if len(cardIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(cardIDs)
	query := `
SELECT DISTINCT l.board_id
FROM cards c JOIN lists l ON l.id = c.list_id
WHERE c.id IN (` + in + `)
ORDER BY l.board_id
`
	return t.ids(ctx, query, args...)
}

func (t *tx) SubtaskIDs(ctx context.Context, cardID int64) ([]int64, error) {
	return t.ids(ctx, `SELECT id FROM subtasks WHERE card_id = ? ORDER BY "order", id`, cardID)
}

func (t *tx) NextSubtaskOrder(ctx context.Context, cardID int64) (int, error) {
	return t.count(ctx, `SELECT COALESCE(MAX("order") + 1, 0) FROM subtasks WHERE card_id = ?`, cardID)
}

func (t *tx) InsertSubtask(ctx context.Context, subtask *models.Subtask) error {
	const insertSubtaskQuery = `
INSERT INTO subtasks (card_id, title, is_completed, "order", created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`
	res, err := t.tx.ExecContext(ctx, insertSubtaskQuery,
		subtask.CardID,
		subtask.Title,
		boolToInt(subtask.IsCompleted),
		subtask.Order,
		formatTime(subtask.CreatedAt),
		formatTime(subtask.UpdatedAt),
	)
	if err != nil {
		return wrapErr(err)
	}
	subtask.ID, err = res.LastInsertId()
	return err
}

func (t *tx) UpdateSubtask(ctx context.Context, subtask *models.Subtask) error {
	const updateSubtaskQuery = `
UPDATE subtasks SET title = ?, is_completed = ?, "order" = ?, updated_at = ?
WHERE id = ? AND card_id = ?
`
	res, err := t.tx.ExecContext(ctx, updateSubtaskQuery,
		subtask.Title,
		boolToInt(subtask.IsCompleted),
		subtask.Order,
		formatTime(subtask.UpdatedAt),
		subtask.ID,
		subtask.CardID,
	)
	if err != nil {
		return wrapErr(err)
	}
	return requireAffected(res)
}

func (t *tx) DeleteSubtasks(ctx context.Context, cardID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inClause(ids)

	deleteOwnersQuery := `
DELETE FROM item_owners
WHERE kind = 'subtask' AND item_id IN (
    SELECT id FROM subtasks WHERE card_id = ? AND id IN (` + in + `))
`
	if _, err := t.tx.ExecContext(ctx, deleteOwnersQuery, append([]any{cardID}, args...)...); err != nil {
		return wrapErr(err)
	}

	deleteSubtasksQuery := `DELETE FROM subtasks WHERE card_id = ? AND id IN (` + in + `)`
	if _, err := t.tx.ExecContext(ctx, deleteSubtasksQuery, append([]any{cardID}, args...)...); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (t *tx) ListSubtasks(ctx context.Context, cardID int64) ([]models.Subtask, error) {
	const selectSubtasksQuery = `
SELECT id, card_id, title, is_completed, "order", created_at, updated_at
FROM subtasks
WHERE card_id = ?
ORDER BY "order", id
`
	rows, err := t.tx.QueryContext(ctx, selectSubtasksQuery, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subtasks := make([]models.Subtask, 0)
	for rows.Next() {
		var (
			subtask              models.Subtask
			completed            int
			createdAt, updatedAt string
		)
		err = rows.Scan(
			&subtask.ID,
			&subtask.CardID,
			&subtask.Title,
			&completed,
			&subtask.Order,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, err
		}
		subtask.IsCompleted = completed == 1
		if subtask.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if subtask.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		subtasks = append(subtasks, subtask)
	}
	return subtasks, rows.Err()
}

func (t *tx) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *tx) ids(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
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
	res, err := t.tx.ExecContext(ctx, query, id)
	if err != nil {
		return wrapErr(err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no rows affected: %w", storage.ErrNotFound)
	}
	return nil
}
