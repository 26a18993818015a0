// Package client talks to the boards API on behalf of a user.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-boards/internal/models"
	"github.com/adanyl0v/go-boards/internal/ordering"
)

// StatusError is a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  zerolog.Logger
}

// New returns a client for the API rooted at baseURL, e.g.
// http://localhost:8080. The zero timeout leaves transport defaults.
func New(logger zerolog.Logger, baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type cardJSON struct {
	ID        int64      `json:"id"`
	ListID    int64      `json:"list_id"`
	Title     string     `json:"title"`
	Order     int        `json:"order"`
	Status    string     `json:"status"`
	Priority  int        `json:"priority"`
	DueDate   *time.Time `json:"due_date"`
	Emotion   *string    `json:"emotion"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type listJSON struct {
	ID        int64      `json:"id"`
	BoardID   int64      `json:"board_id"`
	Title     string     `json:"title"`
	Order     int        `json:"order"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Cards     []cardJSON `json:"cards"`
}

type boardJSON struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Archived  bool       `json:"archived"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Lists     []listJSON `json:"lists"`
}

type subtaskJSON struct {
	ID          int64     `json:"id"`
	CardID      int64     `json:"card_id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"is_completed"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Client) GetBoard(ctx context.Context, boardID int64) (*models.BoardView, error) {
	var board boardJSON
	if err := c.do(ctx, http.MethodGet, "/api/v1/boards/"+strconv.FormatInt(boardID, 10), nil, &board); err != nil {
		c.logger.Error().
			Err(err).
			Int64("board_id", boardID).
			Msg("failed to get board")
		return nil, err
	}

	view := &models.BoardView{
		Board: models.Board{
			ID:        board.ID,
			Title:     board.Title,
			Archived:  board.Archived,
			CreatedAt: board.CreatedAt,
			UpdatedAt: board.UpdatedAt,
		},
		Lists: make([]models.ListView, 0, len(board.Lists)),
	}
	for _, l := range board.Lists {
		lv := models.ListView{
			List: models.List{
				ID:        l.ID,
				BoardID:   l.BoardID,
				Title:     l.Title,
				Order:     l.Order,
				CreatedAt: l.CreatedAt,
				UpdatedAt: l.UpdatedAt,
			},
			Cards: make([]models.Card, 0, len(l.Cards)),
		}
		for _, card := range l.Cards {
			lv.Cards = append(lv.Cards, models.Card{
				ID:        card.ID,
				ListID:    card.ListID,
				Title:     card.Title,
				Order:     card.Order,
				Status:    card.Status,
				Priority:  card.Priority,
				DueDate:   card.DueDate,
				Emotion:   card.Emotion,
				CreatedAt: card.CreatedAt,
				UpdatedAt: card.UpdatedAt,
			})
		}
		view.Lists = append(view.Lists, lv)
	}
	return view, nil
}

type cardOrderJSON struct {
	ID     int64 `json:"id"`
	Order  int   `json:"order"`
	ListID int64 `json:"list_id"`
}

// ReorderCards sends the patch as one batch. It satisfies ordering.Dispatcher.
func (c *Client) ReorderCards(ctx context.Context, patch ordering.Patch) error {
	body := struct {
		Cards []cardOrderJSON `json:"cards"`
	}{Cards: make([]cardOrderJSON, len(patch))}
	for i, e := range patch {
		body.Cards[i] = cardOrderJSON{ID: e.ID, Order: e.Order, ListID: e.ContainerID}
	}

	if err := c.do(ctx, http.MethodPut, "/api/v1/cards/order", body, nil); err != nil {
		c.logger.Error().
			Err(err).
			Int("size", len(patch)).
			Msg("failed to reorder cards")
		return err
	}
	return nil
}

type subtaskInputJSON struct {
	ID          *int64 `json:"id,omitempty"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
}

// ReplaceSubtasks sends the full checklist and returns the stored one.
func (c *Client) ReplaceSubtasks(ctx context.Context, cardID int64, subtasks []models.SubtaskInput) ([]models.Subtask, error) {
	body := struct {
		Subtasks []subtaskInputJSON `json:"subtasks"`
	}{Subtasks: make([]subtaskInputJSON, len(subtasks))}
	for i, s := range subtasks {
		body.Subtasks[i] = subtaskInputJSON{ID: s.ID, Title: s.Title, IsCompleted: s.IsCompleted}
	}

	var out []subtaskJSON
	path := "/api/v1/cards/" + strconv.FormatInt(cardID, 10) + "/subtasks"
	if err := c.do(ctx, http.MethodPut, path, body, &out); err != nil {
		c.logger.Error().
			Err(err).
			Int64("card_id", cardID).
			Msg("failed to replace subtasks")
		return nil, err
	}

	result := make([]models.Subtask, len(out))
	for i, s := range out {
		result[i] = models.Subtask{
			ID:          s.ID,
			CardID:      s.CardID,
			Title:       s.Title,
			IsCompleted: s.IsCompleted,
			Order:       s.Order,
			CreatedAt:   s.CreatedAt,
			UpdatedAt:   s.UpdatedAt,
		}
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := sonic.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = sonic.Unmarshal(data, &apiErr)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", resp.Header.Get("X-Request-ID")).
		Msg("api call succeeded")

	if out == nil || len(data) == 0 {
		return nil
	}
	if err = sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// StateFromBoard builds the ordering state of a board, one container per list.
func StateFromBoard(view *models.BoardView) ordering.State {
	state := ordering.NewState()
	for _, l := range view.Lists {
		ids := make([]int64, len(l.Cards))
		for i, card := range l.Cards {
			ids[i] = card.ID
		}
		state = state.Set(l.List.ID, ids...)
	}
	return state
}
