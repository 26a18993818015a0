package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-boards/internal/models"
)

type boardResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newBoardResponse(board *models.Board) boardResponse {
	return boardResponse{
		ID:        board.ID,
		Title:     board.Title,
		Archived:  board.Archived,
		CreatedAt: board.CreatedAt,
		UpdatedAt: board.UpdatedAt,
	}
}

type listResponse struct {
	ID        int64     `json:"id"`
	BoardID   int64     `json:"board_id"`
	Title     string    `json:"title"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newListResponse(list *models.List) listResponse {
	return listResponse{
		ID:        list.ID,
		BoardID:   list.BoardID,
		Title:     list.Title,
		Order:     list.Order,
		CreatedAt: list.CreatedAt,
		UpdatedAt: list.UpdatedAt,
	}
}

type listViewResponse struct {
	listResponse
	Cards []cardResponse `json:"cards"`
}

type boardViewResponse struct {
	boardResponse
	Lists []listViewResponse `json:"lists"`
}

func newBoardViewResponse(view *models.BoardView) boardViewResponse {
	resp := boardViewResponse{
		boardResponse: newBoardResponse(&view.Board),
		Lists:         make([]listViewResponse, 0, len(view.Lists)),
	}
	for i := range view.Lists {
		l := &view.Lists[i]
		cards := make([]cardResponse, 0, len(l.Cards))
		for j := range l.Cards {
			cards = append(cards, newCardResponse(&l.Cards[j]))
		}
		resp.Lists = append(resp.Lists, listViewResponse{
			listResponse: newListResponse(&l.List),
			Cards:        cards,
		})
	}
	return resp
}

type createBoardRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

func (h *handlerImpl) HandleCreateBoard(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req createBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	board, err := h.boards.CreateBoard(c.Request.Context(), userID, req.Title)
	if err != nil {
		abort(c, newServiceError(err))
		return
	}
	c.JSON(http.StatusCreated, newBoardResponse(board))
}

func (h *handlerImpl) HandleGetBoard(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	boardID, ok := h.pathID(c)
	if !ok {
		return
	}

	view, err := h.boards.GetBoard(c.Request.Context(), userID, boardID)
	if err != nil {
		abort(c, newServiceError(err))
		return
	}
	c.JSON(http.StatusOK, newBoardViewResponse(view))
}

func (h *handlerImpl) HandleDeleteBoard(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	boardID, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.boards.DeleteBoard(c.Request.Context(), userID, boardID); err != nil {
		abort(c, newServiceError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

type createListRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

func (h *handlerImpl) HandleCreateList(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	boardID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req createListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	list, err := h.boards.CreateList(c.Request.Context(), userID, boardID, req.Title)
	if err != nil {
		abort(c, newServiceError(err))
		return
	}
	c.JSON(http.StatusCreated, newListResponse(list))
}

func (h *handlerImpl) HandleDeleteList(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	listID, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.boards.DeleteList(c.Request.Context(), userID, listID); err != nil {
		abort(c, newServiceError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleHealthz(c *gin.Context) {
	if err := h.pinger.Ping(c.Request.Context()); err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to ping storage")
		abort(c, newStatusTextError(http.StatusServiceUnavailable))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// pathID parses the :id segment.
func (h *handlerImpl) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.logger.Error().
			Str("id", c.Param("id")).
			Msg("invalid path id")
		abort(c, newBadRequestError(errInvalidID.Error()))
		return 0, false
	}
	return id, true
}
