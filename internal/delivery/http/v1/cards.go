package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-boards/internal/models"
	"github.com/adanyl0v/go-boards/internal/services"
)

type cardResponse struct {
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

func newCardResponse(card *models.Card) cardResponse {
	return cardResponse{
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
	}
}

type createCardRequest struct {
	Title    string     `json:"title" binding:"required,max=255"`
	Status   string     `json:"status" binding:"omitempty,oneof=todo in_progress done"`
	Priority *int       `json:"priority" binding:"omitempty,min=0,max=3"`
	DueDate  *time.Time `json:"due_date"`
	Emotion  *string    `json:"emotion" binding:"omitempty,max=255"`
}

func (h *handlerImpl) HandleCreateCard(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	listID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req createCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	params := services.CreateCardParams{
		UserID:  userID,
		ListID:  listID,
		Title:   req.Title,
		Status:  req.Status,
		DueDate: req.DueDate,
		Emotion: req.Emotion,
	}
	if req.Priority != nil {
		params.Priority = *req.Priority
	}

	card, err := h.boards.CreateCard(c.Request.Context(), params)
	if err != nil {
		abort(c, newServiceError(err))
		return
	}
	c.JSON(http.StatusCreated, newCardResponse(card))
}

func (h *handlerImpl) HandleDeleteCard(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	cardID, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.boards.DeleteCard(c.Request.Context(), userID, cardID); err != nil {
		abort(c, newServiceError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

type cardOrderRequest struct {
	ID     int64 `json:"id" binding:"required,gt=0"`
	Order  *int  `json:"order" binding:"required,min=0"`
	ListID int64 `json:"list_id" binding:"required,gt=0"`
}

type reorderCardsRequest struct {
	Cards []cardOrderRequest `json:"cards" binding:"required,min=1,dive"`
}

func (h *handlerImpl) HandleReorderCards(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req reorderCardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	batch := make([]models.CardOrder, len(req.Cards))
	for i, o := range req.Cards {
		batch[i] = models.CardOrder{ID: o.ID, Order: *o.Order, ListID: o.ListID}
	}

	if err := h.orders.ReorderCards(c.Request.Context(), userID, batch); err != nil {
		abort(c, newServiceError(err))
		return
	}
	c.Status(http.StatusOK)
}
