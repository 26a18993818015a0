package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-boards/internal/models"
)

type subtaskResponse struct {
	ID          int64     `json:"id"`
	CardID      int64     `json:"card_id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"is_completed"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newSubtaskResponse(subtask *models.Subtask) subtaskResponse {
	return subtaskResponse{
		ID:          subtask.ID,
		CardID:      subtask.CardID,
		Title:       subtask.Title,
		IsCompleted: subtask.IsCompleted,
		Order:       subtask.Order,
		CreatedAt:   subtask.CreatedAt,
		UpdatedAt:   subtask.UpdatedAt,
	}
}

func newSubtaskResponses(subtasks []models.Subtask) []subtaskResponse {
	resp := make([]subtaskResponse, 0, len(subtasks))
	for i := range subtasks {
		resp = append(resp, newSubtaskResponse(&subtasks[i]))
	}
	return resp
}

func (h *handlerImpl) HandleListSubtasks(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	cardID, ok := h.pathID(c)
	if !ok {
		return
	}

	subtasks, err := h.subtasks.List(c.Request.Context(), userID, cardID)
	if err != nil {
		abort(c, newServiceError(err))
		return
	}
	c.JSON(http.StatusOK, newSubtaskResponses(subtasks))
}

type addSubtaskRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

func (h *handlerImpl) HandleAddSubtask(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	cardID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req addSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	subtask, err := h.subtasks.Add(c.Request.Context(), userID, cardID, req.Title)
	if err != nil {
		abort(c, newServiceError(err))
		return
	}
	c.JSON(http.StatusCreated, newSubtaskResponse(subtask))
}

type subtaskRequest struct {
	ID          *int64 `json:"id" binding:"omitempty,gt=0"`
	Title       string `json:"title" binding:"required,max=255"`
	IsCompleted bool   `json:"is_completed"`
}

type replaceSubtasksRequest struct {
	// required rejects a missing or null array and accepts an empty one
	Subtasks []subtaskRequest `json:"subtasks" binding:"required,dive"`
}

func (h *handlerImpl) HandleReplaceSubtasks(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	cardID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req replaceSubtasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	incoming := make([]models.SubtaskInput, len(req.Subtasks))
	for i, s := range req.Subtasks {
		incoming[i] = models.SubtaskInput{ID: s.ID, Title: s.Title, IsCompleted: s.IsCompleted}
	}

	subtasks, err := h.subtasks.ReplaceAll(c.Request.Context(), userID, cardID, incoming)
	if err != nil {
		abort(c, newServiceError(err))
		return
	}
	c.JSON(http.StatusOK, newSubtaskResponses(subtasks))
}
