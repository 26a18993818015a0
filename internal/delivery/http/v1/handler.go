package v1

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-boards/internal/services"
)

type Handler interface {
	HandleRequestID(c *gin.Context)
	HandleRequestLogger(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)
	HandleHealthz(c *gin.Context)

	HandleCreateBoard(c *gin.Context)
	HandleGetBoard(c *gin.Context)
	HandleDeleteBoard(c *gin.Context)
	HandleCreateList(c *gin.Context)
	HandleDeleteList(c *gin.Context)

	HandleCreateCard(c *gin.Context)
	HandleDeleteCard(c *gin.Context)
	HandleReorderCards(c *gin.Context)

	HandleListSubtasks(c *gin.Context)
	HandleAddSubtask(c *gin.Context)
	HandleReplaceSubtasks(c *gin.Context)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type handlerImpl struct {
	logger   zerolog.Logger
	pinger   Pinger
	boards   services.BoardService
	orders   services.OrderService
	subtasks services.SubtaskService

	jwtIssuer     string
	jwtSigningKey []byte
}

func New(
	logger zerolog.Logger,
	pinger Pinger,
	boardService services.BoardService,
	orderService services.OrderService,
	subtaskService services.SubtaskService,
	jwtIssuer string,
	jwtSigningKey string,
) Handler {
	return &handlerImpl{
		logger:        logger,
		pinger:        pinger,
		boards:        boardService,
		orders:        orderService,
		subtasks:      subtaskService,
		jwtIssuer:     jwtIssuer,
		jwtSigningKey: []byte(jwtSigningKey),
	}
}

// RegisterRoutes mounts the health check at the root and the API
// under /api/v1 behind the bearer middleware.
func RegisterRoutes(router gin.IRouter, h Handler) {
	router.GET("/healthz", h.HandleHealthz)

	api := router.Group("/api/v1", h.HandleAuthMiddleware)

	api.POST("/boards", h.HandleCreateBoard)
	api.GET("/boards/:id", h.HandleGetBoard)
	api.DELETE("/boards/:id", h.HandleDeleteBoard)
	api.POST("/boards/:id/lists", h.HandleCreateList)

	api.DELETE("/lists/:id", h.HandleDeleteList)
	api.POST("/lists/:id/cards", h.HandleCreateCard)

	api.PUT("/cards/order", h.HandleReorderCards)
	api.DELETE("/cards/:id", h.HandleDeleteCard)
	api.GET("/cards/:id/subtasks", h.HandleListSubtasks)
	api.POST("/cards/:id/subtasks", h.HandleAddSubtask)
	api.PUT("/cards/:id/subtasks", h.HandleReplaceSubtasks)
}
