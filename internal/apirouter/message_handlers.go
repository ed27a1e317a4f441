package apirouter

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hookdeck/workerctl/internal/logging"
	"github.com/hookdeck/workerctl/internal/messagerouter"
	"github.com/hookdeck/workerctl/internal/worker"
	pkgerrors "github.com/pkg/errors"
)

type MessageRouter interface {
	Route(ctx context.Context, target, message string) (messagerouter.Result, error)
}

type MessageHandlers struct {
	logger *logging.Logger
	router MessageRouter
}

func NewMessageHandlers(logger *logging.Logger, router MessageRouter) *MessageHandlers {
	return &MessageHandlers{
		logger: logger,
		router: router,
	}
}

type sendMessageRequest struct {
	Target  string `json:"target" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// Send handles POST /messages.
func (h *MessageHandlers) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithValidationError(c, err)
		return
	}

	result, err := h.router.Route(c.Request.Context(), req.Target, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, messagerouter.ErrInvalidInput):
			AbortWithError(c, http.StatusUnprocessableEntity, NewErrUnprocessable(err))
		case errors.Is(err, messagerouter.ErrTargetNotFound):
			AbortWithError(c, http.StatusNotFound, NewErrNotFound("worker"))
		case errors.Is(err, worker.ErrLogWrite):
			AbortWithError(c, http.StatusInternalServerError, ErrorResponse{
				Err:     pkgerrors.WithStack(err),
				Code:    http.StatusInternalServerError,
				Message: "failed to write message",
				Data:    result,
			})
		default:
			AbortWithError(c, http.StatusInternalServerError, NewErrInternalServer(err))
		}
		return
	}
	c.JSON(http.StatusOK, result)
}
