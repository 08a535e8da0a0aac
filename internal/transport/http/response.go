package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"github.com/yyogesh-03/real-time-order-management-system/internal/service"
	"go.uber.org/zap"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success   bool        `json:"success"`
	RequestID string      `json:"request_id"`
	Data      interface{} `json:"data,omitempty"`
	Error     *apiError   `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, RequestID: requestID(c), Data: data})
}

func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, RequestID: requestID(c), Error: &apiError{Code: code, Message: msg}})
}

// failWith maps service errors to HTTP statuses; anything unrecognised is a 500.
func failWith(c *gin.Context, log *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrInventoryNotFound):
		fail(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrRestaurantUnavailable),
		errors.Is(err, service.ErrMenuItemUnavailable),
		errors.Is(err, model.ErrInvalidTransition):
		fail(c, http.StatusBadRequest, "bad_request", err.Error())
	default:
		log.Errorw("request failed", "path", c.FullPath(), "request_id", requestID(c), "error", err)
		fail(c, http.StatusInternalServerError, "server_error", "Internal Server Error")
	}
}
