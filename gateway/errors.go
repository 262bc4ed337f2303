package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/example/bistro/pkg/apperr"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const authPage = "/auth"

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrEmptyCart):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrIdentity):
		return http.StatusBadGateway
	case errors.Is(err, apperr.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (g *Gateway) fail(c *gin.Context, err error) {
	status := statusOf(err)
	body := gin.H{"error": apperr.Message(err)}
	if status == http.StatusUnauthorized {
		body["redirect"] = authPage
	}

	if status >= http.StatusInternalServerError {
		g.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		if status == http.StatusInternalServerError {
			body["error"] = "internal error"
		}
	}
	c.JSON(status, body)
}

func (g *Gateway) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
