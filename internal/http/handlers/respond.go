package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/http/middlewares"
)

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code, message string, details any) {
	reqID := c.GetString(middlewares.CtxRequestID)

	c.AbortWithStatusJSON(status, errorEnvelope{
		Error: APIError{
			Code:      code,
			Message:   message,
			RequestID: reqID,
			Details:   details,
		},
	})
}

func RespondBadRequest(c *gin.Context, code, message string, details any) {
	RespondError(c, http.StatusBadRequest, code, message, details)
}

func RespondUnAuthorized(c *gin.Context, message string) {
	RespondError(c, http.StatusUnauthorized, "unauthorized", message, nil)
}

func RespondForbidden(c *gin.Context, message string) {
	RespondError(c, http.StatusForbidden, "forbidden", message, nil)
}

func RespondNotFound(c *gin.Context, message string) {
	RespondError(c, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(c *gin.Context) {
	RespondError(c, http.StatusInternalServerError, "internal_error", "Something went wrong", nil)
}
