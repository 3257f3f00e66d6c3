package handler

import (
	"Lumen/internal/repo"
	"Lumen/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func respond(c *gin.Context, status int, body any, message string) {
	c.JSON(status, gin.H{
		"HttpStatusCode": status,
		"ResponseBody":   body,
		"IsSuccess":      status < http.StatusBadRequest,
		"Message":        message,
	})
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	message := "Internal error"

	switch {
	case service.IsValidation(err):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, repo.ErrProfileNotFound):
		status, message = http.StatusNotFound, "Profile not found"
	case errors.Is(err, repo.ErrUsernameTaken):
		status, message = http.StatusConflict, "Username already taken"
	case errors.Is(err, repo.ErrProfileExists):
		status, message = http.StatusConflict, "Profile already exists"
	case service.IsStore(err):
		status, message = http.StatusBadGateway, "Message store unavailable"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	respond(c, status, nil, message)
}
