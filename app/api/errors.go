package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-digest/app/apperr"
	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/reader"
	"github.com/lysyi3m/rss-digest/app/speech"
)

type errorClass struct {
	status  int
	code    string
	message string
}

// classify maps a pipeline error to its HTTP status and user-facing message.
// Order matters: an AI auth failure is also a rejection, and a fetch timeout
// is also an unreachable source.
func classify(err error) errorClass {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, speech.ErrEmptyText):
		return errorClass{http.StatusBadRequest, "invalid_input", "Invalid input"}
	case errors.Is(err, apperr.ErrNotFound):
		return errorClass{http.StatusNotFound, "not_found", "Not found"}
	case errors.Is(err, database.ErrDuplicateFeed):
		return errorClass{http.StatusConflict, "duplicate_feed", "Feed already exists"}
	case errors.Is(err, reader.ErrSpeechUnavailable):
		return errorClass{http.StatusNotImplemented, "speech_unavailable", "Speech synthesis is not configured"}
	case errors.Is(err, apperr.ErrAIAuth):
		return errorClass{http.StatusUnauthorized, "ai_auth", apperr.ErrAIAuth.Error()}
	case errors.Is(err, apperr.ErrTimeout) && errors.Is(err, apperr.ErrUnreachable):
		return errorClass{http.StatusGatewayTimeout, "unreachable", apperr.ErrUnreachable.Error()}
	case errors.Is(err, apperr.ErrTimeout):
		return errorClass{http.StatusGatewayTimeout, "timeout", apperr.ErrTimeout.Error()}
	case errors.Is(err, apperr.ErrUnreachable):
		return errorClass{http.StatusBadGateway, "unreachable", apperr.ErrUnreachable.Error()}
	case errors.Is(err, apperr.ErrNoUsableContent):
		return errorClass{http.StatusUnprocessableEntity, "no_usable_content", apperr.ErrNoUsableContent.Error()}
	case errors.Is(err, apperr.ErrAIRejected):
		return errorClass{http.StatusBadGateway, "ai_rejected", apperr.ErrAIRejected.Error()}
	case errors.Is(err, apperr.ErrTransient):
		return errorClass{http.StatusServiceUnavailable, "transient", apperr.ErrTransient.Error()}
	default:
		return errorClass{http.StatusInternalServerError, "internal", "Internal error"}
	}
}

func writeError(c *gin.Context, operation string, err error) {
	class := classify(err)

	if class.status >= http.StatusInternalServerError {
		slog.Error("Request failed", "operation", operation, "status", class.status, "error", err)
	} else {
		slog.Debug("Request rejected", "operation", operation, "status", class.status, "error", err)
	}

	c.JSON(class.status, gin.H{
		"error":     class.code,
		"message":   class.message,
		"details":   err.Error(),
		"retryable": apperr.Retryable(err),
	})
}
