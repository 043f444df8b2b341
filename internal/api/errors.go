package api

import (
	"errors"
	"net/http"

	"resort/internal/domain"
	"resort/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type errorResponse struct {
	Error           string `json:"error"`
	Field           string `json:"field,omitempty"`
	ConflictingID   int64  `json:"conflicting_id,omitempty"`
	ConflictingDate string `json:"conflicting_date,omitempty"`
}

func abortError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: message})
}

// respondBindError answers 400 for anything the request binding rejected.
func respondBindError(c *gin.Context, err error) {
	var fverr validator.ValidationErrors
	if errors.As(err, &fverr) {
		respondError(c, err)
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request: " + err.Error()})
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var (
		verr  *domain.ValidationError
		cerr  *domain.ConflictError
		fverr validator.ValidationErrors
	)

	switch {
	case errors.As(err, &fverr):
		resp := errorResponse{Error: err.Error()}
		if len(fverr) > 0 {
			resp.Field = fverr[0].Field()
			resp.Error = fverr[0].Field() + ": failed " + fverr[0].Tag() + " validation"
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, resp)
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, domain.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &cerr):
		resp := errorResponse{Error: cerr.Error(), ConflictingID: cerr.ConflictingID}
		if !cerr.ConflictingDate.IsZero() {
			resp.ConflictingDate = models.FormatDate(cerr.ConflictingDate)
		}
		c.AbortWithStatusJSON(http.StatusConflict, resp)
	case errors.Is(err, domain.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrRateLimited):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrTransientStore):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: "storage temporarily unavailable, retry"})
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
