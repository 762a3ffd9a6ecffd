package delivery

import (
	"errors"
	"net/http"

	"order_form/internal/domain"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status  string      `json:"Status"`
	Message string      `json:"Message"`
	Data    interface{} `json:"Data,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Status:  "Success",
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Status:  "Fail",
		Message: message,
		Data:    data,
	})
}

func mapErrorToStatus(err error) int {
	var (
		catalogErr  *domain.CatalogLoadError
		rejectedErr *domain.SubmissionRejectedError
		transErr    *domain.SubmissionTransportError
	)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrIncompleteForm),
		errors.Is(err, domain.ErrInvalidPopover):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSubmitInProgress):
		return http.StatusConflict
	case errors.As(err, &rejectedErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &catalogErr), errors.As(err, &transErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
