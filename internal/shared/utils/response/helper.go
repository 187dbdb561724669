package response

import (
	"errors"
	"net/http"

	"tripenjoy/internal/shared/apperror"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

func RespondSuccess(c *gin.Context, code int, message string, data interface{}) {
	RespondJSON(c, "success", code, message, data, nil)
}

// RespondError writes err using the HTTP status that matches its kind.
func RespondError(c *gin.Context, message string, err error) {
	code := StatusFor(err)
	var details interface{}
	if err != nil {
		details = ErrorDetail{Code: apperror.CodeOf(err), Reason: err.Error()}
	}
	if code == http.StatusInternalServerError {
		// infrastructure details stay in the logs
		details = ErrorDetail{Code: apperror.CodeOf(err), Reason: "internal error"}
	}
	RespondJSON(c, "error", code, message, nil, details)
}

// RespondBindingError reports request binding failures field by field.
func RespondBindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
		RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, fields)
		return
	}
	RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, ErrorDetail{Reason: err.Error()})
}

// StatusFor maps an application error kind to an HTTP status code.
func StatusFor(err error) int {
	switch apperror.KindOf(err) {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
