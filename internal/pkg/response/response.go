package response

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobmarket/internal/domain"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// FromError writes the error envelope for a domain error.
func FromError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", verr.Fields)
	case errors.Is(err, domain.ErrValidation):
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, domain.ErrAuthorization):
		Error(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to perform this action")
	case errors.Is(err, domain.ErrNotFound):
		Error(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, domain.ErrListingUnavailable):
		Error(c, http.StatusConflict, "LISTING_UNAVAILABLE", "This listing is not open for applications")
	case errors.Is(err, domain.ErrSelfApplication):
		Error(c, http.StatusConflict, "SELF_APPLICATION", "You cannot apply to your own listing")
	case errors.Is(err, domain.ErrIncompleteProfile):
		Error(c, http.StatusUnprocessableEntity, "INCOMPLETE_PROFILE", "Add your name and phone number before applying")
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Printf("store_unavailable path=%s err=%v", c.FullPath(), err)
		Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Service temporarily unavailable, please retry")
	default:
		log.Printf("internal_error path=%s err=%v", c.FullPath(), err)
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
