package response

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/apperror"
)

// GenericMessage is returned for failures that carry no user-facing message.
const GenericMessage = "Something went wrong"

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Message string `json:"message"`
}

// MessageResponse is used by endpoints that only acknowledge an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// Error sends a JSON error response.
// AppErrors decide the status code and message; any other error is logged
// and reported as a generic 500.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Code >= http.StatusInternalServerError || appErr.Err != nil {
			log.Printf("request failed: method=%s path=%s status=%d err=%v", c.Request.Method, c.FullPath(), appErr.Code, err)
		}
		c.JSON(appErr.Code, ErrorResponse{Message: appErr.Message})
		return
	}

	log.Printf("request failed: method=%s path=%s status=500 err=%v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Message: GenericMessage})
}

// BadRequest sends a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Message: message})
}
