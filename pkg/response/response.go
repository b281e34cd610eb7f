package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medibid/auction-api/internal/types"
	"gorm.io/gorm"
)

// Response represents a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an error response
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInternalError = "STORAGE_ERROR"

	// Auction domain codes
	ErrCodeAuctionClosed = "AUCTION_CLOSED"
	ErrCodeInvalidState  = "INVALID_STATE"
	ErrCodeNotOwner      = "NOT_OWNER"
	ErrCodeBidNotFound   = "BID_NOT_FOUND"
	ErrCodeDuplicateBid  = "DUPLICATE_BID"
	ErrCodeWrongStep     = "WRONG_STEP"
	ErrCodeInvalidAmount = "INVALID_AMOUNT"
)

// Handle processes the error and returns appropriate response
func Handle(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}

	switch {
	case errors.Is(err, types.ErrAuctionClosed):
		Conflict(c, ErrCodeAuctionClosed, err.Error())
	case errors.Is(err, types.ErrInvalidState):
		Conflict(c, ErrCodeInvalidState, err.Error())
	case errors.Is(err, types.ErrWrongStep):
		Conflict(c, ErrCodeWrongStep, err.Error())
	case errors.Is(err, types.ErrDuplicateBid):
		Conflict(c, ErrCodeDuplicateBid, err.Error())
	case errors.Is(err, types.ErrNotOwner):
		forbidden(c, ErrCodeNotOwner, err.Error())
	case errors.Is(err, types.ErrForbidden):
		forbidden(c, ErrCodeForbidden, err.Error())
	case errors.Is(err, types.ErrBidNotFound):
		notFound(c, ErrCodeBidNotFound, err.Error())
	case errors.Is(err, types.ErrListingNotFound):
		notFound(c, ErrCodeNotFound, err.Error())
	case errors.Is(err, types.ErrInvalidAmount):
		badRequest(c, ErrCodeInvalidAmount, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "Resource not found")
	default:
		InternalError(c, "An unexpected error occurred")
	}
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	status := http.StatusOK
	if c.Request.Method == "POST" {
		status = http.StatusCreated
	}

	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	notFound(c, ErrCodeNotFound, message)
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	badRequest(c, ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeUnauthorized,
			Message: message,
		},
	})
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	forbidden(c, ErrCodeForbidden, message)
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeInternalError,
			Message: message,
		},
	})
}

// Conflict sends a 409 response with the given domain code
func Conflict(c *gin.Context, code, message string) {
	c.JSON(http.StatusConflict, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}

func notFound(c *gin.Context, code, message string) {
	c.JSON(http.StatusNotFound, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}

func forbidden(c *gin.Context, code, message string) {
	c.JSON(http.StatusForbidden, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}
