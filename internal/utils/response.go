package utils

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response defines the standard API response envelope.
type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}

// ErrorInfo provides details for error responses.
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Meta contains request-scoped metadata.
type Meta struct {
	RequestID  string      `json:"requestId"`
	Timestamp  string      `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page        int  `json:"page"`
	PerPage     int  `json:"per_page"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// NewPagination derives page counts. Non-positive inputs fall back to page 1 and perPage 12.
func NewPagination(page, perPage, totalItems int) *Pagination {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 12
	}
	totalPages := (totalItems + perPage - 1) / perPage
	return &Pagination{
		Page:        page,
		PerPage:     perPage,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

// Success writes a success response with the standard envelope.
func Success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: NowISO(),
		},
	})
}

// SuccessWithPagination writes a success response with pagination metadata.
func SuccessWithPagination(c *gin.Context, code int, message string, data interface{}, page, perPage, totalItems int) {
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Meta: Meta{
			RequestID:  getRequestID(c),
			Timestamp:  NowISO(),
			Pagination: NewPagination(page, perPage, totalItems),
		},
	})
}

// Error writes an error response with provided API error code and message.
func Error(c *gin.Context, code int, errCode, message string) {
	c.JSON(code, Response{
		Success: false,
		Code:    code,
		Message: message,
		Error: &ErrorInfo{
			Code:    errCode,
			Message: message,
		},
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: NowISO(),
		},
	})
}

// ErrorWithData writes an error response that also carries a data payload.
func ErrorWithData(c *gin.Context, code int, errCode, message string, data interface{}) {
	c.JSON(code, Response{
		Success: false,
		Code:    code,
		Message: message,
		Data:    data,
		Error: &ErrorInfo{
			Code:    errCode,
			Message: message,
		},
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: NowISO(),
		},
	})
}

// ValidationFailed writes a 400 response listing the invalid fields.
func ValidationFailed(c *gin.Context, verr *ValidationError) {
	c.JSON(400, Response{
		Success: false,
		Code:    400,
		Message: verr.Error(),
		Error: &ErrorInfo{
			Code:    "VALIDATION_ERROR",
			Message: verr.Error(),
			Fields:  verr.Fields,
		},
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: NowISO(),
		},
	})
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return uuid.New().String()[:8]
}

// Baku is the storefront's local time zone (UTC+4, no DST).
var Baku = time.FixedZone("AZT", 4*3600)

// NowISO returns the current time in ISO 8601 format in Baku time.
func NowISO() string {
	return time.Now().In(Baku).Format(time.RFC3339)
}
