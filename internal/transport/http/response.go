package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// errorResponse 错误响应体
type errorResponse struct {
	Error string `json:"error"`
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

// NotFound 返回 404 错误
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

// InternalError 返回 500 错误
func InternalError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, errorResponse{Error: msg})
}
