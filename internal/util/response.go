package util

import (
	"classroom_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err), zap.String("path", c.FullPath()))
	InternalServerError(c)
}

// HandleServiceError 将领域错误映射为 HTTP 状态码
func HandleServiceError(c *gin.Context, err error) {
	var (
		validation  *ValidationError
		authz       *AuthorizationError
		state       *StateError
		consistency *ConsistencyError
	)

	switch {
	case errors.As(err, &validation):
		ErrorWithData(c, http.StatusBadRequest, validation.Error(), validation)
	case errors.As(err, &authz):
		logger.Log.Warn("authorization rejected", zap.String("cause", authz.Cause()), zap.String("path", c.FullPath()))
		Error(c, http.StatusForbidden, authz.Error())
	case errors.As(err, &state):
		ErrorWithData(c, http.StatusConflict, state.Error(), state)
	case errors.Is(err, ErrConflict):
		Error(c, http.StatusConflict, ErrConflict.Error())
	case errors.Is(err, ErrNotFound):
		NotFound(c)
	case errors.As(err, &consistency):
		logger.Log.Error("consistency error", zap.Error(err), zap.String("path", c.FullPath()))
		Error(c, http.StatusUnprocessableEntity, consistency.Error())
	default:
		LogInternalError(c, err)
	}
}
