package response

import (
	"errors"
	"net/http"

	"carforum/pkg/errs"
	"carforum/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`    // 业务码
	Message string      `json:"message"` // 提示信息
	Data    interface{} `json:"data"`    // 数据
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, errCode int, msg string) {
	c.JSON(httpCode, Response{
		Code:    errCode,
		Message: msg,
		Data:    nil,
	})
}

// Fail 业务失败响应 (HTTP 200, 业务码非 0)
func Fail(c *gin.Context, errCode int, msg string) {
	c.JSON(http.StatusOK, Response{
		Code:    errCode,
		Message: msg,
		Data:    nil,
	})
}

// HandleError 按错误分类输出响应
func HandleError(c *gin.Context, err error) {
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, Response{Code: ErrInvalidParam, Message: ve.Error(), Data: ve})
	case errors.Is(err, errs.ErrNotFound):
		Error(c, http.StatusNotFound, ErrNotFound, "not found")
	case errors.Is(err, errs.ErrInvalidVote):
		Error(c, http.StatusBadRequest, ErrInvalidVote, errs.ErrInvalidVote.Error())
	case errors.Is(err, errs.ErrInvalidTarget):
		Error(c, http.StatusBadRequest, ErrInvalidTarget, "Invalid type")
	case errors.Is(err, errs.ErrUnauthorized):
		Error(c, http.StatusUnauthorized, ErrAuthFailed, errs.ErrUnauthorized.Error())
	case errors.Is(err, errs.ErrForbidden):
		Error(c, http.StatusForbidden, ErrNoPermission, errs.ErrForbidden.Error())
	case errors.Is(err, errs.ErrDependency):
		logger.Log.Warn("dependency failure", zap.String("path", c.Request.URL.Path), zap.Error(err))
		Error(c, http.StatusBadGateway, ErrDependency, "upstream service unavailable")
	default:
		logger.Log.Error("internal error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		Error(c, http.StatusInternalServerError, ErrServerInternal, "Internal server error")
	}
}
