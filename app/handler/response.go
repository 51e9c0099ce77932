package handler

import (
	"errors"
	"net/http"

	"torrent-factory/app/apperr"

	"github.com/gin-gonic/gin"
)

// ApiResponse 统一的API响应格式
type ApiResponse struct {
	Code    int    `json:"code"`    // 状态码，0表示成功
	Message string `json:"message"` // 响应消息
	Data    any    `json:"data"`    // 响应数据
}

// 创建成功响应
func success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// 创建错误响应
func fail(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ApiResponse{
		Code:    statusCode,
		Message: message,
		Data:    nil,
	})
}

// failErr 根据错误类型选择状态码
func failErr(c *gin.Context, err error) {
	var appErr *apperr.Error
	message := err.Error()
	if errors.As(err, &appErr) && appErr.Err != nil {
		message = appErr.Err.Error()
	}
	fail(c, apperr.HTTPStatus(err), message)
}
