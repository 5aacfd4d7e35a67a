package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// RequestID 取得請求 ID，沒有則生成一個並寫回響應標頭
func RequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = c.Writer.Header().Get("X-Request-ID")
	}
	if requestID == "" {
		requestID = GenerateUUID()
		c.Header("X-Request-ID", requestID)
	}
	return requestID
}

// WriteErrorResponse 寫入錯誤響應
func WriteErrorResponse(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusOf(err), ErrorResponse{
		Code:         CodeOf(err),
		Message:      MessageOf(err),
		Notification: NotificationFor(err),
	})
}

// WriteBadRequest 寫入請求格式錯誤響應
func WriteBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:         ErrCodeInvalidRequest,
		Message:      message,
		Notification: &Notification{Level: LevelError, Message: message},
	})
}
