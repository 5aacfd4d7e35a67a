package common

import "errors"

// NotificationLevel 通知等級
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelInfo    NotificationLevel = "info"
	LevelError   NotificationLevel = "error"
)

// Notification 短暫顯示的通知；只有 success 會以中央浮層顯示，其餘只進主控台
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

// Success 成功通知
func Success(message string) *Notification {
	return &Notification{Level: LevelSuccess, Message: message}
}

// Info 資訊通知
func Info(message string) *Notification {
	return &Notification{Level: LevelInfo, Message: message}
}

// NotificationFor 將操作結果轉為通知，NotFound 不致命，降為 info
func NotificationFor(err error) *Notification {
	if err == nil {
		return Success("✅ 저장하였습니다")
	}
	if errors.Is(err, ErrNotFound) {
		return Info(MessageOf(err))
	}
	return &Notification{Level: LevelError, Message: MessageOf(err)}
}
