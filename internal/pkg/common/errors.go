package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code         string        `json:"code"`              // 錯誤代碼
	Message      string        `json:"error"`             // 錯誤信息
	Details      string        `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
	Notification *Notification `json:"notification,omitempty"`
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 讓 errors.Is/As 可以穿透到原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓 Wrap 過的錯誤仍可匹配預定義錯誤
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Wrap 以預定義錯誤為基礎附加原始錯誤
func (e *CustomError) Wrap(err error) *CustomError {
	return NewError(e.Code, e.Message, e.Status, err)
}

// WithMessage 以預定義錯誤為基礎替換使用者訊息
func (e *CustomError) WithMessage(message string) *CustomError {
	return NewError(e.Code, message, e.Status, e.Err)
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeValidation      = "VALIDATION_ERROR"  // 400
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeDuplicateName   = "DUPLICATE_NAME"    // 409
	ErrCodeConfirmRequired = "CONFIRM_REQUIRED"  // 400
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429
	ErrCodeRequestTimeout  = "REQUEST_TIMEOUT"   // 408

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodePersistenceFailure = "PERSISTENCE_FAILURE" // 503
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest       = NewError(ErrCodeInvalidRequest, "잘못된 요청입니다.", http.StatusBadRequest, nil)
	ErrNotFound             = NewError(ErrCodeNotFound, "대상을 찾을 수 없습니다.", http.StatusNotFound, nil)
	ErrDuplicateName        = NewError(ErrCodeDuplicateName, "같은 이름의 레시피가 이미 존재합니다.", http.StatusConflict, nil)
	ErrConfirmationRequired = NewError(ErrCodeConfirmRequired, "삭제를 확인해주세요.", http.StatusBadRequest, nil)
	ErrTooManyRequests      = NewError(ErrCodeTooManyRequests, "요청이 너무 잦습니다.", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "서버 내부 오류입니다.", http.StatusInternalServerError, nil)
	ErrPersistenceFailure = NewError(ErrCodePersistenceFailure, "데이터 저장에 실패했습니다.", http.StatusServiceUnavailable, nil)
	ErrQueueFull          = NewError(ErrCodePersistenceFailure, "저장 대기열이 가득 찼습니다. 최신 데이터를 data.json으로 내보냈습니다.", http.StatusServiceUnavailable, nil)
)

// StatusOf 取得錯誤對應的 HTTP 狀態碼
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if IsValidationError(err) {
		return http.StatusBadRequest
	}
	var ce *CustomError
	if errors.As(err, &ce) && ce.Status != 0 {
		return ce.Status
	}
	return http.StatusInternalServerError
}

// CodeOf 取得錯誤代碼
func CodeOf(err error) string {
	if IsValidationError(err) {
		return ErrCodeValidation
	}
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternalError
}

// MessageOf 取得使用者可讀的錯誤訊息
func MessageOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.message
	}
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return ErrInternalError.Message
}
