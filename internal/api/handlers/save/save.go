package save

import (
	"net/http"
	"time"

	pantryService "recipe-helper/internal/core/pantry"
	"recipe-helper/internal/core/storage"
	"recipe-helper/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FallbackSource 提供最近一次儲存失敗時的匯出內容
type FallbackSource interface {
	LastExport() ([]byte, bool)
}

// Handler 儲存與匯出處理程序
type Handler struct {
	service  *pantryService.Service
	exporter storage.Exporter
	fallback FallbackSource
}

// NewHandler 創建處理程序；fallback 可為 nil
func NewHandler(service *pantryService.Service, exporter storage.Exporter, fallback FallbackSource) *Handler {
	return &Handler{
		service:  service,
		exporter: exporter,
		fallback: fallback,
	}
}

// SaveData 接收整份資料，取代目前狀態並等待寫入完成。
// 寫入與隊列共用順序，回應成功後不會被較早的快照覆蓋。
func (h *Handler) SaveData(c *gin.Context) {
	requestID := common.RequestID(c)

	var snapshot pantryService.Snapshot
	if err := common.DecodeJSON(c.Request.Body, &snapshot); err != nil {
		common.LogWarn("invalid save payload",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, storage.SaveAck{
			Success: false,
			Message: "잘못된 데이터 형식입니다: " + err.Error(),
		})
		return
	}

	start := time.Now()
	added, err := h.service.Import(c.Request.Context(), &snapshot)
	common.LogSaveResult("save-data", time.Since(start), err, requestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, storage.SaveAck{
			Success: false,
			Message: "파일 저장 중 오류가 발생했습니다: " + err.Error(),
		})
		return
	}

	if len(added) > 0 {
		common.LogDebug("save payload synced ingredients",
			zap.Int("added", len(added)),
			zap.String("request_id", requestID),
		)
	}
	c.JSON(http.StatusOK, storage.SaveAck{
		Success:   true,
		Message:   "데이터가 성공적으로 저장되었습니다.",
		Timestamp: time.Now().Format("2006-01-02T15:04:05.000000"),
	})
}

// DataFile 以 data.json 格式回傳目前狀態
func (h *Handler) DataFile(c *gin.Context) {
	data, err := h.exporter.Export(h.service.Snapshot())
	if err != nil {
		common.WriteErrorResponse(c, common.ErrInternalError.Wrap(err))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// Export 下載目前狀態
func (h *Handler) Export(c *gin.Context) {
	data, err := h.exporter.Export(h.service.Snapshot())
	if err != nil {
		common.WriteErrorResponse(c, common.ErrInternalError.Wrap(err))
		return
	}
	h.attachment(c, data)
}

// ExportFallback 下載最近一次儲存失敗時匯出的內容
func (h *Handler) ExportFallback(c *gin.Context) {
	if h.fallback == nil {
		common.WriteErrorResponse(c, common.ErrNotFound.WithMessage("저장 실패로 보관된 데이터가 없습니다."))
		return
	}
	data, found := h.fallback.LastExport()
	if !found {
		common.WriteErrorResponse(c, common.ErrNotFound.WithMessage("저장 실패로 보관된 데이터가 없습니다."))
		return
	}
	h.attachment(c, data)
}

func (h *Handler) attachment(c *gin.Context, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+h.exporter.FileName()+`"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}
