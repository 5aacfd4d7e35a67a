package health

import (
	"net/http"
	"runtime"
	"time"

	pantryService "recipe-helper/internal/core/pantry"
	"recipe-helper/internal/core/storage"
	"recipe-helper/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Version     string                 `json:"version"`
	Ingredients int                    `json:"ingredients"`
	Recipes     int                    `json:"recipes"`
	Runtime     map[string]interface{} `json:"runtime"`
	Queue       *storage.QueueStatus   `json:"queue,omitempty"`
}

// QueueStatusProvider 提供儲存隊列狀態
type QueueStatusProvider interface {
	Status() *storage.QueueStatus
}

// Handler 健康檢查處理程序
type Handler struct {
	config  *config.Config
	service *pantryService.Service
	queue   QueueStatusProvider
}

// NewHandler 創建健康檢查處理程序；queue 可為 nil
func NewHandler(cfg *config.Config, service *pantryService.Service, queue QueueStatusProvider) *Handler {
	return &Handler{config: cfg, service: service, queue: queue}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	ingredients, recipes := h.service.Counts()
	response := HealthResponse{
		Status:      "ok",
		Timestamp:   time.Now(),
		Version:     h.config.App.Version,
		Ingredients: ingredients,
		Recipes:     recipes,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":  m.Alloc,
				"sys":    m.Sys,
				"num_gc": m.NumGC,
			},
		},
	}
	if h.queue != nil {
		response.Queue = h.queue.Status()
	}

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查：隊列已滿時回報未就緒
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.queue != nil {
		status := h.queue.Status()
		if status.QueueLength >= status.MaxQueueSize {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"reason": "save queue is full",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
