package pantry

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	pantryService "recipe-helper/internal/core/pantry"
	"recipe-helper/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 變更類 API 的統一響應
type Response struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message,omitempty"`
	Notification *common.Notification `json:"notification,omitempty"`
	Data         interface{}          `json:"data"`
}

// Handler 食材與食譜處理程序
type Handler struct {
	service *pantryService.Service
}

// NewHandler 創建處理程序
func NewHandler(service *pantryService.Service) *Handler {
	return &Handler{service: service}
}

// Register 註冊路由
func (h *Handler) Register(api *gin.RouterGroup, dedup gin.HandlerFunc) {
	ingredients := api.Group("/ingredients")
	{
		ingredients.GET("", h.ListIngredients)
		ingredients.GET("/find", h.FindIngredient)
		ingredients.POST("/:index/increment", h.IncrementIngredient)
		ingredients.POST("/:index/decrement", h.DecrementIngredient)
		ingredients.PUT("/:index", h.SetIngredientQuantity)
		ingredients.DELETE("", h.ClearIngredients)
	}

	recipes := api.Group("/recipes")
	{
		recipes.GET("", h.ListRecipes)
		recipes.GET("/categories", h.RecipeCategories)
		recipes.GET("/:id", h.GetRecipe)
		recipes.POST("", dedup, h.AddRecipe)
		recipes.PUT("/:id", h.UpdateRecipe)
		recipes.DELETE("/:id", h.DeleteRecipe)
	}

	makeable := api.Group("/makeable")
	{
		makeable.GET("", h.ListMakeable)
		makeable.GET("/categories", h.MakeableCategories)
	}
}

// ok 寫入成功響應
func ok(c *gin.Context, message string, notification *common.Notification, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:      true,
		Message:      message,
		Notification: notification,
		Data:         data,
	})
}

// rejected 操作未套用時寫入錯誤響應並回傳 true。
// 儲存失敗時變更已套用，交給 saved 回應。
func rejected(c *gin.Context, op string, err error) bool {
	if err == nil || errors.Is(err, common.ErrPersistenceFailure) {
		return false
	}
	fail(c, op, err)
	return true
}

// saved 回應已套用的變更；儲存失敗時通知改為錯誤，不顯示成功
func saved(c *gin.Context, op, message string, data interface{}, err error) {
	if err == nil {
		ok(c, message, common.Success(message), data)
		return
	}
	common.LogWarn("變更已套用但儲存失敗",
		zap.String("operation", op),
		zap.String("request_id", common.RequestID(c)),
		zap.Error(err),
	)
	ok(c, message, common.NotificationFor(err), data)
}

// fail 記錄並寫入錯誤響應
func fail(c *gin.Context, op string, err error) {
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("request_id", common.RequestID(c)),
		zap.Error(err),
	}
	if common.StatusOf(err) >= http.StatusInternalServerError {
		common.LogError("操作失敗", fields...)
	} else {
		common.LogDebug("操作被拒絕", fields...)
	}
	common.WriteErrorResponse(c, err)
}

// categoryQuery 讀取分類篩選，未指定時為全部
func categoryQuery(c *gin.Context) string {
	category := strings.TrimSpace(c.Query("category"))
	if category == "" {
		return pantryService.CategoryAll
	}
	return category
}

// intParam 解析路徑中的整數參數
func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		common.WriteBadRequest(c, "잘못된 번호입니다: "+c.Param(name))
		return 0, false
	}
	return v, true
}
