package pantry

import (
	"strings"

	pantryService "recipe-helper/internal/core/pantry"
	"recipe-helper/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

const ingredientSaved = "재료 수량을 저장하였습니다"

// IngredientView 帶有位置的持有食材
type IngredientView struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// SetQuantityRequest 設定數量請求
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func ingredientViews(records []pantryService.IngredientRecord) []IngredientView {
	views := make([]IngredientView, len(records))
	for i, rec := range records {
		views[i] = IngredientView{Index: i, Name: rec.Name, Quantity: rec.Quantity}
	}
	return views
}

// ListIngredients 列出持有食材
func (h *Handler) ListIngredients(c *gin.Context) {
	ok(c, "", nil, ingredientViews(h.service.Ingredients()))
}

// FindIngredient 依名稱查找，忽略空白差異
func (h *Handler) FindIngredient(c *gin.Context) {
	name := c.Query("name")
	if strings.TrimSpace(name) == "" {
		common.WriteBadRequest(c, "재료 이름을 입력해주세요.")
		return
	}
	rec, idx, found := h.service.FindIngredient(name)
	if !found {
		fail(c, "find_ingredient", common.ErrNotFound.WithMessage("보유하지 않은 재료입니다: "+name))
		return
	}
	ok(c, "", nil, IngredientView{Index: idx, Name: rec.Name, Quantity: rec.Quantity})
}

// IncrementIngredient 數量加一
func (h *Handler) IncrementIngredient(c *gin.Context) {
	idx, valid := intParam(c, "index")
	if !valid {
		return
	}
	rec, err := h.service.IncrementIngredient(c.Request.Context(), idx)
	if rejected(c, "increment", err) {
		return
	}
	saved(c, "increment", ingredientSaved, IngredientView{Index: idx, Name: rec.Name, Quantity: rec.Quantity}, err)
}

// DecrementIngredient 數量減一，最低為 0
func (h *Handler) DecrementIngredient(c *gin.Context) {
	idx, valid := intParam(c, "index")
	if !valid {
		return
	}
	rec, err := h.service.DecrementIngredient(c.Request.Context(), idx)
	if rejected(c, "decrement", err) {
		return
	}
	saved(c, "decrement", ingredientSaved, IngredientView{Index: idx, Name: rec.Name, Quantity: rec.Quantity}, err)
}

// SetIngredientQuantity 直接設定數量
func (h *Handler) SetIngredientQuantity(c *gin.Context) {
	idx, valid := intParam(c, "index")
	if !valid {
		return
	}
	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteBadRequest(c, "수량을 입력해주세요.")
		return
	}
	rec, err := h.service.SetIngredientQuantity(c.Request.Context(), idx, *req.Quantity)
	if rejected(c, "set_quantity", err) {
		return
	}
	saved(c, "set_quantity", ingredientSaved, IngredientView{Index: idx, Name: rec.Name, Quantity: rec.Quantity}, err)
}

// ClearIngredients 清空持有食材，需帶 confirm=true
func (h *Handler) ClearIngredients(c *gin.Context) {
	confirmed := c.Query("confirm") == "true"
	n, err := h.service.ClearIngredients(c.Request.Context(), confirmed)
	if rejected(c, "clear_ingredients", err) {
		return
	}
	if n == 0 {
		const msg = "삭제할 재료가 없습니다."
		ok(c, msg, common.Info(msg), gin.H{"removed": 0})
		return
	}
	saved(c, "clear_ingredients", "모든 재료가 삭제되었습니다.", gin.H{"removed": n}, err)
}
