package pantry

import (
	"fmt"

	pantryService "recipe-helper/internal/core/pantry"
	"recipe-helper/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const recipeSaved = "레시피를 저장하였습니다"

// RecipeRequest 新增或修改食譜請求
type RecipeRequest struct {
	Name        string                            `json:"name"`
	Category    string                            `json:"category"`
	Quantity    int                               `json:"quantity"`
	Description string                            `json:"description"`
	Ingredients []pantryService.RecipeIngredient `json:"ingredients"`
}

func (r RecipeRequest) input() pantryService.RecipeInput {
	return pantryService.RecipeInput{
		Name:        r.Name,
		Category:    r.Category,
		Quantity:    r.Quantity,
		Description: r.Description,
		Ingredients: r.Ingredients,
	}
}

// RecipeDetail 食譜與缺少的食材
type RecipeDetail struct {
	pantryService.RecipeRecord
	Makeable  bool                     `json:"makeable"`
	Shortages []pantryService.Shortage `json:"shortages"`
}

// AddRecipeResult 新增結果，含同步新增的食材
type AddRecipeResult struct {
	Recipe           pantryService.RecipeRecord       `json:"recipe"`
	AddedIngredients []pantryService.IngredientRecord `json:"addedIngredients"`
}

// ListRecipes 依分類列出食譜；전체/all 表示全部
func (h *Handler) ListRecipes(c *gin.Context) {
	ok(c, "", nil, h.service.Recipes(categoryQuery(c)))
}

// RecipeCategories 食譜分類（用於篩選與表單下拉選單）
func (h *Handler) RecipeCategories(c *gin.Context) {
	ok(c, "", nil, h.service.RecipeCategories())
}

// GetRecipe 依 ID 取得食譜
func (h *Handler) GetRecipe(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	rec, shortages, err := h.service.Recipe(id)
	if err != nil {
		fail(c, "get_recipe", err)
		return
	}
	if shortages == nil {
		shortages = []pantryService.Shortage{}
	}
	ok(c, "", nil, RecipeDetail{RecipeRecord: rec, Makeable: len(shortages) == 0, Shortages: shortages})
}

// AddRecipe 新增食譜
func (h *Handler) AddRecipe(c *gin.Context) {
	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteBadRequest(c, "레시피 형식이 올바르지 않습니다.")
		return
	}
	rec, added, err := h.service.AddRecipe(c.Request.Context(), req.input())
	if rejected(c, "add_recipe", err) {
		return
	}
	if added == nil {
		added = []pantryService.IngredientRecord{}
	}
	common.LogDebug("recipe created via api",
		zap.Int("id", rec.ID),
		zap.String("request_id", common.RequestID(c)),
	)
	saved(c, "add_recipe", recipeSaved, AddRecipeResult{Recipe: rec, AddedIngredients: added}, err)
}

// UpdateRecipe 修改食譜
func (h *Handler) UpdateRecipe(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteBadRequest(c, "레시피 형식이 올바르지 않습니다.")
		return
	}
	rec, err := h.service.UpdateRecipe(c.Request.Context(), id, req.input())
	if rejected(c, "update_recipe", err) {
		return
	}
	saved(c, "update_recipe", recipeSaved, rec, err)
}

// DeleteRecipe 刪除食譜
func (h *Handler) DeleteRecipe(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	rec, err := h.service.DeleteRecipe(c.Request.Context(), id)
	if rejected(c, "delete_recipe", err) {
		return
	}
	saved(c, "delete_recipe", fmt.Sprintf("%q 레시피가 삭제되었습니다.", rec.Name), rec, err)
}
