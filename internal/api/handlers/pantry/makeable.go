package pantry

import (
	"recipe-helper/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

const noIngredients = "먼저 재료를 입력해주세요."

// ListMakeable 目前可製作的食譜
func (h *Handler) ListMakeable(c *gin.Context) {
	recipes := h.service.Makeable(categoryQuery(c))
	if !h.service.HasIngredients() {
		ok(c, noIngredients, common.Info(noIngredients), recipes)
		return
	}
	ok(c, "", nil, recipes)
}

// MakeableCategories 可製作食譜的分類選項，第一個固定為 전체
func (h *Handler) MakeableCategories(c *gin.Context) {
	ok(c, "", nil, h.service.MakeableCategories())
}
