package pantry

import (
	"recipe-helper/internal/pkg/common"

	"go.uber.org/zap"
)

// SyncIngredients 確保食譜用到的每種食材都在持有清單中。
// 缺少者以原始名稱、數量 0 新增；只差空白的名稱視為同一種，先出現者為準。
// 不會修改既有食材的數量。回傳新增的食材。
func SyncIngredients(inv *InventoryStore, recipes ...RecipeRecord) []IngredientRecord {
	var added []IngredientRecord
	for _, r := range recipes {
		for _, ing := range r.Ingredients {
			if Normalize(ing.Name) == "" {
				continue
			}
			if inv.UpsertIfAbsent(ing.Name) {
				added = append(added, IngredientRecord{Name: ing.Name})
			}
		}
	}
	if len(added) > 0 {
		common.LogDebug("ingredients synchronized",
			zap.Int("recipes", len(recipes)),
			zap.Int("added", len(added)),
		)
	}
	return added
}
