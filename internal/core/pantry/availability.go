package pantry

// Shortage 未滿足的食材需求
type Shortage struct {
	Name      string `json:"name"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
	Missing   bool   `json:"missing"` // 持有清單中完全沒有此食材
}

// ComputeMakeable 回傳目前可製作的食譜，保留輸入順序。
// 每項需求都必須在持有清單中有同名（正規化後）食材且數量足夠；加工旗標不影響判斷。
func ComputeMakeable(recipes []RecipeRecord, inventory []IngredientRecord) []RecipeRecord {
	stock := stockIndex(inventory)
	out := make([]RecipeRecord, 0, len(recipes))
	for _, r := range recipes {
		if makeable(r, stock) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByCategory 依分類篩選可製作食譜，哨兵值回傳全部
func FilterByCategory(makeable []RecipeRecord, category string) []RecipeRecord {
	if IsAllCategory(category) {
		return makeable
	}
	out := make([]RecipeRecord, 0, len(makeable))
	for _, r := range makeable {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// CategoryOptions 篩選選項：哨兵值在前，接著是可製作食譜中出現過的分類
func CategoryOptions(makeable []RecipeRecord) []string {
	return append([]string{CategoryAll}, distinctCategories(makeable)...)
}

// Shortages 列出食譜中未滿足的需求，空切片代表可製作
func Shortages(recipe RecipeRecord, inventory []IngredientRecord) []Shortage {
	stock := stockIndex(inventory)
	var out []Shortage
	for _, req := range recipe.Ingredients {
		have, ok := stock[Normalize(req.Name)]
		if ok && have >= req.Quantity {
			continue
		}
		out = append(out, Shortage{
			Name:      req.Name,
			Required:  req.Quantity,
			Available: have,
			Missing:   !ok,
		})
	}
	return out
}

func makeable(r RecipeRecord, stock map[string]int) bool {
	for _, req := range r.Ingredients {
		have, ok := stock[Normalize(req.Name)]
		if !ok || have < req.Quantity {
			return false
		}
	}
	return true
}

// stockIndex 正規化名稱 -> 數量；重複時以第一筆為準
func stockIndex(inventory []IngredientRecord) map[string]int {
	stock := make(map[string]int, len(inventory))
	for _, ing := range inventory {
		key := Normalize(ing.Name)
		if _, ok := stock[key]; ok {
			continue
		}
		stock[key] = ing.Quantity
	}
	return stock
}
