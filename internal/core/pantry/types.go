package pantry

import (
	"context"
	"strings"
	"time"

	"recipe-helper/internal/pkg/common"
)

// SnapshotVersion data.json 格式版本
const SnapshotVersion = "1.0"

// 分類哨兵值：代表「全部」，不可作為實際分類
const (
	CategoryAll      = "전체"
	CategoryAllAlias = "all"
)

// IngredientRecord 持有食材
type IngredientRecord struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// RecipeIngredient 食譜所需食材
type RecipeIngredient struct {
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Processing bool   `json:"processing"` // 需要加工，僅供顯示
}

// RecipeRecord 食譜
type RecipeRecord struct {
	ID          int                `json:"id"`
	Name        string             `json:"name"`
	Category    string             `json:"category"`
	Quantity    int                `json:"quantity"` // 產出數量，僅供顯示
	Description string             `json:"description,omitempty"`
	Ingredients []RecipeIngredient `json:"ingredients"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   *time.Time         `json:"updatedAt,omitempty"`
}

// clone 深拷貝，避免食材切片被外部共用
func (r RecipeRecord) clone() RecipeRecord {
	out := r
	out.Ingredients = append([]RecipeIngredient(nil), r.Ingredients...)
	if r.UpdatedAt != nil {
		t := *r.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// Snapshot 載入與儲存共用的資料格式
type Snapshot struct {
	Ingredients []IngredientRecord `json:"ingredients"`
	Recipes     []RecipeRecord     `json:"recipes"`
	LastUpdated time.Time          `json:"lastUpdated"`
	Version     string             `json:"version"`
}

// Saver 儲存能力，由外部注入
type Saver interface {
	Save(ctx context.Context, snapshot *Snapshot) error
}

// SyncSaver 可等待寫入完成的 Saver
type SyncSaver interface {
	SaveNow(ctx context.Context, snapshot *Snapshot) error
}

// RecipeInput 新增或修改食譜的指令
type RecipeInput struct {
	Name        string             `json:"name"`
	Category    string             `json:"category"`
	Quantity    int                `json:"quantity"`
	Description string             `json:"description"`
	Ingredients []RecipeIngredient `json:"ingredients"`
}

// Normalize 去除前後空白，產出數量預設為 1
func (in RecipeInput) Normalize() RecipeInput {
	out := RecipeInput{
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		Quantity:    in.Quantity,
		Description: strings.TrimSpace(in.Description),
		Ingredients: make([]RecipeIngredient, 0, len(in.Ingredients)),
	}
	if out.Quantity <= 0 {
		out.Quantity = 1
	}
	for _, ing := range in.Ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		out.Ingredients = append(out.Ingredients, ing)
	}
	return out
}

// Validate 驗證輸入；應在 Normalize 之後呼叫
func (in RecipeInput) Validate() error {
	if in.Name == "" || in.Category == "" {
		return common.NewValidationError("레시피 이름과 카테고리를 모두 입력해주세요.")
	}
	if IsAllCategory(in.Category) {
		return common.NewValidationError("'" + in.Category + "'은(는) 사용할 수 없는 카테고리입니다.")
	}
	if len(in.Ingredients) == 0 {
		return common.NewValidationError("최소 1개 이상의 재료를 추가해주세요.")
	}
	for _, ing := range in.Ingredients {
		if ing.Name == "" {
			return common.NewValidationError("모든 재료의 이름을 입력해주세요.")
		}
		if ing.Quantity < 1 {
			return common.NewValidationError("수량은 1개 이상이어야 합니다.")
		}
	}
	return nil
}

// IsAllCategory 是否為「全部」哨兵值
func IsAllCategory(category string) bool {
	return category == CategoryAll || category == CategoryAllAlias
}
