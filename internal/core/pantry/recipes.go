package pantry

import (
	"fmt"
	"time"

	"recipe-helper/internal/pkg/common"
)

// noID 不對應任何食譜的 ID
const noID = -1

// RecipeStore 食譜清單，依插入順序排列。
// 不自行加鎖，由 Service 序列化存取。
type RecipeStore struct {
	records []RecipeRecord
}

// NewRecipeStore 創建食譜清單
func NewRecipeStore(records ...RecipeRecord) *RecipeStore {
	s := &RecipeStore{}
	s.Replace(records)
	return s
}

// Len 食譜數量
func (s *RecipeStore) Len() int {
	return len(s.records)
}

// List 回傳深拷貝
func (s *RecipeStore) List() []RecipeRecord {
	out := make([]RecipeRecord, len(s.records))
	for i, r := range s.records {
		out[i] = r.clone()
	}
	return out
}

// NextID 目前最大 ID + 1，空清單為 1
func (s *RecipeStore) NextID() int {
	maxID := 0
	for _, r := range s.records {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return maxID + 1
}

// Add 新增食譜；名稱必須唯一（完全相同字串比對）
func (s *RecipeStore) Add(in RecipeInput, now time.Time) (RecipeRecord, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return RecipeRecord{}, err
	}
	if s.nameTaken(in.Name, noID) {
		return RecipeRecord{}, duplicateName(in.Name)
	}

	rec := RecipeRecord{
		ID:          s.NextID(),
		Name:        in.Name,
		Category:    in.Category,
		Quantity:    in.Quantity,
		Description: in.Description,
		Ingredients: append([]RecipeIngredient(nil), in.Ingredients...),
		CreatedAt:   now,
	}
	s.records = append(s.records, rec)
	return rec.clone(), nil
}

// Update 修改食譜，保留 ID 與 CreatedAt。先驗證輸入，再查找食譜。
func (s *RecipeStore) Update(id int, in RecipeInput, now time.Time) (RecipeRecord, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return RecipeRecord{}, err
	}
	idx := s.indexOf(id)
	if idx < 0 {
		return RecipeRecord{}, notFound(id)
	}
	if s.nameTaken(in.Name, id) {
		return RecipeRecord{}, duplicateName(in.Name)
	}

	updatedAt := now
	rec := s.records[idx]
	rec.Name = in.Name
	rec.Category = in.Category
	rec.Quantity = in.Quantity
	rec.Description = in.Description
	rec.Ingredients = append([]RecipeIngredient(nil), in.Ingredients...)
	rec.UpdatedAt = &updatedAt
	s.records[idx] = rec
	return rec.clone(), nil
}

// Remove 依 ID 刪除
func (s *RecipeStore) Remove(id int) (RecipeRecord, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return RecipeRecord{}, notFound(id)
	}
	removed := s.records[idx]
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	return removed, nil
}

// FindByID 依 ID 查找
func (s *RecipeStore) FindByID(id int) (RecipeRecord, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return RecipeRecord{}, false
	}
	return s.records[idx].clone(), true
}

// FindByName 依名稱查找（完全相同字串）
func (s *RecipeStore) FindByName(name string) (RecipeRecord, bool) {
	for _, r := range s.records {
		if r.Name == name {
			return r.clone(), true
		}
	}
	return RecipeRecord{}, false
}

// ListByCategory 依分類篩選，哨兵值回傳全部
func (s *RecipeStore) ListByCategory(category string) []RecipeRecord {
	if IsAllCategory(category) {
		return s.List()
	}
	out := []RecipeRecord{}
	for _, r := range s.records {
		if r.Category == category {
			out = append(out, r.clone())
		}
	}
	return out
}

// Categories 所有食譜的分類，依首次出現順序
func (s *RecipeStore) Categories() []string {
	return distinctCategories(s.records)
}

// Replace 以載入資料取代清單
func (s *RecipeStore) Replace(records []RecipeRecord) {
	s.records = make([]RecipeRecord, 0, len(records))
	for _, r := range records {
		if r.Quantity <= 0 {
			r.Quantity = 1
		}
		s.records = append(s.records, r.clone())
	}
}

func (s *RecipeStore) indexOf(id int) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// nameTaken 除了 exceptID 以外是否有同名食譜
func (s *RecipeStore) nameTaken(name string, exceptID int) bool {
	for _, r := range s.records {
		if r.Name == name && r.ID != exceptID {
			return true
		}
	}
	return false
}

func distinctCategories(records []RecipeRecord) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range records {
		if r.Category == "" {
			continue
		}
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	return out
}

func duplicateName(name string) error {
	return common.ErrDuplicateName.Wrap(fmt.Errorf("recipe %q already exists", name))
}

func notFound(id int) error {
	return common.ErrNotFound.WithMessage(fmt.Sprintf("%d번 레시피를 찾을 수 없습니다.", id))
}
