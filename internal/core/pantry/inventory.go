package pantry

import (
	"fmt"

	"recipe-helper/internal/pkg/common"

	"go.uber.org/zap"
)

// InventoryStore 持有食材清單，依插入順序排列。
// 不自行加鎖，由 Service 序列化存取。
type InventoryStore struct {
	records []IngredientRecord
}

// NewInventoryStore 創建食材清單
func NewInventoryStore(records ...IngredientRecord) *InventoryStore {
	s := &InventoryStore{}
	s.Replace(records)
	return s
}

// Len 食材數量
func (s *InventoryStore) Len() int {
	return len(s.records)
}

// List 回傳副本
func (s *InventoryStore) List() []IngredientRecord {
	out := make([]IngredientRecord, len(s.records))
	copy(out, s.records)
	return out
}

// At 依索引取得食材
func (s *InventoryStore) At(index int) (IngredientRecord, error) {
	if err := s.checkIndex(index); err != nil {
		return IngredientRecord{}, err
	}
	return s.records[index], nil
}

// Find 依正規化名稱查找
func (s *InventoryStore) Find(name string) (IngredientRecord, int, bool) {
	key := Normalize(name)
	for i, rec := range s.records {
		if Normalize(rec.Name) == key {
			return rec, i, true
		}
	}
	return IngredientRecord{}, -1, false
}

// UpsertIfAbsent 不存在同名食材時以數量 0 新增，回傳是否新增
func (s *InventoryStore) UpsertIfAbsent(name string) bool {
	if _, _, ok := s.Find(name); ok {
		return false
	}
	s.records = append(s.records, IngredientRecord{Name: name, Quantity: 0})
	common.LogDebug("ingredient added", zap.String("name", name))
	return true
}

// Increment 數量加一
func (s *InventoryStore) Increment(index int) (IngredientRecord, error) {
	if err := s.checkIndex(index); err != nil {
		return IngredientRecord{}, err
	}
	s.records[index].Quantity++
	return s.records[index], nil
}

// Decrement 數量減一，已為 0 時不變並回傳 changed=false
func (s *InventoryStore) Decrement(index int) (IngredientRecord, bool, error) {
	if err := s.checkIndex(index); err != nil {
		return IngredientRecord{}, false, err
	}
	if s.records[index].Quantity == 0 {
		return s.records[index], false, nil
	}
	s.records[index].Quantity--
	return s.records[index], true, nil
}

// SetQuantity 直接設定數量，負數拒絕且不修改
func (s *InventoryStore) SetQuantity(index, value int) (IngredientRecord, error) {
	if err := s.checkIndex(index); err != nil {
		return IngredientRecord{}, err
	}
	if value < 0 {
		return s.records[index], common.NewValidationError("수량은 0 이상이어야 합니다.")
	}
	s.records[index].Quantity = value
	return s.records[index], nil
}

// ClearAll 清空清單，確認由呼叫端負責
func (s *InventoryStore) ClearAll() int {
	n := len(s.records)
	s.records = nil
	return n
}

// Replace 以載入資料取代清單。正規化名稱重複者保留第一筆，負數歸零。
func (s *InventoryStore) Replace(records []IngredientRecord) {
	s.records = make([]IngredientRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		key := Normalize(rec.Name)
		if _, dup := seen[key]; dup {
			common.LogWarn("duplicate ingredient dropped on load",
				zap.String("name", rec.Name),
				zap.String("normalized", key),
			)
			continue
		}
		seen[key] = struct{}{}
		if rec.Quantity < 0 {
			rec.Quantity = 0
		}
		s.records = append(s.records, rec)
	}
}

func (s *InventoryStore) checkIndex(index int) error {
	if index < 0 || index >= len(s.records) {
		return common.ErrNotFound.WithMessage(fmt.Sprintf("%d번 재료를 찾을 수 없습니다.", index))
	}
	return nil
}
