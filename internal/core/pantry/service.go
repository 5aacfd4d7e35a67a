package pantry

import (
	"context"
	"errors"
	"sync"
	"time"

	"recipe-helper/internal/pkg/common"

	"go.uber.org/zap"
)

// Service 擁有持有清單與食譜清單，所有操作以單一寫入者序列化。
// 每次狀態變更後把快照交給 Saver；儲存失敗不回滾記憶體狀態，
// 變更結果與 ErrPersistenceFailure 一起回傳。
type Service struct {
	mu        sync.Mutex
	inventory *InventoryStore
	recipes   *RecipeStore
	saver     Saver
	now       func() time.Time
}

// Option Service 選項
type Option func(*Service)

// WithClock 注入時鐘（測試用）
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService 創建服務；saver 可為 nil
func NewService(saver Saver, opts ...Option) *Service {
	s := &Service{
		inventory: NewInventoryStore(),
		recipes:   NewRecipeStore(),
		saver:     saver,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load 以載入資料取代目前狀態，並對所有食譜執行一次食材同步
func (s *Service) Load(snapshot *Snapshot) []IngredientRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(snapshot)
}

// Import 載入資料並在持有鎖時等待寫入完成，確保較早的快照不會覆蓋它
func (s *Service) Import(ctx context.Context, snapshot *Snapshot) ([]IngredientRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := s.loadLocked(snapshot)
	if s.saver == nil {
		return added, nil
	}
	var err error
	if now, ok := s.saver.(SyncSaver); ok {
		err = now.SaveNow(ctx, s.snapshotLocked())
	} else {
		err = s.saver.Save(ctx, s.snapshotLocked())
	}
	return added, s.saveFailed("import", err)
}

func (s *Service) loadLocked(snapshot *Snapshot) []IngredientRecord {
	if snapshot == nil {
		snapshot = &Snapshot{}
	}
	s.inventory.Replace(snapshot.Ingredients)
	s.recipes.Replace(snapshot.Recipes)
	added := SyncIngredients(s.inventory, s.recipes.records...)

	common.LogInfo("資料載入完成",
		zap.Int("ingredients", s.inventory.Len()),
		zap.Int("recipes", s.recipes.Len()),
		zap.Int("synced", len(added)),
		zap.String("version", snapshot.Version),
	)
	return added
}

// Snapshot 目前狀態的深拷貝
func (s *Service) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Ingredients 持有清單
func (s *Service) Ingredients() []IngredientRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory.List()
}

// FindIngredient 依正規化名稱查找持有食材
func (s *Service) FindIngredient(name string) (IngredientRecord, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory.Find(name)
}

// IncrementIngredient 數量加一
func (s *Service) IncrementIngredient(ctx context.Context, index int) (IngredientRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.inventory.Increment(index)
	if err != nil {
		return rec, err
	}
	return rec, s.persistLocked(ctx, "increment")
}

// DecrementIngredient 數量減一，已為 0 時不變也不觸發儲存
func (s *Service) DecrementIngredient(ctx context.Context, index int) (IngredientRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, changed, err := s.inventory.Decrement(index)
	if err != nil {
		return rec, err
	}
	if !changed {
		return rec, nil
	}
	return rec, s.persistLocked(ctx, "decrement")
}

// SetIngredientQuantity 直接設定數量
func (s *Service) SetIngredientQuantity(ctx context.Context, index, value int) (IngredientRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.inventory.SetQuantity(index, value)
	if err != nil {
		return rec, err
	}
	return rec, s.persistLocked(ctx, "set_quantity")
}

// ClearIngredients 清空持有清單。未確認時拒絕；清單本來就空時回傳 0 且不儲存。
func (s *Service) ClearIngredients(ctx context.Context, confirmed bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inventory.Len() == 0 {
		return 0, nil
	}
	if !confirmed {
		return 0, common.ErrConfirmationRequired.WithMessage("모든 재료를 삭제하시겠습니까?")
	}
	n := s.inventory.ClearAll()
	return n, s.persistLocked(ctx, "clear_ingredients")
}

// AddRecipe 新增食譜並同步食材
func (s *Service) AddRecipe(ctx context.Context, in RecipeInput) (RecipeRecord, []IngredientRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.recipes.Add(in, s.now())
	if err != nil {
		return RecipeRecord{}, nil, err
	}
	added := SyncIngredients(s.inventory, rec)
	common.LogInfo("recipe added",
		zap.Int("id", rec.ID),
		zap.String("name", rec.Name),
		zap.Int("new_ingredients", len(added)),
	)
	return rec, added, s.persistLocked(ctx, "add_recipe")
}

// UpdateRecipe 修改食譜。既有持有食材不會因此被刪除。
func (s *Service) UpdateRecipe(ctx context.Context, id int, in RecipeInput) (RecipeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.recipes.Update(id, in, s.now())
	if err != nil {
		return RecipeRecord{}, err
	}
	common.LogInfo("recipe updated", zap.Int("id", rec.ID), zap.String("name", rec.Name))
	return rec, s.persistLocked(ctx, "update_recipe")
}

// DeleteRecipe 依 ID 刪除食譜
func (s *Service) DeleteRecipe(ctx context.Context, id int) (RecipeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.recipes.Remove(id)
	if err != nil {
		return RecipeRecord{}, err
	}
	common.LogInfo("recipe deleted", zap.Int("id", rec.ID), zap.String("name", rec.Name))
	return rec, s.persistLocked(ctx, "delete_recipe")
}

// Recipe 依 ID 取得食譜與其缺少的食材
func (s *Service) Recipe(id int) (RecipeRecord, []Shortage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recipes.FindByID(id)
	if !ok {
		return RecipeRecord{}, nil, notFound(id)
	}
	return rec, Shortages(rec, s.inventory.records), nil
}

// RecipeByName 依名稱取得食譜
func (s *Service) RecipeByName(name string) (RecipeRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipes.FindByName(name)
}

// Recipes 依分類列出食譜
func (s *Service) Recipes(category string) []RecipeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipes.ListByCategory(category)
}

// RecipeCategories 所有食譜分類
func (s *Service) RecipeCategories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipes.Categories()
}

// Makeable 目前可製作的食譜，依分類篩選
func (s *Service) Makeable(category string) []RecipeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	makeable := ComputeMakeable(s.recipes.List(), s.inventory.records)
	return FilterByCategory(makeable, category)
}

// MakeableCategories 可製作食譜的分類選項，每次依最新資料重算
func (s *Service) MakeableCategories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CategoryOptions(ComputeMakeable(s.recipes.records, s.inventory.records))
}

// HasIngredients 持有清單是否非空
func (s *Service) HasIngredients() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory.Len() > 0
}

// Counts 食材數與食譜數
func (s *Service) Counts() (ingredients, recipes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory.Len(), s.recipes.Len()
}

func (s *Service) snapshotLocked() *Snapshot {
	return &Snapshot{
		Ingredients: s.inventory.List(),
		Recipes:     s.recipes.List(),
		LastUpdated: s.now(),
		Version:     SnapshotVersion,
	}
}

// persistLocked 把快照交給 Saver
func (s *Service) persistLocked(ctx context.Context, op string) error {
	if s.saver == nil {
		return nil
	}
	return s.saveFailed(op, s.saver.Save(ctx, s.snapshotLocked()))
}

// saveFailed 記錄並統一包裝為 ErrPersistenceFailure
func (s *Service) saveFailed(op string, err error) error {
	if err == nil {
		return nil
	}
	common.LogError("failed to hand off snapshot",
		zap.String("operation", op),
		zap.Error(err),
	)
	if errors.Is(err, common.ErrPersistenceFailure) {
		return err
	}
	return common.ErrPersistenceFailure.Wrap(err)
}
