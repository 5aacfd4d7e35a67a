package storage

import (
	"context"
	"errors"
	"fmt"

	"recipe-helper/internal/core/pantry"
	"recipe-helper/internal/infrastructure/config"
	"recipe-helper/internal/pkg/common"
)

// ErrNoData 尚未儲存過任何資料
var ErrNoData = errors.New("no saved data")

// Persister 儲存能力
type Persister interface {
	Persist(ctx context.Context, snapshot *pantry.Snapshot) error
}

// Loader 載入能力
type Loader interface {
	Load(ctx context.Context) (*pantry.Snapshot, error)
}

// Store 可儲存也可載入的後端
type Store interface {
	Persister
	Loader
	Name() string
	Close() error
}

// Exporter 把快照轉成可下載的檔案內容
type Exporter interface {
	Export(snapshot *pantry.Snapshot) ([]byte, error)
	FileName() string
}

// New 依設定建立儲存後端
func New(cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		return NewFileStore(cfg.Storage.DataFile), nil
	case config.BackendRedis:
		store, err := NewRedisStore(&cfg.Storage)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendRemote:
		return NewRemoteStore(&cfg.Storage), nil
	case config.BackendBadger:
		store, err := NewBadgerStore(cfg.Storage.BadgerDir, cfg.Storage.Key)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// decodeSnapshot 解析 data.json；缺少的清單預設為空
func decodeSnapshot(data []byte) (*pantry.Snapshot, error) {
	var snapshot pantry.Snapshot
	if err := common.ParseJSONBytes(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snapshot.Ingredients == nil {
		snapshot.Ingredients = []pantry.IngredientRecord{}
	}
	if snapshot.Recipes == nil {
		snapshot.Recipes = []pantry.RecipeRecord{}
	}
	return &snapshot, nil
}

// persistenceFailure 包裝為可對外回報的儲存失敗
func persistenceFailure(backend string, err error) error {
	return common.ErrPersistenceFailure.Wrap(fmt.Errorf("%s: %w", backend, err))
}
