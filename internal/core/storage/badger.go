package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"recipe-helper/internal/core/pantry"
	"recipe-helper/internal/pkg/common"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// BadgerStore 以嵌入式 BadgerDB 儲存，不需要外部服務
type BadgerStore struct {
	db  *badger.DB
	key []byte
}

// NewBadgerStore 開啟 BadgerDB；dir 為空時使用記憶體模式
func NewBadgerStore(dir, key string) (*BadgerStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		opts = badger.DefaultOptions(absPath)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	common.LogInfo("BadgerDB opened", zap.String("dir", dir))
	return &BadgerStore{db: db, key: []byte(key)}, nil
}

// Name 後端名稱
func (s *BadgerStore) Name() string {
	return "badger"
}

// Persist 寫入整份快照
func (s *BadgerStore) Persist(ctx context.Context, snapshot *pantry.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key, data)
	})
	if err != nil {
		return persistenceFailure(s.Name(), err)
	}
	return nil
}

// Load 讀取快照；key 不存在回傳 ErrNoData
func (s *BadgerStore) Load(ctx context.Context) (*pantry.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

// StartGC 定期回收 value log，直到 ctx 結束
func (s *BadgerStore) StartGC(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
					common.LogWarn("BadgerDB GC error", zap.Error(err))
				}
			}
		}
	}()
}

// Close 關閉資料庫
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
