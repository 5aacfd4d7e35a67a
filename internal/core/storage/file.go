package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"recipe-helper/internal/core/pantry"
	"recipe-helper/internal/pkg/common"

	"go.uber.org/zap"
)

// FileStore 以 data.json 檔案儲存
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore 創建檔案儲存
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Name 後端名稱
func (s *FileStore) Name() string {
	return "file"
}

// Path 檔案路徑
func (s *FileStore) Path() string {
	return s.path
}

// Persist 以縮排 JSON 寫入；先寫暫存檔再改名，避免寫到一半的檔案
func (s *FileStore) Persist(ctx context.Context, snapshot *pantry.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := common.MarshalPretty(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.path, data); err != nil {
		return persistenceFailure(s.Name(), err)
	}
	common.LogDebug("data file written",
		zap.String("path", s.path),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Load 讀取 data.json；檔案不存在回傳 ErrNoData
func (s *FileStore) Load(ctx context.Context) (*pantry.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return decodeSnapshot(data)
}

// Close 無需釋放資源
func (s *FileStore) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
