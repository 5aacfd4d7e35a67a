package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-helper/internal/core/pantry"
	"recipe-helper/internal/infrastructure/config"
	"recipe-helper/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 遠端儲存端點
const (
	SaveDataPath = "/api/save-data"
	DataFilePath = "/data.json"
)

// SaveAck 儲存端點的回應
type SaveAck struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// RemoteStore 透過 HTTP 儲存到遠端的 save-data 端點
type RemoteStore struct {
	client *resty.Client
}

// NewRemoteStore 創建遠端儲存
func NewRemoteStore(cfg *config.StorageConfig) *RemoteStore {
	timeout := cfg.RemoteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.RemoteURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &RemoteStore{client: client}
}

// Name 後端名稱
func (s *RemoteStore) Name() string {
	return "remote"
}

// Persist POST 整份快照到 save-data 端點
func (s *RemoteStore) Persist(ctx context.Context, snapshot *pantry.Snapshot) error {
	var ack SaveAck
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(snapshot).
		SetResult(&ack).
		SetError(&ack).
		Post(SaveDataPath)
	if err != nil {
		return persistenceFailure(s.Name(), err)
	}

	if resp.IsError() {
		common.LogDebug("remote save rejected",
			zap.Int("status", resp.StatusCode()),
			zap.String("message", ack.Message),
		)
		return persistenceFailure(s.Name(), fmt.Errorf("status %d: %s", resp.StatusCode(), ack.Message))
	}
	if !ack.Success {
		return persistenceFailure(s.Name(), errors.New(ack.Message))
	}
	return nil
}

// Load GET 遠端的 data.json；404 回傳 ErrNoData
func (s *RemoteStore) Load(ctx context.Context) (*pantry.Snapshot, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(DataFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrNoData
	case resp.IsError():
		return nil, fmt.Errorf("failed to fetch data: status %d", resp.StatusCode())
	}
	return decodeSnapshot(resp.Body())
}

// Close 無需釋放資源
func (s *RemoteStore) Close() error {
	return nil
}
