package storage

import (
	"fmt"

	"recipe-helper/internal/core/pantry"
	"recipe-helper/internal/pkg/common"
)

// ExportFileName 匯出檔名
const ExportFileName = "data.json"

// JSONExporter 產生與 data.json 相同格式的匯出內容
type JSONExporter struct{}

// Export 以縮排 JSON 輸出，保留非 ASCII 字元
func (JSONExporter) Export(snapshot *pantry.Snapshot) ([]byte, error) {
	data, err := common.MarshalPretty(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to export snapshot: %w", err)
	}
	return data, nil
}

// FileName 匯出檔名
func (JSONExporter) FileName() string {
	return ExportFileName
}
