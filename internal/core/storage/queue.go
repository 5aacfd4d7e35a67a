package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"recipe-helper/internal/core/pantry"
	"recipe-helper/internal/infrastructure/config"
	"recipe-helper/internal/pkg/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// persistTimeout 單次儲存的上限
const persistTimeout = 30 * time.Second

// ErrQueueClosed 隊列已關閉
var ErrQueueClosed = errors.New("save queue is closed")

// job 儲存任務；Seq 依交付順序遞增
type job struct {
	ID       string
	Seq      uint64
	Snapshot *pantry.Snapshot
	Enqueued time.Time
}

// QueueStatus 隊列狀態
type QueueStatus struct {
	Backend        string     `json:"backend"`
	QueueLength    int        `json:"queue_length"`
	MaxQueueSize   int        `json:"max_queue_size"`
	Workers        int        `json:"workers"`
	ProcessedCount int64      `json:"processed_count"`
	FailedCount    int64      `json:"failed_count"`
	SkippedCount   int64      `json:"skipped_count"`
	Pending        bool       `json:"pending"`
	LastError      string     `json:"last_error,omitempty"`
	LastSavedAt    *time.Time `json:"last_saved_at,omitempty"`
	FallbackFile   string     `json:"fallback_file,omitempty"`
}

// SaveQueue 非同步儲存隊列；實作 pantry.Saver 與 pantry.SyncSaver
//
// 每份快照都是完整狀態，只需寫入最新的一份：
// 寫入以 persistMu 串行，序號不大於已嘗試序號的快照直接略過。
// 隊列滿時最新快照放入 pending，舊的 pending 被取代。
type SaveQueue struct {
	persister   Persister
	backend     string
	exporter    Exporter
	fallbackDir string
	workers     int
	maxSize     int

	queue     chan *job
	wg        sync.WaitGroup
	processed int64
	failed    int64
	skipped   int64

	persistMu    sync.Mutex
	attemptedSeq uint64

	exportMu    sync.Mutex
	exportedSeq uint64

	mu           sync.RWMutex
	closed       bool
	seq          uint64
	pending      *job
	lastErr      error
	lastSavedAt  *time.Time
	lastExport   []byte
	fallbackFile string
}

// NewSaveQueue 創建儲存隊列
func NewSaveQueue(store Store, exporter Exporter, cfg *config.Config) *SaveQueue {
	workers := cfg.Queue.Workers
	if workers <= 0 {
		workers = 1
	}
	maxSize := cfg.Queue.MaxSize
	if maxSize <= 0 {
		maxSize = 1
	}
	return &SaveQueue{
		persister:   store,
		backend:     store.Name(),
		exporter:    exporter,
		fallbackDir: cfg.Storage.FallbackDir,
		workers:     workers,
		maxSize:     maxSize,
		queue:       make(chan *job, maxSize),
	}
}

// Start 啟動工作者
func (q *SaveQueue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	common.LogInfo("儲存隊列已啟動",
		zap.String("backend", q.backend),
		zap.Int("workers", q.workers),
		zap.Int("max_queue_size", q.maxSize),
	)
}

// Save 將快照加入隊列；不等待實際寫入。
// 隊列已滿時保留為待寫快照並立即匯出備援檔，回傳 ErrQueueFull。
func (q *SaveQueue) Save(ctx context.Context, snapshot *pantry.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	j := q.newJobLocked(snapshot)

	select {
	case q.queue <- j:
		q.mu.Unlock()
		common.LogDebug("儲存任務已加入隊列",
			zap.String("job_id", j.ID),
			zap.Uint64("seq", j.Seq),
			zap.Int("queue_length", len(q.queue)),
		)
		return nil
	default:
	}

	replaced := q.pending != nil
	q.pending = j
	q.mu.Unlock()

	common.LogWarn("儲存隊列已滿，改為待寫快照",
		zap.String("job_id", j.ID),
		zap.Uint64("seq", j.Seq),
		zap.Bool("replaced", replaced),
	)
	q.fallback(j)
	return common.ErrQueueFull
}

// SaveNow 同步寫入快照，與隊列共用同一個寫入順序
func (q *SaveQueue) SaveNow(ctx context.Context, snapshot *pantry.Snapshot) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	j := q.newJobLocked(snapshot)
	q.mu.Unlock()

	return q.persist(ctx, j)
}

func (q *SaveQueue) newJobLocked(snapshot *pantry.Snapshot) *job {
	q.seq++
	return &job{
		ID:       uuid.New().String(),
		Seq:      q.seq,
		Snapshot: snapshot,
		Enqueued: time.Now(),
	}
}

func (q *SaveQueue) takePending() *job {
	q.mu.Lock()
	defer q.mu.Unlock()
	j := q.pending
	q.pending = nil
	return j
}

func (q *SaveQueue) worker(id int) {
	defer q.wg.Done()
	for j := range q.queue {
		q.process(j)
		if p := q.takePending(); p != nil {
			q.process(p)
		}
	}
	common.LogDebug("儲存工作者結束", zap.Int("worker", id))
}

func (q *SaveQueue) process(j *job) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	q.persist(ctx, j)
}

// persist 執行儲存；失敗時改為匯出到本機備援檔
func (q *SaveQueue) persist(ctx context.Context, j *job) error {
	q.persistMu.Lock()
	defer q.persistMu.Unlock()

	if j.Seq <= q.attemptedSeq {
		atomic.AddInt64(&q.skipped, 1)
		common.LogDebug("略過較舊的快照",
			zap.String("job_id", j.ID),
			zap.Uint64("seq", j.Seq),
			zap.Uint64("attempted_seq", q.attemptedSeq),
		)
		return nil
	}
	q.attemptedSeq = j.Seq

	start := time.Now()
	err := q.persister.Persist(ctx, j.Snapshot)
	common.LogSaveResult(q.backend, time.Since(start), err, j.ID)
	atomic.AddInt64(&q.processed, 1)

	if err == nil {
		now := time.Now()
		q.mu.Lock()
		q.lastErr = nil
		q.lastSavedAt = &now
		q.mu.Unlock()
		return nil
	}

	atomic.AddInt64(&q.failed, 1)
	q.mu.Lock()
	q.lastErr = err
	q.mu.Unlock()
	q.fallback(j)
	return err
}

// fallback 匯出快照；較舊的快照不覆蓋已匯出的較新內容
func (q *SaveQueue) fallback(j *job) {
	if q.exporter == nil {
		return
	}
	q.exportMu.Lock()
	defer q.exportMu.Unlock()
	if j.Seq < q.exportedSeq {
		return
	}
	q.exportedSeq = j.Seq
	data, err := q.exporter.Export(j.Snapshot)
	if err != nil {
		common.LogError("備援匯出失敗", zap.String("job_id", j.ID), zap.Error(err))
		return
	}

	q.mu.Lock()
	q.lastExport = data
	q.mu.Unlock()

	if q.fallbackDir == "" {
		common.LogWarn("儲存失敗，已保留匯出內容供下載", zap.String("job_id", j.ID))
		return
	}
	path := filepath.Join(q.fallbackDir, q.exporter.FileName())
	if err := writeFileAtomic(path, data); err != nil {
		common.LogError("備援檔寫入失敗", zap.String("path", path), zap.Error(err))
		return
	}
	q.mu.Lock()
	q.fallbackFile = path
	q.mu.Unlock()
	common.LogWarn("儲存失敗，已匯出備援檔",
		zap.String("job_id", j.ID),
		zap.String("path", path),
	)
}

// LastExport 最近一次儲存失敗時的匯出內容
func (q *SaveQueue) LastExport() ([]byte, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.lastExport == nil {
		return nil, false
	}
	return append([]byte(nil), q.lastExport...), true
}

// Status 獲取隊列狀態
func (q *SaveQueue) Status() *QueueStatus {
	q.mu.RLock()
	defer q.mu.RUnlock()

	status := &QueueStatus{
		Backend:        q.backend,
		QueueLength:    len(q.queue),
		MaxQueueSize:   q.maxSize,
		Workers:        q.workers,
		ProcessedCount: atomic.LoadInt64(&q.processed),
		FailedCount:    atomic.LoadInt64(&q.failed),
		SkippedCount:   atomic.LoadInt64(&q.skipped),
		Pending:        q.pending != nil,
		LastSavedAt:    q.lastSavedAt,
		FallbackFile:   q.fallbackFile,
	}
	if q.lastErr != nil {
		status.LastError = q.lastErr.Error()
	}
	return status
}

// Close 停止接收新任務，等待隊列清空
func (q *SaveQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.queue)
	q.mu.Unlock()

	q.wg.Wait()
	if p := q.takePending(); p != nil {
		q.process(p)
	}
	common.LogInfo("儲存隊列已關閉",
		zap.Int64("processed_count", atomic.LoadInt64(&q.processed)),
		zap.Int64("failed_count", atomic.LoadInt64(&q.failed)),
	)
}
