package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"recipe-helper/internal/core/pantry"
	"recipe-helper/internal/infrastructure/config"
	"recipe-helper/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore 記錄收到的快照，可設定失敗
type stubStore struct {
	mu    sync.Mutex
	saved []*pantry.Snapshot
	err   error
	block chan struct{}
}

func (s *stubStore) Persist(_ context.Context, snapshot *pantry.Snapshot) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, snapshot)
	return s.err
}

func (s *stubStore) Load(context.Context) (*pantry.Snapshot, error) { return nil, ErrNoData }
func (s *stubStore) Name() string                                 { return "stub" }
func (s *stubStore) Close() error                                 { return nil }

func queueConfig(dir string, workers, maxSize int) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{FallbackDir: dir},
		Queue:   config.QueueConfig{Workers: workers, MaxSize: maxSize},
	}
}

func TestSaveQueue_PersistsInOrder(t *testing.T) {
	store := &stubStore{}
	q := NewSaveQueue(store, JSONExporter{}, queueConfig(t.TempDir(), 1, 10))
	q.Start()

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		snap := sampleSnapshot()
		snap.Ingredients[0].Quantity = i
		require.NoError(t, q.Save(ctx, snap))
	}
	q.Close()

	require.Len(t, store.saved, 3)
	assert.Equal(t, 3, store.saved[2].Ingredients[0].Quantity)

	status := q.Status()
	assert.Equal(t, int64(3), status.ProcessedCount)
	assert.Zero(t, status.FailedCount)
	assert.NotNil(t, status.LastSavedAt)
	assert.Empty(t, status.LastError)
}

func TestSaveQueue_FailureWritesFallback(t *testing.T) {
	dir := t.TempDir()
	store := &stubStore{err: common.ErrPersistenceFailure.Wrap(errors.New("connection refused"))}
	q := NewSaveQueue(store, JSONExporter{}, queueConfig(dir, 1, 10))
	q.Start()

	require.NoError(t, q.Save(context.Background(), sampleSnapshot()))
	q.Close()

	status := q.Status()
	assert.Equal(t, int64(1), status.FailedCount)
	assert.Contains(t, status.LastError, "connection refused")
	assert.Equal(t, filepath.Join(dir, "data.json"), status.FallbackFile)

	onDisk, err := os.ReadFile(filepath.Join(dir, "data.json"))
	require.NoError(t, err)
	exported, ok := q.LastExport()
	require.True(t, ok)
	assert.Equal(t, onDisk, exported)

	loaded, err := NewFileStore(filepath.Join(dir, "data.json")).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), loaded)
}

func TestSaveQueue_FullKeepsLatestAndExports(t *testing.T) {
	dir := t.TempDir()
	store := &stubStore{}
	q := NewSaveQueue(store, JSONExporter{}, queueConfig(dir, 1, 1))
	ctx := context.Background()

	snapshot := func(quantity int) *pantry.Snapshot {
		snap := sampleSnapshot()
		snap.Ingredients[0].Quantity = quantity
		return snap
	}

	// 尚未啟動工作者，隊列只容納一筆
	require.NoError(t, q.Save(ctx, snapshot(1)))
	err := q.Save(ctx, snapshot(2))
	assert.ErrorIs(t, err, common.ErrQueueFull)
	assert.ErrorIs(t, err, common.ErrPersistenceFailure)
	assert.ErrorIs(t, q.Save(ctx, snapshot(3)), common.ErrQueueFull)
	assert.True(t, q.Status().Pending)

	exported, ok := q.LastExport()
	require.True(t, ok)
	onDisk, err := NewFileStore(filepath.Join(dir, "data.json")).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, onDisk.Ingredients[0].Quantity)
	assert.Contains(t, string(exported), `"quantity": 3`)

	q.Start()
	q.Close()

	require.Len(t, store.saved, 2)
	assert.Equal(t, 1, store.saved[0].Ingredients[0].Quantity)
	assert.Equal(t, 3, store.saved[1].Ingredients[0].Quantity)
	assert.False(t, q.Status().Pending)
}

func TestSaveQueue_PendingWrittenOnCloseWithoutWorkers(t *testing.T) {
	store := &stubStore{}
	q := NewSaveQueue(store, JSONExporter{}, queueConfig("", 1, 1))
	ctx := context.Background()

	require.NoError(t, q.Save(ctx, sampleSnapshot()))
	latest := sampleSnapshot()
	latest.Ingredients[0].Quantity = 7
	assert.ErrorIs(t, q.Save(ctx, latest), common.ErrQueueFull)

	q.Close()
	require.Len(t, store.saved, 1)
	assert.Equal(t, 7, store.saved[0].Ingredients[0].Quantity)
}

// slowFirstStore 第一份快照延遲寫入
type slowFirstStore struct {
	stubStore
	delay time.Duration
}

func (s *slowFirstStore) Persist(ctx context.Context, snapshot *pantry.Snapshot) error {
	if snapshot.Ingredients[0].Quantity == 1 {
		time.Sleep(s.delay)
	}
	return s.stubStore.Persist(ctx, snapshot)
}

func TestSaveQueue_MultipleWorkersKeepLatest(t *testing.T) {
	store := &slowFirstStore{delay: 200 * time.Millisecond}
	q := NewSaveQueue(store, JSONExporter{}, queueConfig("", 2, 10))
	q.Start()

	ctx := context.Background()
	for i := 1; i <= 2; i++ {
		snap := sampleSnapshot()
		snap.Ingredients[0].Quantity = i
		require.NoError(t, q.Save(ctx, snap))
	}
	q.Close()

	require.NotEmpty(t, store.saved)
	last := store.saved[len(store.saved)-1]
	assert.Equal(t, 2, last.Ingredients[0].Quantity)
	status := q.Status()
	assert.Equal(t, int64(2), status.ProcessedCount+status.SkippedCount)
}

func TestSaveQueue_SaveNowSkipsOlderQueuedJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	store := NewFileStore(path)
	q := NewSaveQueue(store, JSONExporter{}, queueConfig(t.TempDir(), 1, 10))
	ctx := context.Background()

	older := sampleSnapshot()
	older.Ingredients[0].Quantity = 1
	require.NoError(t, q.Save(ctx, older))

	acked := sampleSnapshot()
	acked.Ingredients[0].Quantity = 9
	require.NoError(t, q.SaveNow(ctx, acked))

	q.Start()
	q.Close()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Ingredients[0].Quantity)
	assert.Equal(t, int64(1), q.Status().SkippedCount)
}

func TestSaveQueue_SaveNowWaitsForRunningJob(t *testing.T) {
	store := &stubStore{block: make(chan struct{})}
	q := NewSaveQueue(store, JSONExporter{}, queueConfig("", 1, 10))
	q.Start()
	ctx := context.Background()

	older := sampleSnapshot()
	older.Ingredients[0].Quantity = 1
	require.NoError(t, q.Save(ctx, older))

	done := make(chan error, 1)
	go func() {
		acked := sampleSnapshot()
		acked.Ingredients[0].Quantity = 9
		done <- q.SaveNow(ctx, acked)
	}()

	close(store.block)
	require.NoError(t, <-done)
	q.Close()

	require.NotEmpty(t, store.saved)
	assert.Equal(t, 9, store.saved[len(store.saved)-1].Ingredients[0].Quantity)
}

func TestSaveQueue_SaveAfterClose(t *testing.T) {
	q := NewSaveQueue(&stubStore{}, JSONExporter{}, queueConfig("", 1, 1))
	q.Start()
	q.Close()
	q.Close()

	assert.ErrorIs(t, q.Save(context.Background(), sampleSnapshot()), ErrQueueClosed)
	assert.ErrorIs(t, q.SaveNow(context.Background(), sampleSnapshot()), ErrQueueClosed)
	_, ok := q.LastExport()
	assert.False(t, ok)
}

func TestSaveQueue_DrivesServiceSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	store := NewFileStore(path)
	q := NewSaveQueue(store, JSONExporter{}, queueConfig(t.TempDir(), 1, 10))
	q.Start()

	svc := pantry.NewService(q)
	_, _, err := svc.AddRecipe(context.Background(), pantry.RecipeInput{
		Name:        "바나나 빵",
		Category:    "빵",
		Ingredients: []pantry.RecipeIngredient{{Name: "바나나", Quantity: 2}},
	})
	require.NoError(t, err)
	q.Close()

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded.Recipes, 1)
	assert.Equal(t, []pantry.IngredientRecord{{Name: "바나나", Quantity: 0}}, loaded.Ingredients)

	restored := pantry.NewService(nil)
	restored.Load(loaded)
	_, ok := restored.RecipeByName("바나나 빵")
	assert.True(t, ok)
}
