package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	pantryHandler "recipe-helper/internal/api/handlers/pantry"
	"recipe-helper/internal/core/pantry"
	"recipe-helper/internal/core/storage"
	"recipe-helper/internal/infrastructure/config"
	"recipe-helper/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message"`
	Notification *common.Notification `json:"notification"`
	Data         json.RawMessage      `json:"data"`
	Code         string               `json:"code"`
	Error        string               `json:"error"`
}

type testEnv struct {
	router  *gin.Engine
	service *pantry.Service
	store   *storage.FileStore
	queue   *storage.SaveQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	env := newTestEnvWith(t, store, t.TempDir())
	env.store = store
	env.queue.Start()
	return env
}

// newTestEnvWith 以指定後端建立環境；隊列由呼叫端啟動
func newTestEnvWith(t *testing.T, backend storage.Store, fallbackDir string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App:         config.AppConfig{Version: "test", Debug: true},
		Server:      config.ServerConfig{MaxBodyBytes: 1 << 20},
		Storage:     config.StorageConfig{Backend: config.BackendFile, FallbackDir: fallbackDir},
		Queue:       config.QueueConfig{Workers: 1, MaxSize: 10},
		DedupWindow: time.Millisecond,
	}
	queue := storage.NewSaveQueue(backend, storage.JSONExporter{}, cfg)
	t.Cleanup(queue.Close)

	service := pantry.NewService(queue)
	router := SetupRouter(cfg, Dependencies{
		Service:  service,
		Exporter: storage.JSONExporter{},
		Queue:    queue,
	})
	return &testEnv{router: router, service: service, queue: queue}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func bananaBread() pantryHandler.RecipeRequest {
	return pantryHandler.RecipeRequest{
		Name:     "바나나 빵",
		Category: "빵",
		Ingredients: []pantry.RecipeIngredient{
			{Name: "바나나", Quantity: 2},
			{Name: "밀가루", Quantity: 1, Processing: true},
		},
	}
}

func TestRecipeLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodPost, "/api/v1/recipes", bananaBread())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Notification)
	assert.Equal(t, common.LevelSuccess, resp.Notification.Level)

	var added pantryHandler.AddRecipeResult
	require.NoError(t, json.Unmarshal(resp.Data, &added))
	assert.Equal(t, 1, added.Recipe.ID)
	assert.Len(t, added.AddedIngredients, 2)

	// 同名食譜
	w, resp = env.do(t, http.MethodPost, "/api/v1/recipes", pantryHandler.RecipeRequest{
		Name: "바나나 빵", Category: "요리",
		Ingredients: []pantry.RecipeIngredient{{Name: "바나나", Quantity: 1}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, common.ErrCodeDuplicateName, resp.Code)
	assert.Equal(t, "같은 이름의 레시피가 이미 존재합니다.", resp.Error)

	// 驗證失敗
	w, resp = env.do(t, http.MethodPost, "/api/v1/recipes", pantryHandler.RecipeRequest{Name: "x", Category: "전체",
		Ingredients: []pantry.RecipeIngredient{{Name: "a", Quantity: 1}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.ErrCodeValidation, resp.Code)

	w, resp = env.do(t, http.MethodGet, "/api/v1/recipes/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail pantryHandler.RecipeDetail
	require.NoError(t, json.Unmarshal(resp.Data, &detail))
	assert.False(t, detail.Makeable)
	assert.Len(t, detail.Shortages, 2)

	update := bananaBread()
	update.Description = "달콤한 빵"
	w, _ = env.do(t, http.MethodPut, "/api/v1/recipes/1", update)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(t, http.MethodDelete, "/api/v1/recipes/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"바나나 빵" 레시피가 삭제되었습니다.`, resp.Message)

	w, resp = env.do(t, http.MethodDelete, "/api/v1/recipes/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Notification)
	assert.Equal(t, common.LevelInfo, resp.Notification.Level)

	w, _ = env.do(t, http.MethodGet, "/api/v1/recipes/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngredientEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.service.Load(&pantry.Snapshot{Ingredients: []pantry.IngredientRecord{{Name: "우유", Quantity: 1}}})

	w, resp := env.do(t, http.MethodPost, "/api/v1/ingredients/0/increment", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"quantity":2`)

	_, _ = env.do(t, http.MethodPost, "/api/v1/ingredients/0/decrement", nil)
	_, _ = env.do(t, http.MethodPost, "/api/v1/ingredients/0/decrement", nil)
	w, resp = env.do(t, http.MethodPost, "/api/v1/ingredients/0/decrement", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"quantity":0`)

	w, _ = env.do(t, http.MethodPut, "/api/v1/ingredients/0", gin.H{"quantity": 7})
	assert.Equal(t, http.StatusOK, w.Code)
	w, resp = env.do(t, http.MethodPut, "/api/v1/ingredients/0", gin.H{"quantity": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.ErrCodeValidation, resp.Code)
	w, _ = env.do(t, http.MethodPut, "/api/v1/ingredients/0", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = env.do(t, http.MethodPost, "/api/v1/ingredients/5/increment", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = env.do(t, http.MethodGet, "/api/v1/ingredients/find?name="+url.QueryEscape(" 우 유 "), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"index":0,"name":"우유","quantity":7}`, string(resp.Data))

	w, resp = env.do(t, http.MethodDelete, "/api/v1/ingredients", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.ErrCodeConfirmRequired, resp.Code)

	w, resp = env.do(t, http.MethodDelete, "/api/v1/ingredients?confirm=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "모든 재료가 삭제되었습니다.", resp.Message)

	w, resp = env.do(t, http.MethodDelete, "/api/v1/ingredients?confirm=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, common.LevelInfo, resp.Notification.Level)

	w, resp = env.do(t, http.MethodGet, "/api/v1/ingredients", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(resp.Data))
}

func TestMakeableEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodGet, "/api/v1/makeable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "먼저 재료를 입력해주세요.", resp.Message)
	assert.JSONEq(t, `[]`, string(resp.Data))

	_, _ = env.do(t, http.MethodPost, "/api/v1/recipes", bananaBread())
	_, _ = env.do(t, http.MethodPost, "/api/v1/recipes", pantryHandler.RecipeRequest{
		Name: "구운 바나나", Category: "요리",
		Ingredients: []pantry.RecipeIngredient{{Name: "바나나", Quantity: 1}},
	})
	_, _ = env.do(t, http.MethodPut, "/api/v1/ingredients/0", gin.H{"quantity": 1})

	w, resp = env.do(t, http.MethodGet, "/api/v1/makeable?category="+url.QueryEscape("전체"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recipes []pantry.RecipeRecord
	require.NoError(t, json.Unmarshal(resp.Data, &recipes))
	require.Len(t, recipes, 1)
	assert.Equal(t, "구운 바나나", recipes[0].Name)

	w, resp = env.do(t, http.MethodGet, "/api/v1/makeable/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["전체","요리"]`, string(resp.Data))

	w, resp = env.do(t, http.MethodGet, "/api/v1/recipes/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["빵","요리"]`, string(resp.Data))

	w, resp = env.do(t, http.MethodGet, "/api/v1/recipes?category="+url.QueryEscape("빵"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &recipes))
	assert.Len(t, recipes, 1)
}

func TestSaveDataAndExport(t *testing.T) {
	env := newTestEnv(t)
	payload := pantry.Snapshot{
		Ingredients: []pantry.IngredientRecord{{Name: "바나나", Quantity: 3}},
		Recipes: []pantry.RecipeRecord{{ID: 4, Name: "바나나 빵", Category: "빵", Quantity: 1,
			Ingredients: []pantry.RecipeIngredient{{Name: "바나나", Quantity: 2}, {Name: "밀가루", Quantity: 1}}}},
		Version: pantry.SnapshotVersion,
	}

	w, _ := env.do(t, http.MethodPost, "/api/save-data", payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ack storage.SaveAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.True(t, ack.Success)
	assert.Equal(t, "데이터가 성공적으로 저장되었습니다.", ack.Message)
	assert.NotEmpty(t, ack.Timestamp)

	stored, err := env.store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored.Ingredients, 2, "missing recipe ingredients are synced on load")
	assert.Equal(t, 4, env.service.Snapshot().Recipes[0].ID)

	req := httptest.NewRequest(http.MethodPost, "/api/save-data", bytes.NewBufferString("{not json"))
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="data.json"`)
	assert.Contains(t, w.Body.String(), "바나나 빵")

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/data.json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var snap pantry.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Len(t, snap.Recipes, 1)

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/export/fallback", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoteStoreAgainstRouter(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	remote := storage.NewRemoteStore(&config.StorageConfig{RemoteURL: srv.URL, RemoteTimeout: time.Second})
	ctx := context.Background()
	require.NoError(t, remote.Persist(ctx, &pantry.Snapshot{
		Ingredients: []pantry.IngredientRecord{{Name: "우유", Quantity: 2}},
		Version:     pantry.SnapshotVersion,
	}))

	loaded, err := remote.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []pantry.IngredientRecord{{Name: "우유", Quantity: 2}}, loaded.Ingredients)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/health", "/ready", "/live"} {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/recipes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	env.router.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// failingStore 每次寫入都失敗
type failingStore struct{}

func (failingStore) Persist(context.Context, *pantry.Snapshot) error {
	return common.ErrPersistenceFailure.Wrap(errors.New("connection refused"))
}
func (failingStore) Load(context.Context) (*pantry.Snapshot, error) { return nil, storage.ErrNoData }
func (failingStore) Name() string                                 { return "failing" }
func (failingStore) Close() error                                 { return nil }

func TestQueueFullReportsFailureAndExports(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	env := newTestEnvWith(t, store, dir)
	env.service.Load(&pantry.Snapshot{Ingredients: []pantry.IngredientRecord{{Name: "바나나"}}})

	// 隊列未啟動，容量 10；塞滿後下一次變更無法排入
	for i := 0; i < 10; i++ {
		w, resp := env.do(t, http.MethodPost, "/api/v1/ingredients/0/increment", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, common.LevelSuccess, resp.Notification.Level)
	}
	w, resp := env.do(t, http.MethodPost, "/api/v1/ingredients/0/increment", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Notification)
	assert.Equal(t, common.LevelError, resp.Notification.Level)
	assert.Equal(t, common.ErrQueueFull.Message, resp.Notification.Message)

	var view pantryHandler.IngredientView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Equal(t, 11, view.Quantity)

	// 最新狀態已匯出，可直接下載
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/export/fallback", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var exported pantry.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exported))
	assert.Equal(t, 11, exported.Ingredients[0].Quantity)
	assert.FileExists(t, filepath.Join(dir, "data.json"))

	// 隊列排空後最後寫入的是最新快照
	env.queue.Start()
	env.queue.Close()
	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, stored.Ingredients[0].Quantity)
}

func TestPersistenceFailureNotification(t *testing.T) {
	env := newTestEnvWith(t, failingStore{}, t.TempDir())
	env.queue.Start()

	w, resp := env.do(t, http.MethodPost, "/api/save-data", pantry.Snapshot{
		Ingredients: []pantry.IngredientRecord{{Name: "우유", Quantity: 1}},
		Version:     pantry.SnapshotVersion,
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "connection refused")
	assert.Equal(t, []pantry.IngredientRecord{{Name: "우유", Quantity: 1}}, env.service.Ingredients())

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/export/fallback", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "우유")
}

func TestSaveDataNotOverwrittenByQueuedSave(t *testing.T) {
	store := storage.NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	env := newTestEnvWith(t, store, t.TempDir())
	env.service.Load(&pantry.Snapshot{Ingredients: []pantry.IngredientRecord{{Name: "바나나"}}})

	// 較早的變更留在隊列中尚未寫入
	w, _ := env.do(t, http.MethodPost, "/api/v1/ingredients/0/increment", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/save-data", pantry.Snapshot{
		Ingredients: []pantry.IngredientRecord{{Name: "바나나", Quantity: 9}},
		Version:     pantry.SnapshotVersion,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env.queue.Start()
	env.queue.Close()

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []pantry.IngredientRecord{{Name: "바나나", Quantity: 9}}, stored.Ingredients)
	assert.Equal(t, int64(1), env.queue.Status().SkippedCount)
}
