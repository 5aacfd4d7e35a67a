package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-helper/internal/api"
	"recipe-helper/internal/core/pantry"
	"recipe-helper/internal/core/storage"
	"recipe-helper/internal/infrastructure/config"
	"recipe-helper/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("data_file", cfg.Storage.DataFile),
		zap.Int("port", cfg.Server.Port),
	)

	// 初始化儲存後端
	store, err := storage.New(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	gcCtx, stopGC := context.WithCancel(context.Background())
	defer stopGC()
	if badgerStore, ok := store.(*storage.BadgerStore); ok {
		badgerStore.StartGC(gcCtx, 10*time.Minute)
	}

	exporter := storage.JSONExporter{}
	queue := storage.NewSaveQueue(store, exporter, cfg)
	queue.Start()

	// 載入資料並執行一次食材同步
	service := pantry.NewService(queue)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Second)
	snapshot, err := store.Load(loadCtx)
	cancelLoad()
	switch {
	case errors.Is(err, storage.ErrNoData):
		common.LogInfo("尚無儲存資料，以空白狀態啟動", zap.String("backend", store.Name()))
	case err != nil:
		common.LogError("載入資料失敗，以空白狀態啟動",
			zap.String("backend", store.Name()),
			zap.Error(err),
		)
	}
	service.Load(snapshot)

	router := api.SetupRouter(cfg, api.Dependencies{
		Service:  service,
		Exporter: exporter,
		Queue:    queue,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.String("addr", srv.Addr),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	// 等待尚未寫入的資料
	queue.Close()

	common.LogInfo("Server exited")
}
