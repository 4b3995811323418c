package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"localeditor/cache"
	"localeditor/github"
	"localeditor/redis"
	"localeditor/s3"
	"localeditor/server"
	"localeditor/services/editor"
	"localeditor/storage"
	"localeditor/utils"
	"localeditor/websocket"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	printRoutes := flag.Bool("routes", false, "Print the HTTP route table and exit")
	flag.Parse()

	// Load environment variables BEFORE initializing logger
	if err := godotenv.Load(".env"); err != nil {
		// Use fmt for initial logging since logger is not initialized yet
		fmt.Printf("No .env file found, using environment variables: %v\n", err)
	}

	// Initialize logger AFTER loading environment variables
	utils.InitLogger()
	defer utils.Logger.Sync()

	// Настраиваем graceful shutdown
	// Перехватываем сигналы завершения программы (Ctrl+C, kill, и т.д.)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	if *printRoutes {
		router, err := server.SetupRouter(server.Dependencies{})
		if err != nil {
			utils.Logger.Fatal("Failed to setup router", zap.Error(err))
		}
		if err := server.ExportRoutes(router, os.Stdout); err != nil {
			utils.Logger.Fatal("Error exporting routes", zap.Error(err))
		}
		return
	}

	// Run web server with graceful shutdown
	runWebServerWithGracefulShutdown(shutdown)
}

// app holds what has to be closed on shutdown.
type app struct {
	deps   server.Dependencies
	store  storage.Store
	redis  *redis.Service
	cancel context.CancelFunc
}

func usesRedis(names ...string) bool {
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), storage.BackendRedis) {
			return true
		}
	}
	return false
}

func buildApp(ctx context.Context) (*app, error) {
	storageBackend := utils.GetEnv("STORAGE_BACKEND", storage.BackendMemory)
	eventsBackend := utils.GetEnv("EVENTS_BACKEND", "local")
	cacheBackend := utils.GetEnv("CACHE_BACKEND", "memory")

	a := &app{}
	if usesRedis(storageBackend, eventsBackend, cacheBackend) {
		rs, err := redis.GetService()
		if err != nil {
			// health loop переподключится сам
			utils.Logger.Warn("Redis is not available yet", zap.Error(err))
		}
		a.redis = rs
	}

	var tier cache.Tier
	if a.redis != nil && usesRedis(cacheBackend) {
		tier = a.redis
	}
	responses, err := cache.New(cache.NewConfigFromEnv(), tier)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	store, err := storage.Open(ctx, storageBackend, a.redis)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", storageBackend, err)
	}
	a.store = store

	var bus websocket.Bus = websocket.NewLocalBus()
	if a.redis != nil && usesRedis(eventsBackend) {
		bus = websocket.NewRedisBus(a.redis)
	}

	client := github.NewClient(github.NewConfigFromEnv(), responses)
	manager := editor.NewManager(client, store, websocket.NewPublisher(bus))

	janitorCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go manager.RunJanitor(janitorCtx,
		utils.GetEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		utils.GetEnvDuration("SESSION_MAX_IDLE", 2*time.Hour))

	a.deps = server.Dependencies{
		Manager:  manager,
		Lister:   client,
		Exporter: s3.NewS3Service(),
		Bus:      bus,
	}

	utils.Logger.Info("Backends configured",
		zap.String("storage", storageBackend),
		zap.String("events", eventsBackend),
		zap.String("cache", cacheBackend))
	return a, nil
}

func runWebServerWithGracefulShutdown(shutdown chan os.Signal) {
	a, err := buildApp(context.Background())
	if err != nil {
		utils.Logger.Fatal("Failed to start services", zap.Error(err))
	}

	router, err := server.SetupRouter(a.deps)
	if err != nil {
		utils.Logger.Fatal("Failed to setup router",
			zap.Error(err))
	}

	port := utils.GetEnv("APP_PORT", "9010")

	// Создаем HTTP-сервер
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запускаем сервер в отдельной горутине
	go func() {
		utils.Logger.Info(fmt.Sprintf("Server started on port %s", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.Fatal("Server startup failed",
				zap.Error(err),
			)
		}
	}()

	// Ожидаем сигнал завершения
	<-shutdown
	utils.Logger.Info("Shutdown signal received, gracefully shutting down...")

	// Создаем единый контекст с таймаутом для всего процесса shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Подготавливаем блок для сброса логов
	flushLogs := func() {
		if err := utils.Logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Error flushing logs: %v\n", err)
		}
	}

	// 1. Сначала останавливаем HTTP-сервер
	serverCtx, serverCancel := context.WithTimeout(ctx, 15*time.Second)
	defer serverCancel()

	if err := srv.Shutdown(serverCtx); err != nil {
		utils.Logger.Error("Server shutdown error",
			zap.Error(err),
		)
	} else {
		utils.Logger.Info("Server shutdown complete")
	}
	a.cancel()

	// Сбрасываем логи после остановки сервера
	flushLogs()

	// 2. Закрываем хранилище состояния
	if err := a.store.Close(); err != nil {
		utils.Logger.Error("Storage shutdown error",
			zap.Error(err),
		)
	} else {
		utils.Logger.Info("Storage shutdown complete")
	}

	// 3. Закрываем Redis-соединение
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			utils.Logger.Error("Redis shutdown error",
				zap.Error(err),
			)
		} else {
			utils.Logger.Info("Redis shutdown complete")
		}
	}

	// Финальный сброс логов
	flushLogs()

	utils.Logger.Info("Graceful shutdown complete")
	flushLogs()
}
