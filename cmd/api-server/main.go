// Package main API Server 入口
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"patriots-admin/internal/apiserver/auth"
	"patriots-admin/internal/apiserver/server"
	"patriots-admin/internal/config"
	"patriots-admin/internal/shared/cache"
	"patriots-admin/internal/shared/cache/redis"
	"patriots-admin/internal/shared/geocode"
	"patriots-admin/internal/shared/objstore"
	"patriots-admin/internal/shared/storage/dbutil"
	"patriots-admin/internal/shared/storage/driver/postgres"
	"patriots-admin/internal/shared/storage/driver/sqlite"
	"patriots-admin/internal/shared/storage/repository"
)

func main() {
	// 加载配置（自动加载 .env，根据 APP_ENV 切换配置文件）
	cfg := config.Load()

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	// 初始化数据库（驱动由配置决定）
	db, dialect, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	store := repository.NewStore(db, dialect)
	defer store.Close()
	log.Printf("Connected to database [driver=%s]", cfg.DatabaseDriver)

	// 初始化缓存（Redis 未启用时降级为 NoOp）
	var appCache cache.Cache
	if cfg.RedisEnabled {
		redisCache, err := redis.NewStoreFromURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		appCache = redisCache
		log.Println("Connected to Redis")
	} else {
		appCache = cache.NewNoOpCache()
		log.Println("Redis disabled, caching is a no-op")
	}
	defer appCache.Close()

	// 初始化 MinIO 对象存储（未配置时图片功能降级）
	var objects *objstore.Client
	if cfg.MinIO.Endpoint != "" {
		objects, err = objstore.NewClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("Failed to connect to MinIO: %v", err)
		}
		if err := objects.EnsureBucket(context.Background()); err != nil {
			log.Fatalf("Failed to ensure MinIO bucket: %v", err)
		}
		log.Println("Connected to MinIO")
	} else {
		log.Println("MinIO not configured, image uploads disabled")
	}

	// 地理编码网关
	geocoder := geocode.NewClient(cfg.Geocoder.BaseURL, cfg.Geocoder.APIKey)

	authCfg := auth.Config{
		JWTSecret:       cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	}

	// 引导管理员账号
	if err := auth.EnsureAdminUser(store, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to ensure admin user: %v", err)
	}

	h := server.NewHandler(store, appCache, objects, geocoder, authCfg)

	// 启动后台任务（过期会话清理、指标刷新、面板心跳）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.StartBackground(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}

// openDatabase 按配置的驱动打开数据库并执行迁移
func openDatabase(cfg *config.Config) (*sql.DB, dbutil.Dialect, error) {
	switch cfg.DatabaseDriver {
	case "sqlite":
		db, err := sqlite.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		dialect := sqlite.NewDialect()
		if err := dialect.AutoMigrate(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("sqlite migrate: %w", err)
		}
		return db, dialect, nil
	default:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		dialect := postgres.NewDialect()
		if err := dialect.AutoMigrate(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("postgres migrate: %w", err)
		}
		return db, dialect, nil
	}
}
