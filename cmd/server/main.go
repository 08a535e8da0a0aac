package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yyogesh-03/real-time-order-management-system/internal/config"
	"github.com/yyogesh-03/real-time-order-management-system/internal/logger"
	"github.com/yyogesh-03/real-time-order-management-system/internal/repo"
	"github.com/yyogesh-03/real-time-order-management-system/internal/service"
	httptransport "github.com/yyogesh-03/real-time-order-management-system/internal/transport/http"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfgPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	flag.Parse()

	// 1. load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger("order-server", cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatalf("postgres pool: %v", err)
	}

	// 4. redis, optional
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warnf("redis ping failed, stock cache disabled: %v", err)
			rdb.Close()
			rdb = nil
		}
	}

	// 5. repo & service
	repository := repo.NewRepository(gdb, rdb, log)
	if cfg.Postgres.AutoMigrate {
		if err := repository.Migrate(context.Background()); err != nil {
			log.Fatalf("auto-migrate: %v", err)
		}
	}
	svc := service.NewOrderService(repository, log)

	// 6. gin router
	health := func(ctx context.Context) error {
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		return nil
	}
	router := httptransport.NewRouter(svc, cfg.Server, cfg.RateLimit, log, health)

	// 7. serve until SIGINT/SIGTERM
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infof("order-server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("server shutdown: %v", err)
	}
	if rdb != nil {
		rdb.Close()
	}
	sqlDB.Close()
	log.Info("server stopped")
}
