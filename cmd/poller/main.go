package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/yyogesh-03/real-time-order-management-system/internal/config"
	"github.com/yyogesh-03/real-time-order-management-system/internal/consumer"
	"github.com/yyogesh-03/real-time-order-management-system/internal/dispatcher"
	"github.com/yyogesh-03/real-time-order-management-system/internal/logger"
	"github.com/yyogesh-03/real-time-order-management-system/internal/notify"
	"github.com/yyogesh-03/real-time-order-management-system/internal/repo"
	"github.com/yyogesh-03/real-time-order-management-system/internal/tracing"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfgPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger("order-poller", cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warnf("tracing shutdown: %v", err)
		}
	}()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	repository := repo.NewRepository(gdb, rdb, log)
	if cfg.Postgres.AutoMigrate {
		if err := repository.Migrate(ctx); err != nil {
			log.Fatalf("auto-migrate: %v", err)
		}
	}

	pub, err := notify.New(notify.Config{
		Driver:      cfg.Notifier.Driver,
		KafkaBroker: cfg.Notifier.Kafka.Brokers,
		KafkaTopic:  cfg.Notifier.Kafka.Topic,
		RabbitURL:   cfg.Notifier.RabbitMQ.URL,
		RabbitQueue: cfg.Notifier.RabbitMQ.Queue,
	}, log)
	if err != nil {
		log.Fatalf("init notifier: %v", err)
	}
	defer pub.Close()

	inventory := consumer.NewInventoryConsumer(repository, log)
	status := consumer.NewOrderStatusConsumer(repository, log)
	notifications := consumer.NewNotificationConsumer(pub, log)
	routes := dispatcher.Routes{
		OrderPlaced:          inventory.HandleOrderPlaced,
		OrderCancelled:       inventory.HandleOrderCancelled,
		InventoryDeducted:    status.HandleInventoryDeducted,
		CancellationRequired: status.HandleCancellationRequired,
		StatusChanged:        notifications.HandleStatusChanged,
		LowStockAlert:        notifications.HandleLowStockAlert,
	}

	dc := cfg.Dispatcher
	owner := dispatcher.DefaultOwner()
	opts := []dispatcher.Option{dispatcher.WithOwner(owner)}
	if dc.Lease.Enabled {
		if rdb == nil {
			log.Warn("dispatcher lease enabled but redis is not configured, running without lease")
		} else {
			opts = append(opts, dispatcher.WithLease(dispatcher.NewRedisLease(rdb, dc.Lease.Key, owner, dc.Lease.TTL)))
		}
	}
	d := dispatcher.New(repository, routes, dispatcher.Config{
		PollInterval:   dc.PollInterval,
		MaxAttempts:    dc.MaxAttempts,
		BatchSize:      dc.BatchSize,
		HandlerTimeout: dc.HandlerTimeout,
		ClaimTTL:       dc.ClaimTTL,
		Workers:        dc.Workers,
	}, log, opts...)

	if err := d.Run(ctx); err != nil {
		log.Errorf("dispatcher: %v", err)
	}
}
