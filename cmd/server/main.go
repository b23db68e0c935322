package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/shop_orders/internal/cart"
	"github.com/Skotchmaster/shop_orders/internal/catalog"
	"github.com/Skotchmaster/shop_orders/internal/checkout"
	"github.com/Skotchmaster/shop_orders/internal/config"
	"github.com/Skotchmaster/shop_orders/internal/customers"
	"github.com/Skotchmaster/shop_orders/internal/db"
	"github.com/Skotchmaster/shop_orders/internal/httpserver"
	"github.com/Skotchmaster/shop_orders/internal/invoice"
	"github.com/Skotchmaster/shop_orders/internal/logging"
	"github.com/Skotchmaster/shop_orders/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/shop_orders/internal/middleware/logging"
	"github.com/Skotchmaster/shop_orders/internal/mykafka"
	"github.com/Skotchmaster/shop_orders/internal/orders"
	"github.com/Skotchmaster/shop_orders/internal/redisx"
	"github.com/Skotchmaster/shop_orders/internal/reviews"
	"github.com/Skotchmaster/shop_orders/internal/search"
	"github.com/Skotchmaster/shop_orders/internal/tokens"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	config.MustOneOf(cfg.DBDriver, "DB_DRIVER", db.DriverPostgres, db.DriverSQLite)

	logger := logging.New(cfg.LogLevel).With("service", "shop-orders")
	slog.SetDefault(logger)
	tokens.InsecureCookies = !cfg.CookieSecure

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err == nil {
		err = db.Migrate(ctx, gdb)
	}
	cancel()
	if err != nil {
		log.Fatalf("db init: %v", err)
	}

	var (
		cartStore cart.Store = cart.NewMemoryStore()
		rdb       *redis.Client
		idem      orders.IdempotencyCache
	)
	if cfg.RedisAddr != "" {
		rdb, err = redisx.New(context.Background(), cfg.RedisAddr)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		cartStore = cart.NewRedisStore(rdb, cfg.CartTTL)
		idem = &redisx.IdempotencyCache{Client: rdb, TTL: cfg.IdempotencyTTL}
	} else {
		logger.Warn("redis_disabled", "reason", "REDIS_ADDR empty; carts are kept in memory")
	}

	var (
		events   mykafka.Publisher = mykafka.LogPublisher{}
		producer *mykafka.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		events = producer
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS empty; events are only logged")
	}

	catalogRepo := catalog.NewGormRepo(gdb)
	catalogSvc := &catalog.Service{Repo: catalogRepo, Events: events}
	catalogHandler := &httpserver.CatalogHTTP{Svc: catalogSvc}
	if cfg.ESURL != "" {
		es, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		index := &search.Index{ES: es, Name: cfg.ESIndex}
		catalogSvc.Index = index
		catalogHandler.Search = index
	}

	customerRepo := &customers.GormRepo{DB: gdb}
	orderRepo := &orders.Repo{DB: gdb}
	carts := &cart.Service{Store: cartStore, Catalog: catalogRepo}
	invoices := &invoice.Generator{Orders: orderRepo, Customers: customerRepo, Dir: cfg.InvoiceDir}
	gate := &reviews.Gate{DB: gdb, Events: events}
	catalogHandler.Reviews = gate

	writer := &orders.Writer{DB: gdb, Catalog: catalogRepo}
	if idem != nil {
		writer.Idem = idem
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit("1M"))
	if cfg.CSRFEnabled {
		csrfCfg := csrf.DefaultConfig()
		csrfCfg.Secure = cfg.CookieSecure
		csrfCfg.SkipPrefixes = []string{"/health/", "/api/v1/auth/"}
		e.Use(csrf.Middleware(csrfCfg))
	}

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: &customers.Service{
			Repo:      customerRepo,
			JWTSecret: cfg.JWTSecret,
			AccessTTL: cfg.AccessTokenTTL,
		}},
		CatalogHandler: catalogHandler,
		CartHandler: &httpserver.CartHTTP{Carts: carts, Checkout: &checkout.Service{
			Carts:     carts,
			Customers: customerRepo,
			Orders:    writer,
			Invoices:  invoices,
			Events:    events,
			Topic:     cfg.KafkaOrderTopic,
		}},
		OrderHandler:  &httpserver.OrderHTTP{Repo: orderRepo, Invoices: invoices},
		ReviewHandler: &httpserver.ReviewHTTP{Gate: gate},
		JWTSecret:     cfg.JWTSecret,
		Ready: func(ctx context.Context) error {
			if err := db.Ping(ctx, gdb); err != nil {
				return err
			}
			if rdb != nil {
				return rdb.Ping(ctx).Err()
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_error", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if producer != nil {
		_ = producer.Close()
	}

	logger.Info("server_stopped")
}
