package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Govind-619/checkout-core/config"
	"github.com/Govind-619/checkout-core/controllers"
	"github.com/Govind-619/checkout-core/events"
	"github.com/Govind-619/checkout-core/notify"
	"github.com/Govind-619/checkout-core/routes"
	"github.com/Govind-619/checkout-core/services"
	"github.com/Govind-619/checkout-core/storage/gormstore"
	"github.com/Govind-619/checkout-core/storage/memory"
	"github.com/Govind-619/checkout-core/storage/redisstore"
	"github.com/Govind-619/checkout-core/tracing"
	"github.com/Govind-619/checkout-core/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// backends is the storage selected by STORE_BACKEND. Coupons always live in
// SQL except in memory mode.
type backends struct {
	ledger        services.InventoryLedger
	holds         services.ReservationStore
	coupons       services.CouponLedger
	inventorySeed config.InventorySeeder
	couponSeed    config.CouponSeeder
	closers       []func() error
}

func (b *backends) close() {
	for _, c := range b.closers {
		if err := c(); err != nil {
			utils.LogWarn("Error closing backend: %v", err)
		}
	}
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}

	if cfg.StoreBackend == "memory" {
		stock := memory.NewStore()
		coupons := memory.NewCouponStore()
		b.ledger, b.holds, b.inventorySeed = stock, stock, stock
		b.coupons, b.couponSeed = coupons, coupons
		utils.LogWarn("Using in-memory storage; state is lost on restart")
		return b, nil
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	sqlStore := gormstore.New(db)
	b.coupons, b.couponSeed = sqlStore, sqlStore
	if sqlDB, err := db.DB(); err == nil {
		b.closers = append(b.closers, sqlDB.Close)
	}

	if cfg.StoreBackend != "redis" {
		b.ledger, b.holds, b.inventorySeed = sqlStore, sqlStore, sqlStore
		return b, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		b.close()
		return nil, err
	}
	b.closers = append(b.closers, client.Close)
	stock := redisstore.New(client, "")
	b.ledger, b.holds, b.inventorySeed = stock, stock, stock
	utils.LogInfo("Reservations stored in redis at %s", cfg.RedisAddr)
	return b, nil
}

func newAlerter(cfg *config.Config) services.AbuseAlerter {
	if cfg.SMTPHost == "" || cfg.AlertEmail == "" {
		return notify.LogAlerter{}
	}
	return notify.NewMailer(notify.MailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		To:       cfg.AlertEmail,
	})
}

func main() {
	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Error loading config:", err)
	}

	// Initialize logger
	if err := utils.InitLogger(cfg.Env); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracerProvider(utils.AppName, cfg.JaegerEndpoint)
	if err != nil {
		utils.LogError("Failed to initialize tracing: %v", err)
		log.Fatal("Failed to initialize tracing:", err)
	}

	store, err := openBackends(ctx, cfg)
	if err != nil {
		utils.LogError("Failed to open %s storage: %v", cfg.StoreBackend, err)
		log.Fatal("Failed to open storage:", err)
	}
	defer store.close()

	if cfg.SeedFile != "" {
		seed, err := config.LoadSeed(cfg.SeedFile)
		if err == nil {
			err = config.ApplySeed(ctx, seed, store.inventorySeed, store.couponSeed)
		}
		if err != nil {
			utils.LogError("Failed to seed from %s: %v", cfg.SeedFile, err)
			log.Fatal("Failed to seed:", err)
		}
		utils.LogInfo("Seeded %d units and %d coupons from %s", len(seed.Inventory), len(seed.Coupons), cfg.SeedFile)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		utils.LogInfo("Publishing events to kafka topic %s", cfg.KafkaTopic)
	}

	reservations := services.NewReservationManager(store.holds, store.ledger,
		services.WithTTL(cfg.ReservationTTL),
		services.WithSweepBatchSize(cfg.SweepBatchSize),
		services.WithReservationEvents(publisher),
	)
	coupons := services.NewCouponEngine(store.coupons, services.WithCouponEvents(publisher))
	checkout := services.NewCheckoutService(reservations, coupons)
	sweeper := services.NewSweeper(reservations, cfg.SweepInterval, coupons, newAlerter(cfg), cfg.AbuseScanInterval)

	// Set up router
	router := routes.SetupRouter(controllers.NewHandler(reservations, coupons, checkout), routes.Options{
		SessionSecret:    cfg.SessionSecret,
		JWTSecret:        cfg.JWTSecret,
		InternalAPIToken: cfg.InternalAPIToken,
		SecureCookies:    cfg.IsProduction(),
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.LogInfo("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		utils.LogInfo("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			utils.LogWarn("HTTP shutdown: %v", err)
		}
		return shutdownTracing(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.LogError("Server stopped with error: %v", err)
		store.close()
		log.Fatal(err)
	}
	utils.LogInfo("Server stopped")
}
