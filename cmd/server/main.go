package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/railway-reservation/internal/auth"
	"github.com/iliyamo/railway-reservation/internal/booking"
	"github.com/iliyamo/railway-reservation/internal/config"
	"github.com/iliyamo/railway-reservation/internal/database"
	"github.com/iliyamo/railway-reservation/internal/handler"
	"github.com/iliyamo/railway-reservation/internal/inventory"
	"github.com/iliyamo/railway-reservation/internal/ledger"
	"github.com/iliyamo/railway-reservation/internal/middleware"
	"github.com/iliyamo/railway-reservation/internal/pnr"
	"github.com/iliyamo/railway-reservation/internal/queue"
	"github.com/iliyamo/railway-reservation/internal/repository"
	"github.com/iliyamo/railway-reservation/internal/router"
	"github.com/iliyamo/railway-reservation/internal/seed"
	queue_publisher "github.com/iliyamo/railway-reservation/internal/service"
)

type stores struct {
	inventory booking.Inventory
	ledger    booking.Ledger
	users     auth.Store
	maxPNR    int
	db        *sql.DB
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.StoreBackend != config.BackendMySQL {
		return stores{
			inventory: inventory.New(),
			ledger:    ledger.New(),
			users:     auth.NewMemoryStore(),
		}, nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return stores{}, err
	}
	reservations := repository.NewReservationRepo(db)
	maxPNR, err := reservations.MaxPNR(ctx)
	if err != nil {
		_ = db.Close()
		return stores{}, err
	}
	return stores{
		inventory: repository.NewTrainRepo(db),
		ledger:    reservations,
		users:     repository.NewUserRepo(db),
		maxPNR:    maxPNR,
		db:        db,
	}, nil
}

func main() {
	cfg := config.Load() // Load environment config
	cfg.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("open stores")
	}
	if st.db != nil {
		defer st.db.Close()
	}

	alloc, err := pnr.New(pnr.Options{
		Min:        cfg.PNR.Min,
		Max:        cfg.PNR.Max,
		MaxRetries: cfg.PNR.MaxRetries,
		Mode:       pnr.Mode(cfg.PNR.Mode),
	})
	if err != nil {
		log.WithError(err).Fatal("pnr allocator")
	}
	alloc.Observe(st.maxPNR)

	var publisher booking.Publisher = booking.NopPublisher{}
	if cfg.Events.Enabled {
		p := queue_publisher.New(cfg.Events.URL, cfg.Events.Queue)
		defer p.Close()
		publisher = p
		go func() {
			c := queue.Consumer{URL: cfg.Events.URL, Queue: cfg.Events.Queue, LogDir: cfg.Events.LogDir}
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Warn("booking-consumer: stopped")
			}
		}()
	}

	svc := booking.NewService(st.inventory, st.ledger, alloc, booking.Options{
		LockStripes: cfg.LockStripes,
		Publisher:   publisher,
	})
	registry := auth.NewRegistry(st.users, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost)

	if cfg.SeedDemoData {
		if err := seed.Load(ctx, svc, registry); err != nil {
			log.WithError(err).Fatal("seed demo data")
		}
	}

	rdb := config.NewRedisClient(ctx, cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	var store handler.Pinger
	if st.db != nil {
		store = st.db
	}
	router.Register(e, router.Deps{
		Auth:         handler.NewAuthHandler(registry),
		Trains:       handler.NewTrainHandler(svc),
		Reservations: handler.NewReservationHandler(svc),
		Admin:        handler.NewAdminHandler(svc),
		Store:        store,
		JWTSecret:    cfg.JWTSecret,
		Cache:        middleware.NewResponseCache(cfg.Cache, rdb),
		RateLimit:    middleware.NewTokenBucket(cfg.RateLimit, rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(log.Fields{
			"addr":    addr,
			"env":     cfg.Env,
			"backend": cfg.StoreBackend,
		}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	log.Info("stopped")
}
