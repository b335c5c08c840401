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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-logbook/internal/auth"
	"github.com/ukydev/fleet-logbook/internal/config"
	"github.com/ukydev/fleet-logbook/internal/db"
	"github.com/ukydev/fleet-logbook/internal/events"
	"github.com/ukydev/fleet-logbook/internal/handlers"
	"github.com/ukydev/fleet-logbook/internal/ledger"
	"github.com/ukydev/fleet-logbook/internal/logbook"
	"github.com/ukydev/fleet-logbook/internal/middleware"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// stores bundles the collections the server works on.
type stores struct {
	roadLists db.RoadListStore
	vehicles  db.VehicleCollection
	users     db.UserCollection
	close     func(context.Context) error
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("server stopped")
}

func setupLogging(cfg config.LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Format == config.LogFormatJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	st, err := openStores(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.WithError(err).Warn("failed to close store")
		}
	}()

	catalog, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}
	if err := db.SeedVehicles(ctx, st.vehicles, catalog.Vehicles()); err != nil {
		return fmt.Errorf("seed vehicles: %w", err)
	}

	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)
	if err := authService.BootstrapAdmin(ctx, st.users, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	publisher, err := openPublisher(ctx, cfg.MQTT)
	if err != nil {
		return err
	}
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := logbook.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	service := logbook.NewService(st.roadLists, st.vehicles, logbook.Options{
		CacheTTL:  cfg.CacheTTL,
		Metrics:   metrics,
		Publisher: publisher,
	})

	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
	limiter.TrustProxy = cfg.HTTP.TrustProxy
	defer limiter.Stop()

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:    authService,
		Users:   st.users,
		Logbook: service,
		Limiter: limiter,
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	})

	return serve(ctx, &http.Server{
		Addr:              cfg.HTTP.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	})
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStores(ctx context.Context, cfg config.StoreConfig) (*stores, error) {
	if cfg.Backend == config.StoreMemory {
		log.Warn("using the in-memory store, data is lost on restart")
		mem := db.NewMemoryStore()
		return &stores{
			roadLists: mem,
			vehicles:  mem,
			users:     mem,
			close:     func(context.Context) error { return nil },
		}, nil
	}

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	colls := db.NewCollections(client, cfg.Database, cfg.Transactions)
	if err := colls.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	log.WithFields(log.Fields{"database": cfg.Database, "transactions": cfg.Transactions}).Info("connected to MongoDB")
	return &stores{
		roadLists: colls.RoadLists,
		vehicles:  colls.Vehicles,
		users:     colls.Users,
		close:     client.Disconnect,
	}, nil
}

func loadCatalog(path string) (*ledger.Catalog, error) {
	if path == "" {
		return ledger.DefaultCatalog(), nil
	}
	catalog, err := ledger.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("load vehicle catalog: %w", err)
	}
	log.WithField("path", path).Info("vehicle catalog loaded")
	return catalog, nil
}

func openPublisher(ctx context.Context, cfg config.MQTTConfig) (events.Publisher, error) {
	if !cfg.Enabled() {
		log.Info("MQTT_BROKER not set, chain events are not published")
		return events.Noop{}, nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	publisher, err := events.NewMQTTPublisher(connectCtx, events.MQTTConfig{
		Broker:   cfg.Broker,
		ClientID: cfg.ClientID,
		Username: cfg.Username,
		Password: cfg.Password,
		Topic:    cfg.Topic,
	})
	if err != nil {
		return nil, err
	}
	return publisher, nil
}
