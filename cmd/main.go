package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adilzhm/tably/internal/adapter/logger"
	"github.com/adilzhm/tably/internal/adapter/postgres"
	"github.com/adilzhm/tably/internal/adapter/rabbitmq"
	"github.com/adilzhm/tably/internal/adapter/ws"
	"github.com/adilzhm/tably/internal/app/lifecycle"
	"github.com/adilzhm/tably/internal/app/locality"
	"github.com/adilzhm/tably/internal/app/notify"
	"github.com/adilzhm/tably/internal/clock"
	"github.com/adilzhm/tably/internal/config"

	httpAdapter "github.com/adilzhm/tably/internal/adapter/http"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	lgr := logger.New("tably")

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]any{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	hub := ws.NewHub(lgr)

	var broker rabbitmq.Connection
	var fanout *notify.Fanout
	if cfg.RabbitMQ.Enabled {
		broker, err = rabbitmq.Connect(cfg.RabbitMQ)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer broker.Close()

		lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]any{
			"host": cfg.RabbitMQ.Host,
		})
		fanout = notify.NewFanout(hub, rabbitmq.NewPublisher(broker, cfg.RabbitMQ.Exchange), true, lgr)
	} else {
		lgr.Info("rabbitmq_disabled", "Broker channel disabled, socket delivery only", "startup", nil)
		fanout = notify.NewFanout(hub, nil, false, lgr)
	}

	clk := clock.System()
	orderRepo := postgres.NewOrderRepository(db)
	counterRepo := postgres.NewCounterRepository(db)
	storeRepo := postgres.NewStoreRepository(db)
	localityRepo := postgres.NewLocalityRepository(db)

	localityService := locality.NewService(localityRepo, storeRepo, fanout, clk, lgr, cfg.VisitTTL(), cfg.ApprovalTTL())
	lifecycleService := lifecycle.NewService(orderRepo, counterRepo, storeRepo, fanout, localityService, cfg.Locality.RequireApproval, clk, lgr)

	orderHandler := httpAdapter.NewOrderHandler(lifecycleService, lgr)
	localityHandler := httpAdapter.NewLocalityHandler(localityService, lgr)

	secret := []byte(cfg.Auth.Secret)

	mux := http.NewServeMux()
	mux.HandleFunc("/orders", orderHandler.HandleOrders)
	mux.HandleFunc("/orders/", orderHandler.HandleOrderByID)
	mux.HandleFunc("/tiles/", localityHandler.HandleTiles)
	mux.HandleFunc("/visits/", localityHandler.HandleVisits)
	mux.HandleFunc("/tables/", localityHandler.HandleTables)
	mux.HandleFunc("/ws", hub.ServeHTTP(secret, cfg.PingInterval()))

	handler := httpAdapter.AuthMiddleware(secret)(mux)
	handler = httpAdapter.LoggingMiddleware(lgr)(handler)
	handler = httpAdapter.RecoveryMiddleware(lgr)(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Tably started on port %d", cfg.HTTP.Port), "startup", map[string]any{
		"port":           cfg.HTTP.Port,
		"broker_enabled": cfg.RabbitMQ.Enabled,
	})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		lgr.Info("shutdown_initiated", "Shutting down", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		hub.Shutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}
