package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/op/go-logging"

	"github.com/Rooney-Eli/gorilla-groove/internal/api"
	"github.com/Rooney-Eli/gorilla-groove/internal/auth"
	"github.com/Rooney-Eli/gorilla-groove/internal/config"
	"github.com/Rooney-Eli/gorilla-groove/internal/hub"
	applog "github.com/Rooney-Eli/gorilla-groove/internal/logging"
	"github.com/Rooney-Eli/gorilla-groove/internal/policy"
	"github.com/Rooney-Eli/gorilla-groove/internal/repository"
	"github.com/Rooney-Eli/gorilla-groove/internal/service"
	"github.com/Rooney-Eli/gorilla-groove/internal/ws"
)

var log = logging.MustGetLogger("main")

func main() {
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %s", err)
	}
	if err := applog.InitLogger(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %s", err)
	}

	log.Infof("Starting playback sync broker on %s", cfg.Address)
	log.Infof("Database: %s", cfg.DatabasePath)

	store, err := repository.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	engine, err := policy.NewEngine(context.Background(), policy.DeviceControlPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	authManager := auth.NewManager(store, cfg.TokenTTL())
	connectionHub := hub.NewHub(cfg.SendBufferSize)
	svc := service.New(store, connectionHub, engine)
	wsServer := ws.NewServer(cfg, connectionHub, svc, authManager)
	handler := api.NewHandler(svc, connectionHub, authManager)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler.RegisterRoutes(e)
	e.GET("/api/socket", wsServer.HandleWebSocket)

	go func() {
		if err := e.Start(cfg.Address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Infof("Server started on %s", cfg.Address)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Failed to shut down gracefully: %v", err)
	}

	log.Info("Broker stopped")
}
