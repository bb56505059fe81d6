package main

import (
	"agenthelper/cmd/internal/config"
	"agenthelper/cmd/internal/domain/policy"
	"agenthelper/cmd/internal/domain/sqlite"
	"agenthelper/cmd/internal/domain/sqlite/repository"
	"agenthelper/cmd/internal/http/handler"
	authmw "agenthelper/cmd/internal/http/middleware"
	"agenthelper/cmd/internal/infrastructure/aws/websocket"
	"agenthelper/cmd/internal/infrastructure/redis"
	"agenthelper/cmd/internal/service"
	"agenthelper/cmd/internal/service/jobs"
	"agenthelper/cmd/internal/utils"
	"agenthelper/cmd/internal/utils/uid"
	"agenthelper/cmd/internal/utils/validators"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

const (
	shutdownTimeout = 10 * time.Second
	pingTimeout     = 2 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.SetLevel(log.INFO)
	if os.Getenv("DEBUG") != "" {
		log.SetLevel(log.DEBUG)
	}

	// Loads env vars depending on environment
	if err := config.LoadEnv(ctx); err != nil {
		log.Fatalf("failed to load environment: %v", err)
	}

	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if err = uid.Init(cfg.MachineID); err != nil {
		log.Fatal(err)
	}

	// Init SQLite
	db, err := sqlite.Init(cfg.DatabasePath)
	if err != nil {
		log.Fatal(err)
	}

	validate := validators.New()
	userPolicy := policy.NewUserPolicy(cfg.JWTSecret != "")

	// Getting repos
	userRepo := repository.NewUserRepository(db)
	connRepo := repository.NewConnectionRepository(db)

	var notifiers []service.PresenceNotifier

	var wsService *service.WebSocketService
	if cfg.GatewayEndpoint != "" {
		gateway, gerr := websocket.NewAWSGatewayClient(ctx, cfg.GatewayEndpoint, cfg.AWSRegion)
		if gerr != nil {
			log.Fatal(gerr)
		}
		wsService = service.NewWebSocketService(connRepo, gateway)
		notifiers = append(notifiers, wsService)
	}

	if cfg.RedisURL != "" {
		publisher, perr := redis.NewPublisher(ctx, cfg.RedisURL)
		if perr != nil {
			log.Fatal(perr)
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
	}

	// Getting services
	userService := service.NewUserService(userRepo, validate, userPolicy)
	presenceService := service.NewPresenceService(userRepo, validate, userPolicy, notifiers...)

	// Getting handlers
	userRoutes := handler.NewUserDefault(userService)
	presenceRoutes := handler.NewPresenceDefault(presenceService)
	healthRoutes := handler.NewHealthRoute(func() error {
		return sqlite.Ping(db, pingTimeout)
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("64K"))
	e.Use(requestLogger())

	api := e.Group("/api")
	if cfg.JWTSecret != "" {
		verifier, verr := utils.NewTokenVerifier(cfg.JWTSecret)
		if verr != nil {
			log.Fatal(verr)
		}
		api.Use(authmw.NewAuthMiddleware(&authmw.AuthMiddlewareConfig{
			Verifier: verifier,
			UserRepo: userRepo,
			Optional: !cfg.AuthRequired,
		}))
	} else {
		log.Warn("JWT_SECRET is not set, the API runs without authentication")
	}

	// Presence
	api.POST("/presence/heartbeat", presenceRoutes.Heartbeat)
	api.POST("/presence/beacon", presenceRoutes.Beacon)
	api.GET("/presence/online", presenceRoutes.GetOnline)
	api.GET("/users/:id/presence", presenceRoutes.GetPresence)

	// Users
	api.GET("/users", userRoutes.GetUsers)
	api.GET("/users/:id", userRoutes.GetUser)
	api.POST("/users", userRoutes.CreateUser)

	// Badge listeners, called by the API Gateway websocket integration
	if wsService != nil {
		wsRoutes := handler.NewWSDefault(wsService)
		api.POST("/ws/connect", wsRoutes.HandleConnect)
		api.POST("/ws/disconnect", wsRoutes.HandleDisconnect)
		api.POST("/ws/message", wsRoutes.HandleMessage)

		go jobs.NewConnectionCleaner(wsService, cfg.SweepInterval).Start(ctx)
	}

	// Docker Compose healthcheck
	e.GET("/health", healthRoutes.Health)

	go func() {
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("failed to shut down cleanly: %v", err)
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Errorf("%s %s -> %d (%s): %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			log.Debugf("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	})
}
