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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/seqbench/seqbench/internal/api"
	"github.com/seqbench/seqbench/internal/auth"
	"github.com/seqbench/seqbench/internal/config"
	"github.com/seqbench/seqbench/internal/logging"
	"github.com/seqbench/seqbench/internal/mcp"
	"github.com/seqbench/seqbench/internal/migrations"
	"github.com/seqbench/seqbench/internal/objectstore"
	"github.com/seqbench/seqbench/internal/repository"
	"github.com/seqbench/seqbench/internal/services"
	"github.com/seqbench/seqbench/internal/tls"
)

func main() {
	ctx := context.Background()

	logger := logging.NewLogger()

	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Configuration loading failed: %v", err)
	}
	logger.Info("Starting seqbench backend", "environment", cfg.Environment)

	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer dbPool.Close()
	logger.Info("Database connected")

	if cfg.DB.AutoMigrate {
		runner := migrations.NewRunner(dbPool, logger)
		if err := runner.Up(ctx); err != nil {
			log.Fatalf("Schema migration failed: %v", err)
		}
		logger.Info("Schema migrations applied")
	}

	objects, err := objectstore.New(cfg.ObjectStore.ID, cfg.ObjectStore.Name, cfg.ObjectStore.Root)
	if err != nil {
		log.Fatalf("Object store initialization failed: %v", err)
	}

	// Repository and service layers
	datasetStore := repository.NewPostgresDatasetStore(dbPool)
	workflowStore := repository.NewPostgresWorkflowStore(dbPool)
	datasetsService := services.NewService(datasetStore, objects, logger)
	logger.Info("Service layer initialized")

	// Create Echo server
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(logger)

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("seqbench"))

	authz, err := auth.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("auth initialization failed: %v", err)
	}

	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))
	e.GET("/health", api.HandleHealth)

	// API docs
	e.GET("/openapi.yaml", echo.WrapHandler(api.SpecHandler(cfg.Auth.Issuer)))
	e.GET("/docs", echo.WrapHandler(api.SwaggerHandler(cfg.Auth.ClientID)))
	e.GET("/docs/oauth2-redirect.html", echo.WrapHandler(http.HandlerFunc(api.OAuthRedirectHandler)))

	// Mount REST API handlers behind auth
	apiGroup := e.Group("/api")
	apiGroup.Use(echo.WrapMiddleware(authz.RequireAuth))
	api.NewDatasetsHandler(datasetsService).RegisterRoutes(apiGroup)
	api.NewWorkflowsHandler(workflowStore).RegisterRoutes(apiGroup)
	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(datasetsService)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))
	logger.Info("MCP protocol handlers mounted")

	addr := cfg.Server.Addr
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
				serverErrors <- fmt.Errorf("tls enabled but cert/key file not provided")
				return
			}
			if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) {
				if len(cfg.TLS.Hostnames) > 0 {
					if err := tls.GenerateSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames); err != nil {
						logger.Error("failed to generate self-signed cert", "error", err)
					}
				}
			}
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
