package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"restaurant-auth/config"
	_ "restaurant-auth/docs"
	"restaurant-auth/internal/handler"
	"restaurant-auth/internal/logger"
	"restaurant-auth/internal/metrics"
	"restaurant-auth/internal/model"
	"restaurant-auth/internal/ports"
	"restaurant-auth/internal/repository"
	"restaurant-auth/internal/security"
	"restaurant-auth/internal/service"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:generate swag init -d .. -g cmd/main.go -o ../docs --parseInternal

// @title Restaurant Auth
// @version 1.0
// @description Выдача, ротация и отзыв токенов и сессий платформы заказов

// @host localhost:8080

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("ошибка загрузки конфигурации", "error", err)
	}
	logger.New(cfg.Log.Level)

	storage, err := setupStorage(cfg)
	if err != nil {
		logger.Fatal("не удалось подготовить хранилище", "driver", cfg.Database.Driver, "error", err)
	}
	defer storage.close()

	redisClient, err := config.SetupRedis(&cfg.Redis)
	if err != nil {
		logger.Fatal("ошибка подключения к Redis", "error", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			slog.Error("ошибка при закрытии Redis", "error", err)
		}
	}()

	cacheRepo := repository.NewCacheRepository(redisClient)

	jwtService := security.NewJWTService(&cfg.JWT, cacheRepo)
	sessionService := service.NewSessionService(storage.sessions, cfg.Database.StoreTimeout.Std())
	auditService := service.NewAuditService(storage.audit, cfg.Database.StoreTimeout.Std())
	rateLimiter := service.NewRateLimiter(cacheRepo, cfg.Redis.CacheTimeout.Std())
	authService := service.NewAuthenticationService(storage.users, sessionService, jwtService, auditService, cfg)

	authHandler := handler.NewAuthenticationHandler(authService, rateLimiter, cfg)

	srv, router := config.SetupServer(&cfg.Server)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/healthz", handler.Healthz)
	router.Handle("/metrics", metrics.Handler())

	handler.SetupAuthRoutes(router, authHandler, authService)

	runServer(ctx, srv, cfg.Server.ShutdownTimeout.Std())
}

type storage struct {
	users    ports.UserRepository
	sessions ports.SessionRepository
	audit    ports.AuditRepository
	close    func()
}

func setupStorage(cfg *config.AppConfig) (*storage, error) {
	if cfg.Database.Driver == config.DriverMemory {
		users, err := bootstrapUsers(cfg.BootstrapUsers)
		if err != nil {
			return nil, err
		}
		slog.Warn("используется драйвер memory, сессии не переживут перезапуск", "users", len(users))
		return &storage{
			users:    repository.NewMemoryUserRepository(users...),
			sessions: repository.NewMemorySessionRepository(),
			audit:    repository.NewMemoryAuditRepository(),
			close:    func() {},
		}, nil
	}

	db, err := config.SetupDatabase(&cfg.Database)
	if err != nil {
		return nil, err
	}
	return &storage{
		users:    repository.NewUserRepository(db),
		sessions: repository.NewSessionRepository(db),
		audit:    repository.NewAuditRepository(db),
		close: func() {
			if err := db.Close(); err != nil {
				slog.Error("ошибка при закрытии БД", "error", err)
			}
		},
	}, nil
}

// bootstrapUsers : UUID выводится из арендатора и email, чтобы не меняться между перезапусками
func bootstrapUsers(seeds []config.BootstrapUser) ([]model.User, error) {
	users := make([]model.User, 0, len(seeds))
	for i, seed := range seeds {
		role, err := model.ParseRole(seed.Role)
		if err != nil {
			return nil, fmt.Errorf("bootstrapUsers[%d]: %w", i, err)
		}
		if seed.TenantID == "" || seed.Email == "" || seed.PasswordHash == "" {
			return nil, fmt.Errorf("bootstrapUsers[%d]: tenantId, email и passwordHash обязательны", i)
		}

		email := strings.ToLower(strings.TrimSpace(seed.Email))
		users = append(users, model.User{
			UUID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed.TenantID+"/"+email)).String(),
			TenantID:     seed.TenantID,
			Email:        email,
			PasswordHash: seed.PasswordHash,
			Role:         role,
			CreatedAt:    time.Now().UTC(),
		})
	}
	return users, nil
}

func runServer(ctx context.Context, server *http.Server, shutdownTimeout time.Duration) {
	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("сервер запущен", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ошибка работы сервера", "error", err)
		}
	case sig := <-signalChannel:
		slog.Info("получен сигнал остановки работы сервера", "signal", sig.String())
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, shutdownTimeout)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		slog.Error("ошибка при остановке сервера", "error", err)
	} else {
		slog.Info("сервер успешно остановлен")
	}
}
