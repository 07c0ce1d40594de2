// Точка входа Posmotrim API — сервис учёта просмотренных фильмов.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// инициализирует Keycloak клиент, сервисный слой и API handlers,
// запускает topologymetrics и HTTP-сервер с JWT middleware
// и graceful shutdown.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/posmotrim/posmotrim-api/internal/api/handlers"
	"github.com/posmotrim/posmotrim-api/internal/api/middleware"
	"github.com/posmotrim/posmotrim-api/internal/config"
	"github.com/posmotrim/posmotrim-api/internal/database"
	"github.com/posmotrim/posmotrim-api/internal/keycloak"
	"github.com/posmotrim/posmotrim-api/internal/repository"
	"github.com/posmotrim/posmotrim-api/internal/server"
	"github.com/posmotrim/posmotrim-api/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Posmotrim API запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("PSM_DEPHEALTH_GROUP") == "" {
		logger.Warn("PSM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. HTTP-клиент с кастомным CA для Keycloak
	var httpClientCA *http.Client
	if cfg.KeycloakCACertPath != "" {
		httpClientCA, err = buildHTTPClientWithCA(cfg.KeycloakCACertPath)
		if err != nil {
			logger.Error("Ошибка загрузки CA-сертификата",
				slog.String("path", cfg.KeycloakCACertPath),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		logger.Info("CA-сертификат загружен", slog.String("path", cfg.KeycloakCACertPath))
	}

	// 6. Keycloak клиент (Admin API + password grant)
	kcClient := keycloak.New(
		cfg.KeycloakURL,
		cfg.KeycloakRealm,
		cfg.KeycloakClientID,
		cfg.KeycloakClientSecret,
		cfg.KeycloakLoginClientID,
		httpClientCA, // nil — стандартный пул CA
		logger,
	)
	logger.Info("Keycloak клиент создан",
		slog.String("url", cfg.KeycloakURL),
		slog.String("realm", cfg.KeycloakRealm),
	)

	// 7. Repositories
	userRepo := repository.NewUserRepository(pool)
	filmRepo := repository.NewFilmRepository(pool)
	statusRepo := repository.NewStatusRepository(pool)

	// 8. Services
	filmCache := service.NewFilmCache(cfg.FilmCacheSize, cfg.FilmCacheTTL)
	filmSvc := service.NewFilmService(filmRepo, filmCache, logger)
	statusSvc := service.NewStatusService(statusRepo, userRepo, filmRepo, logger)
	userSvc := service.NewUserService(userRepo, kcClient, logger)

	// 9. Readiness checkers (PostgreSQL + Keycloak)
	pgChecker := database.NewReadinessChecker(pool)
	healthHandler := handlers.NewHealthHandler(pgChecker, kcClient)

	// 10. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		filmSvc,
		statusSvc,
		userSvc,
		logger,
	)

	// 11. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.KeycloakCACertPath,
		cfg.JWTIssuer,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer jwtAuth.Close()
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 12. topologymetrics — мониторинг зависимостей (PostgreSQL + Keycloak)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"posmotrim-api",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.JWTJWKSURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
			defer dephealthSvc.Stop()
		}
	}

	// 13. HTTP-сервер с graceful shutdown
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildHTTPClientWithCA создаёт HTTP-клиент с кастомным CA-сертификатом.
func buildHTTPClientWithCA(caCertPath string) (*http.Client, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs: caCertPool,
			},
		},
	}, nil
}
