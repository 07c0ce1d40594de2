// Пакет server — HTTP-сервер Posmotrim API с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/posmotrim/posmotrim-api/internal/api/handlers"
	"github.com/posmotrim/posmotrim-api/internal/api/middleware"
	"github.com/posmotrim/posmotrim-api/internal/config"
)

// Server — HTTP-сервер Posmotrim API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware (может быть nil для тестирования без auth).
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, jwtAuth *middleware.JWTAuth) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// JWT middleware с исключениями для публичных endpoints.
	// Каталог фильмов и аутентификация доступны без токена.
	if jwtAuth != nil {
		router.Use(jwtAuthWithExclusions(jwtAuth,
			"/health/", "/metrics", "/films", "/auth/"))
	}

	registerRoutes(router, handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// registerRoutes привязывает маршруты API к обработчикам.
func registerRoutes(router chi.Router, h *handlers.APIHandler) {
	// Технические endpoints
	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)

	// Каталог фильмов (публичный)
	router.Get("/films/top_films_by_genre/{genre}/{count}", h.GetTopFilmsByGenre)
	router.Get("/films/{film_id}", h.GetFilm)
	router.Get("/films/{film_id}/recommendations", h.GetRecommendations)

	// Аутентификация (публичная)
	router.Post("/auth/register", h.Register)
	router.Post("/auth/jwt/login", h.Login)
	router.Post("/auth/jwt/logout", h.Logout)
	router.Post("/auth/forgot-password", h.ForgotPassword)
	router.Post("/auth/request-verify-token", h.RequestVerifyToken)

	// Статусы фильмов (JWT)
	router.Get("/statuses/get_user_statuses_by_status/{user_id}/{film_status}", h.GetUserStatusesByStatus)
	router.Post("/statuses/update/{user_id}/{film_id}/{status}/{rating}", h.UpdateFilmStatus)
	router.Get("/statuses/{user_id}/{film_id}", h.GetFilmStatus)
	router.Get("/statuses/{user_id}", h.GetUserStatuses)

	// Пользователи (JWT)
	router.Get("/users/me", h.GetCurrentUser)
	router.Patch("/users/me", h.UpdateCurrentUser)
	router.Get("/users", h.ListUsers)
	router.Get("/users/{id}", h.GetUser)
	router.Patch("/users/{id}", h.UpdateUser)

	router.Get("/authenticated-route", h.AuthenticatedRoute)
}

// jwtAuthWithExclusions оборачивает JWTAuth.Middleware(), пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без JWT.
func jwtAuthWithExclusions(jwtAuth *middleware.JWTAuth, excludePrefixes ...string) func(http.Handler) http.Handler {
	jwtMiddleware := jwtAuth.Middleware()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			jwtMiddleware(next).ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
