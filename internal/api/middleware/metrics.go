// metrics.go — Prometheus HTTP метрики Posmotrim API.
// Регистрирует метрики: psm_http_requests_total, psm_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psm_http_requests_total",
			Help: "Общее количество HTTP-запросов к Posmotrim API",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "psm_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Posmotrim API в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем идентификаторы на плейсхолдеры против роста кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет динамические сегменты пути на плейсхолдеры
// для предотвращения взрывного роста кардинальности метрик.
// /films/301 → /films/{film_id}, /statuses/5/301 → /statuses/{user_id}/{film_id}
func normalizePath(path string) string {
	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/auth/register", "/auth/jwt/login", "/auth/jwt/logout",
		"/auth/forgot-password", "/auth/request-verify-token",
		"/users", "/users/me", "/authenticated-route":
		return path
	}

	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segments) == 0 {
		return path
	}

	switch segments[0] {
	case "films":
		switch {
		case len(segments) == 2:
			return "/films/{film_id}"
		case len(segments) == 3 && segments[2] == "recommendations":
			return "/films/{film_id}/recommendations"
		case len(segments) == 4 && segments[1] == "top_films_by_genre":
			return "/films/top_films_by_genre/{genre}/{count}"
		}
	case "statuses":
		switch {
		case len(segments) == 2:
			return "/statuses/{user_id}"
		case len(segments) == 3:
			return "/statuses/{user_id}/{film_id}"
		case len(segments) == 4 && segments[1] == "get_user_statuses_by_status":
			return "/statuses/get_user_statuses_by_status/{user_id}/{film_status}"
		case len(segments) == 6 && segments[1] == "update":
			return "/statuses/update/{user_id}/{film_id}/{status}/{rating}"
		}
	case "users":
		if len(segments) == 2 {
			return "/users/{id}"
		}
	}

	return path
}
