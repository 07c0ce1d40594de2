// Пакет config — загрузка и валидация конфигурации Posmotrim API
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Posmotrim API.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Keycloak ---

	// URL Keycloak (например, https://keycloak.posmotrim.lan)
	KeycloakURL string
	// Имя realm в Keycloak
	KeycloakRealm string
	// Client ID для доступа к Keycloak Admin API
	KeycloakClientID string
	// Client Secret для доступа к Keycloak Admin API
	KeycloakClientSecret string
	// Client ID публичного клиента для password grant (логин пользователей)
	KeycloakLoginClientID string
	// Путь к CA-сертификату для TLS-соединений с Keycloak (опционально)
	KeycloakCACertPath string

	// --- JWT ---

	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Кэш фильмов ---

	// Максимальное количество фильмов в LRU-кэше
	FilmCacheSize int
	// TTL записи кэша фильмов
	FilmCacheTTL time.Duration

	// --- Мониторинг зависимостей ---

	// Группа topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// PSM_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("PSM_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("PSM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PSM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// PSM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PSM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PSM_LOG_LEVEL: %w", err)
	}

	// PSM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("PSM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PSM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// PSM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("PSM_DB_HOST")
	if err != nil {
		return nil, err
	}

	// PSM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("PSM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("PSM_DB_PORT: %w", err)
	}

	// PSM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("PSM_DB_NAME")
	if err != nil {
		return nil, err
	}

	// PSM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("PSM_DB_USER")
	if err != nil {
		return nil, err
	}

	// PSM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("PSM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// PSM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("PSM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("PSM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Keycloak ---

	// PSM_KEYCLOAK_URL — обязательный
	cfg.KeycloakURL, err = getEnvRequired("PSM_KEYCLOAK_URL")
	if err != nil {
		return nil, err
	}
	// Убираем trailing slash
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")

	// PSM_KEYCLOAK_REALM — realm (по умолчанию posmotrim)
	cfg.KeycloakRealm = getEnvDefault("PSM_KEYCLOAK_REALM", "posmotrim")

	// PSM_KEYCLOAK_CLIENT_ID — обязательный
	cfg.KeycloakClientID, err = getEnvRequired("PSM_KEYCLOAK_CLIENT_ID")
	if err != nil {
		return nil, err
	}

	// PSM_KEYCLOAK_CLIENT_SECRET — обязательный
	cfg.KeycloakClientSecret, err = getEnvRequired("PSM_KEYCLOAK_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}

	// PSM_KEYCLOAK_LOGIN_CLIENT_ID — публичный клиент для password grant
	// (по умолчанию posmotrim-app)
	cfg.KeycloakLoginClientID = getEnvDefault("PSM_KEYCLOAK_LOGIN_CLIENT_ID", "posmotrim-app")

	// PSM_KEYCLOAK_CA_CERT — путь к CA-сертификату (опционально)
	cfg.KeycloakCACertPath = getEnvDefault("PSM_KEYCLOAK_CA_CERT", "")

	// --- JWT ---

	// PSM_JWT_ISSUER — авто-вычисляется из KeycloakURL, если не задан
	cfg.JWTIssuer = getEnvDefault("PSM_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))

	// PSM_JWT_JWKS_URL — авто-вычисляется из KeycloakURL, если не задан
	cfg.JWTJWKSURL = getEnvDefault("PSM_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))

	// PSM_JWKS_REFRESH_INTERVAL — интервал обновления JWKS (по умолчанию 1h)
	cfg.JWKSRefreshInterval, err = getEnvDuration("PSM_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PSM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// PSM_JWT_LEEWAY — допуск времени при валидации JWT (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("PSM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PSM_JWT_LEEWAY: %w", err)
	}

	// --- Кэш фильмов ---

	// PSM_FILM_CACHE_SIZE — размер LRU-кэша фильмов (по умолчанию 1000)
	cfg.FilmCacheSize, err = getEnvInt("PSM_FILM_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("PSM_FILM_CACHE_SIZE: %w", err)
	}
	if cfg.FilmCacheSize < 1 || cfg.FilmCacheSize > 1000000 {
		return nil, fmt.Errorf("PSM_FILM_CACHE_SIZE: значение %d вне допустимого диапазона 1-1000000", cfg.FilmCacheSize)
	}

	// PSM_FILM_CACHE_TTL — TTL записи кэша (по умолчанию 10m)
	cfg.FilmCacheTTL, err = getEnvDuration("PSM_FILM_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PSM_FILM_CACHE_TTL: %w", err)
	}

	// --- Мониторинг зависимостей ---

	// PSM_DEPHEALTH_GROUP — группа topologymetrics (по умолчанию posmotrim)
	cfg.DephealthGroup = getEnvDefault("PSM_DEPHEALTH_GROUP", "posmotrim")

	// PSM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("PSM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PSM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// PSM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("PSM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PSM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL
// (для topologymetrics).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
