// cache.go — LRU-кэш фильмов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
//
// Фильмы в работающем сервисе неизменяемы (создаются только офлайн-загрузчиком),
// поэтому кэшируются без инвалидации; TTL ограничивает расхождение
// после перезаливки каталога.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/posmotrim/posmotrim-api/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "psm_film_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш фильмов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "psm_film_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша фильмов.",
	})
)

// FilmCache — LRU-кэш фильмов с автоматическим TTL.
// Каждый экземпляр сервиса имеет собственный in-memory кэш.
type FilmCache struct {
	cache *expirable.LRU[int64, *model.Film]
}

// NewFilmCache создаёт LRU-кэш с указанным максимальным размером и TTL.
// maxSize — максимальное количество фильмов в кэше.
// ttl — время жизни записи после добавления.
func NewFilmCache(maxSize int, ttl time.Duration) *FilmCache {
	cache := expirable.NewLRU[int64, *model.Film](maxSize, nil, ttl)
	return &FilmCache{cache: cache}
}

// Get возвращает фильм из кэша по kinopoisk_id.
// Возвращает (фильм, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *FilmCache) Get(kinopoiskID int64) (*model.Film, bool) {
	val, ok := c.cache.Get(kinopoiskID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет фильм в кэше.
func (c *FilmCache) Set(kinopoiskID int64, film *model.Film) {
	c.cache.Add(kinopoiskID, film)
}

// Len возвращает текущее количество записей в кэше.
func (c *FilmCache) Len() int {
	return c.cache.Len()
}
