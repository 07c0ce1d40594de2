// Пакет service — бизнес-логика Posmotrim API.
// films.go — сервис каталога фильмов: карточка, топ по жанру, рекомендации.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/posmotrim/posmotrim-api/internal/domain/model"
	"github.com/posmotrim/posmotrim-api/internal/repository"
)

// FilmService — сервис каталога фильмов.
// Карточки фильмов кэшируются в LRU: каталог неизменяем в работающем сервисе.
type FilmService struct {
	films  repository.FilmRepository
	cache  *FilmCache
	logger *slog.Logger
}

// NewFilmService создаёт сервис каталога фильмов.
// cache может быть nil — тогда каждый запрос идёт в БД.
func NewFilmService(films repository.FilmRepository, cache *FilmCache, logger *slog.Logger) *FilmService {
	return &FilmService{
		films:  films,
		cache:  cache,
		logger: logger.With(slog.String("component", "film_service")),
	}
}

// Film возвращает фильм по kinopoisk_id.
// Возвращает ErrFilmNotFound, если фильма нет в каталоге.
func (s *FilmService) Film(ctx context.Context, kinopoiskID int64) (*model.Film, error) {
	if s.cache != nil {
		if film, ok := s.cache.Get(kinopoiskID); ok {
			return film, nil
		}
	}

	film, err := s.films.GetByID(ctx, kinopoiskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFilmNotFound
		}
		return nil, fmt.Errorf("получение фильма %d: %w", kinopoiskID, err)
	}

	if s.cache != nil {
		s.cache.Set(kinopoiskID, film)
	}

	return film, nil
}

// TopByGenre возвращает не более count фильмов жанра genre,
// отсортированных по рейтингу IMDB по убыванию.
// Верхней границы у count нет: SQL LIMIT сам ограничивает выдачу размером
// каталога. Пустой результат — не ошибка: routing-слой сам решает, что с
// ним делать.
func (s *FilmService) TopByGenre(ctx context.Context, genre string, count int) ([]*model.Film, error) {
	if genre == "" {
		return nil, fmt.Errorf("%w: жанр не задан", ErrValidation)
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: count должен быть положительным, получено %d",
			ErrValidation, count)
	}

	films, err := s.films.TopByGenre(ctx, genre, count)
	if err != nil {
		return nil, fmt.Errorf("получение топа по жанру %q: %w", genre, err)
	}
	return films, nil
}

// Recommendations возвращает похожие фильмы для kinopoiskID в порядке
// close_film_ids (порядок похожести из офлайн-датасета).
// Возвращает ErrFilmNotFound, если базового фильма нет.
func (s *FilmService) Recommendations(ctx context.Context, kinopoiskID int64) ([]*model.Film, error) {
	film, err := s.Film(ctx, kinopoiskID)
	if err != nil {
		return nil, err
	}

	if len(film.CloseFilmIDs) == 0 {
		return nil, nil
	}

	closeFilms, err := s.films.GetByIDs(ctx, film.CloseFilmIDs)
	if err != nil {
		return nil, fmt.Errorf("получение похожих фильмов для %d: %w", kinopoiskID, err)
	}

	// Запрос «id = ANY(...)» не сохраняет порядок — восстанавливаем
	// порядок close_film_ids явно. Отсутствующие в каталоге id пропускаются.
	byID := make(map[int64]*model.Film, len(closeFilms))
	for _, f := range closeFilms {
		byID[f.KinopoiskID] = f
	}

	result := make([]*model.Film, 0, len(closeFilms))
	for _, id := range film.CloseFilmIDs {
		if f, ok := byID[id]; ok {
			result = append(result, f)
		}
	}

	if len(result) < len(film.CloseFilmIDs) {
		s.logger.Debug("Часть похожих фильмов отсутствует в каталоге",
			slog.Int64("kinopoisk_id", kinopoiskID),
			slog.Int("expected", len(film.CloseFilmIDs)),
			slog.Int("found", len(result)),
		)
	}

	return result, nil
}
