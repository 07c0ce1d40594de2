// films.go — обработчики /films endpoints.
// Каталог фильмов: карточка, топ по жанру, рекомендации похожих.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/posmotrim/posmotrim-api/internal/api/errors"
	"github.com/posmotrim/posmotrim-api/internal/service"
)

// GetFilm — GET /films/{film_id}.
// Возвращает карточку фильма по kinopoisk_id.
func (h *APIHandler) GetFilm(w http.ResponseWriter, r *http.Request) {
	filmID, ok := pathInt64(r, "film_id")
	if !ok {
		apierrors.ValidationError(w, "film_id должен быть целым числом")
		return
	}

	film, err := h.films.Film(r.Context(), filmID)
	if err != nil {
		if errors.Is(err, service.ErrFilmNotFound) {
			apierrors.NotFound(w, "Film does not exist")
			return
		}
		h.logger.Error("Ошибка получения фильма", "film_id", filmID, "error", err)
		apierrors.InternalError(w, "Ошибка получения фильма")
		return
	}

	writeJSON(w, http.StatusOK, film)
}

// GetTopFilmsByGenre — GET /films/top_films_by_genre/{genre}/{count}.
// Возвращает count лучших фильмов жанра по рейтингу IMDB.
// Пустой результат означает несуществующий жанр.
func (h *APIHandler) GetTopFilmsByGenre(w http.ResponseWriter, r *http.Request) {
	genre := chi.URLParam(r, "genre")

	count, err := strconv.Atoi(chi.URLParam(r, "count"))
	if err != nil {
		apierrors.ValidationError(w, "count должен быть целым числом")
		return
	}

	films, err := h.films.TopByGenre(r.Context(), genre, count)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.logger.Error("Ошибка получения топа по жанру", "genre", genre, "error", err)
		apierrors.InternalError(w, "Ошибка получения топа по жанру")
		return
	}

	if len(films) == 0 {
		apierrors.NotFound(w, "The genre does not exist")
		return
	}

	writeJSON(w, http.StatusOK, films)
}

// GetRecommendations — GET /films/{film_id}/recommendations.
// Возвращает похожие фильмы в порядке убывания близости.
func (h *APIHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	filmID, ok := pathInt64(r, "film_id")
	if !ok {
		apierrors.ValidationError(w, "film_id должен быть целым числом")
		return
	}

	films, err := h.films.Recommendations(r.Context(), filmID)
	if err != nil {
		if errors.Is(err, service.ErrFilmNotFound) {
			apierrors.NotFound(w, "Film does not exist")
			return
		}
		h.logger.Error("Ошибка получения рекомендаций", "film_id", filmID, "error", err)
		apierrors.InternalError(w, "Ошибка получения рекомендаций")
		return
	}

	writeJSON(w, http.StatusOK, films)
}
