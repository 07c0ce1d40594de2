// statuses.go — обработчики /statuses endpoints.
// Статусы и рейтинги фильмов у пользователей.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/posmotrim/posmotrim-api/internal/api/errors"
	"github.com/posmotrim/posmotrim-api/internal/domain/model"
	"github.com/posmotrim/posmotrim-api/internal/service"
)

// GetFilmStatus — GET /statuses/{user_id}/{film_id}.
// Возвращает статус пользователя для конкретного фильма.
func (h *APIHandler) GetFilmStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt64(r, "user_id")
	if !ok {
		apierrors.ValidationError(w, "user_id должен быть целым числом")
		return
	}
	filmID, ok := pathInt64(r, "film_id")
	if !ok {
		apierrors.ValidationError(w, "film_id должен быть целым числом")
		return
	}

	status, err := h.statuses.FilmStatus(r.Context(), userID, filmID)
	if err != nil {
		if errors.Is(err, service.ErrStatusNotFound) {
			apierrors.NotFound(w, "The film status does not exist")
			return
		}
		h.logger.Error("Ошибка получения статуса",
			"user_id", userID, "film_id", filmID, "error", err)
		apierrors.InternalError(w, "Ошибка получения статуса")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// GetUserStatuses — GET /statuses/{user_id}.
// Возвращает все статусы пользователя.
func (h *APIHandler) GetUserStatuses(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt64(r, "user_id")
	if !ok {
		apierrors.ValidationError(w, "user_id должен быть целым числом")
		return
	}

	statuses, err := h.statuses.UserStatuses(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apierrors.NotFound(w, "User does not exist")
			return
		}
		h.logger.Error("Ошибка получения статусов пользователя",
			"user_id", userID, "error", err)
		apierrors.InternalError(w, "Ошибка получения статусов")
		return
	}

	if len(statuses) == 0 {
		apierrors.NotFound(w, "User has no statuses")
		return
	}

	writeJSON(w, http.StatusOK, statuses)
}

// GetUserStatusesByStatus — GET /statuses/get_user_statuses_by_status/{user_id}/{film_status}.
// Возвращает статусы пользователя с фильтром по значению статуса.
func (h *APIHandler) GetUserStatusesByStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt64(r, "user_id")
	if !ok {
		apierrors.ValidationError(w, "user_id должен быть целым числом")
		return
	}

	status, err := model.ParseWatchStatus(chi.URLParam(r, "film_status"))
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	statuses, err := h.statuses.UserStatusesByStatus(r.Context(), userID, status)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apierrors.NotFound(w, "User does not exist")
			return
		}
		h.logger.Error("Ошибка получения статусов пользователя по фильтру",
			"user_id", userID, "status", string(status), "error", err)
		apierrors.InternalError(w, "Ошибка получения статусов")
		return
	}

	if len(statuses) == 0 {
		apierrors.NotFound(w, "User has no statuses")
		return
	}

	writeJSON(w, http.StatusOK, statuses)
}

// statusUpdateRequest — тело запроса обновления статуса.
type statusUpdateRequest struct {
	Status string `json:"status"`
	Rating int    `json:"rating"`
	FilmID int64  `json:"film_id"`
	UserID int64  `json:"user_id"`
}

// UpdateFilmStatus — POST /statuses/update/{user_id}/{film_id}/{status}/{rating}.
// Создаёт или обновляет статус фильма у пользователя. Значения берутся из
// тела запроса; параметры пути обязаны с ним совпадать.
func (h *APIHandler) UpdateFilmStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt64(r, "user_id")
	if !ok {
		apierrors.ValidationError(w, "user_id должен быть целым числом")
		return
	}
	filmID, ok := pathInt64(r, "film_id")
	if !ok {
		apierrors.ValidationError(w, "film_id должен быть целым числом")
		return
	}
	pathStatus := chi.URLParam(r, "status")
	pathRating, err := strconv.Atoi(chi.URLParam(r, "rating"))
	if err != nil {
		apierrors.ValidationError(w, "rating должен быть целым числом")
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	if req.UserID != userID || req.FilmID != filmID ||
		req.Status != pathStatus || req.Rating != pathRating {
		apierrors.ValidationError(w, "Параметры пути не совпадают с телом запроса")
		return
	}

	status, err := h.statuses.SetStatus(r.Context(), req.UserID, req.FilmID,
		model.WatchStatus(req.Status), req.Rating)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			apierrors.NotFound(w, "User does not exist")
		case errors.Is(err, service.ErrFilmNotFound):
			apierrors.NotFound(w, "Film does not exist")
		default:
			h.logger.Error("Ошибка обновления статуса",
				"user_id", userID, "film_id", filmID, "error", err)
			apierrors.InternalError(w, "Ошибка обновления статуса")
		}
		return
	}

	writeJSON(w, http.StatusOK, status)
}
