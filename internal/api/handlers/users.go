// users.go — обработчики /users endpoints.
// Профили пользователей: текущий пользователь, список, получение, обновление.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apierrors "github.com/posmotrim/posmotrim-api/internal/api/errors"
	"github.com/posmotrim/posmotrim-api/internal/api/middleware"
	"github.com/posmotrim/posmotrim-api/internal/service"
)

// userUpdateRequest — тело запроса обновления профиля. Nil-поле не изменяется.
type userUpdateRequest struct {
	Username *string    `json:"username"`
	Email    *string    `json:"email"`
	Birthday *time.Time `json:"birthday"`
}

// GetCurrentUser — GET /users/me.
// Возвращает профиль текущего пользователя по sub из JWT.
func (h *APIHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	user, err := h.users.Current(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apierrors.NotFound(w, "User does not exist")
			return
		}
		h.logger.Error("Ошибка получения текущего пользователя",
			"subject", claims.Subject, "error", err)
		apierrors.InternalError(w, "Ошибка получения пользователя")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateCurrentUser — PATCH /users/me.
// Обновляет профиль текущего пользователя.
func (h *APIHandler) UpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	user, err := h.users.Current(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apierrors.NotFound(w, "User does not exist")
			return
		}
		h.logger.Error("Ошибка получения текущего пользователя",
			"subject", claims.Subject, "error", err)
		apierrors.InternalError(w, "Ошибка получения пользователя")
		return
	}

	h.updateUser(w, r, user.ID)
}

// ListUsers — GET /users.
// Возвращает список всех пользователей сервиса.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения списка пользователей", "error", err)
		apierrors.InternalError(w, "Ошибка получения пользователей")
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// GetUser — GET /users/{id}.
// Возвращает профиль пользователя по локальному идентификатору.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		apierrors.ValidationError(w, "id должен быть целым числом")
		return
	}

	user, err := h.users.User(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apierrors.NotFound(w, "User does not exist")
			return
		}
		h.logger.Error("Ошибка получения пользователя", "user_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения пользователя")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateUser — PATCH /users/{id}.
// Обновляет профиль пользователя по локальному идентификатору.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		apierrors.ValidationError(w, "id должен быть целым числом")
		return
	}

	h.updateUser(w, r, id)
}

// AuthenticatedRoute — GET /authenticated-route.
// Smoke endpoint защищённой зоны: приветствие с email пользователя.
func (h *APIHandler) AuthenticatedRoute(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Добро пожаловать " + claims.Email + "!",
	})
}

// updateUser — общая логика PATCH /users/me и PATCH /users/{id}.
func (h *APIHandler) updateUser(w http.ResponseWriter, r *http.Request, id int64) {
	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	user, err := h.users.Update(r.Context(), id, service.UpdateInput{
		Username: req.Username,
		Email:    req.Email,
		Birthday: req.Birthday,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			apierrors.NotFound(w, "User does not exist")
		case errors.Is(err, service.ErrUsernameTaken):
			apierrors.Conflict(w, "Имя пользователя уже занято")
		case errors.Is(err, service.ErrIDPUnavailable):
			apierrors.IDPUnavailable(w, "Keycloak недоступен")
		default:
			h.logger.Error("Ошибка обновления пользователя", "user_id", id, "error", err)
			apierrors.InternalError(w, "Ошибка обновления пользователя")
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}
