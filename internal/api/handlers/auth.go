// auth.go — обработчики /auth endpoints.
// Регистрация, логин (password grant через Keycloak), триггеры писем
// сброса пароля и подтверждения email.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apierrors "github.com/posmotrim/posmotrim-api/internal/api/errors"
	"github.com/posmotrim/posmotrim-api/internal/service"
)

// registerRequest — тело запроса регистрации.
type registerRequest struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Username string    `json:"username"`
	Birthday time.Time `json:"birthday"`
}

// Register — POST /auth/register.
// Создаёт пользователя в Keycloak и локальный профиль.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Birthday: req.Birthday,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrUsernameTaken):
			apierrors.Conflict(w, "Имя пользователя уже занято")
		case errors.Is(err, service.ErrIDPUnavailable):
			apierrors.IDPUnavailable(w, "Identity Provider недоступен")
		default:
			h.logger.Error("Ошибка регистрации", "username", req.Username, "error", err)
			apierrors.InternalError(w, "Ошибка регистрации")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// tokenResponse — тело ответа логина.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login — POST /auth/jwt/login.
// Принимает form-data username/password, проксирует password grant в Keycloak.
// Неверные учётные данные — 400.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		apierrors.ValidationError(w, "Некорректная форма: "+err.Error())
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	token, err := h.users.Login(r.Context(), username, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrInvalidCredentials):
			apierrors.WriteError(w, http.StatusBadRequest, apierrors.CodeValidationError,
				"LOGIN_BAD_CREDENTIALS")
		case errors.Is(err, service.ErrIDPUnavailable):
			apierrors.IDPUnavailable(w, "Identity Provider недоступен")
		default:
			h.logger.Error("Ошибка логина", "error", err)
			apierrors.InternalError(w, "Ошибка логина")
		}
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   "bearer",
	})
}

// Logout — POST /auth/jwt/logout.
// Сервис stateless: клиент сам забывает токен.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// emailRequest — тело запроса с единственным полем email.
type emailRequest struct {
	Email string `json:"email"`
}

// ForgotPassword — POST /auth/forgot-password.
// Инициирует отправку письма сброса пароля через Keycloak.
// Всегда 202, чтобы не раскрывать зарегистрированные адреса.
func (h *APIHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.triggerEmail(w, r, h.users.RequestPasswordReset, "сброса пароля")
}

// RequestVerifyToken — POST /auth/request-verify-token.
// Инициирует отправку письма подтверждения email через Keycloak.
func (h *APIHandler) RequestVerifyToken(w http.ResponseWriter, r *http.Request) {
	h.triggerEmail(w, r, h.users.RequestEmailVerification, "подтверждения email")
}

// triggerEmail — общая логика endpoints, инициирующих отправку письма.
func (h *APIHandler) triggerEmail(
	w http.ResponseWriter,
	r *http.Request,
	trigger func(ctx context.Context, email string) error,
	kind string,
) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	if err := trigger(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrIDPUnavailable):
			apierrors.IDPUnavailable(w, "Identity Provider недоступен")
		default:
			h.logger.Error("Ошибка запроса письма "+kind, "error", err)
			apierrors.InternalError(w, "Ошибка запроса письма "+kind)
		}
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
