// users.go — сервис пользователей.
// Учётные данные живут в Keycloak, локально хранится только профиль.
// Регистрация — двухфазная: сначала пользователь создаётся в Keycloak,
// затем профиль в БД; при конфликте профиля Keycloak-аккаунт удаляется
// компенсирующим запросом.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/posmotrim/posmotrim-api/internal/domain/model"
	"github.com/posmotrim/posmotrim-api/internal/keycloak"
	"github.com/posmotrim/posmotrim-api/internal/repository"
)

// IdentityProvider — операции Keycloak, нужные сервису пользователей.
// Реализуется keycloak.Client; в тестах подменяется фейком.
type IdentityProvider interface {
	Login(ctx context.Context, username, password string) (*keycloak.TokenResponse, error)
	CreateUser(ctx context.Context, username, email, password string) (string, error)
	GetUser(ctx context.Context, id string) (*keycloak.KeycloakUser, error)
	GetUserByEmail(ctx context.Context, email string) (*keycloak.KeycloakUser, error)
	UpdateUserEmail(ctx context.Context, id, email string) error
	DeleteUser(ctx context.Context, id string) error
	SendVerifyEmail(ctx context.Context, id string) error
	SendResetPasswordEmail(ctx context.Context, id string) error
}

// RegisterInput — входные данные регистрации пользователя.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Birthday time.Time
}

// UserService — сервис пользователей: регистрация, логин, профиль.
type UserService struct {
	users  repository.UserRepository
	idp    IdentityProvider
	logger *slog.Logger
}

// NewUserService создаёт сервис пользователей.
func NewUserService(users repository.UserRepository, idp IdentityProvider, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		idp:    idp,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// Register регистрирует пользователя: аккаунт в Keycloak плюс локальный профиль.
// Возвращает ErrUsernameTaken, если username уже занят локально,
// ErrValidation при пустых полях, ErrIDPUnavailable при недоступном Keycloak.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username, email и password обязательны", ErrValidation)
	}

	// Ранняя проверка занятости username, чтобы не плодить Keycloak-аккаунты.
	// Гонка здесь допустима: финальную уникальность гарантирует БД.
	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("проверка занятости username %q: %w", in.Username, err)
	}

	keycloakID, err := s.idp.CreateUser(ctx, in.Username, in.Email, in.Password)
	if err != nil {
		s.logger.Error("Ошибка создания пользователя в Keycloak",
			slog.String("username", in.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrIDPUnavailable, err)
	}

	u := &model.User{
		KeycloakUserID: keycloakID,
		Username:       in.Username,
		Email:          in.Email,
		Birthday:       in.Birthday,
	}

	if err := s.users.Create(ctx, u); err != nil {
		// Компенсация: откатываем Keycloak-аккаунт, чтобы не оставить сироту
		if delErr := s.idp.DeleteUser(ctx, keycloakID); delErr != nil {
			s.logger.Error("Ошибка компенсирующего удаления пользователя в Keycloak",
				slog.String("keycloak_user_id", keycloakID),
				slog.String("error", delErr.Error()),
			)
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("создание профиля пользователя: %w", err)
	}

	s.logger.Info("Пользователь зарегистрирован",
		slog.Int64("user_id", u.ID),
		slog.String("username", u.Username),
		slog.String("keycloak_user_id", keycloakID),
	)

	return u, nil
}

// Login аутентифицирует пользователя через Keycloak (password grant).
// Возвращает ErrInvalidCredentials при неверных учётных данных.
func (s *UserService) Login(ctx context.Context, username, password string) (*keycloak.TokenResponse, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username и password обязательны", ErrValidation)
	}

	token, err := s.idp.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, keycloak.ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrIDPUnavailable, err)
	}

	return token, nil
}

// Current возвращает профиль пользователя по его Keycloak ID (sub из JWT).
func (s *UserService) Current(ctx context.Context, keycloakUserID string) (*model.User, error) {
	u, err := s.users.GetByKeycloakID(ctx, keycloakUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("получение профиля по keycloak id %q: %w", keycloakUserID, err)
	}

	s.enrichEmail(ctx, u)
	return u, nil
}

// User возвращает профиль пользователя по локальному идентификатору.
func (s *UserService) User(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("получение пользователя %d: %w", id, err)
	}

	s.enrichEmail(ctx, u)
	return u, nil
}

// List возвращает всех пользователей сервиса.
// Email намеренно не обогащается: по одному Admin API запросу на
// пользователя для списка слишком дорого.
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение списка пользователей: %w", err)
	}
	return users, nil
}

// UpdateInput — изменяемые поля профиля. Nil-поле не изменяется.
// Email хранится в Keycloak и изменяется там же.
type UpdateInput struct {
	Username *string
	Email    *string
	Birthday *time.Time
}

// Update изменяет профиль пользователя.
// Возвращает ErrUserNotFound, если пользователя нет, ErrUsernameTaken
// при конфликте нового username и ErrIDPUnavailable, если Keycloak
// не принял новый email.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateInput) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("получение пользователя %d: %w", id, err)
	}

	if in.Username != nil {
		if *in.Username == "" {
			return nil, fmt.Errorf("%w: username не может быть пустым", ErrValidation)
		}
		u.Username = *in.Username
	}
	if in.Email != nil && *in.Email == "" {
		return nil, fmt.Errorf("%w: email не может быть пустым", ErrValidation)
	}
	if in.Birthday != nil {
		u.Birthday = *in.Birthday
	}

	if err := s.users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("обновление пользователя %d: %w", id, err)
	}

	if in.Email != nil {
		if err := s.idp.UpdateUserEmail(ctx, u.KeycloakUserID, *in.Email); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIDPUnavailable, err)
		}
		s.logger.Info("Email пользователя обновлён в Keycloak",
			slog.Int64("user_id", u.ID),
		)
	}

	s.logger.Info("Профиль пользователя обновлён", slog.Int64("user_id", u.ID))

	s.enrichEmail(ctx, u)
	return u, nil
}

// RequestPasswordReset инициирует сброс пароля: Keycloak отправляет письмо.
// Отсутствие пользователя с таким email не считается ошибкой, чтобы не
// раскрывать зарегистрированные адреса.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email обязателен", ErrValidation)
	}

	kcUser, err := s.idp.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIDPUnavailable, err)
	}
	if kcUser == nil {
		s.logger.Debug("Запрос сброса пароля для неизвестного email")
		return nil
	}

	if err := s.idp.SendResetPasswordEmail(ctx, kcUser.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrIDPUnavailable, err)
	}

	s.logger.Info("Отправлено письмо сброса пароля",
		slog.String("keycloak_user_id", kcUser.ID),
	)
	return nil
}

// RequestEmailVerification инициирует подтверждение email пользователя.
// Семантика отсутствия адреса — как у RequestPasswordReset.
func (s *UserService) RequestEmailVerification(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email обязателен", ErrValidation)
	}

	kcUser, err := s.idp.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIDPUnavailable, err)
	}
	if kcUser == nil {
		s.logger.Debug("Запрос подтверждения для неизвестного email")
		return nil
	}

	if err := s.idp.SendVerifyEmail(ctx, kcUser.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrIDPUnavailable, err)
	}

	s.logger.Info("Отправлено письмо подтверждения email",
		slog.String("keycloak_user_id", kcUser.ID),
	)
	return nil
}

// enrichEmail подтягивает email пользователя из Keycloak.
// Ошибка обогащения не фатальна: профиль отдаётся без email.
func (s *UserService) enrichEmail(ctx context.Context, u *model.User) {
	kcUser, err := s.idp.GetUser(ctx, u.KeycloakUserID)
	if err != nil {
		s.logger.Warn("Не удалось получить email из Keycloak",
			slog.Int64("user_id", u.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	u.Email = kcUser.Email
}
