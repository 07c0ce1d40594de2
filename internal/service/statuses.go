// statuses.go — сервис пользовательских статусов фильмов.
// Проверяет существование пользователя и фильма, после чего делегирует
// репозиторию атомарный upsert по паре (user_id, film_id).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/posmotrim/posmotrim-api/internal/domain/model"
	"github.com/posmotrim/posmotrim-api/internal/repository"
)

// StatusService — сервис статусов и рейтингов фильмов у пользователей.
type StatusService struct {
	statuses repository.StatusRepository
	users    repository.UserRepository
	films    repository.FilmRepository
	logger   *slog.Logger
}

// NewStatusService создаёт сервис статусов.
func NewStatusService(
	statuses repository.StatusRepository,
	users repository.UserRepository,
	films repository.FilmRepository,
	logger *slog.Logger,
) *StatusService {
	return &StatusService{
		statuses: statuses,
		users:    users,
		films:    films,
		logger:   logger.With(slog.String("component", "status_service")),
	}
}

// FilmStatus возвращает статус пользователя userID для фильма filmID.
// Возвращает ErrStatusNotFound, если статус не выставлялся.
func (s *StatusService) FilmStatus(ctx context.Context, userID, filmID int64) (*model.FilmStatus, error) {
	st, err := s.statuses.GetByUserAndFilm(ctx, userID, filmID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStatusNotFound
		}
		return nil, fmt.Errorf("получение статуса (user=%d, film=%d): %w", userID, filmID, err)
	}
	return st, nil
}

// UserStatuses возвращает все статусы пользователя.
// Возвращает ErrUserNotFound, если пользователя нет; пустой срез —
// корректный результат для пользователя без статусов.
func (s *StatusService) UserStatuses(ctx context.Context, userID int64) ([]*model.FilmStatus, error) {
	if err := s.ensureUserExists(ctx, userID); err != nil {
		return nil, err
	}

	statuses, err := s.statuses.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("получение статусов пользователя %d: %w", userID, err)
	}
	return statuses, nil
}

// UserStatusesByStatus возвращает статусы пользователя с фильтром по статусу.
// Семантика существования пользователя — как у UserStatuses.
func (s *StatusService) UserStatusesByStatus(ctx context.Context, userID int64, status model.WatchStatus) ([]*model.FilmStatus, error) {
	if err := s.ensureUserExists(ctx, userID); err != nil {
		return nil, err
	}

	statuses, err := s.statuses.ListByUserAndStatus(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("получение статусов пользователя %d по фильтру %q: %w", userID, status, err)
	}
	return statuses, nil
}

// SetStatus создаёт или обновляет статус фильма у пользователя.
// Проверяет существование пользователя (ErrUserNotFound) и фильма
// (ErrFilmNotFound), валидирует рейтинг, затем выполняет атомарный upsert.
func (s *StatusService) SetStatus(ctx context.Context, userID, filmID int64, status model.WatchStatus, rating int) (*model.FilmStatus, error) {
	if _, err := model.ParseWatchStatus(string(status)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !model.ValidRating(rating) {
		return nil, fmt.Errorf("%w: рейтинг %d вне диапазона %d-%d",
			ErrValidation, rating, model.RatingMin, model.RatingMax)
	}

	if err := s.ensureUserExists(ctx, userID); err != nil {
		return nil, err
	}

	filmExists, err := s.films.Exists(ctx, filmID)
	if err != nil {
		return nil, fmt.Errorf("проверка существования фильма %d: %w", filmID, err)
	}
	if !filmExists {
		return nil, ErrFilmNotFound
	}

	st := &model.FilmStatus{
		Status: status,
		Rating: rating,
		FilmID: filmID,
		UserID: userID,
	}

	if err := s.statuses.Upsert(ctx, st); err != nil {
		// FK-нарушение — пользователь или фильм удалены между проверкой и upsert
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFilmNotFound
		}
		return nil, fmt.Errorf("upsert статуса (user=%d, film=%d): %w", userID, filmID, err)
	}

	s.logger.Info("Статус фильма обновлён",
		slog.Int64("user_id", userID),
		slog.Int64("film_id", filmID),
		slog.String("status", string(st.Status)),
		slog.Int("rating", st.Rating),
	)

	return st, nil
}

// ensureUserExists возвращает ErrUserNotFound, если пользователя нет.
func (s *StatusService) ensureUserExists(ctx context.Context, userID int64) error {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("проверка существования пользователя %d: %w", userID, err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}
