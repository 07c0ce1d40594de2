package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/posmotrim/posmotrim-api/internal/domain/model"
)

// StatusRepository — интерфейс доступа к таблице statuses.
type StatusRepository interface {
	// GetByUserAndFilm возвращает статус пользователя для фильма.
	GetByUserAndFilm(ctx context.Context, userID, filmID int64) (*model.FilmStatus, error)
	// ListByUser возвращает все статусы пользователя.
	ListByUser(ctx context.Context, userID int64) ([]*model.FilmStatus, error)
	// ListByUserAndStatus возвращает статусы пользователя с фильтром по статусу.
	ListByUserAndStatus(ctx context.Context, userID int64, status model.WatchStatus) ([]*model.FilmStatus, error)
	// Upsert создаёт или обновляет статус пары (user_id, film_id)
	// одним атомарным запросом. Заполняет ID и UpdatedAt.
	Upsert(ctx context.Context, st *model.FilmStatus) error
	// CountByUser возвращает количество статусов пользователя.
	CountByUser(ctx context.Context, userID int64) (int, error)
}

// statusRepo — реализация StatusRepository.
type statusRepo struct {
	db DBTX
}

// NewStatusRepository создаёт репозиторий статусов.
func NewStatusRepository(db DBTX) StatusRepository {
	return &statusRepo{db: db}
}

const statusColumns = `id, status, rating, film_id, user_id, updated_at`

func (r *statusRepo) GetByUserAndFilm(ctx context.Context, userID, filmID int64) (*model.FilmStatus, error) {
	query := fmt.Sprintf(`SELECT %s FROM statuses WHERE user_id = $1 AND film_id = $2`, statusColumns)

	st := &model.FilmStatus{}
	err := r.db.QueryRow(ctx, query, userID, filmID).Scan(
		&st.ID, &st.Status, &st.Rating, &st.FilmID, &st.UserID, &st.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения статуса: %w", err)
	}
	return st, nil
}

func (r *statusRepo) ListByUser(ctx context.Context, userID int64) ([]*model.FilmStatus, error) {
	query := fmt.Sprintf(`SELECT %s FROM statuses WHERE user_id = $1 ORDER BY updated_at DESC`, statusColumns)

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статусов пользователя: %w", err)
	}
	defer rows.Close()

	return scanStatuses(rows)
}

func (r *statusRepo) ListByUserAndStatus(ctx context.Context, userID int64, status model.WatchStatus) ([]*model.FilmStatus, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM statuses
		WHERE user_id = $1 AND status = $2
		ORDER BY updated_at DESC`, statusColumns)

	rows, err := r.db.Query(ctx, query, userID, status)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статусов пользователя по фильтру: %w", err)
	}
	defer rows.Close()

	return scanStatuses(rows)
}

func (r *statusRepo) Upsert(ctx context.Context, st *model.FilmStatus) error {
	// Атомарный upsert через ограничение UNIQUE (user_id, film_id):
	// два конкурентных вызова для одной пары не создадут двух строк.
	query := `
		INSERT INTO statuses (status, rating, film_id, user_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, film_id) DO UPDATE SET
			status = EXCLUDED.status,
			rating = EXCLUDED.rating,
			updated_at = now()
		RETURNING id, updated_at`

	err := r.db.QueryRow(ctx, query,
		st.Status, st.Rating, st.FilmID, st.UserID,
	).Scan(&st.ID, &st.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка upsert статуса: %w", err)
	}
	return nil
}

func (r *statusRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM statuses WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта статусов: %w", err)
	}
	return count, nil
}

// scanStatuses сканирует все строки выборки statuses.
func scanStatuses(rows pgx.Rows) ([]*model.FilmStatus, error) {
	var result []*model.FilmStatus
	for rows.Next() {
		st := &model.FilmStatus{}
		if err := rows.Scan(
			&st.ID, &st.Status, &st.Rating, &st.FilmID, &st.UserID, &st.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статуса: %w", err)
		}
		result = append(result, st)
	}
	return result, rows.Err()
}
