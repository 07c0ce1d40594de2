package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/posmotrim/posmotrim-api/internal/domain/model"
)

// UserRepository — интерфейс доступа к таблице users.
type UserRepository interface {
	// Create создаёт профиль пользователя. Заполняет ID и CreatedAt.
	// Возвращает ErrConflict при дублирующемся username или keycloak_user_id.
	Create(ctx context.Context, u *model.User) error
	// GetByID возвращает пользователя по локальному идентификатору.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByUsername возвращает пользователя по имени.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByKeycloakID возвращает пользователя по Keycloak user ID (sub из JWT).
	GetByKeycloakID(ctx context.Context, keycloakUserID string) (*model.User, error)
	// List возвращает всех пользователей сервиса.
	List(ctx context.Context) ([]*model.User, error)
	// Update изменяет username и birthday пользователя.
	Update(ctx context.Context, u *model.User) error
	// Exists проверяет существование пользователя по локальному идентификатору.
	Exists(ctx context.Context, id int64) (bool, error)
	// Count возвращает количество пользователей.
	Count(ctx context.Context) (int, error)
}

// userRepo — реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, keycloak_user_id, username, birthday, created_at`

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (keycloak_user_id, username, birthday)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		u.KeycloakUserID, u.Username, u.Birthday,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)
	return r.scanUser(r.db.QueryRow(ctx, query, username))
}

func (r *userRepo) GetByKeycloakID(ctx context.Context, keycloakUserID string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE keycloak_user_id = $1`, userColumns)
	return r.scanUser(r.db.QueryRow(ctx, query, keycloakUserID))
}

func (r *userRepo) List(ctx context.Context) ([]*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY id`, userColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(&u.ID, &u.KeycloakUserID, &u.Username, &u.Birthday, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	query := `
		UPDATE users
		SET username = $2, birthday = $3
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, u.ID, u.Username, u.Birthday)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка обновления пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки существования пользователя: %w", err)
	}
	return exists, nil
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	return count, nil
}

// scanUser сканирует одну строку users. Возвращает ErrNotFound при отсутствии.
func (r *userRepo) scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.KeycloakUserID, &u.Username, &u.Birthday, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}
