package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/posmotrim/posmotrim-api/internal/domain/model"
)

// FilmRepository — интерфейс доступа к таблице films.
// Записи создаются только загрузчиком, сервис их не изменяет.
type FilmRepository interface {
	// GetByID возвращает фильм по kinopoisk_id.
	GetByID(ctx context.Context, kinopoiskID int64) (*model.Film, error)
	// GetByIDs возвращает фильмы по списку kinopoisk_id.
	// Порядок результата не гарантируется; отсутствующие id пропускаются.
	GetByIDs(ctx context.Context, kinopoiskIDs []int64) ([]*model.Film, error)
	// TopByGenre возвращает не более count фильмов жанра genre,
	// отсортированных по рейтингу IMDB по убыванию.
	TopByGenre(ctx context.Context, genre string, count int) ([]*model.Film, error)
	// Exists проверяет существование фильма по kinopoisk_id.
	Exists(ctx context.Context, kinopoiskID int64) (bool, error)
	// Count возвращает количество фильмов в каталоге.
	Count(ctx context.Context) (int, error)
	// CopyIn выполняет массовую вставку фильмов (офлайн-загрузчик).
	CopyIn(ctx context.Context, films []*model.Film) (int64, error)
}

// Вставка через pgx CopyFrom требует доступа к протокольному COPY,
// которого нет в DBTX, поэтому film-репозиторий принимает отдельный
// интерфейс с CopyFrom (реализуется *pgxpool.Pool и pgx.Tx).
type filmDB interface {
	DBTX
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// filmRepo — реализация FilmRepository.
type filmRepo struct {
	db filmDB
}

// NewFilmRepository создаёт репозиторий фильмов.
func NewFilmRepository(db filmDB) FilmRepository {
	return &filmRepo{db: db}
}

const filmColumns = `kinopoisk_id, name, slogan, description, genres, rating_imdb, year, film_length, close_film_ids`

func (r *filmRepo) GetByID(ctx context.Context, kinopoiskID int64) (*model.Film, error) {
	query := fmt.Sprintf(`SELECT %s FROM films WHERE kinopoisk_id = $1`, filmColumns)

	f := &model.Film{}
	err := r.db.QueryRow(ctx, query, kinopoiskID).Scan(
		&f.KinopoiskID, &f.Name, &f.Slogan, &f.Description, &f.Genres,
		&f.RatingIMDB, &f.Year, &f.FilmLength, &f.CloseFilmIDs,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения фильма: %w", err)
	}
	return f, nil
}

func (r *filmRepo) GetByIDs(ctx context.Context, kinopoiskIDs []int64) ([]*model.Film, error) {
	if len(kinopoiskIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM films WHERE kinopoisk_id = ANY($1)`, filmColumns)

	rows, err := r.db.Query(ctx, query, kinopoiskIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения фильмов по списку id: %w", err)
	}
	defer rows.Close()

	return scanFilms(rows)
}

func (r *filmRepo) TopByGenre(ctx context.Context, genre string, count int) ([]*model.Film, error) {
	// kinopoisk_id в ORDER BY — детерминированный порядок при равных рейтингах
	query := fmt.Sprintf(`
		SELECT %s
		FROM films
		WHERE genres @> ARRAY[$1]::varchar(32)[]
		ORDER BY rating_imdb DESC NULLS LAST, kinopoisk_id
		LIMIT $2`, filmColumns)

	rows, err := r.db.Query(ctx, query, genre, count)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения топа фильмов по жанру: %w", err)
	}
	defer rows.Close()

	return scanFilms(rows)
}

func (r *filmRepo) Exists(ctx context.Context, kinopoiskID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM films WHERE kinopoisk_id = $1)`, kinopoiskID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки существования фильма: %w", err)
	}
	return exists, nil
}

func (r *filmRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM films`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта фильмов: %w", err)
	}
	return count, nil
}

func (r *filmRepo) CopyIn(ctx context.Context, films []*model.Film) (int64, error) {
	columns := []string{
		"kinopoisk_id", "name", "slogan", "description", "genres",
		"rating_imdb", "year", "film_length", "close_film_ids",
	}

	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"films"},
		columns,
		pgx.CopyFromSlice(len(films), func(i int) ([]any, error) {
			f := films[i]
			return []any{
				f.KinopoiskID, f.Name, f.Slogan, f.Description, f.Genres,
				f.RatingIMDB, f.Year, f.FilmLength, f.CloseFilmIDs,
			}, nil
		}),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return n, ErrConflict
		}
		return n, fmt.Errorf("ошибка массовой вставки фильмов: %w", err)
	}
	return n, nil
}

// scanFilms сканирует все строки выборки films.
func scanFilms(rows pgx.Rows) ([]*model.Film, error) {
	var result []*model.Film
	for rows.Next() {
		f := &model.Film{}
		if err := rows.Scan(
			&f.KinopoiskID, &f.Name, &f.Slogan, &f.Description, &f.Genres,
			&f.RatingIMDB, &f.Year, &f.FilmLength, &f.CloseFilmIDs,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования фильма: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}
