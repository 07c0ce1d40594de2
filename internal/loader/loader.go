// Пакет loader — офлайн-загрузчик каталога фильмов из CSV-дампов Кинопоиска.
//
// Входные файлы:
//   - films_data.csv — карточки фильмов (kinopoiskId, name, slogan,
//     description, genres, ratingImdb, year, filmLength);
//   - close_films.csv — предвычисленные списки похожих фильмов
//     (close_film_ids), соединяются с фильмами по порядку строк.
//
// Ячейки genres и close_film_ids записаны как python-литералы списков:
// «['драма', 'комедия']», «[301, 302]».
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/posmotrim/posmotrim-api/internal/domain/model"
	"github.com/posmotrim/posmotrim-api/internal/repository"
)

// Loader — загрузчик каталога фильмов.
type Loader struct {
	films  repository.FilmRepository
	logger *slog.Logger
}

// New создаёт загрузчик.
func New(films repository.FilmRepository, logger *slog.Logger) *Loader {
	return &Loader{
		films:  films,
		logger: logger.With(slog.String("component", "loader")),
	}
}

// Load читает оба CSV-файла, соединяет их по порядку строк и массово
// вставляет фильмы в БД. Возвращает количество вставленных записей.
func (l *Loader) Load(ctx context.Context, filmsCSVPath, closeCSVPath string) (int64, error) {
	films, err := l.readFilms(filmsCSVPath)
	if err != nil {
		return 0, fmt.Errorf("чтение %s: %w", filmsCSVPath, err)
	}

	closeIDs, err := l.readCloseFilms(closeCSVPath)
	if err != nil {
		return 0, fmt.Errorf("чтение %s: %w", closeCSVPath, err)
	}

	if len(films) != len(closeIDs) {
		return 0, fmt.Errorf("количество строк не совпадает: %d фильмов, %d списков похожих",
			len(films), len(closeIDs))
	}

	// Соединение по порядку строк, как в исходных дампах
	for i, f := range films {
		f.CloseFilmIDs = closeIDs[i]
	}

	l.logger.Info("CSV-файлы прочитаны", slog.Int("films", len(films)))

	inserted, err := l.films.CopyIn(ctx, films)
	if err != nil {
		return 0, fmt.Errorf("массовая вставка фильмов: %w", err)
	}

	l.logger.Info("Таблица films успешно заполнена", slog.Int64("inserted", inserted))
	return inserted, nil
}

// readFilms читает films_data.csv. Колонки выбираются по заголовку,
// camelCase-имена дампа переводятся в snake_case схемы.
func (l *Loader) readFilms(path string) ([]*model.Film, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("чтение заголовка: %w", err)
	}

	col, err := columnIndex(header,
		"kinopoiskId", "name", "slogan", "description",
		"genres", "ratingImdb", "year", "filmLength")
	if err != nil {
		return nil, err
	}

	var films []*model.Film
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("строка %d: %w", line, err)
		}
		line++

		film, err := parseFilmRecord(record, col)
		if err != nil {
			return nil, fmt.Errorf("строка %d: %w", line, err)
		}
		films = append(films, film)
	}

	return films, nil
}

// readCloseFilms читает close_films.csv и возвращает списки похожих
// фильмов в порядке строк файла.
func (l *Loader) readCloseFilms(path string) ([][]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("чтение заголовка: %w", err)
	}

	col, err := columnIndex(header, "close_film_ids")
	if err != nil {
		return nil, err
	}

	var result [][]int64
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("строка %d: %w", line, err)
		}
		line++

		idx := col["close_film_ids"]
		if idx >= len(record) {
			return nil, fmt.Errorf("строка %d: отсутствует ячейка close_film_ids", line)
		}

		ids, err := parseIntList(record[idx])
		if err != nil {
			return nil, fmt.Errorf("строка %d: close_film_ids: %w", line, err)
		}
		result = append(result, ids)
	}

	return result, nil
}

// columnIndex строит отображение имени колонки в её индекс.
// Все перечисленные колонки обязаны присутствовать в заголовке.
func columnIndex(header []string, names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}

	col := make(map[string]int, len(names))
	for _, name := range names {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("отсутствует колонка %q", name)
		}
		col[name] = i
	}
	return col, nil
}

// parseFilmRecord разбирает одну строку films_data.csv.
func parseFilmRecord(record []string, col map[string]int) (*model.Film, error) {
	field := func(name string) string {
		i := col[name]
		if i >= len(record) {
			return ""
		}
		return record[i]
	}

	kinopoiskID, err := strconv.ParseInt(field("kinopoiskId"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("kinopoiskId: %w", err)
	}

	year, err := strconv.Atoi(field("year"))
	if err != nil {
		return nil, fmt.Errorf("year: %w", err)
	}

	genres, err := parseStringList(field("genres"))
	if err != nil {
		return nil, fmt.Errorf("genres: %w", err)
	}

	film := &model.Film{
		KinopoiskID: kinopoiskID,
		Name:        field("name"),
		Slogan:      nullableString(field("slogan")),
		Description: nullableString(field("description")),
		Genres:      genres,
		Year:        year,
	}

	if raw := field("ratingImdb"); !isEmptyCell(raw) {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("ratingImdb: %w", err)
		}
		film.RatingIMDB = &rating
	}

	if raw := field("filmLength"); !isEmptyCell(raw) {
		length, err := strconv.Atoi(raw)
		if err != nil {
			// В дампе длительность иногда записана как float ("150.0")
			f, ferr := strconv.ParseFloat(raw, 64)
			if ferr != nil {
				return nil, fmt.Errorf("filmLength: %w", err)
			}
			length = int(f)
		}
		film.FilmLength = &length
	}

	return film, nil
}

// isEmptyCell сообщает, что ячейка пуста (NULL в схеме).
// Пустая строка и pandas-овский "nan" считаются пустыми.
func isEmptyCell(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "nan" || s == "NaN"
}

func nullableString(s string) *string {
	if isEmptyCell(s) {
		return nil
	}
	return &s
}

// parseStringList разбирает python-литерал списка строк:
// «['драма', 'комедия']». Поддерживаются одиночные и двойные кавычки.
func parseStringList(s string) ([]string, error) {
	items, err := splitPyList(s)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		unquoted, err := unquotePyString(item)
		if err != nil {
			return nil, err
		}
		result = append(result, unquoted)
	}
	return result, nil
}

// parseIntList разбирает python-литерал списка целых: «[301, 302]».
func parseIntList(s string) ([]int64, error) {
	items, err := splitPyList(s)
	if err != nil {
		return nil, err
	}

	result := make([]int64, 0, len(items))
	for _, item := range items {
		v, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("элемент %q: %w", item, err)
		}
		result = append(result, v)
	}
	return result, nil
}

// splitPyList снимает внешние скобки и делит элементы по запятым,
// не трогая запятые внутри кавычек.
func splitPyList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("не список: %q", s)
	}

	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, nil
	}

	var items []string
	var sb strings.Builder
	var quote rune

	for _, r := range inner {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			sb.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			sb.WriteRune(r)
		case r == ',':
			items = append(items, strings.TrimSpace(sb.String()))
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("незакрытая кавычка: %q", s)
	}
	items = append(items, strings.TrimSpace(sb.String()))

	return items, nil
}

// unquotePyString снимает одиночные или двойные кавычки с элемента списка.
func unquotePyString(s string) (string, error) {
	if len(s) < 2 {
		return "", fmt.Errorf("не строковый литерал: %q", s)
	}
	first, last := s[0], s[len(s)-1]
	if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
		return s[1 : len(s)-1], nil
	}
	return "", fmt.Errorf("не строковый литерал: %q", s)
}
