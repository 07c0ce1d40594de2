package loader

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/posmotrim/posmotrim-api/internal/domain/model"
	"github.com/posmotrim/posmotrim-api/internal/repository"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// captureRepo сохраняет переданные в CopyIn фильмы.
type captureRepo struct {
	films []*model.Film
}

func (r *captureRepo) GetByID(_ context.Context, _ int64) (*model.Film, error) {
	return nil, repository.ErrNotFound
}

func (r *captureRepo) GetByIDs(_ context.Context, _ []int64) ([]*model.Film, error) {
	return nil, nil
}

func (r *captureRepo) TopByGenre(_ context.Context, _ string, _ int) ([]*model.Film, error) {
	return nil, nil
}

func (r *captureRepo) Exists(_ context.Context, _ int64) (bool, error) {
	return false, nil
}

func (r *captureRepo) Count(_ context.Context) (int, error) {
	return len(r.films), nil
}

func (r *captureRepo) CopyIn(_ context.Context, films []*model.Film) (int64, error) {
	r.films = films
	return int64(len(films)), nil
}

// writeFile записывает содержимое во временный файл.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const filmsCSV = `kinopoiskId,name,slogan,description,genres,ratingImdb,year,filmLength,extra
301,Матрица,Добро пожаловать в реальный мир,Жизнь Томаса Андерсона разделена на две части,"['фантастика', 'боевик']",8.7,1999,136,ignored
302,Матрица: Перезагрузка,nan,,"['фантастика']",7.2,2003,138.0,ignored
303,"Матрица: Революция",,Описание,"[]",,2003,,ignored
`

const closeCSV = `close_film_ids
"[302, 303]"
"[301]"
"[]"
`

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	filmsPath := writeFile(t, dir, "films_data.csv", filmsCSV)
	closePath := writeFile(t, dir, "close_films.csv", closeCSV)

	repo := &captureRepo{}
	l := New(repo, testLogger())

	inserted, err := l.Load(context.Background(), filmsPath, closePath)
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if inserted != 3 {
		t.Errorf("inserted = %d, ожидается 3", inserted)
	}
	if len(repo.films) != 3 {
		t.Fatalf("передано %d фильмов, ожидается 3", len(repo.films))
	}

	first := repo.films[0]
	if first.KinopoiskID != 301 {
		t.Errorf("KinopoiskID = %d, ожидается 301", first.KinopoiskID)
	}
	if first.Name != "Матрица" {
		t.Errorf("Name = %q, ожидается Матрица", first.Name)
	}
	if first.Slogan == nil || *first.Slogan != "Добро пожаловать в реальный мир" {
		t.Errorf("Slogan = %v, ожидается непустой слоган", first.Slogan)
	}
	if !reflect.DeepEqual(first.Genres, []string{"фантастика", "боевик"}) {
		t.Errorf("Genres = %v, ожидается [фантастика боевик]", first.Genres)
	}
	if first.RatingIMDB == nil || *first.RatingIMDB != 8.7 {
		t.Errorf("RatingIMDB = %v, ожидается 8.7", first.RatingIMDB)
	}
	if first.Year != 1999 {
		t.Errorf("Year = %d, ожидается 1999", first.Year)
	}
	if first.FilmLength == nil || *first.FilmLength != 136 {
		t.Errorf("FilmLength = %v, ожидается 136", first.FilmLength)
	}
	if !reflect.DeepEqual(first.CloseFilmIDs, []int64{302, 303}) {
		t.Errorf("CloseFilmIDs = %v, ожидается [302 303]", first.CloseFilmIDs)
	}

	// Вторая строка: "nan" и пустая ячейка становятся NULL,
	// длительность записана как float
	second := repo.films[1]
	if second.Slogan != nil {
		t.Errorf("Slogan = %v, ожидается nil для ячейки nan", *second.Slogan)
	}
	if second.Description != nil {
		t.Errorf("Description = %v, ожидается nil для пустой ячейки", *second.Description)
	}
	if second.FilmLength == nil || *second.FilmLength != 138 {
		t.Errorf("FilmLength = %v, ожидается 138 из \"138.0\"", second.FilmLength)
	}
	if !reflect.DeepEqual(second.CloseFilmIDs, []int64{301}) {
		t.Errorf("CloseFilmIDs = %v, ожидается [301]", second.CloseFilmIDs)
	}

	// Третья строка: пустой список жанров, нет рейтинга и длительности
	third := repo.films[2]
	if len(third.Genres) != 0 {
		t.Errorf("Genres = %v, ожидается пустой список", third.Genres)
	}
	if third.RatingIMDB != nil {
		t.Errorf("RatingIMDB = %v, ожидается nil", *third.RatingIMDB)
	}
	if third.FilmLength != nil {
		t.Errorf("FilmLength = %v, ожидается nil", *third.FilmLength)
	}
	if len(third.CloseFilmIDs) != 0 {
		t.Errorf("CloseFilmIDs = %v, ожидается пустой список", third.CloseFilmIDs)
	}
}

func TestLoader_LoadRowCountMismatch(t *testing.T) {
	dir := t.TempDir()
	filmsPath := writeFile(t, dir, "films_data.csv", filmsCSV)
	closePath := writeFile(t, dir, "close_films.csv", "close_film_ids\n\"[302]\"\n")

	l := New(&captureRepo{}, testLogger())

	_, err := l.Load(context.Background(), filmsPath, closePath)
	if err == nil {
		t.Fatal("Load() не вернул ошибку при несовпадении числа строк")
	}
	if !strings.Contains(err.Error(), "не совпадает") {
		t.Errorf("неожиданная ошибка: %v", err)
	}
}

func TestLoader_LoadRaggedCloseFilmsRow(t *testing.T) {
	dir := t.TempDir()
	filmsPath := writeFile(t, dir, "films_data.csv", filmsCSV)
	// Колонка close_film_ids вторая, а в строке данных всего одна ячейка
	closePath := writeFile(t, dir, "close_films.csv",
		"extra,close_film_ids\nx,\"[302]\"\nx\nx,\"[303]\"\n")

	l := New(&captureRepo{}, testLogger())

	_, err := l.Load(context.Background(), filmsPath, closePath)
	if err == nil {
		t.Fatal("Load() не вернул ошибку для укороченной строки")
	}
	if !strings.Contains(err.Error(), "close_film_ids") {
		t.Errorf("неожиданная ошибка: %v", err)
	}
	if !strings.Contains(err.Error(), "строка 3") {
		t.Errorf("ошибка не указывает номер строки: %v", err)
	}
}

func TestLoader_LoadMissingColumn(t *testing.T) {
	dir := t.TempDir()
	filmsPath := writeFile(t, dir, "films_data.csv", "kinopoiskId,name\n301,Матрица\n")
	closePath := writeFile(t, dir, "close_films.csv", closeCSV)

	l := New(&captureRepo{}, testLogger())

	_, err := l.Load(context.Background(), filmsPath, closePath)
	if err == nil {
		t.Fatal("Load() не вернул ошибку при отсутствии колонок")
	}
	if !strings.Contains(err.Error(), "отсутствует колонка") {
		t.Errorf("неожиданная ошибка: %v", err)
	}
}

func TestLoader_LoadMissingFile(t *testing.T) {
	l := New(&captureRepo{}, testLogger())

	_, err := l.Load(context.Background(), "/nonexistent/films.csv", "/nonexistent/close.csv")
	if err == nil {
		t.Fatal("Load() не вернул ошибку для несуществующего файла")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("неожиданная ошибка: %v", err)
	}
}

func TestParseStringList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"одиночные кавычки", "['драма', 'комедия']", []string{"драма", "комедия"}, false},
		{"двойные кавычки", `["драма", "комедия"]`, []string{"драма", "комедия"}, false},
		{"запятая внутри кавычек", "['то, да сё', 'драма']", []string{"то, да сё", "драма"}, false},
		{"пустой список", "[]", []string{}, false},
		{"один элемент", "['мюзикл']", []string{"мюзикл"}, false},
		{"не список", "драма", nil, true},
		{"незакрытая кавычка", "['драма]", nil, true},
		{"элемент без кавычек", "[драма]", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStringList(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseStringList(%q) не вернул ошибку", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseStringList(%q) вернул ошибку: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseStringList(%q) = %v, ожидается %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseIntList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int64
		wantErr bool
	}{
		{"обычный список", "[301, 302, 303]", []int64{301, 302, 303}, false},
		{"без пробелов", "[301,302]", []int64{301, 302}, false},
		{"пустой список", "[]", []int64{}, false},
		{"не число", "[301, abc]", nil, true},
		{"не список", "301", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIntList(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseIntList(%q) не вернул ошибку", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseIntList(%q) вернул ошибку: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseIntList(%q) = %v, ожидается %v", tt.input, got, tt.want)
			}
		})
	}
}
