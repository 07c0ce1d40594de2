package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/posmotrim/posmotrim-api/internal/domain/model"
	"github.com/posmotrim/posmotrim-api/internal/repository"
	"github.com/posmotrim/posmotrim-api/internal/service"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// errorEnvelope — формат тела ответа ошибки API.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- In-memory репозитории ---

type fakeFilmRepo struct {
	films map[int64]*model.Film
}

func newFakeFilmRepo(films ...*model.Film) *fakeFilmRepo {
	r := &fakeFilmRepo{films: make(map[int64]*model.Film)}
	for _, f := range films {
		r.films[f.KinopoiskID] = f
	}
	return r
}

func (r *fakeFilmRepo) GetByID(_ context.Context, id int64) (*model.Film, error) {
	f, ok := r.films[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f, nil
}

func (r *fakeFilmRepo) GetByIDs(_ context.Context, ids []int64) ([]*model.Film, error) {
	var result []*model.Film
	for _, id := range ids {
		if f, ok := r.films[id]; ok {
			result = append(result, f)
		}
	}
	return result, nil
}

func (r *fakeFilmRepo) TopByGenre(_ context.Context, genre string, count int) ([]*model.Film, error) {
	var result []*model.Film
	for _, f := range r.films {
		for _, g := range f.Genres {
			if g == genre {
				result = append(result, f)
				break
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		ri, rj := 0.0, 0.0
		if result[i].RatingIMDB != nil {
			ri = *result[i].RatingIMDB
		}
		if result[j].RatingIMDB != nil {
			rj = *result[j].RatingIMDB
		}
		return ri > rj
	})
	if len(result) > count {
		result = result[:count]
	}
	return result, nil
}

func (r *fakeFilmRepo) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := r.films[id]
	return ok, nil
}

func (r *fakeFilmRepo) Count(_ context.Context) (int, error) {
	return len(r.films), nil
}

func (r *fakeFilmRepo) CopyIn(_ context.Context, films []*model.Film) (int64, error) {
	for _, f := range films {
		r.films[f.KinopoiskID] = f
	}
	return int64(len(films)), nil
}

type fakeUserRepo struct {
	users  map[int64]*model.User
	nextID int64
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int64]*model.User)}
	for _, u := range users {
		r.users[u.ID] = u
		if u.ID > r.nextID {
			r.nextID = u.ID
		}
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range r.users {
		if existing.Username == u.Username || existing.KeycloakUserID == u.KeycloakUserID {
			return repository.ErrConflict
		}
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByKeycloakID(_ context.Context, keycloakUserID string) (*model.User, error) {
	for _, u := range r.users {
		if u.KeycloakUserID == keycloakUserID {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) List(_ context.Context) ([]*model.User, error) {
	result := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		result = append(result, u)
	}
	return result, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := r.users[id]
	return ok, nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int, error) {
	return len(r.users), nil
}

type statusKey struct {
	userID int64
	filmID int64
}

type fakeStatusRepo struct {
	statuses map[statusKey]*model.FilmStatus
	nextID   int64
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{statuses: make(map[statusKey]*model.FilmStatus)}
}

func (r *fakeStatusRepo) GetByUserAndFilm(_ context.Context, userID, filmID int64) (*model.FilmStatus, error) {
	st, ok := r.statuses[statusKey{userID, filmID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return st, nil
}

func (r *fakeStatusRepo) ListByUser(_ context.Context, userID int64) ([]*model.FilmStatus, error) {
	result := []*model.FilmStatus{}
	for k, st := range r.statuses {
		if k.userID == userID {
			result = append(result, st)
		}
	}
	return result, nil
}

func (r *fakeStatusRepo) ListByUserAndStatus(_ context.Context, userID int64, status model.WatchStatus) ([]*model.FilmStatus, error) {
	result := []*model.FilmStatus{}
	for k, st := range r.statuses {
		if k.userID == userID && st.Status == status {
			result = append(result, st)
		}
	}
	return result, nil
}

func (r *fakeStatusRepo) Upsert(_ context.Context, st *model.FilmStatus) error {
	key := statusKey{st.UserID, st.FilmID}
	if existing, ok := r.statuses[key]; ok {
		st.ID = existing.ID
	} else {
		r.nextID++
		st.ID = r.nextID
	}
	st.UpdatedAt = time.Now()
	r.statuses[key] = st
	return nil
}

func (r *fakeStatusRepo) CountByUser(_ context.Context, userID int64) (int, error) {
	count := 0
	for k := range r.statuses {
		if k.userID == userID {
			count++
		}
	}
	return count, nil
}

// --- Тестовое окружение ---

// testEnv — обработчик API поверх in-memory репозиториев.
type testEnv struct {
	router   chi.Router
	films    *fakeFilmRepo
	users    *fakeUserRepo
	statuses *fakeStatusRepo
}

// newTestEnv собирает роутер с маршрутами фильмов и статусов
// поверх сервисов на фейковых репозиториях.
func newTestEnv(films ...*model.Film) *testEnv {
	logger := testLogger()

	filmRepo := newFakeFilmRepo(films...)
	userRepo := newFakeUserRepo()
	statusRepo := newFakeStatusRepo()

	filmSvc := service.NewFilmService(filmRepo, nil, logger)
	statusSvc := service.NewStatusService(statusRepo, userRepo, filmRepo, logger)

	h := NewAPIHandler(nil, filmSvc, statusSvc, nil, logger)

	router := chi.NewRouter()
	router.Get("/films/top_films_by_genre/{genre}/{count}", h.GetTopFilmsByGenre)
	router.Get("/films/{film_id}", h.GetFilm)
	router.Get("/films/{film_id}/recommendations", h.GetRecommendations)
	router.Get("/statuses/get_user_statuses_by_status/{user_id}/{film_status}", h.GetUserStatusesByStatus)
	router.Post("/statuses/update/{user_id}/{film_id}/{status}/{rating}", h.UpdateFilmStatus)
	router.Get("/statuses/{user_id}/{film_id}", h.GetFilmStatus)
	router.Get("/statuses/{user_id}", h.GetUserStatuses)

	return &testEnv{
		router:   router,
		films:    filmRepo,
		users:    userRepo,
		statuses: statusRepo,
	}
}

// do выполняет запрос через роутер и возвращает записанный ответ.
func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decodeError разбирает тело ответа ошибки.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()

	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("декодирование тела ошибки: %v; тело: %s", err, rec.Body.String())
	}
	return env
}

// testFilms возвращает набор фильмов для тестов обработчиков.
func testFilms() []*model.Film {
	r1, r2 := 8.7, 7.2
	return []*model.Film{
		{
			KinopoiskID:  301,
			Name:         "Матрица",
			Genres:       []string{"фантастика", "боевик"},
			RatingIMDB:   &r1,
			Year:         1999,
			CloseFilmIDs: []int64{303, 302},
		},
		{
			KinopoiskID:  302,
			Name:         "Матрица: Перезагрузка",
			Genres:       []string{"фантастика"},
			RatingIMDB:   &r2,
			Year:         2003,
			CloseFilmIDs: []int64{301},
		},
		{
			KinopoiskID: 303,
			Name:        "Матрица: Революция",
			Genres:      []string{"фантастика"},
			Year:        2003,
		},
	}
}
