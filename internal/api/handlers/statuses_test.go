package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/posmotrim/posmotrim-api/internal/domain/model"
)

// seedUser добавляет пользователя в фейковый репозиторий.
func seedUser(t *testing.T, env *testEnv, username string) *model.User {
	t.Helper()

	u := &model.User{KeycloakUserID: "kc-" + username, Username: username}
	if err := env.users.Create(context.Background(), u); err != nil {
		t.Fatalf("создание пользователя %q: %v", username, err)
	}
	return u
}

// statusUpdateBody собирает тело POST /statuses/update, совпадающее с путём.
func statusUpdateBody(userID, filmID int64, status string, rating int) string {
	return fmt.Sprintf(`{"user_id": %d, "film_id": %d, "status": %q, "rating": %d}`,
		userID, filmID, status, rating)
}

func TestGetUserStatuses_UserDoesNotExist(t *testing.T) {
	env := newTestEnv(testFilms()...)

	rec := env.do(t, http.MethodGet, "/statuses/42", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d, ожидается 404", rec.Code)
	}
	if errResp := decodeError(t, rec); errResp.Error.Message != "User does not exist" {
		t.Errorf("сообщение = %q, ожидается \"User does not exist\"", errResp.Error.Message)
	}
}

func TestGetUserStatuses_Empty(t *testing.T) {
	env := newTestEnv(testFilms()...)
	u := seedUser(t, env, "alice")

	// Пользователь существует, но статусов нет
	rec := env.do(t, http.MethodGet, fmt.Sprintf("/statuses/%d", u.ID), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d, ожидается 404", rec.Code)
	}
	if errResp := decodeError(t, rec); errResp.Error.Message != "User has no statuses" {
		t.Errorf("сообщение = %q, ожидается \"User has no statuses\"", errResp.Error.Message)
	}
}

func TestGetUserStatusesByStatus_Empty(t *testing.T) {
	env := newTestEnv(testFilms()...)
	u := seedUser(t, env, "alice")

	// У пользователя есть статус, но не с запрошенным значением
	rec := env.do(t, http.MethodPost,
		fmt.Sprintf("/statuses/update/%d/301/watching/5", u.ID),
		statusUpdateBody(u.ID, 301, "watching", 5))
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert статус = %d, ожидается 200; тело: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet,
		fmt.Sprintf("/statuses/get_user_statuses_by_status/%d/watched", u.ID), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d, ожидается 404", rec.Code)
	}
	if errResp := decodeError(t, rec); errResp.Error.Message != "User has no statuses" {
		t.Errorf("сообщение = %q, ожидается \"User has no statuses\"", errResp.Error.Message)
	}

	// По совпадающему фильтру статус возвращается
	rec = env.do(t, http.MethodGet,
		fmt.Sprintf("/statuses/get_user_statuses_by_status/%d/watching", u.ID), "")
	if rec.Code != http.StatusOK {
		t.Errorf("статус = %d, ожидается 200", rec.Code)
	}
}

func TestGetFilmStatus_NotFound(t *testing.T) {
	env := newTestEnv(testFilms()...)
	u := seedUser(t, env, "alice")

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/statuses/%d/301", u.ID), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d, ожидается 404", rec.Code)
	}
	if errResp := decodeError(t, rec); errResp.Error.Message != "The film status does not exist" {
		t.Errorf("сообщение = %q, ожидается \"The film status does not exist\"", errResp.Error.Message)
	}
}

func TestUpdateFilmStatus_PathBodyMismatch(t *testing.T) {
	env := newTestEnv(testFilms()...)
	u := seedUser(t, env, "alice")

	// В пути rating=8, в теле rating=9
	rec := env.do(t, http.MethodPost,
		fmt.Sprintf("/statuses/update/%d/301/watched/8", u.ID),
		statusUpdateBody(u.ID, 301, "watched", 9))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидается 400", rec.Code)
	}
	if errResp := decodeError(t, rec); errResp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("код = %q, ожидается VALIDATION_ERROR", errResp.Error.Code)
	}

	// Статус не записан
	count, _ := env.statuses.CountByUser(context.Background(), u.ID)
	if count != 0 {
		t.Errorf("в хранилище %d статусов, ожидается 0", count)
	}
}

func TestUpdateFilmStatus_NotFound(t *testing.T) {
	env := newTestEnv(testFilms()...)
	u := seedUser(t, env, "alice")

	// Несуществующий фильм
	rec := env.do(t, http.MethodPost,
		fmt.Sprintf("/statuses/update/%d/999/watched/8", u.ID),
		statusUpdateBody(u.ID, 999, "watched", 8))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d, ожидается 404", rec.Code)
	}
	if errResp := decodeError(t, rec); errResp.Error.Message != "Film does not exist" {
		t.Errorf("сообщение = %q, ожидается \"Film does not exist\"", errResp.Error.Message)
	}

	// Несуществующий пользователь
	rec = env.do(t, http.MethodPost,
		"/statuses/update/42/301/watched/8",
		statusUpdateBody(42, 301, "watched", 8))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d, ожидается 404", rec.Code)
	}
	if errResp := decodeError(t, rec); errResp.Error.Message != "User does not exist" {
		t.Errorf("сообщение = %q, ожидается \"User does not exist\"", errResp.Error.Message)
	}
}

func TestUpdateFilmStatus_InvalidInput(t *testing.T) {
	env := newTestEnv(testFilms()...)
	u := seedUser(t, env, "alice")

	// Недопустимое значение статуса
	rec := env.do(t, http.MethodPost,
		fmt.Sprintf("/statuses/update/%d/301/stopped/8", u.ID),
		statusUpdateBody(u.ID, 301, "stopped", 8))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("недопустимый статус: код = %d, ожидается 400", rec.Code)
	}

	// Рейтинг вне диапазона
	rec = env.do(t, http.MethodPost,
		fmt.Sprintf("/statuses/update/%d/301/watched/11", u.ID),
		statusUpdateBody(u.ID, 301, "watched", 11))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("рейтинг 11: код = %d, ожидается 400", rec.Code)
	}
}

// TestStatusLifecycle проверяет полный цикл: создание статуса, чтение,
// повторный upsert с новым рейтингом, итоговая единственность записи.
func TestStatusLifecycle(t *testing.T) {
	env := newTestEnv(testFilms()...)
	u := seedUser(t, env, "alice")

	rec := env.do(t, http.MethodPost,
		fmt.Sprintf("/statuses/update/%d/301/watched/8", u.ID),
		statusUpdateBody(u.ID, 301, "watched", 8))
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert: код = %d, ожидается 200; тело: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/statuses/%d/301", u.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: код = %d, ожидается 200", rec.Code)
	}
	var st model.FilmStatus
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("декодирование статуса: %v", err)
	}
	if st.Status != model.StatusWatched || st.Rating != 8 {
		t.Errorf("статус = %s/%d, ожидается watched/8", st.Status, st.Rating)
	}

	// Повторный upsert с новым рейтингом
	rec = env.do(t, http.MethodPost,
		fmt.Sprintf("/statuses/update/%d/301/watched/9", u.ID),
		statusUpdateBody(u.ID, 301, "watched", 9))
	if rec.Code != http.StatusOK {
		t.Fatalf("повторный upsert: код = %d, ожидается 200", rec.Code)
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/statuses/%d/301", u.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get после обновления: код = %d, ожидается 200", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("декодирование статуса: %v", err)
	}
	if st.Rating != 9 {
		t.Errorf("рейтинг после обновления = %d, ожидается 9", st.Rating)
	}

	// В хранилище ровно одна запись
	count, err := env.statuses.CountByUser(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("CountByUser() ошибка: %v", err)
	}
	if count != 1 {
		t.Errorf("в хранилище %d статусов, ожидается 1", count)
	}
}
