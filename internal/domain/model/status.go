package model

import (
	"fmt"
	"time"
)

// WatchStatus — пользовательский статус фильма.
type WatchStatus string

const (
	// StatusWatching — пользователь смотрит фильм.
	StatusWatching WatchStatus = "watching"
	// StatusWatched — пользователь посмотрел фильм.
	StatusWatched WatchStatus = "watched"
	// StatusPlan — пользователь планирует посмотреть фильм.
	StatusPlan WatchStatus = "plan"
	// StatusQuit — пользователь бросил смотреть фильм.
	StatusQuit WatchStatus = "quit"
)

// ParseWatchStatus преобразует строку в WatchStatus.
func ParseWatchStatus(s string) (WatchStatus, error) {
	switch WatchStatus(s) {
	case StatusWatching, StatusWatched, StatusPlan, StatusQuit:
		return WatchStatus(s), nil
	default:
		return "", fmt.Errorf("недопустимый статус %q, допустимые: watching, watched, plan, quit", s)
	}
}

// DisplayName возвращает отображаемое название статуса.
func (s WatchStatus) DisplayName() string {
	switch s {
	case StatusWatching:
		return "Смотрю"
	case StatusWatched:
		return "Посмотрел"
	case StatusPlan:
		return "Буду смотреть"
	case StatusQuit:
		return "Бросил"
	default:
		return string(s)
	}
}

// Границы пользовательского рейтинга.
const (
	RatingMin = 1
	RatingMax = 10
)

// ValidRating проверяет, что рейтинг в диапазоне 1-10.
func ValidRating(rating int) bool {
	return rating >= RatingMin && rating <= RatingMax
}

// FilmStatus — статус и рейтинг, поставленные пользователем фильму.
// На пару (user_id, film_id) существует не более одной записи —
// уникальность обеспечивается ограничением в БД.
type FilmStatus struct {
	// ID — идентификатор записи
	ID int64 `json:"id"`
	// Status — статус просмотра
	Status WatchStatus `json:"status"`
	// Rating — пользовательский рейтинг (1-10)
	Rating int `json:"rating"`
	// FilmID — kinopoisk_id фильма
	FilmID int64 `json:"film_id"`
	// UserID — локальный идентификатор пользователя
	UserID int64 `json:"user_id"`
	// UpdatedAt — время последнего изменения
	UpdatedAt time.Time `json:"updated_at"`
}
