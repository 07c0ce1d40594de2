// errors.go — ошибки бизнес-логики сервисного слоя.
//
// Репозитории возвращают недоменный repository.ErrNotFound; сервисы
// переводят его в конкретную доменную ошибку, чтобы routing-слой мог
// различать «нет фильма», «нет пользователя» и «нет статуса».
package service

import "errors"

var (
	// ErrFilmNotFound — фильм не найден.
	ErrFilmNotFound = errors.New("фильм не найден")
	// ErrUserNotFound — пользователь не найден.
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrStatusNotFound — статус фильма у пользователя не найден.
	ErrStatusNotFound = errors.New("статус не найден")
	// ErrUsernameTaken — имя пользователя уже занято.
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrIDPUnavailable — Identity Provider (Keycloak) недоступен.
	ErrIDPUnavailable = errors.New("Identity Provider недоступен")
	// ErrInvalidCredentials — неверные учётные данные при логине.
	ErrInvalidCredentials = errors.New("неверные учётные данные")
)
