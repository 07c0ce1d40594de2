package model

import "time"

// User — профиль пользователя сервиса.
// Учётные данные (email, пароль) хранятся в Keycloak; локально — только
// профиль и связь с Keycloak-аккаунтом.
type User struct {
	// ID — локальный идентификатор
	ID int64 `json:"id"`
	// KeycloakUserID — идентификатор пользователя в Keycloak (sub из JWT)
	KeycloakUserID string `json:"-"`
	// Username — уникальное имя пользователя
	Username string `json:"username"`
	// Email — адрес электронной почты (из Keycloak, в БД не хранится)
	Email string `json:"email,omitempty"`
	// Birthday — дата рождения
	Birthday time.Time `json:"birthday"`
	// CreatedAt — время регистрации
	CreatedAt time.Time `json:"created_at"`
}
