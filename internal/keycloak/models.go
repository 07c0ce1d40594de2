// Пакет keycloak — HTTP-клиент к Keycloak Admin REST API.
// models.go — модели данных Keycloak.
package keycloak

import "time"

// TokenResponse — ответ на запрос токена (Client Credentials или Password grant).
type TokenResponse struct {
	AccessToken  string `json:"access_token"` //nolint:gosec // G117: структура токена OAuth2
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// KeycloakUser — пользователь в Keycloak.
type KeycloakUser struct { //nolint:revive // stuttering допустим — внешний API Keycloak
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Enabled       bool   `json:"enabled"`
	CreatedAt     int64  `json:"createdTimestamp"`
	EmailVerified bool   `json:"emailVerified"`
}

// CreatedAtTime возвращает CreatedAt как time.Time.
// Keycloak хранит timestamp в миллисекундах.
func (u *KeycloakUser) CreatedAtTime() time.Time {
	return time.UnixMilli(u.CreatedAt)
}

// RealmRepresentation — краткая информация о realm.
type RealmRepresentation struct {
	Realm   string `json:"realm"`
	Enabled bool   `json:"enabled"`
}

// credential — парольный credential при создании пользователя.
type credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// userCreateRequest — запрос на создание пользователя в Keycloak.
// Поля соответствуют Keycloak Admin REST API.
type userCreateRequest struct {
	Username      string       `json:"username"`
	Email         string       `json:"email"`
	Enabled       bool         `json:"enabled"`
	EmailVerified bool         `json:"emailVerified"`
	Credentials   []credential `json:"credentials"`
}

// userUpdateRequest — запрос на обновление пользователя в Keycloak.
type userUpdateRequest struct {
	Email *string `json:"email,omitempty"`
}
