// client.go — HTTP-клиент к Keycloak Admin REST API.
// Реализует автоматическое получение service account token через Client Credentials flow,
// кэширование токена (обновление за 30s до expiration).
// Операции: CreateUser, GetUser, GetUserByEmail, UpdateUserEmail, DeleteUser,
// Login (password grant), SendVerifyEmail, SendResetPasswordEmail, RealmInfo.
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrInvalidCredentials — Keycloak отклонил логин/пароль при password grant.
var ErrInvalidCredentials = fmt.Errorf("неверные учётные данные")

// Client — HTTP-клиент к Keycloak Admin REST API.
type Client struct {
	baseURL       string // Базовый URL Keycloak (без trailing slash)
	realm         string // Имя realm
	clientID      string // Client ID для Client Credentials flow
	clientSecret  string // Client Secret
	loginClientID string // Публичный client для password grant (логин пользователей)

	httpClient *http.Client
	logger     *slog.Logger

	// Кэш токена доступа
	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New создаёт клиент к Keycloak Admin REST API.
// baseURL — базовый URL Keycloak (например, https://keycloak.posmotrim.lan).
// realm — имя realm (например, posmotrim).
// clientID, clientSecret — credentials для Client Credentials flow.
// loginClientID — публичный клиент для password grant.
// httpClient — HTTP-клиент (может содержать TLS конфигурацию).
func New(baseURL, realm, clientID, clientSecret, loginClientID string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		realm:         realm,
		clientID:      clientID,
		clientSecret:  clientSecret,
		loginClientID: loginClientID,
		httpClient:    httpClient,
		logger:        logger.With(slog.String("component", "keycloak_client")),
	}
}

// --- Аутентификация ---

// tokenEndpoint возвращает URL endpoint'а получения токена.
func (c *Client) tokenEndpoint() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.baseURL, c.realm)
}

// adminBaseURL возвращает базовый URL Admin REST API для realm.
func (c *Client) adminBaseURL() string {
	return fmt.Sprintf("%s/admin/realms/%s", c.baseURL, c.realm)
}

// getToken возвращает актуальный access token, обновляя при необходимости.
// Токен обновляется за 30 секунд до истечения.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Проверяем кэш: если токен валиден ещё 30 секунд — используем его
	if c.accessToken != "" && time.Now().Add(30*time.Second).Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	// Запрашиваем новый токен через Client Credentials flow
	token, err := c.requestToken(ctx)
	if err != nil {
		return "", err
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	c.logger.Debug("Keycloak токен обновлён",
		slog.Time("expires_at", c.tokenExpiry),
	)

	return c.accessToken, nil
}

// requestToken выполняет Client Credentials flow.
func (c *Client) requestToken(ctx context.Context) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("создание запроса токена: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос токена Keycloak: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Keycloak вернул статус %d при запросе токена: %s", resp.StatusCode, string(body))
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("декодирование токена Keycloak: %w", err)
	}

	return &token, nil
}

// Login выполняет Resource Owner Password Credentials flow от имени пользователя.
// Используется endpoint'ом /auth/jwt/login. Возвращает ErrInvalidCredentials
// при отклонённых учётных данных.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type": {"password"},
		"client_id":  {c.loginClientID},
		"username":   {username},
		"password":   {password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("создание запроса логина: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос логина Keycloak: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return nil, ErrInvalidCredentials
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Keycloak вернул статус %d при логине: %s", resp.StatusCode, string(body))
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("декодирование токена Keycloak: %w", err)
	}

	return &token, nil
}

// --- HTTP helpers ---

// doAuthorized выполняет HTTP-запрос к Admin REST API с авторизацией.
func (c *Client) doAuthorized(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение токена: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("сериализация тела запроса: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	reqURL := c.adminBaseURL() + path
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// decodeResponse декодирует JSON ответ в target.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Keycloak API вернул статус %d: %s", resp.StatusCode, string(body))
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("декодирование ответа Keycloak: %w", err)
		}
	}

	return nil
}

// checkResponse проверяет статус ответа (для запросов без тела ответа).
func checkResponse(resp *http.Response, expectedStatus int) error {
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Keycloak API вернул статус %d (ожидался %d): %s",
			resp.StatusCode, expectedStatus, string(body))
	}

	return nil
}

// --- Users API ---

// CreateUser создаёт пользователя в Keycloak с паролем.
// Возвращает Keycloak user ID созданного пользователя.
func (c *Client) CreateUser(ctx context.Context, username, email, password string) (string, error) {
	createReq := userCreateRequest{
		Username:      username,
		Email:         email,
		Enabled:       true,
		EmailVerified: false,
		Credentials: []credential{
			{Type: "password", Value: password, Temporary: false},
		},
	}

	resp, err := c.doAuthorized(ctx, http.MethodPost, "/users", createReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("CreateUser: пользователь уже существует: %s", string(body))
	}
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("CreateUser: Keycloak вернул статус %d: %s", resp.StatusCode, string(body))
	}

	// Keycloak возвращает Location header с ID созданного ресурса
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("CreateUser: отсутствует Location header в ответе")
	}

	// Извлекаем ID из Location: .../users/{id}
	parts := strings.Split(location, "/")
	if len(parts) == 0 {
		return "", fmt.Errorf("CreateUser: не удалось извлечь ID из Location: %s", location)
	}

	return parts[len(parts)-1], nil
}

// GetUser возвращает пользователя по Keycloak ID.
func (c *Client) GetUser(ctx context.Context, id string) (*KeycloakUser, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/users/"+id, nil)
	if err != nil {
		return nil, err
	}

	var user KeycloakUser
	if err := decodeResponse(resp, &user); err != nil {
		return nil, fmt.Errorf("GetUser: %w", err)
	}

	return &user, nil
}

// GetUserByEmail возвращает пользователя по точному совпадению email.
// Возвращает nil, nil если пользователь не найден.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*KeycloakUser, error) {
	path := "/users?exact=true&email=" + url.QueryEscape(email)

	resp, err := c.doAuthorized(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var users []KeycloakUser
	if err := decodeResponse(resp, &users); err != nil {
		return nil, fmt.Errorf("GetUserByEmail: %w", err)
	}

	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// UpdateUserEmail изменяет email пользователя в Keycloak.
func (c *Client) UpdateUserEmail(ctx context.Context, id, email string) error {
	resp, err := c.doAuthorized(ctx, http.MethodPut, "/users/"+id, userUpdateRequest{Email: &email})
	if err != nil {
		return err
	}

	return checkResponse(resp, http.StatusNoContent)
}

// DeleteUser удаляет пользователя в Keycloak.
// Используется как компенсация при неудачной регистрации.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	resp, err := c.doAuthorized(ctx, http.MethodDelete, "/users/"+id, nil)
	if err != nil {
		return err
	}

	return checkResponse(resp, http.StatusNoContent)
}

// SendVerifyEmail отправляет пользователю письмо подтверждения email.
func (c *Client) SendVerifyEmail(ctx context.Context, id string) error {
	resp, err := c.doAuthorized(ctx, http.MethodPut, "/users/"+id+"/send-verify-email", nil)
	if err != nil {
		return err
	}

	return checkResponse(resp, http.StatusNoContent)
}

// SendResetPasswordEmail отправляет пользователю письмо сброса пароля
// (required action UPDATE_PASSWORD).
func (c *Client) SendResetPasswordEmail(ctx context.Context, id string) error {
	resp, err := c.doAuthorized(ctx, http.MethodPut, "/users/"+id+"/execute-actions-email", []string{"UPDATE_PASSWORD"})
	if err != nil {
		return err
	}

	return checkResponse(resp, http.StatusNoContent)
}

// --- Realm API ---

// RealmInfo возвращает информацию о realm.
func (c *Client) RealmInfo(ctx context.Context) (*RealmRepresentation, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "", nil)
	if err != nil {
		return nil, err
	}

	var realm RealmRepresentation
	if err := decodeResponse(resp, &realm); err != nil {
		return nil, fmt.Errorf("RealmInfo: %w", err)
	}

	return &realm, nil
}

// --- Readiness checker ---

// CheckReady проверяет доступность Keycloak через realm info.
// Реализует handlers.ReadinessChecker.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	realm, err := c.RealmInfo(ctx)
	if err != nil {
		return "fail", fmt.Sprintf("Keycloak недоступен: %v", err)
	}

	if !realm.Enabled {
		return "degraded", fmt.Sprintf("Realm %s отключён", realm.Realm)
	}

	return "ok", fmt.Sprintf("Realm %s доступен", realm.Realm)
}
