package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// testKeyID — идентификатор ключа для тестов.
const testKeyID = "test-key-psm"

// testIssuer — issuer для тестовых токенов.
const testIssuer = "https://keycloak.test/realms/posmotrim"

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// generateTestKey генерирует RSA ключ для тестов.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	nB64 := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	eB64 := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())

	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   nB64,
				"e":   eB64,
			},
		},
	}

	data, _ := json.Marshal(jwks)
	return data
}

// newTestJWTAuth создаёт JWTAuth с JWKS из сгенерированного ключа.
func newTestJWTAuth(t *testing.T, key *rsa.PrivateKey) *JWTAuth {
	t.Helper()
	jwksJSON := buildJWKSetJSON(&key.PublicKey, testKeyID)
	kf, err := keyfunc.NewJWKSetJSON(jwksJSON)
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}

	return NewJWTAuthWithKeyfunc(kf, testIssuer, testLogger())
}

// generateToken генерирует подписанный JWT с указанными claims.
func generateToken(t *testing.T, key *rsa.PrivateKey, sub, username, email string, expired bool) string {
	t.Helper()

	exp := time.Now().Add(time.Hour)
	if expired {
		exp = time.Now().Add(-time.Hour)
	}

	claims := jwt.MapClaims{
		"sub":                sub,
		"preferred_username": username,
		"email":              email,
		"iss":                testIssuer,
		"exp":                exp.Unix(),
		"iat":                time.Now().Add(-time.Minute).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID

	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("не удалось подписать токен: %v", err)
	}
	return signed
}

// serveWithAuth пропускает запрос через middleware и возвращает записанный ответ
// и claims, дошедшие до обработчика.
func serveWithAuth(jwtAuth *JWTAuth, authHeader string) (*httptest.ResponseRecorder, *AuthClaims) {
	var captured *AuthClaims
	handler := jwtAuth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec, captured
}

func TestJWTAuth_ValidToken(t *testing.T) {
	key := generateTestKey(t)
	jwtAuth := newTestJWTAuth(t, key)

	token := generateToken(t, key, "kc-ivan", "ivan", "ivan@example.com", false)
	rec, claims := serveWithAuth(jwtAuth, "Bearer "+token)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200; тело: %s", rec.Code, rec.Body.String())
	}
	if claims == nil {
		t.Fatal("claims не дошли до обработчика")
	}
	if claims.Subject != "kc-ivan" {
		t.Errorf("Subject = %q, ожидается kc-ivan", claims.Subject)
	}
	if claims.PreferredUsername != "ivan" {
		t.Errorf("PreferredUsername = %q, ожидается ivan", claims.PreferredUsername)
	}
	if claims.Email != "ivan@example.com" {
		t.Errorf("Email = %q, ожидается ivan@example.com", claims.Email)
	}
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	jwtAuth := newTestJWTAuth(t, generateTestKey(t))

	rec, _ := serveWithAuth(jwtAuth, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("статус = %d, ожидается 401", rec.Code)
	}
}

func TestJWTAuth_MalformedHeader(t *testing.T) {
	jwtAuth := newTestJWTAuth(t, generateTestKey(t))

	for _, header := range []string{"Basic abc", "Bearer", "Bearer "} {
		rec, _ := serveWithAuth(jwtAuth, header)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("заголовок %q: статус = %d, ожидается 401", header, rec.Code)
		}
	}
}

func TestJWTAuth_ExpiredToken(t *testing.T) {
	key := generateTestKey(t)
	jwtAuth := newTestJWTAuth(t, key)

	token := generateToken(t, key, "kc-ivan", "ivan", "ivan@example.com", true)
	rec, _ := serveWithAuth(jwtAuth, "Bearer "+token)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("статус = %d, ожидается 401 для просроченного токена", rec.Code)
	}
}

func TestJWTAuth_WrongKey(t *testing.T) {
	jwtAuth := newTestJWTAuth(t, generateTestKey(t))

	// Токен подписан другим ключом
	otherKey := generateTestKey(t)
	token := generateToken(t, otherKey, "kc-ivan", "ivan", "ivan@example.com", false)

	rec, _ := serveWithAuth(jwtAuth, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("статус = %d, ожидается 401 для чужой подписи", rec.Code)
	}
}

func TestJWTAuth_WrongIssuer(t *testing.T) {
	key := generateTestKey(t)
	jwksJSON := buildJWKSetJSON(&key.PublicKey, testKeyID)
	kf, err := keyfunc.NewJWKSetJSON(jwksJSON)
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}
	jwtAuth := NewJWTAuthWithKeyfunc(kf, "https://keycloak.test/realms/other", testLogger())

	token := generateToken(t, key, "kc-ivan", "ivan", "ivan@example.com", false)
	rec, _ := serveWithAuth(jwtAuth, "Bearer "+token)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("статус = %d, ожидается 401 для чужого issuer", rec.Code)
	}
}

func TestJWTAuth_MissingSub(t *testing.T) {
	key := generateTestKey(t)
	jwtAuth := newTestJWTAuth(t, key)

	claims := jwt.MapClaims{
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("не удалось подписать токен: %v", err)
	}

	rec, _ := serveWithAuth(jwtAuth, "Bearer "+signed)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("статус = %d, ожидается 401 для токена без sub", rec.Code)
	}
}

func TestSubjectFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sub := SubjectFromContext(req.Context()); sub != "" {
		t.Errorf("SubjectFromContext() = %q, ожидается пустая строка", sub)
	}
}
