package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-session-auth-service/internal/domain"
	"go-session-auth-service/internal/http/handler"
	"go-session-auth-service/internal/http/middleware"
	"go-session-auth-service/internal/http/router"
	"go-session-auth-service/internal/repository"
	"go-session-auth-service/internal/security"
	"go-session-auth-service/internal/service"
)

type testServer struct {
	URL    string
	Client *http.Client
	Redis  *miniredis.Miniredis
}

// newAuthTestServer stands up the full HTTP stack over sqlite and miniredis.
// Redis backs sessions and attempt counters so tests can fast-forward the
// lockout window.
func newAuthTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	kv := service.NewRedisKVStore(client, "auth")
	sessions := service.NewSessionManager(kv, time.Hour)
	attempts := service.NewAttemptTracker(kv, 5, 15*time.Minute)
	csrf := service.NewCSRFValidator()
	auth := service.NewAuthService(repository.NewUserRepository(db), security.NewBcryptHasher(4), sessions, attempts)

	mux := router.NewRouter(router.Dependencies{
		AuthHandler:    handler.NewAuthHandler(auth, csrf, false, 15*time.Minute),
		Sessions:       sessions,
		CSRF:           csrf,
		RateLimiter:    middleware.NewRateLimiter(middleware.NewRedisFixedWindowLimiter(client, "rl"), 1000, time.Minute, "api"),
		CookieSecure:   false,
		RequestTimeout: 10 * time.Second,
		BodyLimitBytes: 1 << 20,
		RateLimitRPM:   1000,
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testServer{
		URL:    srv.URL,
		Client: &http.Client{Jar: jar, Timeout: 10 * time.Second},
		Redis:  mr,
	}
}

func (s *testServer) doJSON(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode %s %s response: %v", method, path, err)
	}
	return resp, payload
}

func (s *testServer) csrfToken(t *testing.T) string {
	t.Helper()
	resp, payload := s.doJSON(t, http.MethodGet, "/auth/csrf-token", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("csrf-token: expected 200, got %d", resp.StatusCode)
	}
	token, _ := payload["csrfToken"].(string)
	if token == "" {
		t.Fatalf("expected a csrfToken, got %v", payload)
	}
	return token
}

func (s *testServer) sessionCookieValue(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(s.URL)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	for _, c := range s.Client.Jar.Cookies(u) {
		if c.Name == security.SessionCookieName {
			return c.Value
		}
	}
	return ""
}
