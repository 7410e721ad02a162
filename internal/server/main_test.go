package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"discussify/internal/config"
	"discussify/internal/database"
	"discussify/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:        "0",
		JWTSecret:   "handler-test-secret-0123456789abcdef",
		JWTIssuer:   "discussify-api",
		JWTAudience: "discussify-client",
	}
}

// newTestServer builds a Server over a fresh in-memory sqlite database.
// Redis is absent: caching falls through to the database and notification
// publishing is a no-op.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.NewReplacer("/", "_", "#", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return newServerWith(testConfig(), db, nil)
}

// newTestApp mounts the full route table without the middleware stack.
func newTestApp(s *Server) *fiber.App {
	app := fiber.New()
	s.SetupRoutes(app)
	return app
}

// signToken issues a JWT the auth middleware accepts for the given user.
func signToken(t *testing.T, cfg *config.Config, userID uint, jti string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": fmt.Sprintf("%d", userID),
		"iss": cfg.JWTIssuer,
		"aud": cfg.JWTAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	if jti != "" {
		claims["jti"] = jti
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)
	return token
}

func seedUser(t *testing.T, s *Server, username string, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed-password",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

func seedCommunity(t *testing.T, s *Server, name string, admin *models.User, private bool) *models.Community {
	t.Helper()

	visibility := models.VisibilityPublic
	if private {
		visibility = models.VisibilityPrivate
	}
	community := &models.Community{
		Name:        name,
		Slug:        strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Description: "seeded for handler tests",
		Visibility:  visibility,
		IsPrivate:   private,
		IsActive:    true,
		AdminUserID: admin.ID,
	}
	require.NoError(t, s.communityRepo.Create(ctxForTest(), community))
	return community
}

func ctxForTest() context.Context {
	return context.Background()
}

// doJSON performs a request with an optional body and bearer token.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Count   *int            `json:"count"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}
