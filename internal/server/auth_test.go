package server

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"discussify/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestAuthRequiredRejectsMissingAndBadTokens(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	app := newTestApp(s)
	alice := seedUser(t, s, "alice", models.UserRoleMember)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/communities/my-communities", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Wrong issuer.
	claims := jwt.MapClaims{
		"sub": fmt.Sprintf("%d", alice.ID),
		"iss": "someone-else",
		"aud": s.config.JWTAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	badIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	require.NoError(t, err)
	resp = doJSON(t, app, http.MethodGet, "/api/v1/communities/my-communities", badIssuer, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Wrong signing key.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": fmt.Sprintf("%d", alice.ID),
		"iss": s.config.JWTIssuer,
		"aud": s.config.JWTAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("some-other-secret"))
	require.NoError(t, err)
	resp = doJSON(t, app, http.MethodGet, "/api/v1/communities/my-communities", forged, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Valid token passes.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/communities/my-communities",
		signToken(t, s.config, alice.ID, ""), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequiredHonorsRevocationList(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	mr := miniredis.RunT(t)
	s.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := newTestApp(s)
	alice := seedUser(t, s, "alice", models.UserRoleMember)

	token := signToken(t, s.config, alice.ID, "jti-123")

	resp := doJSON(t, app, http.MethodGet, "/api/v1/communities/my-communities", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.redis.Set(ctxForTest(), "blacklist:jti-123", "1", time.Hour).Err())

	resp = doJSON(t, app, http.MethodGet, "/api/v1/communities/my-communities", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
