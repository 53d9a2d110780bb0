package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/picload/picload/internal/config"
	"github.com/picload/picload/internal/sessions"
	"github.com/picload/picload/internal/tokens"
	"github.com/picload/picload/internal/users"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:          "test-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
	}
}

type authEnv struct {
	router *gin.Engine
	cfg    *config.Config
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	cfg := testConfig()
	usersSvc := users.NewService(users.NewMemoryRepository())
	sessionsSvc := sessions.NewService(sessions.NewRedisRepository(client, "session:"))

	r := gin.New()
	NewAuthHandler(cfg, usersSvc, sessionsSvc).Register(r.Group(""))
	return &authEnv{router: r, cfg: cfg}
}

func (e *authEnv) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rw := httptest.NewRecorder()
	e.router.ServeHTTP(rw, req)
	return rw
}

const registerBody = `{"email":"pat@example.com","firstName":"Pat","lastName":"Jones","password":"hunter2hunter2"}`

func TestRegister_IssuesTokens(t *testing.T) {
	env := newAuthEnv(t)

	rw := env.post("/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, rw.Code)
	require.Contains(t, rw.Body.String(), "accessToken")
	require.Contains(t, rw.Body.String(), "refreshToken")
	require.NotContains(t, rw.Body.String(), "hunter2", "password material must never be echoed")
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	env := newAuthEnv(t)

	require.Equal(t, http.StatusCreated, env.post("/auth/register", registerBody).Code)
	require.Equal(t, http.StatusConflict, env.post("/auth/register", registerBody).Code)
}

func TestRegister_ShortPasswordRejected(t *testing.T) {
	env := newAuthEnv(t)

	rw := env.post("/auth/register", `{"email":"pat@example.com","firstName":"Pat","lastName":"Jones","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, rw.Code)
}

func TestLogin_WrongPasswordUnauthorized(t *testing.T) {
	env := newAuthEnv(t)
	require.Equal(t, http.StatusCreated, env.post("/auth/register", registerBody).Code)

	rw := env.post("/auth/login", `{"email":"pat@example.com","password":"wrong-password"}`)
	require.Equal(t, http.StatusUnauthorized, rw.Code)

	rw = env.post("/auth/login", `{"email":"nobody@example.com","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestLoginRefreshLogoutFlow(t *testing.T) {
	env := newAuthEnv(t)
	require.Equal(t, http.StatusCreated, env.post("/auth/register", registerBody).Code)

	rw := env.post("/auth/login", `{"email":"pat@example.com","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusOK, rw.Code)

	var loginResp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.RefreshToken)

	// the issued access token verifies against the configured secret
	ver := tokens.NewVerifier(env.cfg.JWT.Secret)
	_, err := ver.Verify(context.Background(), loginResp.AccessToken)
	require.NoError(t, err)

	rw = env.post("/auth/refresh", `{"refresh_token":"`+loginResp.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, rw.Code)
	require.Contains(t, rw.Body.String(), "access_token")

	rw = env.post("/auth/logout", `{"refresh_token":"`+loginResp.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, rw.Code)

	// refresh token is gone after logout
	rw = env.post("/auth/refresh", `{"refresh_token":"`+loginResp.RefreshToken+`"}`)
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestRefresh_UnknownTokenUnauthorized(t *testing.T) {
	env := newAuthEnv(t)

	rw := env.post("/auth/refresh", `{"refresh_token":"deadbeef"}`)
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}
