package http

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/service"
)

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tokens, err := auth.NewTokenManager("test-secret", "HS256", auth.WithTTL(time.Hour))
	require.NoError(t, err)

	authService, err := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		JWTAlgorithm:          "HS256",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            bcrypt.MinCost,
	}, service.AuthDependencies{
		UserRepo: repository.NewMemoryUserRepository(),
		Hasher:   auth.NewPasswordHasher(bcrypt.MinCost),
		Tokens:   tokens,
	})
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("auth-service", "test", nil),
		Users:          handlers.NewUsersHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
	})
	return &testServer{app: app, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *nethttp.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *nethttp.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func credentials(username, password string) string {
	data, _ := json.Marshal(dto.CredentialsRequest{Username: username, Password: password})
	return string(data)
}

func TestAuthFlow_EndToEnd(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, nethttp.MethodPost, "/auth/register", credentials("alice", "s3cr3t!"), nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "User registered successfully", decode[dto.MessageResponse](t, resp).Message)

	resp = s.do(t, nethttp.MethodPost, "/auth/login", credentials("alice", "s3cr3t!"), nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	login := decode[dto.AuthResponse](t, resp)
	assert.Regexp(t, `^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`, login.Token)
	assert.True(t, login.ExpiresAt.After(time.Now()))

	subject, err := s.tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	resp = s.do(t, nethttp.MethodPost, "/auth/login", credentials("alice", "wrong"), nil)
	require.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	wrongPassword := decode[errorBody](t, resp)

	resp = s.do(t, nethttp.MethodPost, "/auth/login", credentials("bob", "x"), nil)
	require.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	unknownUser := decode[errorBody](t, resp)

	assert.Equal(t, "UNAUTHORIZED", wrongPassword.Error.Code)
	assert.Equal(t, wrongPassword, unknownUser)
}

func TestRegister_Errors(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, nethttp.MethodPost, "/auth/register", credentials("alice", "pw"), nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp = s.do(t, nethttp.MethodPost, "/auth/register", credentials("alice", "other"), nil)
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_EXISTS", decode[errorBody](t, resp).Error.Code)

	resp = s.do(t, nethttp.MethodPost, "/auth/register", credentials("", "pw"), nil)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", decode[errorBody](t, resp).Error.Code)

}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/auth/register", "/auth/login"} {
		resp := s.do(t, nethttp.MethodPost, path, `{"username":`, nil)
		assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode, path)

		body := decode[errorBody](t, resp)
		assert.Equal(t, "INVALID_INPUT", body.Error.Code, path)
		assert.Equal(t, "invalid payload", body.Error.Message, path)
		assert.Equal(t, "JSON object with username and password", body.Error.Details["expected"], path)
	}
}

func TestRegister_ResponseOmitsSecrets(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, nethttp.MethodPost, "/auth/register", credentials("alice", "hunter2-secret"), nil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.NotContains(t, string(body), "hunter2-secret")
	assert.NotContains(t, string(body), "$2a$")
}

func TestMe(t *testing.T) {
	s := newTestServer(t)

	s.do(t, nethttp.MethodPost, "/auth/register", credentials("alice", "pw"), nil)
	login := decode[dto.AuthResponse](t, s.do(t, nethttp.MethodPost, "/auth/login", credentials("alice", "pw"), nil))

	resp := s.do(t, nethttp.MethodGet, "/auth/me", "", map[string]string{
		fiber.HeaderAuthorization: "Bearer " + login.Token,
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", decode[dto.SubjectResponse](t, resp).Subject)
}

func TestMe_Rejections(t *testing.T) {
	s := newTestServer(t)

	expired, err := auth.NewTokenManager("test-secret", "HS256",
		auth.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	require.NoError(t, err)
	expiredToken, _, err := expired.Issue("alice", time.Hour)
	require.NoError(t, err)

	forger, err := auth.NewTokenManager("another-secret", "HS256")
	require.NoError(t, err)
	forgedToken, _, err := forger.Issue("alice", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{name: "missing header", header: "", wantCode: "UNAUTHORIZED"},
		{name: "wrong scheme", header: "Basic abc", wantCode: "UNAUTHORIZED"},
		{name: "malformed", header: "Bearer not-a-token", wantCode: "TOKEN_MALFORMED"},
		{name: "expired", header: "Bearer " + expiredToken, wantCode: "TOKEN_EXPIRED"},
		{name: "forged", header: "Bearer " + forgedToken, wantCode: "INVALID_SIGNATURE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers[fiber.HeaderAuthorization] = tt.header
			}
			resp := s.do(t, nethttp.MethodGet, "/auth/me", "", headers)
			assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, bearerChallenge, resp.Header.Get(fiber.HeaderWWWAuthenticate))
			assert.Equal(t, tt.wantCode, decode[errorBody](t, resp).Error.Code)
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, nethttp.MethodGet, "/auth/health", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Service is up and running", string(body))

	resp = s.do(t, nethttp.MethodGet, "/health/live", "", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp = s.do(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	s.do(t, nethttp.MethodPost, "/auth/login", credentials("ghost", "pw"), nil)

	resp := s.do(t, nethttp.MethodGet, "/metrics", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "auth_http_requests_total")
	assert.Contains(t, string(body), `code="UNAUTHORIZED"`)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, nethttp.MethodGet, "/nope", "", nil)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, resp).Error.Code)
}
