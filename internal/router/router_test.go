package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-school-portal/internal/config"
	"go-school-portal/internal/event"
	"go-school-portal/internal/handler"
	"go-school-portal/internal/metrics"
	"go-school-portal/internal/middleware"
	"go-school-portal/internal/model"
	"go-school-portal/internal/repository"
	"go-school-portal/internal/service"
	"go-school-portal/internal/token"
	"go-school-portal/pkg/apierror"
)

const (
	testSecret = "router-test-secret-router-test-secret"
	testIssuer = "school-portal"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
	Meta    *model.Meta     `json:"meta"`
}

type testServer struct {
	handler http.Handler
	store   *repository.MemoryCredentialRepository
	audit   *repository.MemoryAuditRepository
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, opts ...token.Option) *testServer {
	t.Helper()

	store := repository.NewMemoryCredentialRepository()
	codec, err := token.NewCodec(testSecret, testIssuer, opts...)
	require.NoError(t, err)
	svc, err := service.NewAuthService(store, codec, 7*24*time.Hour, model.MinBcryptCost)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	bus := event.NewBus()
	audit := repository.NewMemoryAuditRepository()
	auditService := service.NewAuditService(audit, bus)
	auditService.Start(ctx)
	svc.SetEventBus(bus)

	m := metrics.New()
	cfg := &config.Config{
		RequestTimeout:   5 * time.Second,
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}

	h := New(cfg, middleware.NewAuthMiddleware(svc, m), Handlers{
		Auth:   handler.NewAuthHandler(svc, m),
		Audit:  handler.NewAuditHandler(auditService),
		Health: handler.NewHealthHandler(nil),
	}, m)

	return &testServer{handler: h, store: store, audit: audit, metrics: m}
}

func (s *testServer) do(t *testing.T, method string, path string, body any, bearer string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func registration() map[string]string {
	return map[string]string{
		"fullName":        "A",
		"email":           "a@x.com",
		"phone":           "123",
		"schoolName":      "S",
		"role":            "admin",
		"password":        "longenough1",
		"confirmPassword": "longenough1",
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec, env := srv.do(t, http.MethodPost, "/api/v1/staff/register", registration(), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	assert.NotContains(t, strings.ToLower(string(env.Data)), "password")
	assert.NotContains(t, strings.ToLower(string(env.Data)), "hash")

	rec, env = srv.do(t, http.MethodPost, "/api/v1/staff/register", registration(), "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apierror.CodeAlreadyExists, env.Error.Code)
	assert.Equal(t, "email", env.Error.Details)
	assert.Equal(t, 1, srv.store.Count())

	wrongPwd, _ := srv.do(t, http.MethodPost, "/api/v1/staff/login", map[string]string{"email": "a@x.com", "password": "wrong"}, "")
	unknown, _ := srv.do(t, http.MethodPost, "/api/v1/staff/login", map[string]string{"email": "b@x.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, wrongPwd.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongPwd.Body.String(), unknown.Body.String())

	rec, env = srv.do(t, http.MethodPost, "/api/v1/staff/login", map[string]string{"email": "a@x.com", "password": "longenough1"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var session model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.Token)
	assert.Equal(t, "Bearer", session.TokenType)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/staff/me", nil, session.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me model.PublicCredential
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "a@x.com", me.Email)
	assert.Equal(t, "S", me.SchoolName)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/staff/me", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apierror.CodeAuthorizationRequired, env.Error.Code)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/staff/me", nil, session.Token[:len(session.Token)-1])
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apierror.CodeInvalidToken, env.Error.Code)

	past, err := token.NewCodec(testSecret, testIssuer, token.WithClock(func() time.Time {
		return time.Now().Add(-8 * 24 * time.Hour)
	}))
	require.NoError(t, err)
	expired, _, err := past.Encode(model.SessionClaims{UserID: me.ID, Role: model.RoleAdmin, SchoolName: "S", Entity: model.EntityStaff}, 7*24*time.Hour)
	require.NoError(t, err)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/staff/me", nil, expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierror.CodeTokenExpired, env.Error.Code)

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/users/me", nil, session.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExpiredSessionIsRejected(t *testing.T) {
	now := time.Now()
	srv := newTestServer(t, token.WithClock(func() time.Time { return now }))

	rec, _ := srv.do(t, http.MethodPost, "/api/v1/teachers/register", registration(), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := srv.do(t, http.MethodPost, "/api/v1/teachers/login", map[string]string{"email": "a@x.com", "password": "longenough1"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var session model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &session))

	now = now.Add(7*24*time.Hour - time.Minute)
	rec, _ = srv.do(t, http.MethodGet, "/api/v1/teachers/me", nil, session.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	now = now.Add(2 * time.Minute)
	rec, env = srv.do(t, http.MethodGet, "/api/v1/teachers/me", nil, session.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, apierror.CodeTokenExpired, env.Error.Code)
	assert.Equal(t, "token expired, log in again", env.Error.Message)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/teachers", nil, session.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierror.CodeTokenExpired, env.Error.Code)
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	body := registration()
	body["confirmPassword"] = "different1"
	rec, env := srv.do(t, http.MethodPost, "/api/v1/users/register", body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierror.CodeValidationFailed, env.Error.Code)
	assert.Contains(t, env.Error.Fields, "confirmPassword")

	rec, env = srv.do(t, http.MethodPost, "/api/v1/users/register", "{not json", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierror.CodeBadRequest, env.Error.Code)

	rec, _ = srv.do(t, http.MethodPost, "/api/v1/parents/register", registration(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 0, srv.store.Count())
}

func TestAdminListIsSchoolScoped(t *testing.T) {
	srv := newTestServer(t)

	admin := registration()
	_, _ = srv.do(t, http.MethodPost, "/api/v1/teachers/register", admin, "")

	peer := registration()
	peer["email"] = "peer@x.com"
	peer["phone"] = "456"
	peer["role"] = "teacher"
	_, _ = srv.do(t, http.MethodPost, "/api/v1/teachers/register", peer, "")

	other := registration()
	other["email"] = "other@x.com"
	other["phone"] = "789"
	other["schoolName"] = "Elsewhere"
	_, _ = srv.do(t, http.MethodPost, "/api/v1/teachers/register", other, "")
	require.Equal(t, 3, srv.store.Count())

	login := func(email string) string {
		rec, env := srv.do(t, http.MethodPost, "/api/v1/teachers/login", map[string]string{"email": email, "password": "longenough1"}, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var session model.LoginResponse
		require.NoError(t, json.Unmarshal(env.Data, &session))
		return session.Token
	}

	rec, env := srv.do(t, http.MethodGet, "/api/v1/teachers", nil, login("a@x.com"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, env.Meta)
	assert.Equal(t, 2, env.Meta.Total)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/teachers", nil, login("peer@x.com"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apierror.CodeForbidden, env.Error.Code)
}

func TestAdminAuditTrail(t *testing.T) {
	srv := newTestServer(t)
	_, _ = srv.do(t, http.MethodPost, "/api/v1/staff/register", registration(), "")
	_, _ = srv.do(t, http.MethodPost, "/api/v1/staff/login", map[string]string{"email": "a@x.com", "password": "wrong"}, "")
	_, env := srv.do(t, http.MethodPost, "/api/v1/staff/login", map[string]string{"email": "a@x.com", "password": "longenough1"}, "")
	var session model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &session))

	require.Eventually(t, func() bool { return srv.audit.Len() == 3 }, 2*time.Second, 10*time.Millisecond)

	rec, env := srv.do(t, http.MethodGet, "/api/v1/staff/audit?limit=2", nil, session.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list model.AuditEntryList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Items, 2)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/staff/audit?limit=zero", nil, session.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierror.CodeBadRequest, env.Error.Code)

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/staff/audit", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	srv := newTestServer(t)
	_, _ = srv.do(t, http.MethodPost, "/api/v1/users/register", registration(), "")

	_, env := srv.do(t, http.MethodPost, "/api/v1/users/login", map[string]string{"email": "a@x.com", "password": "longenough1"}, "")
	var session model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &session))

	rec, _ := srv.do(t, http.MethodPut, "/api/v1/users/me/password", map[string]string{
		"currentPassword": "longenough1",
		"newPassword":     "evenlonger22",
		"confirmPassword": "evenlonger22",
	}, session.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = srv.do(t, http.MethodPost, "/api/v1/users/login", map[string]string{"email": "a@x.com", "password": "evenlonger22"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec, env := srv.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	_, _ = srv.do(t, http.MethodPost, "/api/v1/staff/login", map[string]string{"email": "a@x.com", "password": "nope"}, "")

	rec, _ = srv.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `school_auth_logins_total{entity="staff",outcome="invalid_credentials"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/api/v1/{entity}/login"`)
}
