//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"go-school-portal/internal/app"
	"go-school-portal/internal/config"
	"go-school-portal/internal/database"
	"go-school-portal/internal/handler"
	"go-school-portal/internal/metrics"
	"go-school-portal/internal/middleware"
	"go-school-portal/internal/model"
	"go-school-portal/internal/repository"
	"go-school-portal/internal/router"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

// newServer wires the full stack against the Postgres instance in DATABASE_URL.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, url, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	cfg := &config.Config{
		RequestTimeout:   10 * time.Second,
		JWTSecret:        "integration-secret-integration-secret",
		JWTIssuer:        "school-portal",
		SessionTokenTTL:  time.Hour,
		BcryptCost:       model.MinBcryptCost,
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}

	svc, err := app.NewAuthService(cfg, repository.NewCredentialRepository(db.Pool))
	require.NoError(t, err)

	m := metrics.New()
	srv := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(svc, m), router.Handlers{
		Auth:   handler.NewAuthHandler(svc, m),
		Health: handler.NewHealthHandler(db),
	}, m))
	t.Cleanup(srv.Close)

	return srv
}

// uniqueEmail keeps runs against a shared database independent.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@integration.test", prefix, uuid.NewString()[:8])
}

func doJSON(t *testing.T, srv *httptest.Server, method string, path string, body any, bearer string) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}
