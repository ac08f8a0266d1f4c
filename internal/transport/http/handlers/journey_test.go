package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"groundops/internal/app/server"
	"groundops/internal/domain/records"
	"groundops/internal/platform/config"
)

// TestPostgresJourney runs the admin flow against a real database.
func TestPostgresJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	suffix := time.Now().UnixNano()
	cfg := config.Config{
		DatabaseURL:          dbURL,
		JWTSecret:            "0123456789abcdef0123456789abcdef",
		Environment:          "test",
		MigrationsDir:        "../../../../../migrations",
		RunMigrations:        true,
		RunSeed:              true,
		SeedAdminEmail:       "admin@test.local",
		SeedAdminPassword:    "ChangeMe123!",
		ProvisionDepartment:  "Unassigned",
		DefaultScore:         80,
		IdentityCheckTimeout: 5 * time.Second,
		SessionTTL:           time.Hour,
		LoginRatePerMinute:   1000,
		MaxBodyBytes:         1 << 20,
		InsightTimeout:       time.Second,
	}

	app, err := server.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()

	call := func(method, path, token string, body any) (int, envelope) {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req, err := http.NewRequest(method, ts.URL+path, &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := ts.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var env envelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return resp.StatusCode, env
	}

	status, env := call(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": cfg.SeedAdminEmail, "password": cfg.SeedAdminPassword})
	require.Equal(t, http.StatusOK, status)
	token := decode[struct {
		Token string `json:"token"`
	}](t, env).Token

	dept := fmt.Sprintf("Journey %d", suffix)
	status, _ = call(http.MethodPost, "/api/v1/departments", token, map[string]string{"name": dept})
	require.Equal(t, http.StatusCreated, status)

	status, env = call(http.MethodPost, "/api/v1/employees", token, map[string]any{
		"name": "Journey Agent", "department": dept, "email": fmt.Sprintf("journey-%d@example.com", suffix),
		"username": fmt.Sprintf("journey-%d", suffix), "role": "employee",
	})
	require.Equal(t, http.StatusCreated, status)
	emp := decode[records.Employee](t, env)

	status, _ = call(http.MethodPost, "/api/v1/employees/"+emp.ID+"/leaves", token, map[string]any{
		"date": "2024-05-02", "type": "vacation", "duration": "2.5",
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = call(http.MethodPut, "/api/v1/departments/"+url.PathEscape(dept), token, map[string]string{"name": dept + " Renamed"})
	require.Equal(t, http.StatusOK, status)

	status, env = call(http.MethodGet, "/api/v1/employees/"+emp.ID, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, dept+" Renamed", decode[records.Employee](t, env).Department)

	status, _ = call(http.MethodDelete, "/api/v1/employees/"+emp.ID, token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = call(http.MethodDelete, "/api/v1/departments/"+url.PathEscape(dept+" Renamed"), token, nil)
	require.Equal(t, http.StatusOK, status)
}
