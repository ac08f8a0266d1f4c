package insight

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundops/internal/domain/records"
	"groundops/internal/platform/apperror"
)

func sampleBundle() Bundle {
	snap := &records.Snapshot{
		Evaluations: []records.Evaluation{
			{EmployeeID: "e1", Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Score: 70},
			{EmployeeID: "e1", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Score: 88},
		},
		Leaves: []records.LeaveRecord{
			{EmployeeID: "e1", Type: records.LeaveSick, Duration: decimal.NewFromInt(1)},
			{EmployeeID: "e2", Type: records.LeaveSick, Duration: decimal.NewFromInt(3)},
		},
	}
	emp := records.Employee{ID: "e1", Name: "Ana Silva", JobTitle: "Ramp Agent", OverallScore: 80}
	return BuildBundle(emp, snap)
}

func TestBuildBundle(t *testing.T) {
	b := sampleBundle()
	assert.Equal(t, "Ramp Agent", b.Role)
	assert.Equal(t, 88, b.CurrentScore)
	assert.Len(t, b.Attendance, 1)
	assert.NotNil(t, b.WorkIssues)
	assert.NotNil(t, b.BehaviourIssues)

	other := b
	other.CurrentScore = 90
	assert.NotEqual(t, b.Fingerprint(), other.Fingerprint())
}

func geminiServer(t *testing.T, status int, body string) (*httptest.Server, *generateRequest) {
	t.Helper()
	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "k-123", r.URL.Query().Get("key"))
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestGeminiClientSuccess(t *testing.T) {
	srv, captured := geminiServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"Solid performer."}]}}]}`)
	client := NewGeminiClient("k-123", srv.URL, "test-model", 5*time.Second)

	text, err := client.Generate(context.Background(), sampleBundle())
	require.NoError(t, err)
	assert.Equal(t, "Solid performer.", text)
	assert.InDelta(t, 0.7, captured.GenerationConfig.Temperature, 1e-9)
	assert.InDelta(t, 0.95, captured.GenerationConfig.TopP, 1e-9)
	require.Len(t, captured.Contents, 1)
	assert.Contains(t, captured.Contents[0].Parts[0].Text, `"name":"Ana Silva"`)
}

func TestGeminiClientErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		prefix string
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, "ERROR: Invalid API Key"},
		{"forbidden", http.StatusForbidden, `{}`, "ERROR: Invalid API Key"},
		{"rate limited", http.StatusTooManyRequests, `{}`, "ERROR: Rate limit exceeded"},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"model overloaded"}}`, "ERROR: Analysis failed: model overloaded"},
		{"empty text", http.StatusOK, `{"candidates":[]}`, "ERROR: Analysis failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := geminiServer(t, tc.status, tc.body)
			_, err := NewGeminiClient("k-123", srv.URL, "test-model", 5*time.Second).Generate(context.Background(), sampleBundle())
			require.Error(t, err)
			appErr, ok := apperror.As(err)
			require.True(t, ok)
			assert.Equal(t, apperror.KindExternalService, appErr.Kind)
			assert.Equal(t, "insight_failed", appErr.Code)
			assert.True(t, strings.HasPrefix(appErr.Message, tc.prefix), appErr.Message)
		})
	}
}

func TestGeminiClientMissingKey(t *testing.T) {
	_, err := NewGeminiClient("", "http://unused.invalid", "m", time.Second).Generate(context.Background(), sampleBundle())
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(appErr.Message, "ERROR: API Configuration Missing"))
}

type countingGenerator struct {
	calls int
	text  string
	err   error
}

func (g *countingGenerator) Generate(ctx context.Context, b Bundle) (string, error) {
	g.calls++
	return g.text, g.err
}

func TestServiceCacheHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	gen := &countingGenerator{text: "fresh"}
	svc := NewService(gen, rdb, time.Hour, nil)
	b := sampleBundle()

	mock.ExpectGet(CacheKey(b)).SetVal("cached narrative")

	text, err := svc.Generate(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, "cached narrative", text)
	assert.Equal(t, 0, gen.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceCacheMissStores(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	gen := &countingGenerator{text: "fresh"}
	svc := NewService(gen, rdb, time.Hour, nil)
	b := sampleBundle()

	mock.ExpectGet(CacheKey(b)).RedisNil()
	mock.ExpectSet(CacheKey(b), "fresh", time.Hour).SetVal("OK")

	text, err := svc.Generate(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, "fresh", text)
	assert.Equal(t, 1, gen.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceCacheOutageFallsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	gen := &countingGenerator{text: "fresh"}
	svc := NewService(gen, rdb, time.Hour, nil)
	b := sampleBundle()

	mock.ExpectGet(CacheKey(b)).SetErr(errors.New("connection refused"))
	mock.ExpectSet(CacheKey(b), "fresh", time.Hour).SetErr(errors.New("connection refused"))

	text, err := svc.Generate(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, "fresh", text)
}

func TestServiceGeneratorFailureNotCached(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	gen := &countingGenerator{err: failure(nil, msgRateLimited)}
	svc := NewService(gen, rdb, time.Hour, nil)
	b := sampleBundle()

	mock.ExpectGet(CacheKey(b)).RedisNil()

	_, err := svc.Generate(context.Background(), b)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceWithoutCache(t *testing.T) {
	gen := &countingGenerator{text: "fresh"}
	text, err := NewService(gen, nil, time.Hour, nil).Generate(context.Background(), sampleBundle())
	require.NoError(t, err)
	assert.Equal(t, "fresh", text)
}
