package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forscht/relock/internal/bench"
	dp "github.com/forscht/relock/internal/dataprovider"
	"github.com/forscht/relock/internal/dataprovider/boltdb"
)

type response struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newApp(t *testing.T, cfg *Config) *fiber.App {
	t.Helper()
	provider := boltdb.New(&boltdb.Config{DbPath: filepath.Join(t.TempDir(), "relock.db")})
	t.Cleanup(func() { _ = provider.Close() })
	dp.Load(provider)

	defaults := bench.DefaultConfig()
	defaults.Workers = 2
	defaults.Ops = 10
	defaults.Hold = 10 * time.Microsecond
	return New(cfg, defaults)
}

func do(t *testing.T, app *fiber.App, method, target, body, token string) (int, response) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	var r response
	if data, _ := io.ReadAll(res.Body); len(data) > 0 && strings.HasPrefix(res.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(data, &r))
	}
	return res.StatusCode, r
}

func TestAuth(t *testing.T) {
	app := newApp(t, &Config{Username: "admin", Password: "secret"})

	code, res := do(t, app, fiber.MethodGet, "/api/config", "", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.JSONEq(t, `{"login":true,"anonymous":false}`, string(res.Data))

	code, _ = do(t, app, fiber.MethodPost, "/api/user/login", `{"username":"admin","password":"nope"}`, "")
	require.Equal(t, fiber.StatusUnauthorized, code)

	code, res = do(t, app, fiber.MethodPost, "/api/user/login", `{"username":"admin","password":"secret"}`, "")
	require.Equal(t, fiber.StatusOK, code)
	var token string
	require.NoError(t, json.Unmarshal(res.Data, &token))

	tt := []struct {
		name     string
		token    string
		expected int
	}{
		{name: "Missing token", expected: fiber.StatusUnauthorized},
		{name: "Garbage token", token: "garbage", expected: fiber.StatusUnauthorized},
		{name: "Valid token", token: token, expected: fiber.StatusOK},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := do(t, app, fiber.MethodGet, "/api/check_token", "", tc.token)
			assert.Equal(t, tc.expected, code)
		})
	}
}

func TestGuestMode(t *testing.T) {
	app := newApp(t, &Config{Username: "admin", Password: "secret", GuestMode: true})

	code, _ := do(t, app, fiber.MethodGet, "/api/reports", "", "")
	require.Equal(t, fiber.StatusOK, code)

	code, _ = do(t, app, fiber.MethodPost, "/api/runs", `{"stack":["mutex"]}`, "")
	require.Equal(t, fiber.StatusUnauthorized, code)
}

func TestReports(t *testing.T) {
	app := newApp(t, &Config{})

	code, res := do(t, app, fiber.MethodPost, "/api/runs", `{"stack":["reentrant","keyed","rw","mutex"],"workers":3}`, "")
	require.Equal(t, fiber.StatusCreated, code, res.Message)
	var report struct {
		ID         string   `json:"id"`
		Stack      []string `json:"stack"`
		Ops        int      `json:"ops"`
		Violations int      `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &report))
	assert.Equal(t, []string{"reentrant", "keyed", "rw", "mutex"}, report.Stack)
	assert.Equal(t, 30, report.Ops)
	assert.Zero(t, report.Violations)

	code, _ = do(t, app, fiber.MethodPost, "/api/runs", "", "")
	require.Equal(t, fiber.StatusCreated, code, "defaults are run without a body")

	code, res = do(t, app, fiber.MethodGet, "/api/reports", "", "")
	require.Equal(t, fiber.StatusOK, code)
	var reports []json.RawMessage
	require.NoError(t, json.Unmarshal(res.Data, &reports))
	assert.Len(t, reports, 2)

	code, _ = do(t, app, fiber.MethodGet, "/api/reports/"+report.ID, "", "")
	require.Equal(t, fiber.StatusOK, code)

	code, _ = do(t, app, fiber.MethodDelete, "/api/reports/"+report.ID, "", "")
	require.Equal(t, fiber.StatusOK, code)

	code, res = do(t, app, fiber.MethodGet, "/api/reports/"+report.ID, "", "")
	require.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, "report not found", res.Message)

	code, _ = do(t, app, fiber.MethodDelete, "/api/reports/"+report.ID, "", "")
	require.Equal(t, fiber.StatusNotFound, code)
}

func TestReports_BadRequests(t *testing.T) {
	app := newApp(t, &Config{})

	tt := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{name: "Invalid stack", method: fiber.MethodPost, target: "/api/runs", body: `{"stack":["rw","keyed","mutex"]}`},
		{name: "Invalid workers", method: fiber.MethodPost, target: "/api/runs", body: `{"workers":-1}`},
		{name: "Malformed body", method: fiber.MethodPost, target: "/api/runs", body: `{"stack":`},
		{name: "Zero limit", method: fiber.MethodGet, target: "/api/reports?limit=0"},
		{name: "Huge limit", method: fiber.MethodGet, target: "/api/reports?limit=1000"},
		{name: "Negative offset", method: fiber.MethodGet, target: "/api/reports?offset=-1"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			code, res := do(t, app, tc.method, tc.target, tc.body, "")
			assert.Equal(t, fiber.StatusBadRequest, code)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestRuns_Limits(t *testing.T) {
	app := newApp(t, &Config{})

	code, res := do(t, app, fiber.MethodPost, "/api/runs", `{"workers":1024,"ops":1000}`, "")
	require.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "run exceeds the operation limit", res.Message)

	app = newApp(t, &Config{RunTimeout: time.Nanosecond})
	code, res = do(t, app, fiber.MethodPost, "/api/runs", "", "")
	require.Equal(t, fiber.StatusRequestTimeout, code)
	assert.Equal(t, "run timed out", res.Message)

	code, res = do(t, app, fiber.MethodGet, "/api/reports", "", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.JSONEq(t, `[]`, string(res.Data), "timed out runs are not stored")
}
