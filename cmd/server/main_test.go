package main

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"paylink-checkout/internal/config"
	"paylink-checkout/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passThrough(next http.Handler) http.Handler { return next }

func TestSetupRouter(t *testing.T) {
	mockPaymentHandler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("payment " + r.URL.Query().Get("q")))
	}
	mockEventsHandler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("events"))
	}

	router := setupRouter(passThrough, mockPaymentHandler, mockEventsHandler, "internal-secret")

	t.Run("Health Check", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/health", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "OK")
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})

	t.Run("Payment Proxy Wiring", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/payment?q=abc", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "payment abc", rr.Body.String())
	})

	t.Run("Payment Proxy Rejects POST", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/payment", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})

	t.Run("Settlement Events Require Service Auth", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/internal/settlements/QR-1", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		req.Header.Set("X-Service-Auth", "internal-secret")
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "events", rr.Body.String())
	})

	t.Run("Settlement Events Not Mounted Without Handler", func(t *testing.T) {
		bare := setupRouter(passThrough, mockPaymentHandler, nil, "")
		req, _ := http.NewRequest("GET", "/internal/settlements/QR-1", nil)
		rr := httptest.NewRecorder()
		bare.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func testConfig() *config.Config {
	return &config.Config{
		AppPort:              "8080",
		AppEnv:               "test",
		PayloadEncryptionKey: "0123456789abcdef0123456789abcdef",
		PayloadHMACKey:       "hmac-secret",
		InternalSecretKey:    "internal-secret",
	}
}

func TestNewServer(t *testing.T) {
	// We use a mock driver so we don't need a real Postgres connection
	database, err := sql.Open("mock_driver_main", "")
	require.NoError(t, err)

	router, err := newServer(testConfig(), database)
	require.NoError(t, err)
	require.NotNil(t, router)

	req, _ := http.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// real proxy handler is wired
	req, _ = http.NewRequest("GET", "/api/payment", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "missing payment payload")
}

func TestNewServer_WithoutDatabase(t *testing.T) {
	router, err := newServer(testConfig(), nil)
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "/internal/settlements/QR-1", nil)
	req.Header.Set("X-Service-Auth", "internal-secret")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNewServer_EmptyEncryptionKey(t *testing.T) {
	cfg := testConfig()
	cfg.PayloadEncryptionKey = ""

	_, err := newServer(cfg, nil)
	assert.Error(t, err)
}

// --- Mock Driver for Testing ---
type mockDriver struct{}

func (m *mockDriver) Open(name string) (driver.Conn, error)         { return &mockConn{}, nil }
func (c *mockConn) Prepare(query string) (driver.Stmt, error)       { return &mockStmt{}, nil }
func (c *mockConn) Close() error                                    { return nil }
func (c *mockConn) Begin() (driver.Tx, error)                       { return nil, nil }
func (s *mockStmt) Close() error                                    { return nil }
func (s *mockStmt) NumInput() int                                   { return 0 }
func (s *mockStmt) Exec(args []driver.Value) (driver.Result, error) { return nil, nil }
func (s *mockStmt) Query(args []driver.Value) (driver.Rows, error)  { return nil, nil }

type mockConn struct{}
type mockStmt struct{}

func init() {
	sql.Register("mock_driver_main", &mockDriver{})
}

func setRequiredEnv(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("APP_ENV", "test")
	t.Setenv("GATEWAY_BASE_URL", "https://gateway.test")
	t.Setenv("GATEWAY_PARTNER_ID", "partner-1")
	t.Setenv("GATEWAY_SIGNATURE_SECRET", "sig-secret")
	t.Setenv("PAYLOAD_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("PAYLOAD_HMAC_KEY", "hmac-secret")
}

func TestRun(t *testing.T) {
	origInitDB := initDBFunc
	defer func() { initDBFunc = origInitDB }()
	initDBFunc = func(cfg *config.Config) (*sql.DB, error) {
		return sql.Open("mock_driver_main", "")
	}

	origStartServer := startServerFunc
	defer func() { startServerFunc = origStartServer }()
	var gotAddr string
	startServerFunc = func(addr string, handler http.Handler) error {
		gotAddr = addr
		return nil
	}

	setRequiredEnv(t)

	assert.NoError(t, run())
	assert.Equal(t, ":8080", gotAddr)
}

func TestRun_WithoutDatabase(t *testing.T) {
	origInitDB := initDBFunc
	defer func() { initDBFunc = origInitDB }()
	initDBFunc = func(cfg *config.Config) (*sql.DB, error) {
		return nil, db.ErrNotConfigured
	}

	origStartServer := startServerFunc
	defer func() { startServerFunc = origStartServer }()
	startServerFunc = func(addr string, handler http.Handler) error { return nil }

	setRequiredEnv(t)

	assert.NoError(t, run())
}

func TestRun_Errors(t *testing.T) {
	origInitDB := initDBFunc
	defer func() { initDBFunc = origInitDB }()
	origStartServer := startServerFunc
	defer func() { startServerFunc = origStartServer }()
	startServerFunc = func(addr string, handler http.Handler) error { return nil }

	t.Run("Missing config", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("PAYLOAD_HMAC_KEY", "")

		err := run()
		assert.ErrorIs(t, err, config.ErrMissingConfig)
	})

	t.Run("Database failure", func(t *testing.T) {
		setRequiredEnv(t)
		initDBFunc = func(cfg *config.Config) (*sql.DB, error) {
			return nil, errors.New("failed to ping DB")
		}

		assert.Error(t, run())
	})
}
