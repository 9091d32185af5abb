package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"value": 42}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(3, time.Second)
	c.Backoff = time.Millisecond

	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, nil, &out))
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(3, time.Second)
	c.Backoff = time.Millisecond

	err := c.GetJSON(context.Background(), srv.URL, nil, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetJSONSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Goog-Api-Key"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(0, time.Second)
	h := http.Header{}
	h.Set("X-Goog-Api-Key", "secret")
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, h, nil))
}

func TestGetJSONTransportErrorOmitsQuery(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c := NewHTTPClient(1, time.Second)
	c.Backoff = time.Millisecond

	err := c.GetJSON(context.Background(), endpoint+"/v1?address=1+Main+St&key=SECRET-KEY-123", nil, nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
	assert.NotContains(t, err.Error(), "address=")
	assert.Contains(t, err.Error(), endpoint+"/v1")
}

func TestAPIKeyMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		APIKeyMiddleware("")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", "nope")
		rec := httptest.NewRecorder()
		APIKeyMiddleware("k1")(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", "k1")
		rec := httptest.NewRecorder()
		APIKeyMiddleware("k1")(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SQ_FLOAT", "3.25")
	t.Setenv("SQ_DUR", "15s")
	t.Setenv("SQ_BAD", "x")

	assert.Equal(t, 3.25, GetEnvFloat("SQ_FLOAT", 1))
	assert.Equal(t, 1.0, GetEnvFloat("SQ_BAD", 1))
	assert.Equal(t, 15*time.Second, GetEnvDuration("SQ_DUR", time.Second))
	assert.Equal(t, "fallback", GetEnv("SQ_MISSING", "fallback"))
}
