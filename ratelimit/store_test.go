package ratelimit_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"boxoffice/ratelimit"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectHit(mock redismock.ClientMock, key string, count int64) {
	mock.ExpectTxPipeline()
	mock.ExpectIncr(key).SetVal(count)
	mock.ExpectExpireNX(key, time.Minute).SetVal(count == 1)
	mock.ExpectTxPipelineExec()
}

func TestRedisStoreAllow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := ratelimit.NewRedisStore(db, "check-in", 2, time.Minute)

	key := "boxoffice:ratelimit:check-in:10.0.0.1"

	expectHit(mock, key, 1)
	expectHit(mock, key, 2)
	expectHit(mock, key, 3)

	allowed, err := store.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = store.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = store.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreSetsWindowOnEveryHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := ratelimit.NewRedisStore(db, "check-in", 5, time.Minute)

	key := "boxoffice:ratelimit:check-in:10.0.0.2"

	// The window is still applied when the counter already exists without a TTL.
	expectHit(mock, key, 4)

	allowed, err := store.Allow("10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreFailsOpen(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := ratelimit.NewRedisStore(db, "check-in", 1, time.Minute)

	key := "boxoffice:ratelimit:check-in:10.0.0.1"
	mock.ExpectTxPipeline()
	mock.ExpectIncr(key).SetErr(errors.New("connection refused"))

	allowed, err := store.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := ratelimit.NewRedisStore(db, "check-in", 1, time.Minute)

	key := "boxoffice:ratelimit:check-in:192.0.2.1"
	expectHit(mock, key, 1)
	expectHit(mock, key, 2)

	e := echo.New()
	e.POST("/scan", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, ratelimit.Middleware(store))

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/scan", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
	assert.NoError(t, mock.ExpectationsWereMet())
}
