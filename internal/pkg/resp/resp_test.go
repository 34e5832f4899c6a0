package resp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planpoker/internal/pkg/errs"
)

func TestRespondSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondSuccess(rec, httptest.NewRequest(http.MethodGet, "/health", nil), map[string]int{"rooms": 2})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"code":0,"message":"success","data":{"rooms":2}}`, rec.Body.String())
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, httptest.NewRequest(http.MethodGet, "/api/rooms", nil), errs.NewError(errs.ErrUnauthorized))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errs.ErrUnauthorized, body.Code)
	assert.Nil(t, body.Data)
}

func TestRespondCarriesRequestID(t *testing.T) {
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/AbCd1234", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errs.ErrRoomNotFound, body.Code)
	assert.Equal(t, "req-42", body.RequestID)
}

func TestRespondErrorRateLimitedSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, httptest.NewRequest(http.MethodGet, "/ws", nil), errs.NewError(errs.ErrRateLimitExceeded))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRespondErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	var body JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errs.ErrUnknown, body.Code)
	assert.Empty(t, body.RequestID)
}
