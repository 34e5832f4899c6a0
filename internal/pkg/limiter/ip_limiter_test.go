package limiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestIPRateLimiter_Middleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewIPRateLimiter(ctx, rate.Every(time.Hour), 2)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:1111"))
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:3333"))
	assert.Equal(t, http.StatusNoContent, do("10.0.0.2:1111"))
	assert.Equal(t, 2, l.Len())
}

func TestIPRateLimiter_PruneIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewIPRateLimiter(ctx, rate.Every(time.Second), 1)
	l.GetLimiter("10.0.0.1").Allow()
	l.GetLimiter("10.0.0.2")

	removed, remaining := l.prune(time.Now())
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, remaining)

	removed, remaining = l.prune(time.Now().Add(time.Minute))
	assert.Equal(t, 1, removed)
	assert.Zero(t, remaining)
}
