package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/2beens/workoutlog/internal/middleware"
	"github.com/2beens/workoutlog/internal/telemetry/metrics"
)

func TestRateLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	limiter := NewMockRequestRateLimiter(ctrl)
	metricsManager := metrics.NewTestManager()

	nextCalls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalls++
	})
	handler := middleware.RateLimit(limiter, "auth", 2, metricsManager)(next)

	newReq := func(method string) *http.Request {
		req := httptest.NewRequest(method, "/api/auth/signin", nil)
		req.Header.Set("X-Real-Ip", "10.0.0.7")
		return req
	}

	limiter.EXPECT().
		Allow(gomock.Any(), "auth||10.0.0.7", redis_rate.PerMinute(2)).
		Return(&redis_rate.Result{Allowed: 1, Remaining: 1}, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newReq(http.MethodPost))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, nextCalls)

	limiter.EXPECT().
		Allow(gomock.Any(), "auth||10.0.0.7", redis_rate.PerMinute(2)).
		Return(&redis_rate.Result{Allowed: 0, RetryAfter: 20 * time.Second}, nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, newReq(http.MethodPost))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "20", rr.Header().Get("Retry-After"))
	assert.Equal(t, `{"error":"retry after 20 seconds"}`, rr.Body.String())
	assert.Equal(t, 1, nextCalls)
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterRateLimitedRequests))

	limiter.EXPECT().
		Allow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("redis down"))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, newReq(http.MethodPost))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, 1, nextCalls)

	// preflight never hits the limiter
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, newReq(http.MethodOptions))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, nextCalls)
}
