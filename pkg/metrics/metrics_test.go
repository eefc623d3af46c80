package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposure(t *testing.T) {
	IncRepost("reposted")
	AddMessagesSent("csv", 2)
	Follows.Inc()
	Unfollows.Inc()
	FollowerPolls.Inc()
	FollowerPollErrors.Inc()
	IncAPIRetry("/test")
	ObserveRepostDuration(time.Now().Add(-1500 * time.Millisecond))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, m := range []string{
		"igbot_reposts_total",
		"igbot_messages_sent_total",
		"igbot_follows_total",
		"igbot_unfollows_total",
		"igbot_follower_polls_total",
		"igbot_follower_poll_errors_total",
		"igbot_api_retries_total",
		"igbot_repost_duration_seconds",
	} {
		assert.Contains(t, body, m)
	}
}

func TestCountersByLabel(t *testing.T) {
	IncRepost("already_posted")
	AddMessagesSent("group", 5)
	IncAPIRetry("/api/v1/media/1/info/")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `igbot_reposts_total{status="already_posted"}`)
	assert.Contains(t, body, `igbot_messages_sent_total{workflow="group"}`)
	assert.Contains(t, body, `igbot_api_retries_total{endpoint="/api/v1/media/1/info/"}`)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
