// Package metrics exposes Prometheus counters for the workflows.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Reposts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "igbot_reposts_total",
		Help: "Repost attempts by outcome",
	}, []string{"status"})
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "igbot_messages_sent_total",
		Help: "Direct messages sent by workflow",
	}, []string{"workflow"})
	Follows = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "igbot_follows_total",
		Help: "Accounts followed",
	})
	Unfollows = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "igbot_unfollows_total",
		Help: "Accounts unfollowed",
	})
	FollowerPolls = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "igbot_follower_polls_total",
		Help: "Successful recent-activity polls",
	})
	FollowerPollErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "igbot_follower_poll_errors_total",
		Help: "Failed recent-activity polls",
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "igbot_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	RepostDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "igbot_repost_duration_seconds",
		Help:    "Duration of a full repost run",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(Reposts, MessagesSent, Follows, Unfollows,
		FollowerPolls, FollowerPollErrors, APIRetries, RepostDuration)
}

// Handler returns the mux serving /metrics and /health
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// StartServer serves metrics on addr (e.g. ":9090") until ctx is done.
// An empty addr disables the server.
func StartServer(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	srv := &http.Server{Addr: addr, Handler: Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// IncRepost increments the repost counter for a status
func IncRepost(status string) { Reposts.WithLabelValues(status).Inc() }

// AddMessagesSent counts n messages sent by workflow
func AddMessagesSent(workflow string, n int) { MessagesSent.WithLabelValues(workflow).Add(float64(n)) }

// IncAPIRetry increments the retry counter for an endpoint
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

// ObserveRepostDuration records a repost run duration
func ObserveRepostDuration(start time.Time) {
	RepostDuration.Observe(time.Since(start).Seconds())
}
