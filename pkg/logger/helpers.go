package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRepost records the outcome of a single repost attempt
func LogRepost(l Logger, mediaID, status string, err error) {
	entry := l.WithFields(map[string]interface{}{
		"media_id": mediaID,
		"status":   status,
	})
	switch {
	case err != nil:
		entry.WithError(err).Error("Repost failed")
	case status == "already_posted":
		entry.Warn("Media was uploaded earlier")
	default:
		entry.Info("Media reposted")
	}
}

// LogMessageSent records a direct message delivery
func LogMessageSent(l Logger, recipients []string, threadID string) {
	fields := map[string]interface{}{
		"recipients": recipients,
		"count":      len(recipients),
	}
	if threadID != "" {
		fields["thread_id"] = threadID
	}
	l.InfoWithFields("Message sent", fields)
}

// LogFollowerPoll records one cycle of the follower watch loop
func LogFollowerPoll(l Logger, checkpoint time.Time, found int) {
	l.InfoWithFields("Follower poll completed", map[string]interface{}{
		"checkpoint": checkpoint,
		"new":        found,
	})
}

// LogRateLimit logs rate limiting events
func LogRateLimit(l Logger, endpoint string, wait time.Duration) {
	l.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"wait":     wait,
		"action":   "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, cfg map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(cfg) > 0 {
		entry = entry.WithFields(cfg)
	}
	entry.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string)                                   {}
func (nopLogger) Info(string)                                    {}
func (nopLogger) Warn(string)                                    {}
func (nopLogger) Error(string)                                   {}
func (n nopLogger) WithField(string, interface{}) Logger         { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger     { return n }
func (n nopLogger) WithError(error) Logger                       { return n }
func (n nopLogger) WithContext(context.Context) Logger           { return n }
func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) InfoWithFields(string, map[string]interface{})  {}
func (nopLogger) WarnWithFields(string, map[string]interface{})  {}
func (nopLogger) ErrorWithFields(string, map[string]interface{}) {}
func (nopLogger) GetZerolog() *zerolog.Logger                    { return nil }
