// Package followers greets new followers of the controlled account.
//
// The watcher alternates between two states. While polling it reads the
// activity feed, messages every follow event at or after the checkpoint and
// moves the checkpoint to now. When the feed cannot be read it waits a short
// delay and polls again with the checkpoint unchanged. Cancelling the context
// is the only way out.
package followers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igbot/pkg/config"
	"igbot/pkg/logger"
	"igbot/pkg/metrics"
	"igbot/pkg/retry"
	"igbot/pkg/social"
	"igbot/pkg/ui"
)

// State of the watch loop
type State int

const (
	StatePolling State = iota
	StateRetryWait
)

func (s State) String() string {
	if s == StateRetryWait {
		return "retry_wait"
	}
	return "polling"
}

// Client is the part of the social client the watcher needs
type Client interface {
	RecentActivity(ctx context.Context) (*social.Activity, error)
	SendMessage(ctx context.Context, text string, recipients []string, threadID string) error
}

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Notifier announces events to the operator
type Notifier interface {
	Notify(ev ui.Event, title, message string)
}

// activityError marks a failed activity fetch, the one failure the loop retries
type activityError struct {
	err error
}

func (e *activityError) Error() string { return "failed to get activity: " + e.err.Error() }
func (e *activityError) Unwrap() error { return e.err }

// Watcher runs the follower watch loop
type Watcher struct {
	client       Client
	message      string
	pollInterval time.Duration
	backoff      retry.BackoffStrategy
	checkpoint   time.Time
	state        State

	now      func() time.Time
	sleep    SleepFunc
	logger   logger.Logger
	notifier Notifier
}

// Option configures a Watcher
type Option func(*Watcher)

// WithClock replaces the clock and sleeper, for tests
func WithClock(now func() time.Time, sleep SleepFunc) Option {
	return func(w *Watcher) {
		w.now = now
		w.sleep = sleep
	}
}

// WithLogger sets the watcher logger
func WithLogger(l logger.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithNotifier announces each new follower
func WithNotifier(n Notifier) Option {
	return func(w *Watcher) { w.notifier = n }
}

// NewWatcher creates a watcher greeting followers with cfg.Message
func NewWatcher(client Client, cfg config.WorkflowConfig, opts ...Option) *Watcher {
	w := &Watcher{
		client:       client,
		message:      cfg.Message,
		pollInterval: cfg.PollInterval,
		backoff:      &retry.ConstantBackoff{Delay: cfg.RetryDelay},
		now:          time.Now,
		sleep:        retry.Wait,
		logger:       logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.checkpoint = w.now().UTC()
	return w
}

// Checkpoint returns the time from which follow events count as new
func (w *Watcher) Checkpoint() time.Time {
	return w.checkpoint
}

// State returns the current loop state
func (w *Watcher) State() State {
	return w.state
}

// NewFollowers extracts follow events at or after since from both feeds
func NewFollowers(activity *social.Activity, since time.Time) []social.Follower {
	var out []social.Follower
	for _, feed := range [][]social.Story{activity.NewStories, activity.OldStories} {
		for _, story := range feed {
			if !story.IsFollow() || story.Time().Before(since) {
				continue
			}
			out = append(out, social.Follower{
				UserID:     story.Args.ProfileID,
				Username:   story.Args.ProfileName,
				FollowTime: story.Time(),
			})
		}
	}
	return out
}

// PollOnce performs one polling cycle. An activity error is returned
// unchanged so Run can retry; a message error is wrapped and ends the loop.
func (w *Watcher) PollOnce(ctx context.Context) ([]social.Follower, error) {
	activity, err := w.client.RecentActivity(ctx)
	if err != nil {
		return nil, &activityError{err: err}
	}

	found := NewFollowers(activity, w.checkpoint)
	if len(found) > 0 {
		w.logger.InfoWithFields("Found new followers", map[string]interface{}{"count": len(found)})
	}

	for _, f := range found {
		recipient := f.UserID
		if recipient == "" {
			recipient = f.Username
		}
		if err := w.client.SendMessage(ctx, w.message, []string{recipient}, ""); err != nil {
			return found, fmt.Errorf("failed to greet %s: %w", f.Username, err)
		}
		logger.LogMessageSent(w.logger.WithField("username", f.Username), []string{recipient}, "")
		metrics.AddMessagesSent("welcome", 1)
		if w.notifier != nil {
			w.notifier.Notify(ui.EventNewFollower, "New follower", f.Username)
		}
	}

	logger.LogFollowerPoll(w.logger, w.checkpoint, len(found))
	w.checkpoint = w.now().UTC()
	return found, nil
}

// Run polls until ctx is cancelled or a follower cannot be messaged
func (w *Watcher) Run(ctx context.Context) error {
	logger.LogComponentStart(w.logger, "follower_watch", map[string]interface{}{
		"checkpoint":    w.checkpoint,
		"poll_interval": w.pollInterval,
	})

	failures := 0
	for {
		w.state = StatePolling
		metrics.FollowerPolls.Inc()

		_, err := w.PollOnce(ctx)
		delay := w.pollInterval
		if err != nil {
			var actErr *activityError
			if !errors.As(err, &actErr) {
				logger.LogComponentStop(w.logger, "follower_watch", err.Error())
				return err
			}

			failures++
			w.state = StateRetryWait
			metrics.FollowerPollErrors.Inc()
			delay = w.backoff.NextDelay(failures)
			w.logger.WithError(actErr.err).WarnWithFields("Failed to get activity", map[string]interface{}{
				"retry_in": delay,
			})
		} else {
			failures = 0
		}

		if err := w.sleep(ctx, delay); err != nil {
			logger.LogComponentStop(w.logger, "follower_watch", "cancelled")
			return err
		}
	}
}
