// Package bulk implements the list-driven workflows: CSV, group and
// per-user messaging, messaging followers and page likers, following by
// hashtag, unfollowing non-followers and story upload.
//
// None of them handle individual failures. The first client error ends the
// workflow and is returned to the caller.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"igbot/pkg/config"
	"igbot/pkg/logger"
	"igbot/pkg/metrics"
	"igbot/pkg/ratelimit"
	"igbot/pkg/retry"
	"igbot/pkg/social"
	"igbot/pkg/ui"
)

// ErrNoRecipients is returned when a messaging workflow has nobody to message
var ErrNoRecipients = errors.New("no recipients given")

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Waiter spaces consecutive sends
type Waiter interface {
	Wait(ctx context.Context) error
}

// Runner runs bulk workflows against one social client
type Runner struct {
	client social.Client
	flow   config.WorkflowConfig
	files  config.FilesConfig
	out    io.Writer
	sleep  SleepFunc
	pacer  Waiter
	logger logger.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithOutput redirects the progress lines printed for the operator
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithSleep replaces the sleeper used for the flat end-of-workflow delay
func WithSleep(s SleepFunc) Option {
	return func(r *Runner) { r.sleep = s }
}

// WithPacer replaces the pacer spacing CSV sends
func WithPacer(w Waiter) Option {
	return func(r *Runner) { r.pacer = w }
}

// WithLogger sets the runner logger
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner
func NewRunner(client social.Client, flow config.WorkflowConfig, files config.FilesConfig, opts ...Option) *Runner {
	r := &Runner{
		client: client,
		flow:   flow,
		files:  files,
		out:    os.Stdout,
		sleep:  retry.Wait,
		pacer:  ratelimit.NewPacer(flow.CSVSendDelay),
		logger: logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *Runner) send(ctx context.Context, workflow, text string, recipients []string) error {
	if err := r.client.SendMessage(ctx, text, recipients, ""); err != nil {
		return fmt.Errorf("failed to message %v: %w", recipients, err)
	}
	logger.LogMessageSent(r.logger.WithField("workflow", workflow), recipients, "")
	metrics.AddMessagesSent(workflow, 1)
	return nil
}

// settle waits the flat delay that ends every list workflow
func (r *Runner) settle(ctx context.Context) error {
	return r.sleep(ctx, r.flow.BulkDelay)
}

// GroupMessage sends one message addressed to all users at once
func (r *Runner) GroupMessage(ctx context.Context, users []string) error {
	if len(users) == 0 {
		return ErrNoRecipients
	}
	if err := r.send(ctx, "group", r.flow.Message, users); err != nil {
		return err
	}
	r.printf("Sent A Group Message To All Users..\n")
	return r.settle(ctx)
}

// MessageEach sends the message to every user separately
func (r *Runner) MessageEach(ctx context.Context, users []string) (int, error) {
	if len(users) == 0 {
		return 0, ErrNoRecipients
	}
	for i, user := range users {
		if err := r.send(ctx, "individual", r.flow.Message, []string{user}); err != nil {
			return i, err
		}
	}
	r.printf("Sent Individual Messages To All Users..\n")
	return len(users), r.settle(ctx)
}

// MessageFollowers sends the message to every follower of the account
func (r *Runner) MessageFollowers(ctx context.Context) (int, error) {
	followers, err := r.client.Followers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get followers: %w", err)
	}

	progress := ui.NewProgressDisplayTo(r.out, false)
	progress.Start("Messaging followers", len(followers))
	for i, follower := range followers {
		if err := r.send(ctx, "followers", r.flow.Message, []string{follower}); err != nil {
			progress.Fail(follower, err)
			progress.Finish()
			return i, err
		}
		progress.Advance(follower)
	}
	progress.Finish()

	r.printf("Sent Individual Messages To Your Followers..\n")
	return len(followers), r.settle(ctx)
}
