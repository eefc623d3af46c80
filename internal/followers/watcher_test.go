package followers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igbot/pkg/config"
	"igbot/pkg/logger"
	"igbot/pkg/social"
	"igbot/pkg/ui"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func followStory(id, name string, at time.Time) social.Story {
	return social.Story{Args: social.StoryArgs{
		Text:        name + " started following you.",
		Timestamp:   at.Unix(),
		ProfileID:   id,
		ProfileName: name,
	}}
}

func workflowConfig() config.WorkflowConfig {
	return config.WorkflowConfig{
		Message:      "Hi, thanks for reaching me",
		RetryDelay:   60 * time.Second,
		PollInterval: 30 * time.Minute,
	}
}

// fakeClock advances on every sleep and cancels the run after maxSleeps
type fakeClock struct {
	now       time.Time
	slept     []time.Duration
	maxSleeps int
	cancel    context.CancelFunc
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	if len(c.slept) >= c.maxSleeps {
		c.cancel()
		return ctx.Err()
	}
	return nil
}

func TestNewFollowersOnlyAtOrAfterCheckpoint(t *testing.T) {
	activity := &social.Activity{
		NewStories: []social.Story{
			followStory("1", "after", t0.Add(time.Second)),
			followStory("2", "before", t0.Add(-time.Second)),
			{Args: social.StoryArgs{Text: "x liked your photo.", Timestamp: t0.Add(time.Hour).Unix()}},
		},
		OldStories: []social.Story{
			followStory("3", "exact", t0),
		},
	}

	got := NewFollowers(activity, t0)
	require.Len(t, got, 2)
	assert.Equal(t, "after", got[0].Username)
	assert.Equal(t, t0.Add(time.Second), got[0].FollowTime)
	assert.Equal(t, "exact", got[1].Username)
	assert.Equal(t, time.UTC, got[1].FollowTime.Location())
}

func TestPollOnceMessagesNewFollowers(t *testing.T) {
	fake := social.NewFake()
	fake.Activities = []*social.Activity{{
		NewStories: []social.Story{
			followStory("11", "alice", t0.Add(time.Second)),
			followStory("12", "bob", t0.Add(-time.Second)),
		},
	}}
	clock := &fakeClock{now: t0}
	w := NewWatcher(fake, workflowConfig(), WithClock(clock.Now, clock.Sleep))

	clock.now = t0.Add(5 * time.Minute)
	found, err := w.PollOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, found, 1)
	assert.Equal(t, "alice", found[0].Username)
	require.Len(t, fake.Sent, 1)
	assert.Equal(t, []string{"11"}, fake.Sent[0].Recipients)
	assert.Equal(t, "Hi, thanks for reaching me", fake.Sent[0].Text)
	assert.Equal(t, t0.Add(5*time.Minute), w.Checkpoint())
}

func TestRunRetriesActivityFailuresWithoutAdvancingCheckpoint(t *testing.T) {
	fake := social.NewFake()
	fake.ActivityErrors = []error{errors.New("Failed to get activity"), errors.New("Failed to get activity")}
	fake.Activities = []*social.Activity{nil, nil, {
		NewStories: []social.Story{followStory("7", "carol", t0.Add(30*time.Second))},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := &fakeClock{now: t0, maxSleeps: 3, cancel: cancel}
	tl := logger.NewTestLogger()
	w := NewWatcher(fake, workflowConfig(), WithClock(clock.Now, clock.Sleep), WithLogger(tl))

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []time.Duration{60 * time.Second, 60 * time.Second, 30 * time.Minute}, clock.slept)
	assert.Equal(t, 3, fake.ActivityCalls)
	// The follow at t0+30s is still found after two minutes of retries.
	require.Len(t, fake.Sent, 1)
	assert.Equal(t, []string{"7"}, fake.Sent[0].Recipients)
	assert.Equal(t, t0.Add(2*time.Minute), w.Checkpoint())
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 2)
}

func TestRunStateDuringRetryWait(t *testing.T) {
	fake := social.NewFake()
	fake.ActivityErrors = []error{errors.New("down")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var states []State
	var w *Watcher
	sleep := func(ctx context.Context, d time.Duration) error {
		states = append(states, w.State())
		if len(states) == 2 {
			cancel()
			return ctx.Err()
		}
		return nil
	}
	w = NewWatcher(fake, workflowConfig(), WithClock(func() time.Time { return t0 }, sleep))

	_ = w.Run(ctx)
	assert.Equal(t, []State{StateRetryWait, StatePolling}, states)
	assert.Equal(t, "retry_wait", StateRetryWait.String())
}

func TestRunStopsWhenMessageFails(t *testing.T) {
	fake := social.NewFake()
	fake.Activities = []*social.Activity{{
		NewStories: []social.Story{followStory("1", "dave", t0)},
	}}
	fake.SendError = errors.New("blocked")

	clock := &fakeClock{now: t0, maxSleeps: 10, cancel: func() {}}
	w := NewWatcher(fake, workflowConfig(), WithClock(clock.Now, clock.Sleep))

	err := w.Run(context.Background())
	assert.ErrorContains(t, err, "blocked")
	assert.Empty(t, clock.slept)
}

type recordingNotifier struct {
	events []string
}

func (r *recordingNotifier) Notify(ev ui.Event, title, message string) {
	r.events = append(r.events, message)
}

func TestPollOnceNotifies(t *testing.T) {
	fake := social.NewFake()
	fake.Activities = []*social.Activity{{
		OldStories: []social.Story{followStory("1", "erin", t0)},
	}}
	n := &recordingNotifier{}
	w := NewWatcher(fake, workflowConfig(), WithClock(func() time.Time { return t0 }, nil), WithNotifier(n))

	_, err := w.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"erin"}, n.events)
}
