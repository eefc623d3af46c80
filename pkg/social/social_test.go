package social

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoryIsFollow(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"alice started following you.", true},
		{"alice liked your photo.", false},
		{"started following you", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Story{Args: StoryArgs{Text: tt.text}}.IsFollow())
		})
	}
}

func TestStoryTimeIsUTC(t *testing.T) {
	s := Story{Args: StoryArgs{Timestamp: 1700000000}}
	assert.Equal(t, time.UTC, s.Time().Location())
	assert.Equal(t, int64(1700000000), s.Time().Unix())
}

func TestThreadIsText(t *testing.T) {
	assert.True(t, Thread{LastItem: ThreadItem{ItemType: "text"}}.IsText())
	assert.False(t, Thread{LastItem: ThreadItem{ItemType: "media_share"}}.IsText())
}

func TestFakeActivitySequence(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	first := &Activity{NewStories: []Story{{Args: StoryArgs{Text: "a"}}}}
	second := &Activity{OldStories: []Story{{Args: StoryArgs{Text: "b"}}}}
	f.Activities = []*Activity{first, second}
	f.ActivityErrors = []error{errors.New("down"), nil}

	_, err := f.RecentActivity(ctx)
	assert.Error(t, err)

	got, err := f.RecentActivity(ctx)
	require.NoError(t, err)
	assert.Same(t, second, got)

	got, err = f.RecentActivity(ctx)
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Equal(t, 3, f.ActivityCalls)
}

func TestFakeDownloadWritesCaption(t *testing.T) {
	f := NewFake()
	f.DownloadDir = t.TempDir()
	f.Captions["m1"] = "hello"

	path, err := f.DownloadPhoto(context.Background(), "m1", true)
	require.NoError(t, err)

	caption, err := os.ReadFile(path[:len(path)-3] + "txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(caption))
	assert.Equal(t, []MediaID{"m1"}, f.Downloads)
}
