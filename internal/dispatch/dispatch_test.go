package dispatch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igbot/internal/ledger"
	"igbot/pkg/config"
	igerrors "igbot/pkg/errors"
	"igbot/pkg/social"
	"igbot/pkg/ui"
)

func newDispatcher(t *testing.T, input string) (*Dispatcher, *social.Fake, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Files.UsernamePool = filepath.Join(dir, "username_database.txt")
	cfg.Files.MessagesCSV = filepath.Join(dir, "messages.csv")
	cfg.Files.ScrapePages = filepath.Join(dir, "scrape.txt")
	cfg.Files.MediaLikers = filepath.Join(dir, "medialikers.txt")
	cfg.Files.LikerNames = filepath.Join(dir, "usernames.txt")
	cfg.Workflow.BulkDelay = 0
	cfg.Workflow.CSVSendDelay = 0

	fake := social.NewFake()
	fake.DownloadDir = dir
	out := &bytes.Buffer{}

	return &Dispatcher{
		Client: fake,
		Config: cfg,
		Ledger: ledger.NewMemory(),
		Prompt: ui.NewPrompter(strings.NewReader(input), out, 3),
		Out:    out,
	}, fake, out
}

var cred = social.Credential{Username: "me", Password: "pw"}

func TestMenuListsElevenWorkflows(t *testing.T) {
	d, _, out := newDispatcher(t, "")
	d.PrintMenu()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, MenuPrompt, lines[0])
	assert.Equal(t, "0: Messages From CSV File.", lines[1])
	assert.Equal(t, "10: Upload Story Photo", lines[11])
	assert.Equal(t, "Repost Best Photos from Users", RepostBestPhotos.String())
}

func TestChoose(t *testing.T) {
	d, _, _ := newDispatcher(t, "12\nseven\n7\n")
	wf, err := d.Choose()
	require.NoError(t, err)
	assert.Equal(t, RepostBestPhotos, wf)

	d, _, _ = newDispatcher(t, "x\ny\nz\n")
	_, err = d.Choose()
	assert.ErrorIs(t, err, igerrors.ErrInvalidSelection)
}

func TestRunRejectsUnknownWorkflow(t *testing.T) {
	d, fake, _ := newDispatcher(t, "")
	err := d.Run(context.Background(), Workflow(11), cred, Request{})
	assert.ErrorIs(t, err, igerrors.ErrInvalidSelection)
	assert.Nil(t, fake.LoggedIn)
}

func TestRunLogsInFirst(t *testing.T) {
	d, fake, _ := newDispatcher(t, "")
	fake.LoginError = errors.New("bad password")

	err := d.Run(context.Background(), GroupMessage, cred, Request{Args: []string{"alice"}})
	assert.ErrorContains(t, err, "bad password")
	assert.Empty(t, fake.Sent)
}

func TestRunSelectedWorkflow(t *testing.T) {
	tests := []struct {
		name  string
		wf    Workflow
		req   Request
		input string
		setup func(*social.Fake, *config.Config)
		check func(*testing.T, *social.Fake)
	}{
		{
			name: "csv",
			wf:   MessagesFromCSV,
			setup: func(f *social.Fake, c *config.Config) {
				require.NoError(t, os.WriteFile(c.Files.MessagesCSV, []byte("alice,hey\n"), 0644))
			},
			check: func(t *testing.T, f *social.Fake) {
				assert.Equal(t, "hey", f.Sent[0].Text)
			},
		},
		{
			name: "group",
			wf:   GroupMessage,
			req:  Request{Args: []string{"alice", "bob"}},
			check: func(t *testing.T, f *social.Fake) {
				require.Len(t, f.Sent, 1)
				assert.Equal(t, config.DefaultMessage, f.Sent[0].Text)
			},
		},
		{
			name: "each user",
			wf:   MessageEachUser,
			req:  Request{Args: []string{"alice", "bob"}},
			check: func(t *testing.T, f *social.Fake) {
				assert.Len(t, f.Sent, 2)
			},
		},
		{
			name:  "likers",
			wf:    MessageLikers,
			input: "natgeo\n",
			setup: func(f *social.Fake, c *config.Config) {
				f.Media["natgeo"] = []social.MediaID{"m1"}
				f.Likers["m1"] = []string{"5"}
				f.Usernames["5"] = "erin"
			},
			check: func(t *testing.T, f *social.Fake) {
				assert.Equal(t, []string{"erin"}, f.Sent[0].Recipients)
			},
		},
		{
			name:  "inbox",
			wf:    ReplyToDMs,
			input: "y\nthanks\ny\n",
			setup: func(f *social.Fake, c *config.Config) {
				f.Threads = []social.Thread{{
					ThreadID: "t1",
					Inviter:  social.User{PK: "9", Username: "zoe"},
					LastItem: social.ThreadItem{ItemType: "text", Text: "hi"},
				}}
			},
			check: func(t *testing.T, f *social.Fake) {
				assert.Equal(t, "t1", f.Sent[0].ThreadID)
			},
		},
		{
			name: "repost from args",
			wf:   RepostBestPhotos,
			req:  Request{Args: []string{"alice"}},
			setup: func(f *social.Fake, c *config.Config) {
				f.Media["alice"] = []social.MediaID{"m1", "m2"}
				f.Info["m1"] = &social.MediaInfo{LikeCount: 5}
				f.Info["m2"] = &social.MediaInfo{LikeCount: 9}
			},
			check: func(t *testing.T, f *social.Fake) {
				require.Len(t, f.Uploads, 1)
				assert.True(t, strings.HasSuffix(f.Uploads[0].Path, "m2.jpg"))
			},
		},
		{
			name: "hashtags",
			wf:   FollowHashtag,
			req:  Request{Args: []string{"go"}},
			setup: func(f *social.Fake, c *config.Config) {
				f.Hashtags["go"] = []string{"1"}
			},
			check: func(t *testing.T, f *social.Fake) {
				assert.Equal(t, []string{"1"}, f.Followed)
			},
		},
		{
			name: "unfollow",
			wf:   UnfollowNonFollowers,
			setup: func(f *social.Fake, c *config.Config) {
				f.FollowingID = []string{"1"}
			},
			check: func(t *testing.T, f *social.Fake) {
				assert.Equal(t, []string{"1"}, f.Unfollowed)
			},
		},
		{
			name: "story",
			wf:   UploadStory,
			req:  Request{Photo: "me.jpg"},
			check: func(t *testing.T, f *social.Fake) {
				assert.Equal(t, []string{"me.jpg"}, f.Stories)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, fake, _ := newDispatcher(t, tt.input)
			if tt.setup != nil {
				tt.setup(fake, d.Config)
			}

			require.NoError(t, d.Run(context.Background(), tt.wf, cred, tt.req))
			require.NotNil(t, fake.LoggedIn)
			assert.Equal(t, "me", fake.LoggedIn.Username)
			tt.check(t, fake)
		})
	}
}

func TestRepostWithEmptyPoolFile(t *testing.T) {
	d, _, _ := newDispatcher(t, "")
	err := d.Run(context.Background(), RepostBestPhotos, cred, Request{})
	assert.ErrorIs(t, err, igerrors.ErrEmptyPool)

	err = d.Run(context.Background(), RepostBestPhotos, cred, Request{File: filepath.Join(t.TempDir(), "users.txt")})
	assert.ErrorIs(t, err, igerrors.ErrEmptyPool)
}

func TestRepostPoolFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	require.NoError(t, os.WriteFile(path, []byte("alice\nbob\n"), 0644))

	pool, err := repostPool(Request{File: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, pool)

	pool, err = repostPool(Request{Args: []string{"carol"}, File: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, pool)
}

func TestWelcomeFollowersEndsOnCancel(t *testing.T) {
	d, fake, _ := newDispatcher(t, "")
	d.Config.Workflow.PollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, d.Run(ctx, WelcomeFollowers, cred, Request{}))
	assert.Equal(t, 1, fake.ActivityCalls)
}
