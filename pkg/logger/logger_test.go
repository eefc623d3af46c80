package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igbot/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug level", cfg: &config.LoggingConfig{Level: "debug"}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "invalid"}, wantErr: true},
		{name: "file output", cfg: &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "igbot.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestRunIDAndDefaultFields(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	l := newWithWriter(&buf)

	l.Info("started")

	out := buf.String()
	assert.Contains(t, out, `"app":"igbot"`)
	assert.Contains(t, out, `"run_id":"`)
	assert.Contains(t, out, "started")
}

func TestFieldChaining(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	l := newWithWriter(&buf)

	l.WithField("workflow", "repost").
		WithFields(map[string]interface{}{"amount": 2, "dry": false}).
		WithError(errors.New("boom")).
		InfoWithFields("chained", map[string]interface{}{"wait": time.Second})

	out := buf.String()
	assert.Contains(t, out, `"workflow":"repost"`)
	assert.Contains(t, out, `"amount":2`)
	assert.Contains(t, out, `"dry":false`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, "chained")
}

func TestWithErrorNil(t *testing.T) {
	l := newWithWriter(&bytes.Buffer{})
	assert.Same(t, l, l.WithError(nil))
}

func TestTestLoggerCapturesFieldsAndErrors(t *testing.T) {
	tl := NewTestLogger()

	tl.WithField("media_id", "m1").WithError(errors.New("upload failed")).Error("Repost failed")
	tl.Info("plain")

	require.Len(t, tl.GetMessages(), 2)
	failed := tl.GetMessagesByLevel("ERROR")
	require.Len(t, failed, 1)
	assert.Equal(t, "m1", failed[0].Fields["media_id"])
	assert.Equal(t, "upload failed", failed[0].Error)
	assert.True(t, tl.HasMessage("plain"))
	assert.True(t, tl.HasError())
	assert.True(t, strings.Contains(tl.String(), "[INFO] plain"))

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestDomainHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogRepost(tl, "m1", "reposted", nil)
	LogRepost(tl, "m2", "already_posted", nil)
	LogRepost(tl, "m3", "failed", errors.New("x"))
	LogMessageSent(tl, []string{"alice", "bob"}, "t1")
	LogFollowerPoll(tl, time.Unix(0, 0).UTC(), 3)

	assert.True(t, tl.HasMessage("Media reposted"))
	assert.True(t, tl.HasMessage("Media was uploaded earlier"))
	assert.True(t, tl.HasMessage("Repost failed"))
	sent := tl.GetMessages()[3]
	assert.Equal(t, 2, sent.Fields["count"])
	assert.Equal(t, "t1", sent.Fields["thread_id"])
	assert.Equal(t, 3, tl.GetMessages()[4].Fields["new"])
}
