// Package inbox walks the direct-message inbox once and lets the operator
// answer text threads from the terminal.
package inbox

import (
	"context"
	"fmt"

	"igbot/pkg/logger"
	"igbot/pkg/metrics"
	"igbot/pkg/social"
	"igbot/pkg/ui"
)

const (
	replyQuestion = "Do you want to reply to this message?(y/n)"
	writeQuestion = "Write your message: "
	sendQuestion  = "Send message?(y/n)"
)

// Client is the part of the social client the responder needs
type Client interface {
	Inbox(ctx context.Context) ([]social.Thread, error)
	SendMessage(ctx context.Context, text string, recipients []string, threadID string) error
}

// Prompter asks the operator questions
type Prompter interface {
	Println(a ...interface{})
	ReadLine(question string) (string, error)
	Confirm(question string) (bool, error)
}

// Responder answers inbox threads interactively
type Responder struct {
	client Client
	prompt Prompter
	logger logger.Logger
}

// NewResponder creates a responder
func NewResponder(client Client, prompt Prompter, log logger.Logger) *Responder {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Responder{client: client, prompt: prompt, logger: log}
}

// Run makes a single pass over the inbox and returns how many replies were sent
func (r *Responder) Run(ctx context.Context) (int, error) {
	threads, err := r.client.Inbox(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get inbox: %w", err)
	}

	sent := 0
	for _, thread := range threads {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		r.prompt.Println(ui.Green(thread.Inviter.Username))
		if !thread.IsText() {
			continue
		}
		r.prompt.Println(thread.LastItem.Text)

		replied, err := r.reply(ctx, thread)
		if err != nil {
			return sent, err
		}
		if replied {
			sent++
		}
	}
	return sent, nil
}

func (r *Responder) reply(ctx context.Context, thread social.Thread) (bool, error) {
	ok, err := r.prompt.Confirm(replyQuestion)
	if err != nil || !ok {
		return false, err
	}

	text, err := r.prompt.ReadLine(writeQuestion)
	if err != nil {
		return false, err
	}

	ok, err = r.prompt.Confirm(sendQuestion)
	if err != nil || !ok {
		return false, err
	}

	recipients := []string{thread.Inviter.PK}
	if err := r.client.SendMessage(ctx, text, recipients, thread.ThreadID); err != nil {
		return false, fmt.Errorf("failed to reply in thread %s: %w", thread.ThreadID, err)
	}
	logger.LogMessageSent(r.logger, recipients, thread.ThreadID)
	metrics.AddMessagesSent("inbox", 1)
	return true, nil
}
