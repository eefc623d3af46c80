// Package dispatch presents the workflow menu and runs the chosen workflow
// against a logged-in social client.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"igbot/internal/bulk"
	"igbot/internal/followers"
	"igbot/internal/inbox"
	"igbot/internal/ledger"
	"igbot/internal/repost"
	"igbot/pkg/config"
	errs "igbot/pkg/errors"
	"igbot/pkg/logger"
	"igbot/pkg/social"
	"igbot/pkg/storage"
	"igbot/pkg/ui"
)

// Workflow numbers as shown in the menu
type Workflow int

const (
	MessagesFromCSV Workflow = iota
	GroupMessage
	MessageEachUser
	MessageFollowers
	MessageLikers
	WelcomeFollowers
	ReplyToDMs
	RepostBestPhotos
	FollowHashtag
	UnfollowNonFollowers
	UploadStory
)

// MenuPrompt is printed above the numbered list
const MenuPrompt = "Which type of delivery method? (Type number)"

// Labels are the menu entries in workflow order
var Labels = []string{
	"Messages From CSV File.",
	"Group Message All Users From List.",
	"Message Each User From List.",
	"Message Each Your Follower.",
	"Message LatestMediaLikers Of A Page",
	"Send Welcome Message to New Followers",
	"Read and Reply to DMs",
	"Repost Best Photos from Users",
	"Follow Users by Hashtag",
	"Unfollow Users That Don't Follow You",
	"Upload Story Photo",
}

func (w Workflow) String() string {
	if w < 0 || int(w) >= len(Labels) {
		return fmt.Sprintf("workflow(%d)", int(w))
	}
	return Labels[w]
}

// Valid reports whether w is one of the menu entries
func (w Workflow) Valid() bool {
	return w >= 0 && int(w) < len(Labels)
}

// Request carries the command line inputs a workflow may use
type Request struct {
	// Args are the usernames for workflows 1, 2 and 7 and the hashtags for 8
	Args  []string
	File  string
	Photo string
}

// Dispatcher wires the workflows to their collaborators
type Dispatcher struct {
	Client   social.Client
	Config   *config.Config
	Ledger   ledger.Ledger
	Journal  repost.Journal
	Prompt   *ui.Prompter
	Notifier *ui.Notifier
	Logger   logger.Logger
	Out      io.Writer
}

// PrintMenu writes the numbered workflow list
func (d *Dispatcher) PrintMenu() {
	fmt.Fprintln(d.out(), MenuPrompt)
	for i, label := range Labels {
		fmt.Fprintf(d.out(), "%d: %s\n", i, label)
	}
}

// Choose reads a workflow number, asking again on invalid input up to the
// prompter's attempt limit
func (d *Dispatcher) Choose() (Workflow, error) {
	n, err := d.Prompt.ChooseNumber("", len(Labels))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrInvalidSelection, err)
	}
	return Workflow(n), nil
}

func (d *Dispatcher) out() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}
	return d.Out
}

func (d *Dispatcher) log() logger.Logger {
	if d.Logger == nil {
		return logger.NewNopLogger()
	}
	return d.Logger
}

// Run logs in with cred and executes exactly one workflow
func (d *Dispatcher) Run(ctx context.Context, wf Workflow, cred social.Credential, req Request) error {
	if !wf.Valid() {
		return fmt.Errorf("%w: %d", errs.ErrInvalidSelection, int(wf))
	}

	log := d.log().WithField("workflow", wf.String())
	if err := d.Client.Login(ctx, cred); err != nil {
		return fmt.Errorf("login as %s failed: %w", cred.Username, err)
	}
	log.Info("Starting workflow")

	err := d.run(ctx, wf, req, log)
	if err != nil {
		d.Notifier.Notify(ui.EventError, wf.String(), err.Error())
		return err
	}
	d.Notifier.Notify(ui.EventComplete, wf.String(), "finished")
	return nil
}

func (d *Dispatcher) run(ctx context.Context, wf Workflow, req Request, log logger.Logger) error {
	cfg := d.Config
	runner := bulk.NewRunner(d.Client, cfg.Workflow, cfg.Files, bulk.WithOutput(d.out()), bulk.WithLogger(log))

	switch wf {
	case MessagesFromCSV:
		_, err := runner.MessagesFromCSV(ctx, "")
		return err

	case GroupMessage:
		return runner.GroupMessage(ctx, req.Args)

	case MessageEachUser:
		_, err := runner.MessageEach(ctx, req.Args)
		return err

	case MessageFollowers:
		_, err := runner.MessageFollowers(ctx)
		return err

	case MessageLikers:
		pages, err := d.Prompt.ReadLine("What page likers do you want to message? :")
		if err != nil {
			return err
		}
		_, err = runner.MessageLikers(ctx, pages)
		return err

	case WelcomeFollowers:
		w := followers.NewWatcher(d.Client, cfg.Workflow,
			followers.WithLogger(log), followers.WithNotifier(d.Notifier))
		err := w.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	case ReplyToDMs:
		_, err := inbox.NewResponder(d.Client, d.Prompt, log).Run(ctx)
		return err

	case RepostBestPhotos:
		pool, err := repostPool(req)
		if err != nil {
			return err
		}
		opts := []repost.Option{
			repost.WithLogger(log),
			repost.WithReporter(ui.NewProgressDisplayTo(d.out(), false)),
		}
		if d.Journal != nil {
			opts = append(opts, repost.WithJournal(d.Journal, cfg.Ledger.AtMostOnce))
		}
		p := repost.New(d.Client, d.Ledger, repost.PoolFromFile(cfg.Files.UsernamePool), opts...)

		summary, err := p.RepostBestPhotos(ctx, pool, cfg.Workflow.Amount)
		if err != nil {
			return err
		}
		log.InfoWithFields("Repost finished", map[string]interface{}{
			"candidates": summary.Candidates,
			"reposted":   summary.Count(repost.StatusReposted),
			"skipped":    summary.Count(repost.StatusAlreadyPosted),
			"failed":     summary.Count(repost.StatusFailed),
		})
		return d.Ledger.Flush(ctx)

	case FollowHashtag:
		_, err := runner.FollowHashtags(ctx, req.Args)
		return err

	case UnfollowNonFollowers:
		_, err := runner.UnfollowNonFollowers(ctx)
		return err

	case UploadStory:
		return runner.UploadStory(ctx, req.Photo)
	}
	return nil
}

// repostPool picks the explicit users, then the --file list. Nil means the
// configured username pool.
func repostPool(req Request) ([]string, error) {
	if len(req.Args) > 0 {
		return req.Args, nil
	}
	if strings.TrimSpace(req.File) == "" {
		return nil, nil
	}
	users, err := storage.ReadLines(req.File)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("users file %s: %w", req.File, errs.ErrEmptyPool)
	}
	return users, err
}
