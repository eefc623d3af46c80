// Package repost picks well-liked photos from other accounts and publishes
// them on the controlled account, skipping anything already in the ledger.
package repost

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"sort"
	"time"

	"igbot/internal/ledger"
	"igbot/pkg/checkpoint"
	errs "igbot/pkg/errors"
	"igbot/pkg/logger"
	"igbot/pkg/metrics"
	"igbot/pkg/social"
	"igbot/pkg/storage"
)

// Status is the outcome of a single repost
type Status string

const (
	StatusReposted      Status = "reposted"
	StatusAlreadyPosted Status = "already_posted"
	StatusFailed        Status = "failed"
)

// MediaSource is the part of the social client the pipeline needs
type MediaSource interface {
	UserMedia(ctx context.Context, username string) ([]social.MediaID, error)
	MediaInfo(ctx context.Context, id social.MediaID) (*social.MediaInfo, error)
	DownloadPhoto(ctx context.Context, id social.MediaID, saveCaption bool) (string, error)
	UploadPhoto(ctx context.Context, path, caption string) error
}

// PoolLoader returns the on-disk username pool
type PoolLoader func() ([]string, error)

// PoolFromFile loads the pool from a one-username-per-line file. A missing
// file yields an empty pool.
func PoolFromFile(path string) PoolLoader {
	return func() ([]string, error) {
		lines, err := storage.ReadLines(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return lines, err
	}
}

// Picker chooses an index in [0, n)
type Picker interface {
	Intn(n int) int
}

// Journal records uploads in flight so an interrupted run can be detected
type Journal interface {
	Begin(mediaID string) error
	Confirm(mediaID string) error
	Pending() ([]checkpoint.Entry, error)
}

// Reporter receives progress for each stage of a run
type Reporter interface {
	Start(stage string, total int)
	Advance(item string)
	Fail(item string, err error)
	Finish()
}

// Result describes one repost attempt
type Result struct {
	MediaID social.MediaID
	Status  Status
	Caption string
	Err     error
}

// Summary describes a RepostBestPhotos run
type Summary struct {
	Candidates int
	Selected   []social.MediaID
	Results    []Result
}

// Count returns how many results have the given status
func (s Summary) Count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Pipeline runs select, rank and repost against one social client and ledger
type Pipeline struct {
	source     MediaSource
	ledger     ledger.Ledger
	loadPool   PoolLoader
	picker     Picker
	journal    Journal
	atMostOnce bool
	reporter   Reporter
	logger     logger.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the pipeline logger
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithPicker replaces the random source used to sample the pool
func WithPicker(picker Picker) Option {
	return func(p *Pipeline) { p.picker = picker }
}

// WithReporter enables progress reporting
func WithReporter(r Reporter) Option {
	return func(p *Pipeline) { p.reporter = r }
}

// WithJournal records each upload before it starts. With atMostOnce set,
// entries left by an interrupted run are treated as posted.
func WithJournal(j Journal, atMostOnce bool) Option {
	return func(p *Pipeline) {
		p.journal = j
		p.atMostOnce = atMostOnce
	}
}

// New creates a pipeline
func New(source MediaSource, l ledger.Ledger, pool PoolLoader, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:   source,
		ledger:   l,
		loadPool: pool,
		picker:   rand.New(rand.NewSource(time.Now().UnixNano())),
		reporter: nopReporter{},
		logger:   logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SelectCandidates samples exactly one username from the pool and returns
// that user's media not yet in the ledger. An empty pool falls back to the
// loader; if that is empty too, ErrEmptyPool is returned.
func (p *Pipeline) SelectCandidates(ctx context.Context, pool []string) ([]social.MediaID, error) {
	if len(pool) == 0 {
		if p.loadPool != nil {
			loaded, err := p.loadPool()
			if err != nil {
				return nil, fmt.Errorf("failed to load username pool: %w", err)
			}
			pool = loaded
		}
		if len(pool) == 0 {
			return nil, errs.ErrEmptyPool
		}
	}

	username := pool[p.picker.Intn(len(pool))]
	p.logger.InfoWithFields("Sampled user from pool", map[string]interface{}{
		"username":  username,
		"pool_size": len(pool),
	})

	media, err := p.source.UserMedia(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media of %s: %w", username, err)
	}

	var fresh []social.MediaID
	for _, id := range media {
		posted, err := p.ledger.Contains(ctx, id)
		if err != nil {
			return nil, err
		}
		if !posted {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

type ranked struct {
	id       social.MediaID
	likes    int
	comments int
}

// RankAndTrim orders ids by like count then comment count, both descending,
// keeping input order among ties, and returns at most amount of them.
// amount below 1 means 1.
func (p *Pipeline) RankAndTrim(ctx context.Context, ids []social.MediaID, amount int) ([]social.MediaID, error) {
	if amount < 1 {
		amount = 1
	}

	p.reporter.Start("Getting media info", len(ids))
	items := make([]ranked, 0, len(ids))
	for _, id := range ids {
		info, err := p.source.MediaInfo(ctx, id)
		if err != nil {
			p.reporter.Fail(string(id), err)
			p.reporter.Finish()
			return nil, fmt.Errorf("failed to get info for %s: %w", id, err)
		}
		items = append(items, ranked{id: id, likes: info.LikeCount, comments: info.CommentCount})
		p.reporter.Advance(string(id))
	}
	p.reporter.Finish()

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].likes != items[j].likes {
			return items[i].likes > items[j].likes
		}
		return items[i].comments > items[j].comments
	})

	if amount > len(items) {
		amount = len(items)
	}
	out := make([]social.MediaID, amount)
	for i := range out {
		out[i] = items[i].id
	}
	return out, nil
}

// RepostOne downloads id with its caption and uploads it, then records it in
// the ledger. Media already in the ledger is left alone.
func (p *Pipeline) RepostOne(ctx context.Context, id social.MediaID) (Result, error) {
	start := time.Now()
	res := Result{MediaID: id}

	posted, err := p.ledger.Contains(ctx, id)
	if err != nil {
		return p.failed(res, err)
	}
	if posted {
		res.Status = StatusAlreadyPosted
		logger.LogRepost(p.logger, string(id), string(res.Status), nil)
		metrics.IncRepost(string(res.Status))
		return res, nil
	}

	if p.journal != nil {
		if err := p.journal.Begin(string(id)); err != nil {
			return p.failed(res, fmt.Errorf("failed to journal %s: %w", id, err))
		}
	}

	path, err := p.source.DownloadPhoto(ctx, id, true)
	if err != nil {
		p.release(id)
		return p.failed(res, fmt.Errorf("failed to download %s: %w", id, err))
	}

	res.Caption = p.resolveCaption(path)
	if err := p.source.UploadPhoto(ctx, path, res.Caption); err != nil {
		p.release(id)
		return p.failed(res, fmt.Errorf("failed to upload %s: %w", id, err))
	}

	// The journal entry stays if the ledger write fails so the next run sees it.
	if err := p.ledger.Insert(ctx, id); err != nil {
		return p.failed(res, fmt.Errorf("uploaded %s but failed to record it: %w", id, err))
	}
	p.release(id)

	res.Status = StatusReposted
	logger.LogRepost(p.logger, string(id), string(res.Status), nil)
	metrics.IncRepost(string(res.Status))
	metrics.ObserveRepostDuration(start)
	return res, nil
}

func (p *Pipeline) failed(res Result, err error) (Result, error) {
	res.Status = StatusFailed
	res.Err = err
	logger.LogRepost(p.logger, string(res.MediaID), string(res.Status), err)
	metrics.IncRepost(string(res.Status))
	return res, err
}

func (p *Pipeline) release(id social.MediaID) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Confirm(string(id)); err != nil {
		p.logger.WithError(err).Warn("Failed to clear journal entry")
	}
}

// resolveCaption reads the caption sidecar written next to the photo. Single
// photos use name.txt for name.jpg; carousel items name_N.jpg share name.txt.
func (p *Pipeline) resolveCaption(photoPath string) string {
	for _, candidate := range captionPaths(photoPath) {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return string(data)
		}
	}
	p.logger.WithField("path", photoPath).Warn("No caption file found, posting without caption")
	return ""
}

func captionPaths(photoPath string) []string {
	var paths []string
	if n := len(photoPath); n >= 3 {
		paths = append(paths, photoPath[:n-3]+"txt")
	}
	if n := len(photoPath); n >= 6 {
		paths = append(paths, photoPath[:n-6]+".txt")
	}
	return paths
}

// RepostBestPhotos selects candidates from the pool, ranks them and reposts
// the top amount in ranked order. A failed item does not stop the others and
// nothing already reposted is undone.
func (p *Pipeline) RepostBestPhotos(ctx context.Context, pool []string, amount int) (Summary, error) {
	var summary Summary
	if err := p.recoverJournal(ctx); err != nil {
		return summary, err
	}

	candidates, err := p.SelectCandidates(ctx, pool)
	if err != nil {
		return summary, err
	}
	summary.Candidates = len(candidates)

	selected, err := p.RankAndTrim(ctx, candidates, amount)
	if err != nil {
		return summary, err
	}
	summary.Selected = selected

	p.reporter.Start("Reposting photos", len(selected))
	for _, id := range selected {
		if err := ctx.Err(); err != nil {
			p.reporter.Finish()
			return summary, err
		}

		res, err := p.RepostOne(ctx, id)
		summary.Results = append(summary.Results, res)
		if err != nil {
			p.reporter.Fail(string(id), err)
			continue
		}
		p.reporter.Advance(string(id))
	}
	p.reporter.Finish()

	return summary, nil
}

// recoverJournal handles uploads left unconfirmed by an interrupted run
func (p *Pipeline) recoverJournal(ctx context.Context) error {
	if p.journal == nil {
		return nil
	}
	pending, err := p.journal.Pending()
	if err != nil {
		return fmt.Errorf("failed to read repost journal: %w", err)
	}

	for _, e := range pending {
		id := social.MediaID(e.MediaID)
		fields := map[string]interface{}{
			"media_id":   e.MediaID,
			"started_at": e.StartedAt,
		}
		if p.atMostOnce {
			if err := p.ledger.Insert(ctx, id); err != nil {
				return err
			}
			p.logger.WarnWithFields("Interrupted upload recorded as posted", fields)
		} else {
			p.logger.WarnWithFields("Interrupted upload may be reposted again", fields)
		}
		p.release(id)
	}
	return nil
}

type nopReporter struct{}

func (nopReporter) Start(string, int)  {}
func (nopReporter) Advance(string)     {}
func (nopReporter) Fail(string, error) {}
func (nopReporter) Finish()            {}
