// Package search drives folder-by-folder retrieval from a mailbox and
// turns keyword matches into an ordered list of records.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/mail-timeline/internal/decode"
	"github.com/nhle/mail-timeline/internal/mailbox"
	"github.com/nhle/mail-timeline/internal/match"
	"github.com/nhle/mail-timeline/internal/model"
)

// DefaultFetchTimeout is the maximum time allowed for a single fetch.
const DefaultFetchTimeout = 30 * time.Second

// Options configures a Coordinator. Zero values select defaults.
type Options struct {
	Decoder      *decode.Decoder
	Limiter      Limiter
	FetchTimeout time.Duration

	// MaxSessions bounds the sessions SearchPool opens at once.
	MaxSessions int

	Logger *slog.Logger
	Now    func() time.Time
}

// Coordinator runs searches. It holds no per-search state and may be
// reused.
type Coordinator struct {
	decoder      *decode.Decoder
	limiter      Limiter
	fetchTimeout time.Duration
	maxSessions  int
	logger       *slog.Logger
	now          func() time.Time
}

// New creates a Coordinator from opts.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		decoder:      opts.Decoder,
		limiter:      opts.Limiter,
		fetchTimeout: opts.FetchTimeout,
		maxSessions:  opts.MaxSessions,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.decoder == nil {
		c.decoder = &decode.Decoder{Now: c.now}
	}
	if c.limiter == nil {
		c.limiter = NewLimiter(0)
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = DefaultFetchTimeout
	}
	if c.maxSessions < 1 {
		c.maxSessions = 1
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Search processes every folder of criteria on sess, one folder and one
// message at a time. Folder and message failures are recorded in the
// outcome and skipped; a connection failure or cancellation aborts the
// search and returns an error.
func (c *Coordinator) Search(
	ctx context.Context,
	sess mailbox.Session,
	criteria model.SearchCriteria,
) (*Result, error) {
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search criteria: %w", err)
	}
	if sess == nil {
		return nil, errors.New("search requires an open mailbox session")
	}

	folders := criteria.ResolvedFolders()
	keywords := criteria.NormalizedKeywords()
	since := criteria.Since(c.now())

	slots := make([]folderResult, len(folders))
	for i, folder := range folders {
		res, err := c.searchFolder(ctx, sess, folder, keywords, since)
		if err != nil {
			return nil, err
		}
		slots[i] = res
	}

	return c.finish(slots), nil
}

// SearchPool searches folders in parallel, one session per worker, with
// at most MaxSessions sessions open. The result is identical to running
// Search over a single session.
func (c *Coordinator) SearchPool(
	ctx context.Context,
	dialer mailbox.Dialer,
	criteria model.SearchCriteria,
) (*Result, error) {
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search criteria: %w", err)
	}

	folders := criteria.ResolvedFolders()
	keywords := criteria.NormalizedKeywords()
	since := criteria.Since(c.now())

	workers := min(c.maxSessions, len(folders))
	slots := make([]folderResult, len(folders))

	g, gctx := errgroup.WithContext(ctx)

	jobs := make(chan int)
	g.Go(func() error {
		defer close(jobs)
		for i := range folders {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			sess, err := dialer.Dial(gctx)
			if err != nil {
				return fmt.Errorf("opening mailbox session: %w", err)
			}
			defer func() {
				if cerr := sess.Close(); cerr != nil {
					c.logger.Debug("closing mailbox session", "error", cerr)
				}
			}()

			for i := range jobs {
				res, err := c.searchFolder(gctx, sess, folders[i], keywords, since)
				if err != nil {
					return err
				}
				slots[i] = res
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return c.finish(slots), nil
}

// finish merges per-folder results in folder order and sorts them by
// timestamp. The sort is stable so equal timestamps keep folder order.
func (c *Coordinator) finish(slots []folderResult) *Result {
	res := &Result{Records: []model.EmailRecord{}}
	for _, s := range slots {
		res.Records = append(res.Records, s.records...)
		res.Outcome.merge(s.outcome)
	}

	slices.SortStableFunc(res.Records, func(a, b model.EmailRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	c.logger.Info("search finished",
		"records", len(res.Records),
		"folders", res.Outcome.FoldersSearched,
		"folders_skipped", len(res.Outcome.FoldersSkipped),
		"scanned", res.Outcome.MessagesScanned,
		"messages_skipped", len(res.Outcome.MessagesSkipped),
		"dates_imputed", res.Outcome.DatesImputed,
	)
	return res
}

// searchFolder selects folder, lists candidates since the window start
// and matches each message. The returned error is non-nil only for
// failures that end the whole search.
func (c *Coordinator) searchFolder(
	ctx context.Context,
	sess mailbox.Session,
	folder string,
	keywords []string,
	since time.Time,
) (folderResult, error) {
	var res folderResult

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("search canceled before folder %q: %w", folder, err)
	}

	c.logger.Info("searching folder", "folder", folder, "since", since.Format(time.DateOnly))

	if err := sess.SelectFolder(ctx, folder); err != nil {
		return res, c.skipFolder(ctx, &res, folder, "select", err)
	}

	ids, err := sess.SearchSince(ctx, since)
	if err != nil {
		return res, c.skipFolder(ctx, &res, folder, "search", err)
	}

	res.outcome.FoldersSearched = 1
	res.outcome.MessagesScanned = len(ids)
	c.logger.Debug("candidate messages", "folder", folder, "count", len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("search canceled in folder %q: %w", folder, err)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return res, fmt.Errorf("waiting to fetch %s/%s: %w", folder, id, err)
		}

		raw, err := c.fetch(ctx, sess, id)
		if err != nil {
			if ctx.Err() != nil {
				return res, fmt.Errorf("search canceled in folder %q: %w", folder, ctx.Err())
			}
			if mailbox.IsConnError(err) {
				return res, fmt.Errorf("fetching %s/%s: %w", folder, id, err)
			}
			c.logger.Warn("skipping message", "folder", folder, "id", string(id), "error", err)
			res.outcome.MessagesSkipped = append(res.outcome.MessagesSkipped, MessageFailure{
				Folder: folder, ID: id, Err: err,
			})
			continue
		}

		msg := c.decoder.Decode(raw)
		matched := match.Message(msg, keywords)
		if len(matched) == 0 {
			continue
		}

		rec, err := model.NewEmailRecord(string(id), folder, msg, matched)
		if err != nil {
			res.outcome.MessagesSkipped = append(res.outcome.MessagesSkipped, MessageFailure{
				Folder: folder, ID: id, Err: err,
			})
			continue
		}
		if rec.DateImputed {
			res.outcome.DatesImputed++
			c.logger.Debug("date imputed", "folder", folder, "id", string(id))
		}
		res.records = append(res.records, rec)
		res.outcome.MessagesMatched++
	}

	return res, nil
}

// fetch retrieves one message under the per-fetch timeout.
func (c *Coordinator) fetch(
	ctx context.Context,
	sess mailbox.Session,
	id mailbox.MessageID,
) ([]byte, error) {
	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	raw, err := sess.FetchRaw(fctx, id)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// skipFolder records a folder-level failure, or returns it when it is a
// connection failure or the search was canceled.
func (c *Coordinator) skipFolder(
	ctx context.Context,
	res *folderResult,
	folder, op string,
	err error,
) error {
	if ctx.Err() != nil {
		return fmt.Errorf("search canceled in folder %q: %w", folder, ctx.Err())
	}
	if mailbox.IsConnError(err) {
		return fmt.Errorf("%s folder %q: %w", op, folder, err)
	}

	c.logger.Warn("skipping folder", "folder", folder, "op", op, "error", err)
	res.outcome.FoldersSkipped = append(res.outcome.FoldersSkipped, FolderFailure{
		Folder: folder, Op: op, Err: err,
	})
	return nil
}
