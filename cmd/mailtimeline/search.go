package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/mail-timeline/internal/mailbox"
	"github.com/nhle/mail-timeline/internal/model"
	"github.com/nhle/mail-timeline/internal/report"
	"github.com/nhle/mail-timeline/internal/search"
	"github.com/nhle/mail-timeline/internal/store"
)

func (a *app) runSearch(ctx context.Context, args []string) error {
	fs := newFlagSet(a, "search", "KEYWORD...")
	c := addCommonFlags(fs)
	keywords := fs.StringSliceP("keywords", "k", nil, "keywords to search for, in addition to positional arguments")
	fs.StringSliceP("folders", "f", nil, "folders to search (default INBOX and the sent folder)")
	noSent := fs.Bool("no-sent", false, "do not search the sent folder")
	fs.IntP("days", "d", 0, "lookback window in days (env DEFAULT_DAYS_BACK, default 30)")
	fs.StringP("output", "o", "", "report format: json, csv, text or html (env DEFAULT_OUTPUT_FORMAT)")
	fs.String("save", "", "write the report to this file instead of stdout")
	fs.Int("sessions", 0, "mailbox sessions to search folders in parallel (default 1)")
	fs.Duration("fetch-timeout", 0, "timeout for a single message fetch (default 30s)")
	fs.Int("rps", 0, "maximum message fetches per second, 0 for no limit")
	fs.Bool("history", true, "record the run in the history database")

	cfg, err := a.load(fs, c, args)
	if err != nil {
		return err
	}

	if kws := append(*keywords, fs.Args()...); len(kws) > 0 {
		cfg.Search.Keywords = kws
	}
	if *noSent {
		cfg.Search.IncludeSent = false
	}

	criteria := cfg.Criteria()
	if err := criteria.Validate(); err != nil {
		fs.Usage()
		return err
	}
	format, err := report.ParseFormat(cfg.Report.Format)
	if err != nil {
		return err
	}

	d, err := a.dialer(cfg)
	if err != nil {
		return err
	}

	started := a.now()
	res, err := a.search(ctx, cfg, d, criteria)
	if err != nil {
		return err
	}
	finished := a.now()

	var buf bytes.Buffer
	if err := report.Render(&buf, format, res.Records, finished); err != nil {
		return err
	}
	if err := a.writeReport(cfg.Report.Output, buf.Bytes()); err != nil {
		return err
	}
	fmt.Fprint(a.stderr, renderSummary(res, finished.Sub(started)))

	if cfg.History.Enabled {
		run := model.Run{
			StartedAt:       started,
			FinishedAt:      finished,
			Provider:        cfg.Mailbox.Provider,
			Account:         account(cfg),
			Keywords:        criteria.NormalizedKeywords(),
			Folders:         criteria.ResolvedFolders(),
			Days:            criteria.Days,
			Total:           len(res.Records),
			MessagesScanned: res.Outcome.MessagesScanned,
			FoldersSkipped:  len(res.Outcome.FoldersSkipped),
			MessagesSkipped: len(res.Outcome.MessagesSkipped),
			DatesImputed:    res.Outcome.DatesImputed,
		}
		rep := model.StoredReport{Format: format.String(), Content: buf.String()}
		if err := a.recordRun(ctx, cfg.History.Path, run, rep); err != nil {
			a.logger.Warn("saving run history failed", "error", err)
		}
	}
	return nil
}

// search runs sequentially on one session, or on a pool of sessions when
// more than one is allowed.
func (a *app) search(
	ctx context.Context,
	cfg *model.AppConfig,
	d mailbox.Dialer,
	criteria model.SearchCriteria,
) (*search.Result, error) {
	coord := search.New(search.Options{
		Limiter:      search.NewLimiter(cfg.Search.RPS),
		FetchTimeout: cfg.Search.FetchTimeout,
		MaxSessions:  cfg.Search.MaxSessions,
		Logger:       a.logger,
		Now:          a.now,
	})

	a.logger.Info("searching mailbox",
		"provider", cfg.Mailbox.Provider,
		"account", account(cfg),
		"folders", criteria.ResolvedFolders(),
		"keywords", criteria.NormalizedKeywords(),
		"days", criteria.Days,
	)

	if cfg.Search.MaxSessions > 1 {
		return coord.SearchPool(ctx, d, criteria)
	}

	var res *search.Result
	err := a.withSession(ctx, d, func(sess mailbox.Session) error {
		var err error
		res, err = coord.Search(ctx, sess, criteria)
		return err
	})
	return res, err
}

func (a *app) writeReport(path string, content []byte) error {
	if path == "" {
		_, err := a.stdout.Write(content)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	a.logger.Info("report saved", "path", path)
	return nil
}

func (a *app) recordRun(ctx context.Context, path string, run model.Run, rep model.StoredReport) error {
	s, err := openStore(path)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.SaveRun(ctx, run, rep)
	if err != nil {
		return err
	}
	a.logger.Debug("run recorded", "id", id)
	return nil
}

func openStore(path string) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	return store.NewSQLiteStore(path)
}

// cutoff returns the start of the day n days before now.
func cutoff(now time.Time, days int) time.Time {
	y, m, d := now.AddDate(0, 0, -days).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
