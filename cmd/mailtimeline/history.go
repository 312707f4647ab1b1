package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/mail-timeline/internal/model"
	"github.com/nhle/mail-timeline/internal/store"
	"github.com/nhle/mail-timeline/internal/theme"
)

func (a *app) runHistory(ctx context.Context, args []string) error {
	fs := newFlagSet(a, "history", "")
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", model.DefaultConfigPath(), "config file")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log debug output")
	dbPath := fs.String("db", "", "history database (default from config)")
	limit := fs.IntP("limit", "n", 20, "number of runs to list, 0 for all")
	keyword := fs.StringP("keyword", "k", "", "only list runs that searched for this keyword")
	show := fs.String("show", "", "print the stored report of a run, by id or id prefix")
	prune := fs.Int("prune", 0, "delete runs older than this many days")

	if err := fs.Parse(args); err != nil {
		return err
	}
	a.logger = newLogger(a.stderr, c.verbose)

	cfg, err := model.LoadConfig(c.configPath, nil)
	if err != nil {
		return err
	}
	path := cfg.History.Path
	if *dbPath != "" {
		path = *dbPath
	}

	s, err := openStore(path)
	if err != nil {
		return err
	}
	defer s.Close()

	switch {
	case *show != "":
		return a.showRun(ctx, s, *show)
	case *prune > 0:
		before := cutoff(a.now(), *prune)
		n, err := s.DeleteRunsBefore(ctx, before)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Deleted %d runs started before %s\n", n, before.Format(time.DateOnly))
		return nil
	case *prune < 0:
		return errors.New("--prune must be positive")
	}

	runs, err := s.ListRuns(ctx, store.RunFilter{Keyword: *keyword, Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.stdout, theme.HelpStyle.Render("No runs recorded."))
		return nil
	}
	for _, r := range runs {
		fmt.Fprintln(a.stdout, formatRun(r))
	}
	return nil
}

func (a *app) showRun(ctx context.Context, s store.Store, id string) error {
	run, err := s.GetRun(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no run matches %q", id)
	}
	if err != nil {
		return err
	}
	rep, err := s.GetReport(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("loading report of run %s: %w", run.ID, err)
	}
	a.logger.Debug("showing stored report", "id", run.ID, "format", rep.Format)
	_, err = fmt.Fprint(a.stdout, rep.Content)
	return err
}

// formatRun renders one history line.
func formatRun(r model.Run) string {
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	status := theme.OKStyle.Render("ok")
	if r.Degraded() {
		status = theme.WarnStyle.Render(fmt.Sprintf("skipped %d folders, %d emails", r.FoldersSkipped, r.MessagesSkipped))
	}

	var kws []string
	for i, kw := range r.Keywords {
		kws = append(kws, theme.KeywordStyle(i).Render(kw))
	}
	keywords := joinOrNone(r.Keywords)
	if len(kws) > 0 {
		keywords = strings.Join(kws, ", ")
	}

	return fmt.Sprintf("%s  %s  %s  %dd  %d/%d emails  [%s]  %s  %s",
		theme.HelpStyle.Render(id),
		r.StartedAt.Local().Format("2006-01-02 15:04"),
		keywords,
		r.Days,
		r.Total,
		r.MessagesScanned,
		joinOrNone(r.Folders),
		r.Format,
		status,
	)
}
