package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	serrors "github.com/sharethrift/searchindex/internal/errors"
	"github.com/sharethrift/searchindex/internal/output"
	"github.com/sharethrift/searchindex/internal/reconcile"
	"github.com/sharethrift/searchindex/internal/schema"
	"github.com/sharethrift/searchindex/internal/search"
	"github.com/sharethrift/searchindex/internal/watcher"
)

// syncResult describes one synchronisation pass.
type syncResult struct {
	Index    string
	Summary  reconcile.Summary
	Deleted  int
	Redefine bool
}

// syncer keeps an index in step with successive versions of a fixture.
type syncer struct {
	svc    *search.Service
	rec    *reconcile.Reconciler
	logger *slog.Logger

	def    schema.IndexDefinition
	states map[string]*reconcile.State
}

func newSyncer(svc *search.Service, rec *reconcile.Reconciler, logger *slog.Logger) *syncer {
	return &syncer{
		svc:    svc,
		rec:    rec,
		logger: logger,
		states: make(map[string]*reconcile.State),
	}
}

// Sync writes changed documents of fx and removes documents that are no
// longer present. A changed index definition replaces the index and
// rewrites every document.
func (s *syncer) Sync(ctx context.Context, fx *Fixture) (syncResult, error) {
	res := syncResult{Index: fx.Index.Name}

	if s.def.Name != "" && !reflect.DeepEqual(s.def, fx.Index.Clone()) {
		if s.def.Name != fx.Index.Name {
			if err := s.svc.DeleteIndex(ctx, s.def.Name); err != nil && !serrors.IsCode(err, serrors.ErrCodeIndexNotFound) {
				return res, err
			}
		}
		if _, err := s.svc.CreateOrUpdateIndexDefinition(ctx, fx.Index.Name, fx.Index); err != nil {
			return res, err
		}
		s.states = make(map[string]*reconcile.State)
		res.Redefine = true
		s.logger.Info("watch_index_redefined", slog.String("index", fx.Index.Name))
	}
	s.def = fx.Index.Clone()

	// seen maps a key to its item; a repeated key replaces the earlier
	// document so each State is written by one item only.
	seen := make(map[string]int, len(fx.Documents))
	items := make([]reconcile.Item, 0, len(fx.Documents))
	for _, doc := range fx.Documents {
		key, err := schema.KeyOf(fx.Index, doc)
		if err != nil {
			items = append(items, reconcile.Item{Doc: doc})
			continue
		}
		if i, dup := seen[key]; dup {
			s.logger.Warn("watch_duplicate_key",
				slog.String("index", fx.Index.Name),
				slog.String("key", key))
			items[i].Doc = doc
			continue
		}
		seen[key] = len(items)
		st, ok := s.states[key]
		if !ok {
			st = &reconcile.State{}
			s.states[key] = st
		}
		items = append(items, reconcile.Item{Doc: doc, State: st})
	}

	var errs []error
	summary, err := s.rec.UpdateAll(ctx, fx.Index, items)
	res.Summary = summary
	errs = append(errs, err)

	for key := range s.states {
		if _, ok := seen[key]; ok {
			continue
		}
		if err := s.rec.DeleteFromIndexWithRetry(ctx, fx.Index.Name, key); err != nil {
			errs = append(errs, err)
			continue
		}
		delete(s.states, key)
		res.Deleted++
	}

	return res, errors.Join(errs...)
}

func newWatchCmd(a *app) *cobra.Command {
	var once bool
	var poll bool
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <fixture>",
		Short: "Keep an index in sync with a fixture file",
		Long: `Load a fixture and re-synchronise the index whenever the file changes.

Only documents whose content hash changed are rewritten. Documents removed
from the fixture are deleted from the index. Failed writes are retried with
exponential backoff.

Examples:
  searchindex watch listings.yaml
  searchindex watch listings.yaml --once
  searchindex watch listings.yaml --poll`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, a, args[0], watchOptions{
				once:     once,
				poll:     poll,
				debounce: debounce,
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Synchronise once and exit")
	cmd.Flags().BoolVar(&poll, "poll", false, "Poll the file instead of using file system notifications")
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "Quiet time before a change is applied")

	return cmd
}

type watchOptions struct {
	once     bool
	poll     bool
	debounce time.Duration
}

func runWatch(ctx context.Context, cmd *cobra.Command, a *app, path string, opts watchOptions) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	out := output.New(cmd.OutOrStdout())

	svc, err := a.newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Shutdown(context.Background()) }()

	rec := reconcile.New(svc,
		reconcile.WithLogger(a.log()),
		reconcile.WithRetryConfig(cfg.RetrySetup()),
		reconcile.WithConcurrency(cfg.Retry.Concurrency),
		reconcile.WithBreaker(serrors.NewCircuitBreaker("search_index")),
	)
	sy := newSyncer(svc, rec, a.log())

	pass := func() error {
		fx, err := LoadFixture(path)
		if err != nil {
			return err
		}
		res, err := sy.Sync(ctx, fx)
		reportSync(out, res)
		return err
	}

	if err := pass(); err != nil {
		if opts.once {
			return err
		}
		out.Error(err.Error())
	}
	if opts.once {
		return nil
	}

	w, err := watcher.New(watcher.Options{
		DebounceWindow: opts.debounce,
		ForcePolling:   opts.poll,
	}, path)
	if err != nil {
		return err
	}
	w.SetLogger(a.log())
	events := w.Events()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	select {
	case <-w.Ready():
	case err := <-done:
		return err
	}
	out.Statusf("", "Watching %s (Ctrl+C to stop)", path)

	for batch := range events {
		if removed(batch) {
			out.Warningf("%s was removed; keeping the current index", path)
			continue
		}
		if err := pass(); err != nil {
			a.log().Warn("watch_sync_failed", slog.String("path", path), slog.String("error", err.Error()))
			out.Error(err.Error())
		}
	}
	return <-done
}

func removed(batch []watcher.FileEvent) bool {
	for _, ev := range batch {
		if ev.Operation == watcher.OpDelete || ev.Operation == watcher.OpRename {
			return true
		}
	}
	return false
}

func reportSync(out *output.Writer, res syncResult) {
	if res.Index == "" {
		return
	}
	if res.Redefine {
		out.Warningf("index %s redefined; all documents rewritten", res.Index)
	}
	msg := fmt.Sprintf("synced %s: %d indexed, %d unchanged, %d failed, %d deleted",
		res.Index, res.Summary.Indexed, res.Summary.Unchanged, res.Summary.Failed, res.Deleted)
	if res.Summary.Failed > 0 {
		out.Warning(msg)
		return
	}
	out.Success(msg)
}
