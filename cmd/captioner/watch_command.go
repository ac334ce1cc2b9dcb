package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tools.zach/dev/captioner/internal/catalog"
	"tools.zach/dev/captioner/internal/paths"
	"tools.zach/dev/captioner/internal/watch"
)

// ///////////////////////////////////////////////
// Inbox Lock
// ///////////////////////////////////////////////

// lockHeldError reports that another watcher owns the inbox.
type lockHeldError struct {
	path string
	err  error
}

func (e *lockHeldError) Error() string {
	return fmt.Sprintf("another watcher holds %s", e.path)
}

func (e *lockHeldError) Unwrap() error { return e.err }

// acquireInboxLock opens the inbox lock file, locks it, and records the
// owning pid. The returned file must stay open while the watcher runs.
func acquireInboxLock(in paths.Inbox) (*os.File, error) {
	f, err := os.OpenFile(in.Lock(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, &lockHeldError{path: in.Lock(), err: err}
	}
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	}
	return f, nil
}

// releaseInboxLock unlocks and closes f. The file itself stays behind.
func releaseInboxLock(f *os.File) {
	if f == nil {
		return
	}
	_ = unlockFile(f)
	f.Close()
}

// ///////////////////////////////////////////////
// Command
// ///////////////////////////////////////////////

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var once bool
	var forcePolling bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Render job files dropped into the inbox",
		Long: "Watch the inbox for JSON job files of the form\n" +
			"  {\"template\": \"this_is_fine\", \"captions\": [\"...\"], \"prompt\": \"...\"}\n" +
			"Rendered jobs move to inbox/done/, failed ones to inbox/failed/ with a .err note.\n" +
			"Write jobs atomically (write elsewhere, then rename into the inbox).\n" +
			"The catalog file is reloaded whenever it changes.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.activeLogger()
			in := paths.Inbox{Dir: ctx.dataDir().Resolve(cfg.Watch.Inbox)}
			if err := os.MkdirAll(in.Dir, 0o755); err != nil {
				return fmt.Errorf("create inbox: %w", err)
			}

			lock, err := acquireInboxLock(in)
			if err != nil {
				return err
			}
			defer releaseInboxLock(lock)

			store, err := catalog.NewStore(ctx.catalogPath())
			if err != nil {
				return err
			}
			p, err := ctx.newPipeline(store)
			if err != nil {
				return err
			}

			stats, err := processInbox(p, in, log)
			if err != nil {
				return err
			}
			if once {
				fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d job(s), %d failed\n", stats.Rendered, stats.Failed)
				return nil
			}

			opts := watch.Options{
				PollInterval: time.Duration(cfg.Watch.PollIntervalSeconds) * time.Second,
				ForcePolling: forcePolling,
				Logger:       log,
			}
			jobOpts := opts
			jobOpts.Filter = paths.IsJob
			jobs, err := watch.New(in.Dir, jobOpts)
			if err != nil {
				return err
			}
			defer jobs.Close()

			catalogChanges, err := watch.NewFile(store.Path(), opts)
			if err != nil {
				return err
			}
			defer catalogChanges.Close()

			log.Info("watching inbox",
				"inbox", in.Dir,
				"catalog", store.Path(),
				"templates", store.Current().Len(),
				"polling", jobs.Polling(),
			)
			return runWatchLoop(cmd, p, in, store, jobs, catalogChanges, log)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Process the jobs already in the inbox and exit")
	cmd.Flags().BoolVar(&forcePolling, "poll", false, "Scan directories on an interval instead of using file events")
	return cmd
}

// runWatchLoop services inbox and catalog events until a stop signal
// arrives or the command context is cancelled.
func runWatchLoop(
	cmd *cobra.Command,
	r renderer,
	in paths.Inbox,
	store *catalog.Store,
	jobs, catalogChanges *watch.Watcher,
	log *slog.Logger,
) error {
	sigCh, stop := signalChannel()
	defer stop()

	for {
		select {
		case <-sigCh:
			log.Info("received shutdown signal")
			return nil

		case <-cmd.Context().Done():
			return nil

		case <-catalogChanges.Events():
			if err := store.Reload(); err != nil {
				log.Warn("catalog reload failed, keeping previous catalog", "error", err)
				continue
			}
			log.Info("catalog reloaded", "templates", store.Current().Len())

		case <-jobs.Events():
			if _, err := processInbox(r, in, log); err != nil {
				log.Error("inbox pass failed", "error", err)
			}
		}
	}
}
