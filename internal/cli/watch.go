package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/apilens/apilens/internal/store"
	"github.com/apilens/apilens/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rescan automatically on source changes",
		Long: `Run an initial scan, then watch both source trees and rebuild the
index whenever a scanned file changes. Change bursts are debounced so a
save-all triggers one rebuild.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open snapshot store: %w", err)
			}
			defer db.Close()

			idx := buildIndex(cfg)
			roots := rootsFromConfig(cfg)
			out := cmd.OutOrStdout()

			rebuild := func(ctx context.Context) {
				if err := idx.Rebuild(ctx, roots); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "rebuild: %v\n", err)
					return
				}
				if err := db.ReplaceAll(idx.GetAllEndpoints()); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "snapshot: %v\n", err)
				}
				st := idx.Stats()
				fmt.Fprintf(out, "rebuilt: %d entries (%d valid, %d invalid, %d unresolved, %d param-mismatch)\n",
					st.Entries, st.ByStatus["valid"], st.ByStatus["invalid"],
					st.ByStatus["unresolved"], st.ByStatus["param-mismatch"])
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			rebuild(ctx)

			w := watcher.New(watcher.Config{
				Roots:    []string{cfg.Frontend.Root, cfg.Backend.Root},
				Excludes: cfg.Scan.Exclude,
			})
			defer w.Close()

			events, err := w.Start(ctx)
			if err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			fmt.Fprintln(out, "watching for changes (ctrl-c to stop)")

			for {
				select {
				case <-ctx.Done():
					fmt.Fprintln(out, "stopped")
					return nil
				case evt, ok := <-events:
					if !ok {
						return nil
					}
					if verbose {
						fmt.Fprintf(out, "%s %s\n", evt.Op, evt.Path)
					}
					// Fold any events already queued into this rebuild.
					for drained := true; drained; {
						select {
						case _, ok := <-events:
							drained = ok
						default:
							drained = false
						}
					}
					rebuild(ctx)
				}
			}
		},
	}
}
