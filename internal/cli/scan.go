package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/apilens/apilens/internal/store"
)

func newScanCmd() *cobra.Command {
	var noStore bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan both trees and build the endpoint index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			idx := buildIndex(cfg)
			if err := idx.Rebuild(context.Background(), rootsFromConfig(cfg)); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			st := idx.Stats()

			fmt.Fprintln(out)
			printSection(out, "Scan Summary")
			printKV(out, "Backend", fmt.Sprintf("%d definitions", st.BackendDefinitions))
			printKV(out, "Frontend", fmt.Sprintf("%d call sites", st.FrontendCalls))
			printKV(out, "Entries", fmt.Sprintf("%d", st.Entries))
			printKV(out, "Duration", st.Duration.String())
			fmt.Fprintln(out)

			statuses := make([]string, 0, len(st.ByStatus))
			for s := range st.ByStatus {
				statuses = append(statuses, s)
			}
			sort.Strings(statuses)
			for _, s := range statuses {
				printKV(out, s, fmt.Sprintf("%d", st.ByStatus[s]))
			}

			if len(st.Warnings) > 0 {
				fmt.Fprintln(out)
				printSection(out, "Warnings")
				for _, w := range st.Warnings {
					fmt.Fprintf(out, "    %s\n", dimStyle.Render(w))
				}
			}
			fmt.Fprintln(out)

			if noStore {
				return nil
			}
			db, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open snapshot store: %w", err)
			}
			defer db.Close()
			if err := db.ReplaceAll(idx.GetAllEndpoints()); err != nil {
				return err
			}
			fmt.Fprintf(out, "Snapshot written to %s\n", cfg.Store.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noStore, "no-store", false, "skip writing the snapshot database")
	return cmd
}
