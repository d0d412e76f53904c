package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apilens/apilens/internal/store"
)

func newListCmd() *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed endpoints with their status",
		Long: `List the endpoints recorded by the last scan, in discovery order.

Each row shows the canonical path, the HTTP method, and the consistency
status (valid, invalid, unresolved, param-mismatch).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open snapshot store (run 'apilens scan' first): %w", err)
			}
			defer db.Close()

			entries, err := db.All()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			shown := 0
			for _, e := range entries {
				if statusFilter != "" && string(e.Status) != statusFilter {
					continue
				}
				fmt.Fprintln(out, formatEntryLine(e))
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(out, dimStyle.Render("no endpoints recorded; run 'apilens scan'"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "only show entries with this status")
	return cmd
}
