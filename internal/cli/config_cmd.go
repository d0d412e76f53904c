package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apilens/apilens/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprintln(out, headerStyle.Render("apilens Configuration"))
			fmt.Fprintln(out, headerStyle.Render(strings.Repeat("=", 21)))
			fmt.Fprintln(out)

			printSection(out, "Frontend")
			printKV(out, "Root", cfg.Frontend.Root)
			printKV(out, "Source dir", cfg.Frontend.SourceDir)
			fmt.Fprintln(out)

			printSection(out, "Backend")
			printKV(out, "Root", cfg.Backend.Root)
			printKV(out, "Kind", cfg.Backend.Kind)
			if cfg.Backend.Kind == "fastapi" {
				printKV(out, "Entrypoint", cfg.Backend.Entrypoint)
			}
			fmt.Fprintln(out)

			printSection(out, "Store")
			printKV(out, "Path", cfg.Store.Path)
			fmt.Fprintln(out)

			printSection(out, "Scan Exclusions")
			if len(cfg.Scan.Exclude) == 0 {
				fmt.Fprintln(out, "    (none)")
			}
			for _, pattern := range cfg.Scan.Exclude {
				fmt.Fprintf(out, "    %s\n", pattern)
			}
			fmt.Fprintln(out)

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "  %s %v\n\n", invalidStyle.Render("invalid:"), err)
			}
			return nil
		},
	}
}
