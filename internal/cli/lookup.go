package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apilens/apilens/internal/endpoint"
	"github.com/apilens/apilens/internal/store"
)

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <path> [method]",
		Short: "Show the full record for one endpoint",
		Long: `Look up one endpoint by path and method. The path can be spelled the
way either side writes it; it is normalized before the lookup. The
method defaults to GET.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			method := ""
			if len(args) == 2 {
				method = args[1]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open snapshot store (run 'apilens scan' first): %w", err)
			}
			defer db.Close()

			e, ok, err := db.Get(path, method)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no entry for %s %s", path, method)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			printSection(out, formatEntryLine(e))
			if e.ErrorMessage != "" {
				printKV(out, "Problem", e.ErrorMessage)
			}
			fmt.Fprintln(out)

			if len(e.BackendDefinitions) > 0 {
				printSection(out, "Backend")
				for _, d := range e.BackendDefinitions {
					printKV(out, d.HTTPMethod, fmt.Sprintf("%s  %s", d.RawEndpoint, formatLocation(d.Location)))
				}
				fmt.Fprintln(out)
			}

			if len(e.Frontends) > 0 {
				printSection(out, "Frontend calls")
				for _, c := range e.Frontends {
					printKV(out, c.HTTPMethod, fmt.Sprintf("%s  %s", c.RawEndpoint, formatLocation(c.Location)))
				}
				fmt.Fprintln(out)
			}

			if len(e.ParamMismatches) > 0 {
				printSection(out, "Parameter mismatches")
				for _, mm := range e.ParamMismatches {
					fmt.Fprintf(out, "    position %d: frontend %q vs backend %q\n",
						mm.Position, mm.FrontendParam, mm.BackendParam)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	return cmd
}

func formatLocation(loc endpoint.Location) string {
	return dimStyle.Render(fmt.Sprintf("%s:%d", loc.File, loc.Line))
}
