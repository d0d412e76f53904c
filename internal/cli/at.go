package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/apilens/apilens/internal/scanner/frontend"
)

func newAtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "at <file> <line> <column>",
		Short: "Resolve the endpoint under a file position",
		Long: `Report the endpoint whose path argument contains the given position
in a frontend source file. Line is 1-based, column 0-based, matching
editor conventions.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			line, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("line %q is not a number", args[1])
			}
			col, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("column %q is not a number", args[2])
			}

			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}

			s := frontend.New()
			s.Log = quietUnlessVerbose()
			m, ok := s.LocateAt(file, content, line, col)
			if !ok {
				return fmt.Errorf("no endpoint at %s:%d:%d", file, line, col)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]\n", m.Path, m.Method)
			return nil
		},
	}
}
