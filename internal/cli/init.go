package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/apilens/apilens/internal/config"
	"github.com/apilens/apilens/internal/scanner/fastapi"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a .apilens.yaml config file",
		Long: `Create a .apilens.yaml in the current directory through an interactive
wizard: where the frontend and backend trees live, which routing style
the backend uses, and (for fastapi) the application entrypoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			configPath := filepath.Join(cwd, config.DefaultConfigFile+"."+config.DefaultConfigType)

			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
			}

			out := cmd.OutOrStdout()

			var (
				frontendRoot = "."
				sourceDir    = "src"
				backendRoot  = "."
				kind         = "aspnet"
				entrypoint   = "main.py:app"
				confirm      bool
			)

			notEmpty := func(field string) func(string) error {
				return func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("%s cannot be empty", field)
					}
					return nil
				}
			}

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Frontend root").
						Description("Directory containing the frontend project").
						Value(&frontendRoot).
						Validate(notEmpty("frontend root")),
					huh.NewInput().
						Title("Source directory").
						Description("Subdirectory scanned when present (usually src)").
						Value(&sourceDir),
				).Title("Frontend"),

				huh.NewGroup(
					huh.NewInput().
						Title("Backend root").
						Description("Directory containing the backend project").
						Value(&backendRoot).
						Validate(notEmpty("backend root")),
					huh.NewSelect[string]().
						Title("Routing style").
						Options(
							huh.NewOption("ASP.NET attribute routing", "aspnet"),
							huh.NewOption("FastAPI decorator routing", "fastapi"),
						).
						Value(&kind),
				).Title("Backend"),

				huh.NewGroup(
					huh.NewInput().
						Title("Entrypoint").
						Description("Relative path and app variable, e.g. app/main.py:app").
						Value(&entrypoint).
						Validate(func(s string) error {
							_, _, err := fastapi.ParseEntrypoint(s)
							return err
						}),
				).Title("FastAPI").
					WithHideFunc(func() bool { return kind != "fastapi" }),

				huh.NewGroup(
					huh.NewNote().
						Title("Summary").
						DescriptionFunc(func() string {
							lines := fmt.Sprintf(
								"Frontend:  %s (source dir %s)\n"+
									"Backend:   %s (%s)",
								frontendRoot, sourceDir, backendRoot, kind)
							if kind == "fastapi" {
								lines += fmt.Sprintf("\nEntry:     %s", entrypoint)
							}
							return lines
						}, &kind),
					huh.NewConfirm().
						Title("Write " + configPath + "?").
						Value(&confirm).
						Affirmative("Write").
						Negative("Cancel"),
				).Title("Confirm"),
			).WithTheme(huh.ThemeCharm())

			if err := form.Run(); err != nil {
				if err == huh.ErrUserAborted {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
				return fmt.Errorf("interactive init: %w", err)
			}
			if !confirm {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}

			cfg := &config.Config{
				Frontend: config.FrontendConfig{Root: frontendRoot, SourceDir: sourceDir},
				Backend:  config.BackendConfig{Root: backendRoot, Kind: kind},
				Scan:     config.ScanConfig{},
				Store:    config.StoreConfig{Path: ".apilens.db"},
			}
			if kind == "fastapi" {
				cfg.Backend.Entrypoint = entrypoint
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.WriteConfig(cfg, configPath); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			fmt.Fprintf(out, "Created %s\n", configPath)
			fmt.Fprintln(out, "Run 'apilens scan' to build the endpoint index.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
