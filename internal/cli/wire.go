package cli

import (
	"fmt"
	"os"

	"github.com/apilens/apilens/internal/config"
	"github.com/apilens/apilens/internal/index"
	"github.com/apilens/apilens/internal/scanner/aspnet"
	"github.com/apilens/apilens/internal/scanner/fastapi"
	"github.com/apilens/apilens/internal/scanner/frontend"
)

// loadConfig loads and validates the project configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// quietUnlessVerbose returns the scanner/index logger honoring -v.
func quietUnlessVerbose() func(format string, args ...any) {
	if verbose {
		return func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return func(string, ...any) {}
}

// buildIndex wires the configured scanners into an index.
func buildIndex(cfg *config.Config) *index.Index {
	logFn := quietUnlessVerbose()

	fe := frontend.New()
	fe.SourceDir = cfg.Frontend.SourceDir
	fe.Log = logFn

	be := aspnet.New()
	be.Log = logFn
	fa := fastapi.New()
	fa.Log = logFn

	return index.NewIndex(index.Config{
		Frontend: fe,
		Backends: map[index.BackendKind]index.BackendSource{
			index.KindASPNet:  be,
			index.KindFastAPI: fa,
		},
		Logger: logFn,
	})
}

// rootsFromConfig maps config fields onto rebuild roots.
func rootsFromConfig(cfg *config.Config) index.Roots {
	return index.Roots{
		FrontendRoot:      cfg.Frontend.Root,
		BackendRoot:       cfg.Backend.Root,
		BackendKind:       index.BackendKind(cfg.Backend.Kind),
		BackendEntrypoint: cfg.Backend.Entrypoint,
	}
}
