// Package index holds the endpoint cross-reference: backend route
// definitions merged with frontend call sites under canonical match keys,
// each entry carrying a consistency status.
package index

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/apilens/apilens/internal/endpoint"
)

// BackendKind selects the backend scanning strategy.
type BackendKind string

const (
	// KindASPNet scans C# attribute-routed controllers.
	KindASPNet BackendKind = "aspnet"
	// KindFastAPI scans a Python decorator router graph from an entrypoint.
	KindFastAPI BackendKind = "fastapi"
)

// Source scans a frontend tree for outgoing API calls.
type Source interface {
	Scan(ctx context.Context, root string) ([]endpoint.Descriptor, []string, error)
}

// BackendSource scans a backend tree for endpoint definitions. The
// entrypoint is only meaningful for router-graph backends and is ignored
// by attribute-style ones.
type BackendSource interface {
	Scan(ctx context.Context, root, entrypoint string) ([]endpoint.Descriptor, []string, error)
}

// Config wires scanners into an Index.
type Config struct {
	Frontend Source
	Backends map[BackendKind]BackendSource
	Logger   func(format string, args ...any) // optional, defaults to stderr
}

// Roots names the trees one rebuild reads.
type Roots struct {
	FrontendRoot      string
	BackendRoot       string
	BackendKind       BackendKind
	BackendEntrypoint string // "<file>.py:<var>" for router-graph backends
}

// Stats summarizes the last completed rebuild.
type Stats struct {
	FrontendCalls      int            `json:"frontend_calls"`
	BackendDefinitions int            `json:"backend_definitions"`
	Entries            int            `json:"entries"`
	ByStatus           map[string]int `json:"by_status"`
	Warnings           []string       `json:"warnings,omitempty"`
	LastRebuild        time.Time      `json:"last_rebuild"`
	Duration           time.Duration  `json:"duration"`
}

// Index is the in-memory endpoint cross-reference. All reads observe a
// complete snapshot: Rebuild assembles the next state on the side and
// swaps it in atomically.
type Index struct {
	frontend Source
	backends map[BackendKind]BackendSource
	log      func(format string, args ...any)

	mu        sync.RWMutex
	entries   map[string]*endpoint.Entry
	order     []string
	stats     Stats
	observers map[int]func()
	nextObs   int
}

// NewIndex creates an empty index over the configured scanners.
func NewIndex(cfg Config) *Index {
	logFn := cfg.Logger
	if logFn == nil {
		logFn = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Index{
		frontend:  cfg.Frontend,
		backends:  cfg.Backends,
		log:       logFn,
		entries:   make(map[string]*endpoint.Entry),
		observers: make(map[int]func()),
	}
}

// Rebuild scans both trees and replaces the index contents wholesale.
// The previous snapshot stays readable until the swap. Scan errors abort
// the rebuild and leave the index untouched.
func (x *Index) Rebuild(ctx context.Context, roots Roots) error {
	start := time.Now()

	if roots.FrontendRoot == "" {
		return fmt.Errorf("rebuild: frontend root is empty")
	}
	if roots.BackendRoot == "" {
		return fmt.Errorf("rebuild: backend root is empty")
	}
	backend, ok := x.backends[roots.BackendKind]
	if !ok {
		return fmt.Errorf("rebuild: unknown backend kind %q", roots.BackendKind)
	}

	var (
		wg         sync.WaitGroup
		frontDs    []endpoint.Descriptor
		backDs     []endpoint.Descriptor
		frontWarns []string
		backWarns  []string
		frontErr   error
		backErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		frontDs, frontWarns, frontErr = x.frontend.Scan(ctx, roots.FrontendRoot)
	}()
	go func() {
		defer wg.Done()
		backDs, backWarns, backErr = backend.Scan(ctx, roots.BackendRoot, roots.BackendEntrypoint)
	}()
	wg.Wait()

	if frontErr != nil {
		return fmt.Errorf("rebuild: frontend scan: %w", frontErr)
	}
	if backErr != nil {
		return fmt.Errorf("rebuild: backend scan: %w", backErr)
	}

	entries, order := merge(backDs, frontDs)

	stats := Stats{
		FrontendCalls:      len(frontDs),
		BackendDefinitions: len(backDs),
		Entries:            len(order),
		ByStatus:           make(map[string]int),
		Warnings:           append(frontWarns, backWarns...),
		LastRebuild:        time.Now(),
		Duration:           time.Since(start),
	}
	for _, key := range order {
		stats.ByStatus[string(entries[key].Status)]++
	}

	x.mu.Lock()
	x.entries = entries
	x.order = order
	x.stats = stats
	x.mu.Unlock()

	x.log("index: rebuilt %d entries (%d backend, %d frontend) in %s",
		len(order), len(backDs), len(frontDs), stats.Duration.Round(time.Millisecond))
	x.notify()
	return nil
}

// merge folds backend definitions then frontend calls into fresh entries.
// Status transitions are one-way: invalid and unresolved are terminal, and
// param-mismatch is only reached from valid.
func merge(backend, frontend []endpoint.Descriptor) (map[string]*endpoint.Entry, []string) {
	entries := make(map[string]*endpoint.Entry)
	var order []string

	for _, d := range backend {
		key := endpoint.Key(d.RawPath, d.Method)
		def := endpoint.BackendDefinition{
			Location:    d.Location,
			HTTPMethod:  canonicalMethod(d.Method),
			RawEndpoint: d.RawPath,
		}

		e, ok := entries[key]
		if !ok {
			entries[key] = &endpoint.Entry{
				Endpoint:           endpoint.Normalize(d.RawPath).Display,
				HTTPMethod:         def.HTTPMethod,
				BackendDefinitions: []endpoint.BackendDefinition{def},
				BackendParams:      d.Params,
				Status:             endpoint.StatusValid,
			}
			order = append(order, key)
			continue
		}

		e.BackendDefinitions = append(e.BackendDefinitions, def)
		e.Status = endpoint.StatusInvalid
		e.ErrorMessage = fmt.Sprintf("%d backend definitions for the same route", len(e.BackendDefinitions))
	}

	for _, d := range frontend {
		key := endpoint.Key(d.RawPath, d.Method)
		call := endpoint.FrontendCall{
			Location:    d.Location,
			Params:      d.Params,
			RawEndpoint: d.RawPath,
			HTTPMethod:  canonicalMethod(d.Method),
		}

		e, ok := entries[key]
		if !ok {
			e = &endpoint.Entry{
				Endpoint:     endpoint.Normalize(d.RawPath).Display,
				HTTPMethod:   call.HTTPMethod,
				Status:       endpoint.StatusUnresolved,
				ErrorMessage: "no backend definition found",
			}
			entries[key] = e
			order = append(order, key)
		}
		e.Frontends = append(e.Frontends, call)

		// Positional check applies only against an unambiguous definition.
		if len(e.BackendDefinitions) != 1 {
			continue
		}
		if e.Status != endpoint.StatusValid && e.Status != endpoint.StatusParamMismatch {
			continue
		}
		if mm := endpoint.MatchParams(d.Params, e.BackendParams); len(mm) > 0 {
			e.Status = endpoint.StatusParamMismatch
			e.ParamMismatches = mm
		}
	}

	return entries, order
}

// GetAllEndpoints returns every entry in insertion order (backend
// definitions in discovery order, then frontend-only entries).
func (x *Index) GetAllEndpoints() []endpoint.Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]endpoint.Entry, 0, len(x.order))
	for _, key := range x.order {
		out = append(out, *x.entries[key])
	}
	return out
}

// GetEntry looks up one entry by path and method, applying the same
// normalization the merge applied, so raw and canonical spellings agree.
func (x *Index) GetEntry(path, method string) (endpoint.Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.entries[endpoint.Key(path, method)]
	if !ok {
		return endpoint.Entry{}, false
	}
	return *e, true
}

// FindBackendForEndpoint returns the first backend definition recorded for
// the given path and method, if any exists.
func (x *Index) FindBackendForEndpoint(path, method string) (endpoint.BackendDefinition, bool) {
	e, ok := x.GetEntry(path, method)
	if !ok || len(e.BackendDefinitions) == 0 {
		return endpoint.BackendDefinition{}, false
	}
	return e.BackendDefinitions[0], true
}

// Stats returns the summary of the last rebuild.
func (x *Index) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.stats
}

// Subscribe registers a callback fired after every rebuild and clear. The
// returned id cancels it via Unsubscribe.
func (x *Index) Subscribe(fn func()) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	id := x.nextObs
	x.nextObs++
	x.observers[id] = fn
	return id
}

// Unsubscribe removes a previously registered observer.
func (x *Index) Unsubscribe(id int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.observers, id)
}

// Clear drops all entries and notifies observers.
func (x *Index) Clear() {
	x.mu.Lock()
	x.entries = make(map[string]*endpoint.Entry)
	x.order = nil
	x.stats = Stats{}
	x.mu.Unlock()
	x.notify()
}

// notify invokes observers outside the entry lock so callbacks can read
// the index.
func (x *Index) notify() {
	x.mu.RLock()
	fns := make([]func(), 0, len(x.observers))
	for _, fn := range x.observers {
		fns = append(fns, fn)
	}
	x.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

func canonicalMethod(m string) string {
	if m == "" {
		return "GET"
	}
	return strings.ToUpper(m)
}
