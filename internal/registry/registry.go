// Package registry discovers the GROMACS tools available at runtime and
// exposes each of them as an invocable descriptor under a stable addressable
// name. Discovery reconciles two tool-naming generations: modern releases
// (5.x through 2023) ship a handful of driver binaries whose sub-commands are
// the tools, while classic 4.x installed one executable per tool. After
// construction the registry also carries backward-compatible aliases so code
// written against either generation keeps resolving.
package registry

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"

	"github.com/golovatskygroup/gmxwrap/internal/history"
	"github.com/golovatskygroup/gmxwrap/internal/shell"
)

// Registry maps addressable names to tool descriptors. It is built once and
// read-only afterward; the only mutable state is the temp-file cleanup list
// maintained by the multi-index merge.
type Registry struct {
	tools   map[string]*Tool
	aliased map[string]bool // names created by the alias pass
	runner  shell.Runner
	log     *zap.Logger
	hist    *history.Store

	mu       sync.Mutex
	tmpfiles []string
}

// Option adjusts registry construction.
type Option func(*Registry)

// WithHistory records every tool invocation into the given store.
func WithHistory(store *history.Store) Option {
	return func(r *Registry) {
		r.hist = store
	}
}

func newRegistry(runner shell.Runner, log *zap.Logger, opts []Option) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		tools:   make(map[string]*Tool),
		aliased: make(map[string]bool),
		runner:  runner,
		log:     log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) register(name string, t *Tool) {
	t.reg = r
	r.tools[name] = t
}

// Get returns the tool bound to an addressable name.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all addressable names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of addressable names.
func (r *Registry) Len() int {
	return len(r.tools)
}

// Search returns addressable names approximately matching query, best first.
func (r *Registry) Search(query string, limit int) []string {
	if limit <= 0 {
		limit = 10
	}
	ranks := fuzzy.RankFindNormalizedFold(query, r.Names())
	sort.Sort(ranks)
	matches := make([]string, 0, limit)
	for _, rank := range ranks {
		matches = append(matches, rank.Target)
		if len(matches) == limit {
			break
		}
	}
	return matches
}

// registerTempFile schedules a merge artifact for removal at Close.
func (r *Registry) registerTempFile(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tmpfiles = append(r.tmpfiles, path)
}

// Close removes the temporary files produced by multi-index merges. Callers
// should pair Build with a deferred Close so merge artifacts are released on
// every exit path.
func (r *Registry) Close() error {
	r.mu.Lock()
	files := r.tmpfiles
	r.tmpfiles = nil
	r.mu.Unlock()

	var firstErr error
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			r.log.Warn("failed to remove merge artifact", zap.String("path", f), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Registry) recordInvocation(ctx context.Context, t *Tool, argv []string, res *shell.Result, runErr error, durationMs int64) {
	if r.hist == nil {
		return
	}
	inv := history.Invocation{
		Tool:        t.Name,
		CommandName: t.CommandName,
		Argv:        argv,
		DurationMs:  durationMs,
	}
	if res != nil {
		inv.ExitCode = res.ExitCode
	}
	if runErr != nil {
		inv.Error = runErr.Error()
	}
	if err := r.hist.Record(ctx, inv); err != nil {
		r.log.Warn("failed to record invocation", zap.String("tool", t.Name), zap.Error(err))
	}
}

// MakeValidIdentifier turns a canonical tool name into an addressable name:
// hyphens and dots become underscores and the first letter is capitalized,
// the rest lowered ("convert-tpr" -> "Convert_tpr").
func MakeValidIdentifier(name string) string {
	name = strings.NewReplacer("-", "_", ".", "_").Replace(name)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}

// DiscoveryError reports that a construction strategy found no usable tool.
type DiscoveryError struct {
	Generation string   // "v5" or "v4"
	Candidates []string // drivers or tool names that were tried
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("registry: failed to load %s tools (tried: %v)", e.Generation, e.Candidates)
}
