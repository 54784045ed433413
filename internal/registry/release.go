package registry

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// releasePattern matches the version line of `gmx grompp -version` output.
// GROMACS has printed this line since 4.x; if the format changes the probe
// degrades to "unknown" rather than failing.
var releasePattern = regexp.MustCompile(`(?i)^gromacs version:\s*(?:VERSION)?\s*(.+)$`)

// Release reports which GROMACS release backs the registry, so callers can
// branch on tool generation (e.g. do_dssp vs the 2023 dssp replacement).
type Release struct {
	value string
	log   *zap.Logger
}

// NewRelease probes the registry's version-reporting tool once. Absence of
// the tool, a failed invocation or an unrecognized output all leave the
// release unset; later observations warn instead of failing.
func NewRelease(ctx context.Context, reg *Registry, log *zap.Logger) *Release {
	if log == nil {
		log = zap.NewNop()
	}
	rel := &Release{log: log}

	grompp, ok := reg.Get("Grompp")
	if !ok {
		log.Debug("no Grompp in registry, release stays unknown")
		return rel
	}

	res, err := grompp.Run(ctx, []string{"-version"})
	if err != nil {
		log.Debug("version probe failed", zap.Error(err))
		return rel
	}

	lines := strings.Split(res.Stdout, "\n")
	lines = append(lines, strings.Split(res.Stderr, "\n")...)
	for _, line := range lines {
		if m := releasePattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			rel.value = m[1]
			break
		}
	}
	return rel
}

// Known reports whether the probe found a release string.
func (r *Release) Known() bool {
	return r.value != ""
}

// Value returns the raw release string, empty when unknown.
func (r *Release) Value() string {
	if r.value == "" {
		r.log.Warn("cannot determine GROMACS release")
	}
	return r.value
}

// String returns the release string or "unknown".
func (r *Release) String() string {
	if r.value == "" {
		return "unknown"
	}
	return r.value
}

// StartsWith reports whether the release string starts with any of the given
// prefixes, e.g. StartsWith("2016", "2018", "2019").
func (r *Release) StartsWith(prefixes ...string) bool {
	if r.value == "" {
		r.log.Warn("cannot determine GROMACS release")
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(r.value, p) {
			return true
		}
	}
	return false
}
