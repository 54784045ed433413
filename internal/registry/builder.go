package registry

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/golovatskygroup/gmxwrap/internal/config"
	"github.com/golovatskygroup/gmxwrap/internal/shell"
)

// Default driver candidates for modern GROMACS when nothing is configured
// and the bin directory scan comes up empty or implausible.
var defaultDrivers = []string{"gmx", "gmx_d", "gmx_mpi", "gmx_mpi_d"}

// Releases whose tools are discovered through a driver binary.
var modernReleases = map[string]bool{
	"5": true, "2016": true, "2018": true, "2019": true, "2020": true,
	"2021": true, "2022": true, "2023": true,
}

// Build discovers the available tools and returns the populated registry.
// An explicitly configured release selects its strategy directly; otherwise
// modern discovery is tried first with a classic fallback. Both strategies
// failing is fatal: a *DiscoveryError is returned and the process cannot
// usefully proceed.
func Build(ctx context.Context, cfg *config.Config, runner shell.Runner, log *zap.Logger, opts ...Option) (*Registry, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	r := newRegistry(runner, log, opts)

	var err error
	switch {
	case modernReleases[cfg.Release]:
		r.log.Debug("loading tools for configured release", zap.String("release", cfg.Release))
		err = r.loadModernTools(ctx, cfg)
	case cfg.Release == "4":
		r.log.Debug("loading tools for configured release", zap.String("release", cfg.Release))
		err = r.loadClassicTools(cfg)
	default:
		r.log.Debug("no release configured, trying modern discovery with classic fallback")
		err = r.loadModernTools(ctx, cfg)
		var derr *DiscoveryError
		if errors.As(err, &derr) {
			err = r.loadClassicTools(cfg)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := r.applyAliases(); err != nil {
		return nil, err
	}
	r.rebindMultiIndexTools()

	r.log.Debug("registry built", zap.Int("tools", r.Len()))
	return r, nil
}

// loadModernTools discovers driver sub-commands (GROMACS 5.x through 2023).
// Driver candidates come from the config, then from a bin directory scan,
// then from the well-known defaults when the candidate count is zero or
// implausibly large.
func (r *Registry) loadModernTools(ctx context.Context, cfg *config.Config) error {
	drivers := cfg.Tools
	if len(drivers) == 0 && cfg.BinDir != "" {
		drivers = FindExecutables(cfg.BinDir)
	}
	if len(drivers) == 0 || len(drivers) > len(defaultDrivers) {
		drivers = defaultDrivers
	}

	for _, driver := range drivers {
		// gmx_d, gmx_mpi_d etc. carry a precision/variant suffix.
		_, suffix, _ := strings.Cut(driver, "_")

		names, err := driverCommands(ctx, r.runner, driver)
		if err != nil {
			r.log.Debug("driver probe failed", zap.String("driver", driver), zap.Error(err))
			continue
		}
		for _, name := range names {
			fancy := MakeValidIdentifier(name)
			if suffix != "" && cfg.AppendSuffixEnabled() {
				fancy = fancy + "_" + suffix
			}
			r.register(fancy, &Tool{Name: fancy, CommandName: name, Driver: driver})
		}
	}

	if r.Len() == 0 {
		return &DiscoveryError{Generation: "v5", Candidates: drivers}
	}
	r.log.Debug("loaded modern tools", zap.Int("count", r.Len()))
	return nil
}

// loadClassicTools registers directly-executable GROMACS 4.x tools from the
// config, a bin directory scan, or the builtin list, plus any configured
// extras. No driver indirection is involved.
func (r *Registry) loadClassicTools(cfg *config.Config) error {
	names := cfg.Tools
	if len(names) == 0 && cfg.BinDir != "" {
		names = FindExecutables(cfg.BinDir)
	}
	if len(names) == 0 || len(names) > len(v4Tools)*4 {
		names = append([]string(nil), v4Tools...)
	}
	names = append(names, cfg.ExtraTools...)

	for _, name := range names {
		fancy := MakeValidIdentifier(name)
		r.register(fancy, &Tool{Name: fancy, CommandName: name})
	}

	if r.Len() == 0 {
		return &DiscoveryError{Generation: "v4", Candidates: names}
	}
	r.log.Debug("loaded classic tools", zap.Int("count", r.Len()))
	return nil
}
