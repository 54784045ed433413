package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/golovatskygroup/gmxwrap/internal/shell"
)

// Tool is one invocable GROMACS command. Descriptors are created during
// registry construction and immutable afterward.
type Tool struct {
	// Name is the generated addressable name, e.g. "Grompp" or "Mdrun_d".
	Name string

	// CommandName is the tool's real name as reported by its driver, e.g.
	// "grompp" or "convert-tpr".
	CommandName string

	// Driver is the indirection binary the tool is a sub-command of ("gmx",
	// "gmx_d", ...). Empty for classic tools that are directly executable.
	Driver string

	// MultiIndex marks tools whose index-file arguments are pre-merged, see
	// mergeIndexArgs.
	MultiIndex bool

	reg *Registry
}

// Argv builds the command line for the given tool arguments.
func (t *Tool) Argv(args ...string) []string {
	var argv []string
	if t.Driver != "" {
		argv = append(argv, t.Driver, t.CommandName)
	} else {
		argv = append(argv, t.CommandName)
	}
	return append(argv, args...)
}

// Run invokes the tool through the registry's runner and returns its result.
// A non-zero tool exit status is reported in the Result, not as an error.
func (t *Tool) Run(ctx context.Context, args []string, opts ...shell.RunOption) (*shell.Result, error) {
	if t.reg == nil {
		return nil, fmt.Errorf("registry: tool %s is not bound to a registry", t.Name)
	}

	if t.MultiIndex {
		merged, err := t.mergeIndexArgs(ctx, args)
		if err != nil {
			return nil, err
		}
		args = merged
	}

	start := time.Now()
	res, err := t.reg.runner.Run(ctx, t.Argv(args...), opts...)
	t.reg.recordInvocation(ctx, t, args, res, err, time.Since(start).Milliseconds())
	return res, err
}

// withMultiIndex returns a copy of the descriptor that pre-merges index-file
// arguments. The invocation target (command name and driver) is unchanged.
func (t *Tool) withMultiIndex() *Tool {
	clone := *t
	clone.MultiIndex = true
	return &clone
}
