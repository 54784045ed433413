package registry

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golovatskygroup/gmxwrap/internal/config"
	"github.com/golovatskygroup/gmxwrap/internal/shell"
)

// fakeRunner records every invocation and answers through a handler.
type fakeRunner struct {
	calls   [][]string
	stdins  []string
	handler func(argv []string) (*shell.Result, error)
}

func (f *fakeRunner) Commandline(argv []string) []string {
	return argv
}

func (f *fakeRunner) Run(ctx context.Context, argv []string, opts ...shell.RunOption) (*shell.Result, error) {
	f.calls = append(f.calls, argv)
	f.stdins = append(f.stdins, shell.Settings(opts).Stdin)
	if f.handler != nil {
		return f.handler(argv)
	}
	return &shell.Result{}, nil
}

// gmxHelpOutput mimics `gmx -quiet help commands`: five header lines, one
// command per line with the name starting at column 4, one footer line.
const gmxHelpOutput = `:-) GROMACS - gmx, 2023.2 (-:

Usage: gmx [options] <command> [args]

Available commands:
    anaeig       analyze eigenvectors/normal modes
    convert-tpr  make a modified run-input file
    distance     calculate distances between pairs of positions
    grompp       preprocess and generate run files
    make_ndx     make index files
    mindist      calculate the minimum distance between two groups
    sasa         compute solvent accessible surface area
For help on a command, use 'gmx help <command>'
`

func helpRunner() *fakeRunner {
	return &fakeRunner{handler: func(argv []string) (*shell.Result, error) {
		if len(argv) >= 4 && argv[1] == "-quiet" && argv[2] == "help" && argv[3] == "commands" {
			return &shell.Result{Stdout: gmxHelpOutput}, nil
		}
		return &shell.Result{}, nil
	}}
}

func modernConfig(drivers ...string) *config.Config {
	return &config.Config{Release: "2023", Tools: drivers}
}

func buildModern(t *testing.T, drivers ...string) *Registry {
	t.Helper()
	reg, err := Build(context.Background(), modernConfig(drivers...), helpRunner(), nil)
	require.NoError(t, err)
	return reg
}

func TestMakeValidIdentifier(t *testing.T) {
	assert.Equal(t, "Grompp", MakeValidIdentifier("grompp"))
	assert.Equal(t, "Convert_tpr", MakeValidIdentifier("convert-tpr"))
	assert.Equal(t, "Make_ndx", MakeValidIdentifier("make_ndx"))
	assert.Equal(t, "G_sas", MakeValidIdentifier("g_sas"))
	assert.Equal(t, "", MakeValidIdentifier(""))
}

func TestMakeValidIdentifier_Stable(t *testing.T) {
	for _, name := range []string{"grompp", "convert-tpr", "mdrun_d"} {
		assert.Equal(t, MakeValidIdentifier(name), MakeValidIdentifier(name))
	}
}

func TestBuild_ModernRegistersAddressableNames(t *testing.T) {
	reg := buildModern(t, "gmx")

	grompp, ok := reg.Get("Grompp")
	require.True(t, ok)
	assert.Equal(t, "grompp", grompp.CommandName)
	assert.Equal(t, "gmx", grompp.Driver)
	assert.Equal(t, []string{"gmx", "grompp", "-f", "md.mdp"}, grompp.Argv("-f", "md.mdp"))
}

func TestBuild_ClassicToolsHaveNoDriver(t *testing.T) {
	cfg := &config.Config{Release: "4", Tools: []string{"grompp", "g_energy"}}
	reg, err := Build(context.Background(), cfg, &fakeRunner{}, nil)
	require.NoError(t, err)

	grompp, ok := reg.Get("Grompp")
	require.True(t, ok)
	assert.Empty(t, grompp.Driver)
	assert.Equal(t, []string{"grompp"}, grompp.Argv())
}

func TestBuild_ClassicExtendsWithExtraTools(t *testing.T) {
	cfg := &config.Config{Release: "4", ExtraTools: []string{"g_myanalysis"}}
	reg, err := Build(context.Background(), cfg, &fakeRunner{}, nil)
	require.NoError(t, err)

	// Builtin list plus the extra.
	_, ok := reg.Get("Mdrun")
	assert.True(t, ok)
	_, ok = reg.Get("G_myanalysis")
	assert.True(t, ok)
}

func TestBuild_PrecisionSuffixAppended(t *testing.T) {
	reg := buildModern(t, "gmx", "gmx_d")

	plain, ok := reg.Get("Grompp")
	require.True(t, ok)
	assert.Equal(t, "gmx", plain.Driver)

	double, ok := reg.Get("Grompp_d")
	require.True(t, ok)
	assert.Equal(t, "gmx_d", double.Driver)
	assert.Equal(t, "grompp", double.CommandName)
}

func TestBuild_PrecisionSuffixDisabled(t *testing.T) {
	off := false
	cfg := &config.Config{Release: "2023", Tools: []string{"gmx_d"}, AppendSuffix: &off}
	reg, err := Build(context.Background(), cfg, helpRunner(), nil)
	require.NoError(t, err)

	tool, ok := reg.Get("Grompp")
	require.True(t, ok)
	assert.Equal(t, "gmx_d", tool.Driver)
}

func TestBuild_FailingDriverContributesNothing(t *testing.T) {
	runner := &fakeRunner{handler: func(argv []string) (*shell.Result, error) {
		if argv[0] == "gmx_broken" {
			return nil, fmt.Errorf("no such executable")
		}
		return &shell.Result{Stdout: gmxHelpOutput}, nil
	}}
	cfg := &config.Config{Release: "2023", Tools: []string{"gmx_broken", "gmx"}}

	reg, err := Build(context.Background(), cfg, runner, nil)
	require.NoError(t, err)

	_, ok := reg.Get("Grompp")
	assert.True(t, ok)
}

func TestBuild_ModernDiscoveryErrorWhenNothingFound(t *testing.T) {
	runner := &fakeRunner{handler: func(argv []string) (*shell.Result, error) {
		return nil, fmt.Errorf("no such executable")
	}}
	cfg := &config.Config{Release: "2023"}

	_, err := Build(context.Background(), cfg, runner, nil)
	require.Error(t, err)

	var derr *DiscoveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "v5", derr.Generation)
}

func TestBuild_FallsBackToClassicWhenModernFails(t *testing.T) {
	runner := &fakeRunner{handler: func(argv []string) (*shell.Result, error) {
		return nil, fmt.Errorf("no such executable")
	}}
	cfg := &config.Config{} // no release configured

	reg, err := Build(context.Background(), cfg, runner, nil)
	require.NoError(t, err)

	grompp, ok := reg.Get("Grompp")
	require.True(t, ok)
	assert.Empty(t, grompp.Driver)
}

func TestBuild_DiscoveryIsStableAcrossRuns(t *testing.T) {
	first := buildModern(t, "gmx")
	second := buildModern(t, "gmx")

	assert.Equal(t, first.Names(), second.Names())
}

func TestSearch_FindsApproximateNames(t *testing.T) {
	reg := buildModern(t, "gmx")

	matches := reg.Search("gromp", 5)
	assert.Contains(t, matches, "Grompp")
}

func TestRun_RoutesThroughRunner(t *testing.T) {
	runner := helpRunner()
	cfg := &config.Config{Release: "2023", Tools: []string{"gmx"}}
	reg, err := Build(context.Background(), cfg, runner, nil)
	require.NoError(t, err)

	grompp, ok := reg.Get("Grompp")
	require.True(t, ok)

	_, err = grompp.Run(context.Background(), []string{"-f", "md.mdp"})
	require.NoError(t, err)

	last := runner.calls[len(runner.calls)-1]
	assert.Equal(t, []string{"gmx", "grompp", "-f", "md.mdp"}, last)
}
