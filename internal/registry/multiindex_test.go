package registry

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeIndexFiles_InvokesMakeNdx(t *testing.T) {
	runner := helpRunner()
	reg, err := Build(context.Background(), modernConfig("gmx"), runner, nil)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	merged, err := reg.MergeIndexFiles(context.Background(), "a.ndx", "b.ndx", "conf.gro")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(merged, ".ndx"))

	last := runner.calls[len(runner.calls)-1]
	assert.Equal(t, []string{"gmx", "make_ndx", "-f", "conf.gro", "-n", "a.ndx", "b.ndx", "-o", merged}, last)
	assert.Equal(t, "q\n", runner.stdins[len(runner.stdins)-1])
}

func TestMergeIndexFiles_NoStructureFileNeeded(t *testing.T) {
	runner := helpRunner()
	reg, err := Build(context.Background(), modernConfig("gmx"), runner, nil)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	merged, err := reg.MergeIndexFiles(context.Background(), "a.ndx", "b.ndx")
	require.NoError(t, err)

	last := runner.calls[len(runner.calls)-1]
	assert.Equal(t, []string{"gmx", "make_ndx", "-n", "a.ndx", "b.ndx", "-o", merged}, last)
}

func TestMergeIndexFiles_RejectsTwoStructureFiles(t *testing.T) {
	reg, err := Build(context.Background(), modernConfig("gmx"), helpRunner(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	_, err = reg.MergeIndexFiles(context.Background(), "a.ndx", "conf.gro", "topol.tpr")
	assert.Error(t, err)
}

func TestClose_RemovesMergedFiles(t *testing.T) {
	reg, err := Build(context.Background(), modernConfig("gmx"), helpRunner(), nil)
	require.NoError(t, err)

	merged, err := reg.MergeIndexFiles(context.Background(), "a.ndx", "b.ndx")
	require.NoError(t, err)

	_, statErr := os.Stat(merged)
	require.NoError(t, statErr)

	require.NoError(t, reg.Close())

	_, statErr = os.Stat(merged)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMultiIndexRun_MergesMultipleIndexArguments(t *testing.T) {
	runner := helpRunner()
	reg, err := Build(context.Background(), modernConfig("gmx"), runner, nil)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	dist, ok := reg.Get("Distance")
	require.True(t, ok)
	require.True(t, dist.MultiIndex)

	_, err = dist.Run(context.Background(), []string{"-s", "topol.tpr", "-n", "a.ndx", "b.ndx", "-o", "dist.xvg"})
	require.NoError(t, err)

	// First the merge sub-invocation, then the rewritten tool call.
	require.GreaterOrEqual(t, len(runner.calls), 2)
	mergeCall := runner.calls[len(runner.calls)-2]
	assert.Equal(t, []string{"gmx", "make_ndx"}, mergeCall[:2])
	assert.Contains(t, mergeCall, "topol.tpr")
	assert.Equal(t, "q\n", runner.stdins[len(runner.stdins)-2])

	toolCall := runner.calls[len(runner.calls)-1]
	merged := mergeCall[len(mergeCall)-1]
	assert.Equal(t, []string{"gmx", "distance", "-s", "topol.tpr", "-n", merged, "-o", "dist.xvg"}, toolCall)
}

func TestMultiIndexRun_SingleIndexPassesThrough(t *testing.T) {
	runner := helpRunner()
	reg, err := Build(context.Background(), modernConfig("gmx"), runner, nil)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	dist, ok := reg.Get("Distance")
	require.True(t, ok)

	calls := len(runner.calls)
	_, err = dist.Run(context.Background(), []string{"-n", "a.ndx", "-o", "dist.xvg"})
	require.NoError(t, err)

	// Exactly one invocation, no merge, arguments untouched.
	require.Len(t, runner.calls, calls+1)
	assert.Equal(t, []string{"gmx", "distance", "-n", "a.ndx", "-o", "dist.xvg"}, runner.calls[len(runner.calls)-1])
}

func TestMultiIndexRun_NoIndexFlagPassesThrough(t *testing.T) {
	runner := helpRunner()
	reg, err := Build(context.Background(), modernConfig("gmx"), runner, nil)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	mindist, ok := reg.Get("Mindist")
	require.True(t, ok)

	calls := len(runner.calls)
	_, err = mindist.Run(context.Background(), []string{"-f", "traj.xtc"})
	require.NoError(t, err)

	require.Len(t, runner.calls, calls+1)
	assert.Equal(t, []string{"gmx", "mindist", "-f", "traj.xtc"}, runner.calls[len(runner.calls)-1])
}

func TestFlagValues(t *testing.T) {
	args := []string{"-s", "topol.tpr", "-n", "a.ndx", "b.ndx", "-o", "out.xvg"}

	start, end := flagValues(args, "-n")
	assert.Equal(t, []string{"a.ndx", "b.ndx"}, args[start:end])

	start, end = flagValues(args, "-s")
	assert.Equal(t, []string{"topol.tpr"}, args[start:end])

	start, _ = flagValues(args, "-x")
	assert.Equal(t, -1, start)

	// Flag in last position has an empty value range.
	start, end = flagValues([]string{"-f", "x", "-n"}, "-n")
	assert.Equal(t, start, end)
}
