package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golovatskygroup/gmxwrap/internal/config"
)

func TestAlias_RenamedToolGetsClassicName(t *testing.T) {
	reg := buildModern(t, "gmx")

	sasa, ok := reg.Get("Sasa")
	require.True(t, ok)
	gsas, ok := reg.Get("G_sas")
	require.True(t, ok)

	// The alias is a second name for the same tool, not a second tool.
	assert.Same(t, sasa, gsas)
	assert.Equal(t, "sasa", gsas.CommandName)
	assert.Equal(t, "gmx", gsas.Driver)
}

func TestAlias_PreservesPrecisionSuffix(t *testing.T) {
	reg := buildModern(t, "gmx_d")

	double, ok := reg.Get("Sasa_d")
	require.True(t, ok)
	alias, ok := reg.Get("G_sas_d")
	require.True(t, ok)

	assert.Same(t, double, alias)
	assert.Equal(t, "gmx_d", alias.Driver)
}

func TestAlias_SameNameInBothGenerationsIsNotDuplicated(t *testing.T) {
	reg := buildModern(t, "gmx")

	// grompp kept its name across generations, so no G_grompp appears.
	_, ok := reg.Get("G_grompp")
	assert.False(t, ok)
}

func TestAlias_UnmatchedToolGetsLegacyPrefix(t *testing.T) {
	reg := buildModern(t, "gmx")

	anaeig, ok := reg.Get("Anaeig")
	require.True(t, ok)
	legacy, ok := reg.Get("G_anaeig")
	require.True(t, ok)

	assert.Same(t, anaeig, legacy)
}

func TestAlias_IsIdempotent(t *testing.T) {
	reg := buildModern(t, "gmx", "gmx_d")
	before := reg.Names()

	require.NoError(t, reg.applyAliases())

	assert.Equal(t, before, reg.Names())
}

func TestAlias_RoutesToSameInvocationTarget(t *testing.T) {
	reg := buildModern(t, "gmx")

	for _, pair := range [][2]string{{"Convert_tpr", "Tpbconv"}, {"Sasa", "G_sas"}} {
		modern, ok := reg.Get(pair[0])
		require.True(t, ok, pair[0])
		classic, ok := reg.Get(pair[1])
		require.True(t, ok, pair[1])
		assert.Equal(t, modern.Argv("-f", "x"), classic.Argv("-f", "x"))
	}
}

func TestValidateAliasTable_RejectsMutualPrefixes(t *testing.T) {
	err := validateAliasTable(map[string]string{
		"sasa": "g_sas",
		"sas":  "g_other",
	})
	assert.Error(t, err)
}

func TestValidateAliasTable_AcceptsBuiltinTable(t *testing.T) {
	assert.NoError(t, validateAliasTable(namesNewToOld))
}

func TestMultiIndexRebind_WrapsBothNames(t *testing.T) {
	reg := buildModern(t, "gmx")

	distance, ok := reg.Get("Distance")
	require.True(t, ok)
	gdist, ok := reg.Get("G_dist")
	require.True(t, ok)

	assert.True(t, distance.MultiIndex)
	assert.True(t, gdist.MultiIndex)
	assert.Same(t, distance, gdist)

	mindist, ok := reg.Get("Mindist")
	require.True(t, ok)
	assert.True(t, mindist.MultiIndex)
}

func TestMultiIndexRebind_ClassicRegistry(t *testing.T) {
	cfg := &config.Config{Release: "4"}
	reg, err := Build(context.Background(), cfg, &fakeRunner{}, nil)
	require.NoError(t, err)

	gdist, ok := reg.Get("G_dist")
	require.True(t, ok)
	assert.True(t, gdist.MultiIndex)

	// Plain tools stay unwrapped.
	grompp, ok := reg.Get("Grompp")
	require.True(t, ok)
	assert.False(t, grompp.MultiIndex)
}
