package registry

import (
	"fmt"
	"sort"
	"strings"
)

// namesNewToOld maps a modern (5.x+) tool name to its classic 4.x
// equivalent. Keys and values are canonical names. The table is static
// configuration; aliasing only makes the same tool reachable under both
// names, argument compatibility is the caller's responsibility.
var namesNewToOld = map[string]string{
	// same name in both generations
	"grompp":   "grompp",
	"eneconv":  "eneconv",
	"editconf": "editconf",
	"pdb2gmx":  "pdb2gmx",
	"trjcat":   "trjcat",
	"trjconv":  "trjconv",
	"trjorder": "trjorder",
	"xpm2ps":   "xpm2ps",
	"mdrun":    "mdrun",
	"make_ndx": "make_ndx",
	"make_edi": "make_edi",
	"genrestr": "genrestr",
	"genion":   "genion",
	"genconf":  "genconf",
	"do_dssp":  "do_dssp", // removed in GMX 2023, replaced with the incompatible `gmx dssp`
	// changed names
	"convert-tpr": "tpbconv",
	"dump":        "gmxdump",
	"check":       "gmxcheck",
	"solvate":     "genbox",
	"distance":    "g_dist",
	"sasa":        "g_sas",
	"gangle":      "g_sgangle",
}

// validateAliasTable rejects tables where two keys are mutual prefixes:
// prefix matching against the canonical name would then depend on scan
// order, which is a configuration error rather than something to tie-break.
func validateAliasTable(table map[string]string) error {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, a := range keys {
		for _, b := range keys[i+1:] {
			if strings.HasPrefix(b, a) {
				return fmt.Errorf("registry: alias table keys %q and %q are mutual prefixes", a, b)
			}
		}
	}
	return nil
}

// applyAliases adds one historically-compatible addressable name per
// descriptor. A descriptor whose canonical name starts with an alias-table
// key gets the old-generation name (with any precision suffix preserved);
// everything else gets the classic "G_" prefix convention. Names created
// here are remembered so running the pass again is a no-op.
func (r *Registry) applyAliases() error {
	if err := validateAliasTable(namesNewToOld); err != nil {
		return err
	}

	keys := make([]string, 0, len(namesNewToOld))
	for k := range namesNewToOld {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, fancy := range r.Names() {
		if r.aliased[fancy] {
			continue
		}
		tool := r.tools[fancy]

		matched := false
		for _, newName := range keys {
			if !strings.HasPrefix(tool.CommandName, newName) {
				continue
			}
			matched = true
			oldName := namesNewToOld[newName]
			if oldName == newName {
				break
			}
			// Preserve the suffix carried in the addressable name beyond the
			// matched prefix's identifier form (e.g. Sasa_d -> G_sas_d).
			prefix := MakeValidIdentifier(newName)
			idx := strings.Index(fancy, prefix)
			if idx < 0 {
				break
			}
			alias := MakeValidIdentifier(oldName + fancy[idx+len(prefix):])
			r.register(alias, tool)
			r.aliased[alias] = true
			break
		}
		if !matched {
			alias := "G_" + strings.ToLower(fancy)
			r.register(alias, tool)
			r.aliased[alias] = true
		}
	}
	return nil
}

// Tools whose index-file inputs benefit from transparent pre-merging. Both
// the classic alias and its modern counterpart are rebound to the wrapped
// descriptor.
var multiIndexTools = [][2]string{
	{"G_mindist", "Mindist"},
	{"G_dist", "Distance"},
}

func (r *Registry) rebindMultiIndexTools() {
	for _, pair := range multiIndexTools {
		classic, modern := pair[0], pair[1]
		tool, ok := r.tools[classic]
		if !ok {
			continue
		}
		wrapped := tool.withMultiIndex()
		r.register(classic, wrapped)
		if _, ok := r.tools[modern]; ok {
			r.register(modern, wrapped)
		}
	}
}
