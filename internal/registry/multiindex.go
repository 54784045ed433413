package registry

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/golovatskygroup/gmxwrap/internal/shell"
)

const indexSuffix = ".ndx"

// MergeIndexFiles combines one or more index files (and at most one
// structure file) into a freshly created index file and returns its path.
// The merge is a synchronous Make_ndx sub-invocation that answers the
// interactive prompt with "q". The merged file is removed by Registry.Close.
func (r *Registry) MergeIndexFiles(ctx context.Context, files ...string) (string, error) {
	var indexes []string
	var structure string
	for _, f := range files {
		if strings.HasSuffix(f, indexSuffix) {
			indexes = append(indexes, f)
			continue
		}
		if structure != "" {
			return "", fmt.Errorf("registry: only one structure file supported, got %s and %s", structure, f)
		}
		structure = f
	}

	tmp, err := os.CreateTemp("", "multi_*"+indexSuffix)
	if err != nil {
		return "", fmt.Errorf("registry: creating merged index file: %w", err)
	}
	merged := tmp.Name()
	tmp.Close()
	r.registerTempFile(merged)

	makeNdx, ok := r.Get("Make_ndx")
	if !ok {
		return "", fmt.Errorf("registry: Make_ndx is not available, cannot merge index files")
	}

	var args []string
	if structure != "" {
		args = append(args, "-f", structure)
	}
	args = append(args, "-n")
	args = append(args, indexes...)
	args = append(args, "-o", merged)

	res, err := makeNdx.Run(ctx, args, shell.WithInput("q"))
	if err != nil {
		return "", fmt.Errorf("registry: merging index files: %w", err)
	}
	if !res.Ok() {
		return "", fmt.Errorf("registry: index merge exited with status %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return merged, nil
}

// mergeIndexArgs rewrites the argument list of a multi-index tool. When more
// than one value follows the -n flag, those values (plus the -s structure
// file, if given) are merged and the single merged file replaces them. With
// zero or one index value the arguments pass through untouched.
func (t *Tool) mergeIndexArgs(ctx context.Context, args []string) ([]string, error) {
	start, end := flagValues(args, "-n")
	if start < 0 || end-start <= 1 {
		return args, nil
	}

	files := append([]string(nil), args[start:end]...)
	if sStart, sEnd := flagValues(args, "-s"); sStart >= 0 && sEnd > sStart {
		files = append(files, args[sStart])
	}

	merged, err := t.reg.MergeIndexFiles(ctx, files...)
	if err != nil {
		return nil, err
	}

	rewritten := append([]string(nil), args[:start]...)
	rewritten = append(rewritten, merged)
	return append(rewritten, args[end:]...), nil
}

// flagValues locates the value range [start, end) following a flag, ending
// at the next flag-like token or the end of the arguments. Returns -1, -1
// when the flag is absent.
func flagValues(args []string, flag string) (int, int) {
	for i, a := range args {
		if a != flag {
			continue
		}
		end := i + 1
		for end < len(args) && !strings.HasPrefix(args[end], "-") {
			end++
		}
		return i + 1, end
	}
	return -1, -1
}
