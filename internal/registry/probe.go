package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golovatskygroup/gmxwrap/internal/shell"
)

// Helper scripts installed next to the GROMACS binaries that are not tools.
var excludedExecutables = map[string]bool{
	"GMXRC":        true,
	"GMXRC.bash":   true,
	"GMXRC.csh":    true,
	"GMXRC.zsh":    true,
	"demux.pl":     true,
	"xplor2gmx.pl": true,
}

// FindExecutables lists candidate tool or driver binaries in dir: regular
// files with an execute bit that are not on the exclusion list. An unreadable
// directory yields an empty list.
func FindExecutables(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var execs []string
	for _, entry := range entries {
		if entry.IsDir() || excludedExecutables[entry.Name()] {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil || info.Mode()&0o111 == 0 {
			continue
		}
		execs = append(execs, entry.Name())
	}
	return execs
}

// Layout of `gmx -quiet help commands` output: a fixed header, then one
// command per line with the name starting at column 4, then a footer line.
const (
	helpHeaderLines = 5
	helpFooterLines = 1
	helpNameColumn  = 4
)

// driverCommands asks a driver for its available sub-commands. Any failure
// to run the driver or to parse a line contributes zero tools; the caller
// treats that as "this driver has nothing" and moves on.
func driverCommands(ctx context.Context, runner shell.Runner, driver string) ([]string, error) {
	res, err := runner.Run(ctx, []string{driver, "-quiet", "help", "commands"})
	if err != nil {
		return nil, err
	}
	if !res.Ok() {
		return nil, fmt.Errorf("registry: %s exited with status %d", driver, res.ExitCode)
	}

	lines := strings.Split(strings.TrimRight(res.Stdout, "\n"), "\n")
	if len(lines) <= helpHeaderLines+helpFooterLines {
		return nil, nil
	}
	lines = lines[helpHeaderLines : len(lines)-helpFooterLines]

	var names []string
	for _, line := range lines {
		name, ok := commandToken(line)
		if ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// commandToken extracts the command name from one help line: the text from
// the name column up to the first space at or after it. Short lines,
// continuation lines (space at the name column) and lines without a
// terminating space are skipped.
func commandToken(line string) (string, bool) {
	if len(line) <= helpNameColumn {
		return "", false
	}
	rest := line[helpNameColumn:]
	if rest[0] == ' ' {
		return "", false
	}
	end := strings.IndexByte(rest, ' ')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
