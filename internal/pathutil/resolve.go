// Package pathutil provides path resolution for launch arguments and
// configuration paths, shared by the CLI and the composition root.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveAbsolutePath converts a possibly-relative, possibly-~-prefixed
// path to an absolute one. An empty path resolves to the working directory.
func ResolveAbsolutePath(path string) (string, error) {
	if path == "" {
		return os.Getwd()
	}

	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = home + path[1:]
	}

	return filepath.Abs(path)
}

// AbsolutizeArgs rewrites relative path arguments against wd so a hand-off
// to an instance with a different working directory still opens the same
// files. Flags (anything starting with "-") and absolute paths pass through
// untouched. Rewriting is best-effort: an argument that can't be resolved
// is forwarded exactly as typed.
//
// Symlinks are deliberately not resolved here; the receiving instance sees
// the path the user named, not its target.
func AbsolutizeArgs(args []string, wd string) []string {
	if len(args) == 0 {
		return args
	}
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = absolutizeArg(arg, wd)
	}
	return out
}

func absolutizeArg(arg, wd string) string {
	if arg == "" || strings.HasPrefix(arg, "-") {
		return arg
	}
	if strings.HasPrefix(arg, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return arg
		}
		return filepath.Join(home, arg[1:])
	}
	if filepath.IsAbs(arg) {
		return filepath.Clean(arg)
	}
	if wd == "" {
		return arg
	}
	return filepath.Join(wd, arg)
}
