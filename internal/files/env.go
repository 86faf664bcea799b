package files

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDirName defines the folder under the user's home directory.
	DefaultDirName = ".nibab"
	// HomeEnv overrides the data directory.
	HomeEnv = "NIBAB_HOME"

	xdgDataEnv = "XDG_DATA_HOME"
	xdgDirName = "nibab"
)

// ResolveBasePath picks the data directory: $NIBAB_HOME when set, then
// $XDG_DATA_HOME/nibab, then ~/.nibab. Overrides may start with ~ or
// reference other environment variables.
func ResolveBasePath() (string, error) {
	if dir := lookupDir(HomeEnv); dir != "" {
		return expandHome(dir)
	}
	if dir := lookupDir(xdgDataEnv); dir != "" {
		base, err := expandHome(dir)
		if err != nil {
			return "", err
		}
		return filepath.Join(base, xdgDirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultDirName), nil
}

func lookupDir(key string) string {
	return os.ExpandEnv(strings.TrimSpace(os.Getenv(key)))
}

// expandHome replaces a leading "~" or "~/". "~user" forms are left alone.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}
