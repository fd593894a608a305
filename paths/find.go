// Package paths locates the files a voidofdreams binary reads at startup.
package paths

import (
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// AppName names the per-application configuration directories.
const AppName = "voidofdreams"

// Find locates the passed file shortname and returns an absolute or relative
// path to find the file at, or an empty string if it is nowhere to be found.
//
// For example, for "voidofdreams.yml" it may return
// "/home/alice/.config/voidofdreams/voidofdreams.yml".
func Find(fileName string) string {
	for _, path := range getPossiblePaths(fileName) {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			glog.V(1).Infof("paths.Find(%q)=%s", fileName, path)
			return path
		}
	}
	return ""
}

// Open locates the passed file in the same locations that Find would look, and
// opens it. If Find returns an empty string, an error is returned.
func Open(fileName string) (*os.File, error) {
	path := Find(fileName)
	if path == "" {
		return nil, errors.Wrapf(os.ErrNotExist, "paths.Open(%q): not found in %v", fileName, getPossiblePathDirs())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "paths.Open(%q)", fileName)
	}
	return f, nil
}

// getPossiblePathDirs returns the directories searched, most specific first:
// the working directory, then the user's configuration directory, then the
// system one.
func getPossiblePathDirs() []string {
	dirs := []string{"."}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, AppName))
	}
	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", AppName))
	}
	return append(dirs, filepath.Join("/etc", AppName))
}

func getPossiblePaths(fileName string) []string {
	var paths []string
	for _, dir := range getPossiblePathDirs() {
		paths = append(paths, filepath.Join(dir, fileName))
	}
	return paths
}
