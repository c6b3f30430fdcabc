package env

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the workspace root.
const HomeEnv = "LLAR_MONGOCXX_HOME"

// WorkDir returns the workspace root: $LLAR_MONGOCXX_HOME, or
// .llar-mongocxx under the user cache directory.
func WorkDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return filepath.Abs(dir)
	}
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".llar-mongocxx"), nil
}

// SourceDir returns where the sources of release version are extracted.
func SourceDir(workDir, version string) string {
	return filepath.Join(workDir, "src", version, "source_subfolder")
}

// DownloadDir returns the source archive cache.
func DownloadDir(workDir string) string {
	return filepath.Join(workDir, "downloads")
}
