// Package module defines the module.Version type along with support code.
package module

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
)

// A Version (for clients, a module.Version) represents a specific version
// of a module identified by its path.
type Version struct {
	Path    string `json:"path" yaml:"path"`       // Module path in the form "owner/repo"
	Version string `json:"version" yaml:"version"` // Version string (e.g., "1.0.0")
}

// String returns "path@version", or just the path when the version is empty.
func (v Version) String() string {
	if v.Version == "" {
		return v.Path
	}
	return v.Path + "@" + v.Version
}

// EscapePath returns the escaped form of the given module path as a valid
// file system path. It fails if the module path is invalid.
func EscapePath(path string) (escaped string, err error) {
	return filepath.Localize(path)
}

// CheckVersion reports whether ver is a release version such as "3.4.0".
// A leading "v" is accepted. Prerelease and build suffixes are rejected.
func CheckVersion(ver string) error {
	sv := canonical(ver)
	if !semver.IsValid(sv) || semver.Prerelease(sv) != "" || semver.Build(sv) != "" {
		return fmt.Errorf("invalid version %q: want MAJOR.MINOR.PATCH", ver)
	}
	return nil
}

// CompareVersion compares two release versions and returns -1, 0 or 1.
// Invalid versions sort before valid ones.
func CompareVersion(v1, v2 string) int {
	return semver.Compare(canonical(v1), canonical(v2))
}

func canonical(ver string) string {
	if !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	return ver
}
