// Package versions provides functionality for parsing and managing module version files.
package versions

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/containerd/errdefs"
	"github.com/goplus/llar-mongocxx/mod/module"
)

//go:embed versions.json
var defaultVersions []byte

// Versions represents a module's version file: for each release of the
// module, the upstream modules it requires and, optionally, the digest of
// its source archive.
type Versions struct {
	Path         string                      `json:"path"`              // Module Path
	Dependencies map[string][]module.Version `json:"deps"`              // Map of release version to its dependencies
	Digests      map[string]string           `json:"digests,omitempty"` // Map of release version to "sha256:<hex>"
}

// Parse reads and parses a version file from either provided data or a file path.
// If data is non-nil, it is used directly and the file parameter is ignored.
// Otherwise, the file is read from the provided path.
// Returns the parsed Versions struct or an error if parsing fails.
func Parse(file string, data []byte) (*Versions, error) {
	var reader io.Reader

	if data != nil {
		reader = bytes.NewBuffer(data)
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		reader = f
	}

	var v Versions

	if err := json.NewDecoder(reader).Decode(&v); err != nil {
		return nil, err
	}

	return &v, nil
}

// Default returns the release catalog shipped with the binary.
func Default() *Versions {
	v, err := Parse("", defaultVersions)
	if err != nil {
		panic(fmt.Sprintf("versions: embedded versions.json: %v", err))
	}
	return v
}

// Releases returns all known release versions, oldest first.
func (v *Versions) Releases() []string {
	vers := make([]string, 0, len(v.Dependencies))
	for ver := range v.Dependencies {
		vers = append(vers, ver)
	}
	slices.SortFunc(vers, module.CompareVersion)
	return vers
}

// Latest returns the newest known release.
func (v *Versions) Latest() (string, error) {
	vers := v.Releases()
	if len(vers) == 0 {
		return "", fmt.Errorf("%s: no releases: %w", v.Path, errdefs.ErrNotFound)
	}
	return vers[len(vers)-1], nil
}

// Requires returns the upstream modules required by release ver.
func (v *Versions) Requires(ver string) ([]module.Version, error) {
	deps, ok := v.Dependencies[ver]
	if !ok {
		return nil, fmt.Errorf("%s@%s: unknown release: %w", v.Path, ver, errdefs.ErrNotFound)
	}
	return slices.Clone(deps), nil
}

// Digest returns the expected source archive digest of release ver, or ""
// when none is recorded.
func (v *Versions) Digest(ver string) string {
	return v.Digests[ver]
}
