//go:build !unix && !windows

package build

import "os"

// Platforms without file locks run unguarded.
func lockFile(f *os.File) error { return nil }

func unlockFile(f *os.File) error { return nil }
