// Package loader reads vizview configuration sources into generic maps.
//
// Sources are TOML files and VIZVIEW_ environment variables. Each yields a
// nested map[string]any; callers merge them with DeepMerge so later
// sources override earlier ones.
package loader

import "os"

// Loader is a configuration source. A source that does not exist yields
// nil, nil.
type Loader interface {
	Load() (map[string]any, error)
}

// FileSystem reads files. Tests substitute an in-memory implementation.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

type osFS struct{}

func (osFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// DefaultFS returns the OS file system.
func DefaultFS() FileSystem {
	return osFS{}
}
