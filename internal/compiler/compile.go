package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/metricq/internal/manifest"
)

// ErrNoManifestFiles is returned when a directory holds no manifest sources.
var ErrNoManifestFiles = errors.New("no manifest files found")

// ErrInvalidManifest is wrapped by LoadLookup when structural validation
// fails.
var ErrInvalidManifest = errors.New("invalid manifest")

// Compiled is a manifest directory after loading and validation.
type Compiled struct {
	Files    ManifestFiles
	Manifest *manifest.Manifest
	// Problems holds every structural validation error. The manifest is only
	// safe to index when it is empty.
	Problems []ValidationError
}

// CompileDir loads every manifest file in dir and validates the result.
// Decode errors are returned as an error; validation problems are returned
// in Compiled.Problems.
func CompileDir(dir string) (*Compiled, error) {
	files, err := FindManifestFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("find manifest files in %s: %w", dir, err)
	}
	if files.Count() == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoManifestFiles)
	}
	m, err := LoadDir(dir, files)
	if err != nil {
		return nil, err
	}
	return &Compiled{Files: files, Manifest: m, Problems: Validate(m)}, nil
}

// LoadLookup compiles dir and indexes it for resolution.
func LoadLookup(dir string, opts ...manifest.LookupOption) (*manifest.Lookup, error) {
	c, err := CompileDir(dir)
	if err != nil {
		return nil, err
	}
	if len(c.Problems) > 0 {
		msgs := make([]string, len(c.Problems))
		for i, p := range c.Problems {
			msgs[i] = p.Error()
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
	}
	return manifest.NewLookup(*c.Manifest, opts...)
}
