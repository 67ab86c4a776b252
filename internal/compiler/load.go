package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"go.uber.org/multierr"

	"github.com/roach88/metricq/internal/manifest"
)

// ManifestFiles lists the manifest sources of a directory, sorted by path.
type ManifestFiles struct {
	YAML []string
	CUE  []string
}

// Count returns the number of manifest files found.
func (f ManifestFiles) Count() int {
	return len(f.YAML) + len(f.CUE)
}

// FindManifestFiles walks dir and returns every .yaml, .yml and .cue file.
func FindManifestFiles(dir string) (ManifestFiles, error) {
	var files ManifestFiles
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			files.YAML = append(files.YAML, path)
		case ".cue":
			files.CUE = append(files.CUE, path)
		}
		return nil
	})
	sort.Strings(files.YAML)
	sort.Strings(files.CUE)
	return files, err
}

// LoadDir reads every manifest file in dir into one Manifest.
//
// YAML files are decoded one by one and CUE files are loaded as a single
// instance rooted at dir. Decode failures do not stop the load: every failing
// file contributes an error and the combined error is returned alongside the
// manifest built from the files that did decode. Use multierr.Errors to split
// it.
func LoadDir(dir string, files ManifestFiles) (*manifest.Manifest, error) {
	out := &manifest.Manifest{}
	var errs error

	for _, path := range files.YAML {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read %s: %w", path, err))
			continue
		}
		m, err := DecodeYAML(data, path)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		merge(out, m)
	}

	if len(files.CUE) > 0 {
		m, err := loadCUE(dir)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			merge(out, m)
		}
	}

	return out, errs
}

func loadCUE(dir string) (*manifest.Manifest, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileManifest(value)
}
