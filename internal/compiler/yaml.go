package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/metricq/internal/manifest"
)

// DecodeYAML parses one YAML manifest file. A file may hold several
// documents; their models, metrics and saved queries are concatenated.
// Unknown keys are rejected so that typos surface as errors.
func DecodeYAML(data []byte, filename string) (*manifest.Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	out := &manifest.Manifest{}
	for {
		var doc manifest.Manifest
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		merge(out, &doc)
	}
	return out, nil
}

// merge appends the contents of src to dst.
func merge(dst, src *manifest.Manifest) {
	dst.SemanticModels = append(dst.SemanticModels, src.SemanticModels...)
	dst.Metrics = append(dst.Metrics, src.Metrics...)
	dst.SavedQueries = append(dst.SavedQueries, src.SavedQueries...)
}
