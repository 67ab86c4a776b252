package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/metricq/internal/query"
	"github.com/roach88/metricq/internal/store"
)

// Scenario is a list of queries resolved against one manifest.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Manifest is the manifest directory. LoadScenario makes it relative to
	// the working directory.
	Manifest string `yaml:"manifest"`

	Cases []Case `yaml:"cases"`
}

// Case is one query and what it should resolve to.
type Case struct {
	Name    string        `yaml:"name"`
	Request query.Request `yaml:"request"`
	Expect  *Expect       `yaml:"expect,omitempty"`
}

// Expect holds the checks for a case. Empty fields are not checked.
type Expect struct {
	Status  store.Status `yaml:"status,omitempty"`
	Issues  []string     `yaml:"issues,omitempty"`
	Metrics []string     `yaml:"metrics,omitempty"`
	GroupBy []string     `yaml:"group_by,omitempty"`
}

// LoadScenario reads and validates a scenario file. Unknown keys are
// errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if !filepath.IsAbs(scenario.Manifest) {
		scenario.Manifest = filepath.Join(filepath.Dir(path), scenario.Manifest)
	}
	if _, err := os.Stat(scenario.Manifest); os.IsNotExist(err) {
		return nil, fmt.Errorf("invalid scenario: manifest directory not found: %s", scenario.Manifest)
	}

	return scenario, nil
}

// ParseScenario decodes a scenario without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Manifest == "" {
		return fmt.Errorf("manifest is required")
	}

	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if names[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate case name %q", i, c.Name)
		}
		names[c.Name] = true

		if c.Request.SavedQuery == "" && len(c.Request.Metrics) == 0 && len(c.Request.GroupBy) == 0 {
			return fmt.Errorf("cases[%d]: request needs metrics, group_by or saved_query", i)
		}
		if c.Expect != nil {
			switch c.Expect.Status {
			case "", store.StatusResolved, store.StatusFailed, store.StatusError:
			default:
				return fmt.Errorf("cases[%d].expect: unknown status %q", i, c.Expect.Status)
			}
		}
	}

	return nil
}
