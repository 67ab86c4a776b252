package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFilterList_UnmarshalYAML(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want FilterList
	}{
		{name: "scalar", src: `filter: "{{ Dimension('user__country') }} = 'US'"`, want: FilterList{"{{ Dimension('user__country') }} = 'US'"}},
		{name: "list", src: "filter:\n  - a\n  - b\n", want: FilterList{"a", "b"}},
		{name: "null", src: "filter:\n", want: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var doc struct {
				Filter FilterList `yaml:"filter"`
			}
			require.NoError(t, yaml.Unmarshal([]byte(tc.src), &doc))
			assert.Equal(t, tc.want, doc.Filter)
		})
	}
}

func TestFilterList_RejectsMapping(t *testing.T) {
	var doc struct {
		Filter FilterList `yaml:"filter"`
	}
	err := yaml.Unmarshal([]byte("filter:\n  a: b\n"), &doc)
	assert.Error(t, err)
}

func TestMetricInput_ShortForm(t *testing.T) {
	src := `
name: growth
type: derived
type_params:
  expr: bookings - prior
  metrics:
    - bookings
    - name: bookings
      alias: prior
      offset_window: 7 days
`
	var m Metric
	require.NoError(t, yaml.Unmarshal([]byte(src), &m))
	require.Len(t, m.TypeParams.Metrics, 2)
	assert.Equal(t, "bookings", m.TypeParams.Metrics[0].Name)
	assert.False(t, m.TypeParams.Metrics[0].HasOffset())
	assert.True(t, m.TypeParams.Metrics[1].HasOffset())
	assert.Equal(t, "prior", m.TypeParams.Metrics[1].Alias)
}

func TestMetricInputMeasure_ShortForm(t *testing.T) {
	var m Metric
	require.NoError(t, yaml.Unmarshal([]byte("name: b\ntype: simple\ntype_params:\n  measure: bookings\n"), &m))
	require.NotNil(t, m.TypeParams.Measure)
	assert.Equal(t, "bookings", m.TypeParams.Measure.Name)
}

func TestEntityType(t *testing.T) {
	assert.True(t, EntityTypePrimary.IdentifiesRows())
	assert.False(t, EntityTypeForeign.IdentifiesRows())
	assert.True(t, EntityTypeForeign.IsValid())
	assert.False(t, EntityType("other").IsValid())
	assert.False(t, MetricType("weird").IsValid())
}
