package specs

import "fmt"

// TimeGranularity is the grain a time dimension is truncated to.
type TimeGranularity string

const (
	GranularityDay     TimeGranularity = "day"
	GranularityWeek    TimeGranularity = "week"
	GranularityMonth   TimeGranularity = "month"
	GranularityQuarter TimeGranularity = "quarter"
	GranularityYear    TimeGranularity = "year"
)

// AllGranularities lists every granularity from finest to coarsest.
var AllGranularities = []TimeGranularity{
	GranularityDay,
	GranularityWeek,
	GranularityMonth,
	GranularityQuarter,
	GranularityYear,
}

// Order returns the rank of the granularity (finer grains rank lower).
// Unknown granularities rank below every known one.
func (g TimeGranularity) Order() int {
	switch g {
	case GranularityDay:
		return 1
	case GranularityWeek:
		return 2
	case GranularityMonth:
		return 3
	case GranularityQuarter:
		return 4
	case GranularityYear:
		return 5
	default:
		return 0
	}
}

// IsValid reports whether g is one of the known granularities.
func (g TimeGranularity) IsValid() bool {
	return g.Order() > 0
}

// ParseTimeGranularity converts a string to a TimeGranularity.
func ParseTimeGranularity(s string) (TimeGranularity, error) {
	g := TimeGranularity(s)
	if !g.IsValid() {
		return "", fmt.Errorf("unknown time granularity %q", s)
	}
	return g, nil
}

// GranularitiesAtOrAbove returns every granularity that is at least as coarse as g,
// ordered finest first.
func GranularitiesAtOrAbove(g TimeGranularity) []TimeGranularity {
	var out []TimeGranularity
	for _, candidate := range AllGranularities {
		if candidate.Order() >= g.Order() {
			out = append(out, candidate)
		}
	}
	return out
}

// MinGranularity returns the finest granularity in grains.
// Panics if grains is empty.
func MinGranularity(grains []TimeGranularity) TimeGranularity {
	if len(grains) == 0 {
		panic("specs: MinGranularity called with no granularities")
	}
	min := grains[0]
	for _, g := range grains[1:] {
		if g.Order() < min.Order() {
			min = g
		}
	}
	return min
}

// DatePart is a component extracted from a time dimension (e.g. the year of a date).
// The zero value means no date part.
type DatePart string

const (
	DatePartNone    DatePart = ""
	DatePartYear    DatePart = "year"
	DatePartQuarter DatePart = "quarter"
	DatePartMonth   DatePart = "month"
	DatePartDay     DatePart = "day"
	DatePartDOW     DatePart = "dow"
	DatePartDOY     DatePart = "doy"
)

// AllDateParts lists every supported date part.
var AllDateParts = []DatePart{
	DatePartYear,
	DatePartQuarter,
	DatePartMonth,
	DatePartDay,
	DatePartDOW,
	DatePartDOY,
}

// Order maps a date part onto the granularity scale. Day-of-week and
// day-of-year extract from daily data, so they rank with day.
func (p DatePart) Order() int {
	switch p {
	case DatePartYear:
		return GranularityYear.Order()
	case DatePartQuarter:
		return GranularityQuarter.Order()
	case DatePartMonth:
		return GranularityMonth.Order()
	case DatePartDay, DatePartDOW, DatePartDOY:
		return GranularityDay.Order()
	default:
		return 0
	}
}

// IsValid reports whether p is a known, non-empty date part.
func (p DatePart) IsValid() bool {
	return p.Order() > 0
}

// ParseDatePart converts a string to a DatePart.
func ParseDatePart(s string) (DatePart, error) {
	p := DatePart(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown date part %q", s)
	}
	return p, nil
}

// CompatibleGranularities returns the granularities a date part can be extracted from.
func (p DatePart) CompatibleGranularities() []TimeGranularity {
	var out []TimeGranularity
	for _, g := range AllGranularities {
		if g.Order() <= p.Order() {
			out = append(out, g)
		}
	}
	return out
}
