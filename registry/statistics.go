package registry

const maxCommonValues = 10

// FieldStatistics holds running statistics over the string forms of a
// field's observed values.
type FieldStatistics struct {
	MinLength int     `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength int     `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	AvgLength float64 `json:"avg_length,omitempty" yaml:"avg_length,omitempty"`

	// MostCommonValues is a bounded first-distinct-seen sample, not a true
	// top-K: no frequency ranking is attempted.
	MostCommonValues []string `json:"most_common_values,omitempty" yaml:"most_common_values,omitempty"`
}

// Record folds one value into the statistics. occurrenceCount is the owning
// entry's count after increment; it is the divisor for the running average.
// Empty values are skipped entirely.
func (s *FieldStatistics) Record(value string, occurrenceCount int) {
	if value == "" {
		return
	}

	length := len(value)

	if s.MinLength == 0 || length < s.MinLength {
		s.MinLength = length
	}
	if length > s.MaxLength {
		s.MaxLength = length
	}

	if s.AvgLength == 0 {
		s.AvgLength = float64(length)
	} else {
		s.AvgLength = (s.AvgLength*float64(occurrenceCount-1) + float64(length)) / float64(occurrenceCount)
	}

	if len(s.MostCommonValues) < maxCommonValues && !s.contains(value) {
		s.MostCommonValues = append(s.MostCommonValues, value)
	}
}

func (s *FieldStatistics) contains(value string) bool {
	for _, v := range s.MostCommonValues {
		if v == value {
			return true
		}
	}
	return false
}
