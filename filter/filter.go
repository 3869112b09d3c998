package filter

import "github.com/hb9tf/sweeprx/sdr"

type Filterer interface {
	ShouldIgnore(*sdr.Segment) bool
}

// Filter forwards every segment not ignored by any of the filters and
// closes output once input is drained.
func Filter(input <-chan sdr.Segment, output chan<- sdr.Segment, filters []Filterer) error {
	defer close(output)
	for s := range input {
		skip := false
		for _, f := range filters {
			if f.ShouldIgnore(&s) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		output <- s
	}
	return nil
}

// FilterFreq keeps segments centered within [FreqLow, FreqHigh]. A zero
// bound is open.
type FilterFreq struct {
	FreqHigh int64
	FreqLow  int64
}

func (f *FilterFreq) ShouldIgnore(s *sdr.Segment) bool {
	if f.FreqHigh > 0 && s.FreqCenter > f.FreqHigh {
		return true
	}
	if s.FreqCenter < f.FreqLow {
		return true
	}
	return false
}

// FilterOutcome drops segments with one of the listed outcomes, e.g.
// "stopped" to keep interrupted segments out of the catalog.
type FilterOutcome struct {
	Ignore []string
}

func (f *FilterOutcome) ShouldIgnore(s *sdr.Segment) bool {
	for _, o := range f.Ignore {
		if s.Outcome == o {
			return true
		}
	}
	return false
}
