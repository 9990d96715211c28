package regime

import "gonum.org/v1/gonum/stat"

// Summary condenses a labelled series for captions and narratives.
type Summary struct {
	Counts   map[Label]int `json:"counts"`
	Last     Label         `json:"last"`
	LastDate string        `json:"last_date"`
	MeanDiff float64       `json:"mean_diff"`
	StdDiff  float64       `json:"std_diff"`
}

// Summarize counts labels and describes the distribution of price changes.
// Unlabelled series are labelled by Fill first.
func Summarize(points []PricePoint) Summary {
	s := Summary{Counts: map[Label]int{}}
	if len(points) == 0 {
		return s
	}
	filled := Fill(points)
	for _, p := range filled {
		if p.Regime != "" {
			s.Counts[p.Regime]++
		}
	}
	last := filled[len(filled)-1]
	s.Last, s.LastDate = last.Regime, last.Date

	diffs := Diffs(points)
	if len(diffs) > 2 {
		s.MeanDiff, s.StdDiff = stat.MeanStdDev(diffs[1:], nil)
	}
	return s
}

// Share returns the fraction of points carrying label l.
func (s Summary) Share(l Label) float64 {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	if total == 0 {
		return 0
	}
	return float64(s.Counts[l]) / float64(total)
}
