package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary condenses a best-fitness-by-generation series.
type Summary struct {
	Initial     float64 `json:"initial"`
	Final       float64 `json:"final"`
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Improvement float64 `json:"improvement"`
}

func Summarize(series []float64) Summary {
	if len(series) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(series, nil)
	if math.IsNaN(std) {
		std = 0
	}
	initial, final := series[0], series[len(series)-1]
	return Summary{
		Initial:     initial,
		Final:       final,
		Mean:        mean,
		Std:         std,
		Min:         floats.Min(series),
		Max:         floats.Max(series),
		Improvement: final - initial,
	}
}

// SeriesPoint aggregates several runs at one generation.
type SeriesPoint struct {
	Generation int     `json:"generation"`
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Max        float64 `json:"max"`
	Runs       int     `json:"runs"`
}

// AverageSeries aligns runs by generation. Shorter runs, such as those
// stopped at their fitness goal, drop out once exhausted.
func AverageSeries(lists [][]float64) []SeriesPoint {
	longest := 0
	for _, list := range lists {
		longest = max(longest, len(list))
	}

	points := make([]SeriesPoint, 0, longest)
	for gen := 0; gen < longest; gen++ {
		values := make([]float64, 0, len(lists))
		for _, list := range lists {
			if gen < len(list) {
				values = append(values, list[gen])
			}
		}
		point := SeriesPoint{
			Generation: gen,
			Mean:       stat.Mean(values, nil),
			Max:        floats.Max(values),
			Runs:       len(values),
		}
		if len(values) > 1 {
			point.Std = stat.StdDev(values, nil)
		}
		points = append(points, point)
	}
	return points
}
