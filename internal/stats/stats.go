// Package stats summarizes trajectory ensembles: per-timepoint moments and
// end-state distributions of observables.
package stats

import (
	"fmt"
	"math"

	"github.com/san-kum/stochsim/internal/results"
)

// Series is the trajectory-ensemble mean and standard deviation of one
// observable at every reporting point.
type Series struct {
	Name string
	Mean []float64
	Std  []float64
}

// Observable computes the ensemble mean and standard deviation of a named
// observable across trajectories.
func Observable(r *results.SimulationResult, name string) (*Series, error) {
	obs, err := r.Observable(name)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("stats: no trajectories")
	}
	nt := r.NumTimepoints()
	s := &Series{Name: name, Mean: make([]float64, nt), Std: make([]float64, nt)}
	n := float64(len(obs))
	for _, row := range obs {
		for k, v := range row {
			s.Mean[k] += v
		}
	}
	for k := range s.Mean {
		s.Mean[k] /= n
	}
	for _, row := range obs {
		for k, v := range row {
			d := v - s.Mean[k]
			s.Std[k] += d * d
		}
	}
	for k := range s.Std {
		s.Std[k] = math.Sqrt(s.Std[k] / n)
	}
	return s, nil
}

// EndState is the distribution of an observable at the last reporting point.
type EndState struct {
	Name     string
	Mean     float64
	Std      float64
	Min, Max float64
}

// End summarizes an observable's final-time distribution across trajectories.
func End(r *results.SimulationResult, name string) (*EndState, error) {
	s, err := Observable(r, name)
	if err != nil {
		return nil, err
	}
	obs, err := r.Observable(name)
	if err != nil {
		return nil, err
	}
	last := r.NumTimepoints() - 1
	e := &EndState{
		Name: name,
		Mean: s.Mean[last],
		Std:  s.Std[last],
		Min:  math.Inf(1),
		Max:  math.Inf(-1),
	}
	for _, row := range obs {
		v := row[last]
		if v < e.Min {
			e.Min = v
		}
		if v > e.Max {
			e.Max = v
		}
	}
	return e, nil
}

// Histogram bins an observable's final-time values into equal-width bins.
// Edges has bins+1 entries; Counts[i] covers [Edges[i], Edges[i+1]), with the
// last bin closed on the right.
type Histogram struct {
	Edges  []float64
	Counts []int
}

// EndHistogram bins the final-time values of an observable.
func EndHistogram(r *results.SimulationResult, name string, bins int) (*Histogram, error) {
	if bins < 1 {
		return nil, fmt.Errorf("stats: need at least one bin, got %d", bins)
	}
	obs, err := r.Observable(name)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("stats: no trajectories")
	}
	last := r.NumTimepoints() - 1
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range obs {
		v := row[last]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		hi = lo + 1
	}
	h := &Histogram{Edges: make([]float64, bins+1), Counts: make([]int, bins)}
	width := (hi - lo) / float64(bins)
	for i := range h.Edges {
		h.Edges[i] = lo + float64(i)*width
	}
	h.Edges[bins] = hi
	for _, row := range obs {
		i := int((row[last] - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		h.Counts[i]++
	}
	return h, nil
}
