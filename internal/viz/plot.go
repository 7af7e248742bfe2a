// Package viz renders terminal plots of simulation output.
package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/stochsim/internal/results"
)

// PlotObservable draws the trajectory-averaged time course of a named
// observable.
func PlotObservable(r *results.SimulationResult, name string, height int) (string, error) {
	mean, err := r.MeanObservable(name)
	if err != nil {
		return "", err
	}
	if height <= 0 {
		height = 15
	}
	caption := fmt.Sprintf("%s (mean of %d trajectories, t=%g..%g)",
		name, r.NumTrajectories(), r.Tout[0], r.Tout[len(r.Tout)-1])
	return asciigraph.Plot(mean,
		asciigraph.Height(height),
		asciigraph.Caption(caption),
	), nil
}

// PlotSpecies draws a single trajectory's counts for one species.
func PlotSpecies(r *results.SimulationResult, name string, traj, height int) (string, error) {
	series, err := r.Species(name)
	if err != nil {
		return "", err
	}
	if traj < 0 || traj >= len(series) {
		return "", fmt.Errorf("viz: trajectory %d out of range [0,%d)", traj, len(series))
	}
	if height <= 0 {
		height = 15
	}
	data := make([]float64, len(series[traj]))
	for k, v := range series[traj] {
		data[k] = float64(v)
	}
	caption := fmt.Sprintf("%s (trajectory %d)", name, traj)
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Caption(caption),
	), nil
}
