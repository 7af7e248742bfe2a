// Package scan sweeps a model parameter across a value grid, running a
// replicate batch of trajectories at every grid point in a single launch.
package scan

import (
	"context"
	"fmt"

	"github.com/san-kum/stochsim/internal/model"
	"github.com/san-kum/stochsim/internal/results"
	"github.com/san-kum/stochsim/internal/sim"
	"github.com/san-kum/stochsim/internal/stats"
)

// Grid is a one-parameter sweep: each value in Values gets Replicates
// trajectories, all other parameters stay at their nominal values.
type Grid struct {
	Param      string
	Values     []float64
	Replicates int
}

// Linspace fills a grid with n evenly spaced values over [from, to].
func Linspace(param string, from, to float64, n, replicates int) (*Grid, error) {
	if n < 2 {
		return nil, fmt.Errorf("scan: need at least two grid values, got %d", n)
	}
	if to <= from {
		return nil, fmt.Errorf("scan: range end %g must exceed start %g", to, from)
	}
	values := make([]float64, n)
	step := (to - from) / float64(n-1)
	for i := range values {
		values[i] = from + float64(i)*step
	}
	values[n-1] = to
	return &Grid{Param: param, Values: values, Replicates: replicates}, nil
}

// Rows expands the grid into per-trajectory parameter vectors: Replicates
// consecutive rows per grid value, nominal values elsewhere.
func (g *Grid) Rows(m *model.Model) ([][]float64, error) {
	if g.Replicates < 1 {
		return nil, fmt.Errorf("scan: need at least one replicate, got %d", g.Replicates)
	}
	idx := -1
	for i, p := range m.Parameters {
		if p.Name == g.Param {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("scan: model %s has no parameter %q", m.Name, g.Param)
	}
	nominal := m.NominalParameters()
	rows := make([][]float64, 0, len(g.Values)*g.Replicates)
	for _, v := range g.Values {
		for rep := 0; rep < g.Replicates; rep++ {
			row := make([]float64, len(nominal))
			copy(row, nominal)
			row[idx] = v
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// Point is one grid value's replicate-averaged outcome.
type Point struct {
	Value float64
	Mean  float64
	Std   float64
}

// Run executes the sweep as one batch and reduces each grid value's
// replicates to the mean and standard deviation of an observable at the last
// reporting point.
func (g *Grid) Run(ctx context.Context, s *sim.Simulator, tspan []float64, seed int64, observable string) ([]Point, *results.SimulationResult, error) {
	rows, err := g.Rows(s.Model())
	if err != nil {
		return nil, nil, err
	}
	res, err := s.Run(ctx, sim.RunConfig{
		Tspan:  tspan,
		Params: rows,
		Sims:   len(rows),
		Seed:   seed,
	})
	if err != nil {
		return nil, nil, err
	}
	points, err := g.Reduce(res, observable)
	if err != nil {
		return nil, nil, err
	}
	return points, res, nil
}

// Reduce folds a sweep result back onto the grid: one point per value,
// averaging that value's replicate block.
func (g *Grid) Reduce(res *results.SimulationResult, observable string) ([]Point, error) {
	if res.NumTrajectories() != len(g.Values)*g.Replicates {
		return nil, fmt.Errorf("scan: result has %d trajectories, sweep needs %d",
			res.NumTrajectories(), len(g.Values)*g.Replicates)
	}
	points := make([]Point, len(g.Values))
	for i, v := range g.Values {
		block := results.New(res.Model, res.Tout, nil,
			res.Counts[i*g.Replicates:(i+1)*g.Replicates])
		end, err := stats.End(block, observable)
		if err != nil {
			return nil, err
		}
		points[i] = Point{Value: v, Mean: end.Mean, Std: end.Std}
	}
	return points, nil
}
