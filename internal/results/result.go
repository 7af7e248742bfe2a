// Package results packages raw trajectory buffers into the result container
// shared by every engine, so observable and expression projections apply
// uniformly regardless of which backend produced the counts.
package results

import (
	"fmt"

	"github.com/san-kum/stochsim/internal/model"
)

// SimulationResult is a multi-trajectory time series of species counts:
// Counts[s][k][j] is the count of species j in trajectory s at Tout[k].
// Params carries the per-trajectory parameter vectors the run used, needed
// for post-hoc expression evaluation.
type SimulationResult struct {
	Model  *model.Model
	Tout   []float64
	Params [][]float64
	Counts [][][]int32
}

// New wraps already-shaped trajectory data.
func New(m *model.Model, tout []float64, params [][]float64, counts [][][]int32) *SimulationResult {
	return &SimulationResult{Model: m, Tout: tout, Params: params, Counts: counts}
}

// Assemble reshapes a flat device buffer (total x timepoints x species,
// thread-major) into a result, keeping only the first sims trajectories.
// Padding threads beyond sims are discarded here.
func Assemble(m *model.Model, tout []float64, params [][]float64, flat []int32, total, sims int) (*SimulationResult, error) {
	nt := len(tout)
	ns := len(m.Species)
	if len(flat) != total*nt*ns {
		return nil, fmt.Errorf("results: flat buffer has %d entries, want %d", len(flat), total*nt*ns)
	}
	if sims > total {
		return nil, fmt.Errorf("results: %d trajectories exceed %d threads", sims, total)
	}
	counts := make([][][]int32, sims)
	for s := 0; s < sims; s++ {
		counts[s] = make([][]int32, nt)
		for k := 0; k < nt; k++ {
			row := make([]int32, ns)
			copy(row, flat[(s*nt+k)*ns:(s*nt+k+1)*ns])
			counts[s][k] = row
		}
	}
	return New(m, tout, params, counts), nil
}

// NumTrajectories returns the trajectory count.
func (r *SimulationResult) NumTrajectories() int { return len(r.Counts) }

// NumTimepoints returns the reporting-grid length.
func (r *SimulationResult) NumTimepoints() int { return len(r.Tout) }

// Species returns one species' counts as trajectories x timepoints.
func (r *SimulationResult) Species(name string) ([][]int32, error) {
	j, ok := r.Model.SpeciesIndex(name)
	if !ok {
		return nil, fmt.Errorf("results: unknown species %q", name)
	}
	out := make([][]int32, len(r.Counts))
	for s, traj := range r.Counts {
		row := make([]int32, len(traj))
		for k, y := range traj {
			row[k] = y[j]
		}
		out[s] = row
	}
	return out, nil
}

// Observable projects a named linear combination of species counts,
// trajectories x timepoints.
func (r *SimulationResult) Observable(name string) ([][]float64, error) {
	for _, o := range r.Model.Observables {
		if o.Name != name {
			continue
		}
		out := make([][]float64, len(r.Counts))
		for s, traj := range r.Counts {
			row := make([]float64, len(traj))
			for k, y := range traj {
				sum := 0.0
				for i, j := range o.Species {
					sum += float64(o.Coefficients[i]) * float64(y[j])
				}
				row[k] = sum
			}
			out[s] = row
		}
		return out, nil
	}
	return nil, fmt.Errorf("results: unknown observable %q", name)
}

// Expression evaluates a named sub-expression over every trajectory and
// timepoint, using the same expression trees the engine compiled from.
func (r *SimulationResult) Expression(name string) ([][]float64, error) {
	table, err := r.Model.Symbols()
	if err != nil {
		return nil, err
	}
	idx, ok := table.ExpressionIndex(name)
	if !ok {
		return nil, fmt.Errorf("results: unknown expression %q", name)
	}
	tree := table.Expressions[idx]
	out := make([][]float64, len(r.Counts))
	for s, traj := range r.Counts {
		params := r.paramRow(s)
		row := make([]float64, len(traj))
		for k, y := range traj {
			row[k] = table.Eval(tree,
				func(j int) float64 { return float64(y[j]) },
				func(q int) float64 { return params[q] })
		}
		out[s] = row
	}
	return out, nil
}

func (r *SimulationResult) paramRow(s int) []float64 {
	if s < len(r.Params) {
		return r.Params[s]
	}
	return r.Model.NominalParameters()
}

// MeanObservable averages an observable across trajectories at each
// timepoint.
func (r *SimulationResult) MeanObservable(name string) ([]float64, error) {
	obs, err := r.Observable(name)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("results: no trajectories")
	}
	mean := make([]float64, len(r.Tout))
	for _, row := range obs {
		for k, v := range row {
			mean[k] += v
		}
	}
	for k := range mean {
		mean[k] /= float64(len(obs))
	}
	return mean, nil
}
