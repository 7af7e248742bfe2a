// Package kernelgen compiles a reaction network into CUDA kernel source
// implementing the Gillespie stochastic simulation algorithm, one trajectory
// per device thread.
//
// Rate formulas are parsed once into an expression tree and emitted by
// traversal, so substitutions cannot shadow one another. Generation is pure:
// the same model always yields byte-identical source.
package kernelgen

import (
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/stochsim/internal/model"
	"github.com/san-kum/stochsim/internal/rate"
	"github.com/san-kum/stochsim/internal/stoich"
)

// SourceFile is where the generated kernel is dumped in verbose mode.
const SourceFile = "ssa_cuda_code.cu"

// HazardFunc evaluates one reaction's propensity against host-side state.
// It is the host twin of the generated hazards() device function.
type HazardFunc func(y []int32, param func(int) float32) float64

// Generator holds a compiled network: resolved rate trees, stoichiometry
// and the rendered kernel source.
type Generator struct {
	m      *model.Model
	table  *rate.Table
	trees  []rate.Expr
	mat    *stoich.Matrix
	source string
}

// New validates the model, resolves every rate formula and renders the
// kernel source.
func New(m *model.Model) (*Generator, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	table, err := m.Symbols()
	if err != nil {
		return nil, err
	}
	trees, err := m.CompiledRates()
	if err != nil {
		return nil, err
	}
	mat, err := stoich.Build(m.Reactions, len(m.Species))
	if err != nil {
		return nil, err
	}
	g := &Generator{m: m, table: table, trees: trees, mat: mat}
	g.source = g.render()
	return g, nil
}

func (g *Generator) render() string {
	var stoch strings.Builder
	rows := g.mat.ReactionRows()
	for i := 0; i < g.mat.NumReactions; i++ {
		stoch.WriteByte('\t')
		for j := 0; j < g.mat.NumSpecies; j++ {
			if j > 0 {
				stoch.WriteString(", ")
			}
			fmt.Fprintf(&stoch, "%d", rows[i*g.mat.NumSpecies+j])
		}
		if i < g.mat.NumReactions-1 {
			stoch.WriteByte(',')
		}
		stoch.WriteByte('\n')
	}

	var hazards strings.Builder
	for n, tree := range g.trees {
		fmt.Fprintf(&hazards, "\th[%d] = %s;\n", n, g.table.EmitCUDA(tree))
	}

	return fmt.Sprintf(cudaTemplate,
		len(g.m.Species), len(g.m.Parameters), len(g.m.Reactions),
		stoch.String(), hazards.String())
}

// Source returns the complete kernel source. Repeated calls return the same
// string.
func (g *Generator) Source() string { return g.source }

// WriteSource dumps the generated kernel to path for inspection.
func (g *Generator) WriteSource(path string) error {
	return os.WriteFile(path, []byte(g.source), 0644)
}

// Stoichiometry returns the network's stoichiometry matrices.
func (g *Generator) Stoichiometry() *stoich.Matrix { return g.mat }

// Hazards returns host-evaluable propensity functions, one per reaction, in
// reaction order. They apply the same arithmetic the emitted device code
// does, including combinatorial integer-power expansion.
func (g *Generator) Hazards() []HazardFunc {
	fns := make([]HazardFunc, len(g.trees))
	for n := range g.trees {
		tree := g.trees[n]
		fns[n] = func(y []int32, param func(int) float32) float64 {
			return g.table.Eval(tree,
				func(j int) float64 { return float64(y[j]) },
				func(q int) float64 { return float64(param(q)) })
		}
	}
	return fns
}
