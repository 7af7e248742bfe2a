// Package stoich derives stoichiometry matrices from a reaction list.
//
// The net matrix is the difference of the product and reactant count
// matrices: entry (j, i) is the signed change in species j when reaction i
// fires once.
package stoich

import (
	"fmt"

	"github.com/san-kum/stochsim/internal/model"
)

// Matrix holds the reactant, product and net stoichiometry of a network,
// shaped species x reactions.
type Matrix struct {
	NumSpecies   int
	NumReactions int

	reactants []int32
	products  []int32
	net       []int32
}

// Build counts species occurrences in each reaction's reactant and product
// multisets. It fails only on species indices outside [0, numSpecies).
func Build(reactions []model.Reaction, numSpecies int) (*Matrix, error) {
	m := &Matrix{
		NumSpecies:   numSpecies,
		NumReactions: len(reactions),
		reactants:    make([]int32, numSpecies*len(reactions)),
		products:     make([]int32, numSpecies*len(reactions)),
		net:          make([]int32, numSpecies*len(reactions)),
	}
	for i, r := range reactions {
		for _, j := range r.Reactants {
			if j < 0 || j >= numSpecies {
				return nil, fmt.Errorf("stoich: reaction %d: reactant index %d out of range [0,%d)", i, j, numSpecies)
			}
			m.reactants[j*m.NumReactions+i]++
		}
		for _, j := range r.Products {
			if j < 0 || j >= numSpecies {
				return nil, fmt.Errorf("stoich: reaction %d: product index %d out of range [0,%d)", i, j, numSpecies)
			}
			m.products[j*m.NumReactions+i]++
		}
	}
	for k := range m.net {
		m.net[k] = m.products[k] - m.reactants[k]
	}
	return m, nil
}

// Net returns the signed change in species j per firing of reaction i.
func (m *Matrix) Net(j, i int) int32 { return m.net[j*m.NumReactions+i] }

// Reactants returns the count of species j consumed by reaction i.
func (m *Matrix) Reactants(j, i int) int32 { return m.reactants[j*m.NumReactions+i] }

// Products returns the count of species j produced by reaction i.
func (m *Matrix) Products(j, i int) int32 { return m.products[j*m.NumReactions+i] }

// ReactionRows returns the net matrix in reaction-major layout
// (reactions x species), the form the update step of the kernel consumes.
func (m *Matrix) ReactionRows() []int32 {
	rows := make([]int32, m.NumReactions*m.NumSpecies)
	for i := 0; i < m.NumReactions; i++ {
		for j := 0; j < m.NumSpecies; j++ {
			rows[i*m.NumSpecies+j] = m.Net(j, i)
		}
	}
	return rows
}
