package model

import (
	"fmt"

	"github.com/san-kum/stochsim/internal/rate"
)

// Parameter is a named rate constant with its nominal value.
type Parameter struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

// Reaction is one channel of the network. Reactants and Products are
// species-index multisets: a species appearing twice consumes (or yields)
// two copies per firing. Rate is a symbolic propensity formula over
// parameters, species, observables and named expressions. Reversible marks
// channels that were split from a bidirectional rule; it is metadata only,
// both directions appear as separate reactions.
type Reaction struct {
	Name       string `yaml:"name,omitempty"`
	Reactants  []int  `yaml:"reactants"`
	Products   []int  `yaml:"products"`
	Rate       string `yaml:"rate"`
	Reversible bool   `yaml:"reversible,omitempty"`
}

// Observable is a named linear combination of species counts.
type Observable struct {
	Name         string `yaml:"name"`
	Species      []int  `yaml:"species"`
	Coefficients []int  `yaml:"coefficients"`
}

// Expression is a named sub-formula that rates may reference by name.
type Expression struct {
	Name    string `yaml:"name"`
	Formula string `yaml:"formula"`
}

// Model is an immutable reaction network plus nominal run inputs. Species
// order fixes state-vector layout; parameter order fixes the parameter
// table layout.
type Model struct {
	Name        string       `yaml:"name"`
	Species     []string     `yaml:"species"`
	Parameters  []Parameter  `yaml:"parameters"`
	Reactions   []Reaction   `yaml:"reactions"`
	Observables []Observable `yaml:"observables,omitempty"`
	Expressions []Expression `yaml:"expressions,omitempty"`
	Initials    []int64      `yaml:"initials"`
}

// Validate checks structural consistency: index ranges, observable shape,
// initial-condition length and rate formula syntax.
func (m *Model) Validate() error {
	if len(m.Species) == 0 {
		return fmt.Errorf("model %s: no species", m.Name)
	}
	if len(m.Reactions) == 0 {
		return fmt.Errorf("model %s: no reactions", m.Name)
	}
	if len(m.Initials) != len(m.Species) {
		return fmt.Errorf("model %s: %d initials for %d species",
			m.Name, len(m.Initials), len(m.Species))
	}
	for i, r := range m.Reactions {
		for _, j := range r.Reactants {
			if j < 0 || j >= len(m.Species) {
				return fmt.Errorf("model %s: reaction %d: reactant index %d out of range", m.Name, i, j)
			}
		}
		for _, j := range r.Products {
			if j < 0 || j >= len(m.Species) {
				return fmt.Errorf("model %s: reaction %d: product index %d out of range", m.Name, i, j)
			}
		}
		if r.Rate == "" {
			return fmt.Errorf("model %s: reaction %d: empty rate", m.Name, i)
		}
	}
	for _, o := range m.Observables {
		if len(o.Species) != len(o.Coefficients) {
			return fmt.Errorf("model %s: observable %s: %d species, %d coefficients",
				m.Name, o.Name, len(o.Species), len(o.Coefficients))
		}
		for _, j := range o.Species {
			if j < 0 || j >= len(m.Species) {
				return fmt.Errorf("model %s: observable %s: species index %d out of range", m.Name, o.Name, j)
			}
		}
	}
	if _, err := m.Symbols(); err != nil {
		return fmt.Errorf("model %s: %w", m.Name, err)
	}
	if _, err := m.CompiledRates(); err != nil {
		return fmt.Errorf("model %s: %w", m.Name, err)
	}
	return nil
}

// Symbols builds the resolution table shared by code generation, the host
// reference backend and post-hoc expression projection.
func (m *Model) Symbols() (*rate.Table, error) {
	params := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		params[i] = p.Name
	}
	obs := make([]rate.Observable, len(m.Observables))
	for i, o := range m.Observables {
		obs[i] = rate.Observable{Name: o.Name, Species: o.Species, Coefficients: o.Coefficients}
	}
	t, err := rate.NewTable(m.Species, params, obs)
	if err != nil {
		return nil, err
	}
	for _, e := range m.Expressions {
		if err := t.AddExpression(e.Name, e.Formula); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// CompiledRates parses and resolves every reaction's rate formula.
func (m *Model) CompiledRates() ([]rate.Expr, error) {
	t, err := m.Symbols()
	if err != nil {
		return nil, err
	}
	trees := make([]rate.Expr, len(m.Reactions))
	for i, r := range m.Reactions {
		e, err := rate.Parse(r.Rate)
		if err != nil {
			return nil, fmt.Errorf("reaction %d: %w", i, err)
		}
		trees[i], err = t.Resolve(e)
		if err != nil {
			return nil, fmt.Errorf("reaction %d: %w", i, err)
		}
	}
	return trees, nil
}

// NominalParameters returns the model's parameter values in table order.
func (m *Model) NominalParameters() []float64 {
	v := make([]float64, len(m.Parameters))
	for i, p := range m.Parameters {
		v[i] = p.Value
	}
	return v
}

// NominalInitials returns a copy of the model's initial species counts.
func (m *Model) NominalInitials() []int64 {
	v := make([]int64, len(m.Initials))
	copy(v, m.Initials)
	return v
}

// SpeciesIndex returns the index of a named species.
func (m *Model) SpeciesIndex(name string) (int, bool) {
	for i, s := range m.Species {
		if s == name {
			return i, true
		}
	}
	return 0, false
}
