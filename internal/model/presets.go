package model

import "sort"

// Built-in example networks, usable from the CLI without a model file.
var presets = map[string]func() *Model{
	"decay":      Decay,
	"birthdeath": BirthDeath,
	"dimer":      Dimerization,
	"mm":         MichaelisMenten,
}

// Preset returns a built-in model by name, or nil if unknown.
func Preset(name string) *Model {
	fn, ok := presets[name]
	if !ok {
		return nil
	}
	return fn()
}

// ListPresets returns the built-in model names, sorted.
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decay is the irreversible conversion A -> B with unit rate constant.
func Decay() *Model {
	return &Model{
		Name:    "decay",
		Species: []string{"A", "B"},
		Parameters: []Parameter{
			{Name: "k", Value: 1.0},
		},
		Reactions: []Reaction{
			{Name: "convert", Reactants: []int{0}, Products: []int{1}, Rate: "k*A"},
		},
		Observables: []Observable{
			{Name: "A_total", Species: []int{0}, Coefficients: []int{1}},
			{Name: "B_total", Species: []int{1}, Coefficients: []int{1}},
		},
		Initials: []int64{100, 0},
	}
}

// BirthDeath is constant production and first-order degradation of X.
func BirthDeath() *Model {
	return &Model{
		Name:    "birthdeath",
		Species: []string{"X"},
		Parameters: []Parameter{
			{Name: "kb", Value: 10.0},
			{Name: "kd", Value: 0.1},
		},
		Reactions: []Reaction{
			{Name: "birth", Products: []int{0}, Rate: "kb"},
			{Name: "death", Reactants: []int{0}, Rate: "kd*X"},
		},
		Observables: []Observable{
			{Name: "X_total", Species: []int{0}, Coefficients: []int{1}},
		},
		Initials: []int64{0},
	}
}

// Dimerization is 2A <-> A2, exercising the combinatorial A^2 propensity.
func Dimerization() *Model {
	return &Model{
		Name:    "dimer",
		Species: []string{"A", "A2"},
		Parameters: []Parameter{
			{Name: "kf", Value: 0.005},
			{Name: "kr", Value: 0.2},
		},
		Reactions: []Reaction{
			{Name: "bind", Reactants: []int{0, 0}, Products: []int{1}, Rate: "kf*A^2", Reversible: true},
			{Name: "unbind", Reactants: []int{1}, Products: []int{0, 0}, Rate: "kr*A2", Reversible: true},
		},
		Observables: []Observable{
			{Name: "A_free", Species: []int{0}, Coefficients: []int{1}},
			{Name: "A_bound", Species: []int{1}, Coefficients: []int{2}},
		},
		Initials: []int64{200, 0},
	}
}

// MichaelisMenten is the canonical E + S <-> ES -> E + P scheme.
func MichaelisMenten() *Model {
	return &Model{
		Name:    "mm",
		Species: []string{"E", "S", "ES", "P"},
		Parameters: []Parameter{
			{Name: "kf", Value: 0.0017},
			{Name: "kr", Value: 0.5},
			{Name: "kcat", Value: 0.1},
		},
		Reactions: []Reaction{
			{Name: "bind", Reactants: []int{0, 1}, Products: []int{2}, Rate: "kf*E*S", Reversible: true},
			{Name: "unbind", Reactants: []int{2}, Products: []int{0, 1}, Rate: "kr*ES", Reversible: true},
			{Name: "catalyze", Reactants: []int{2}, Products: []int{0, 3}, Rate: "kcat*ES"},
		},
		Observables: []Observable{
			{Name: "substrate", Species: []int{1}, Coefficients: []int{1}},
			{Name: "product", Species: []int{3}, Coefficients: []int{1}},
			{Name: "bound", Species: []int{2}, Coefficients: []int{1}},
		},
		Initials: []int64{100, 500, 0, 0},
	}
}
