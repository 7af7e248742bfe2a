package stoich

import (
	"testing"

	"github.com/san-kum/stochsim/internal/model"
)

func TestBuildDecay(t *testing.T) {
	// A -> B
	m, err := Build([]model.Reaction{
		{Reactants: []int{0}, Products: []int{1}},
	}, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.NumSpecies != 2 || m.NumReactions != 1 {
		t.Fatalf("shape = %dx%d, want 2x1", m.NumSpecies, m.NumReactions)
	}
	if got := m.Net(0, 0); got != -1 {
		t.Errorf("net(A) = %d, want -1", got)
	}
	if got := m.Net(1, 0); got != 1 {
		t.Errorf("net(B) = %d, want 1", got)
	}
	if got := m.Reactants(0, 0); got != 1 {
		t.Errorf("reactants(A) = %d, want 1", got)
	}
	if got := m.Products(1, 0); got != 1 {
		t.Errorf("products(B) = %d, want 1", got)
	}
}

func TestBuildMultisets(t *testing.T) {
	// 2A -> A2 and A2 -> 2A: repeated indices count twice
	m, err := Build([]model.Reaction{
		{Reactants: []int{0, 0}, Products: []int{1}},
		{Reactants: []int{1}, Products: []int{0, 0}},
	}, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := m.Reactants(0, 0); got != 2 {
		t.Errorf("reactants(A, bind) = %d, want 2", got)
	}
	if got := m.Net(0, 0); got != -2 {
		t.Errorf("net(A, bind) = %d, want -2", got)
	}
	if got := m.Net(0, 1); got != 2 {
		t.Errorf("net(A, unbind) = %d, want 2", got)
	}
	if got := m.Net(1, 1); got != -1 {
		t.Errorf("net(A2, unbind) = %d, want -1", got)
	}
}

func TestNetIsProductsMinusReactants(t *testing.T) {
	// E + S <-> ES -> E + P
	m, err := Build(model.MichaelisMenten().Reactions, 4)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for j := 0; j < m.NumSpecies; j++ {
		for i := 0; i < m.NumReactions; i++ {
			want := m.Products(j, i) - m.Reactants(j, i)
			if got := m.Net(j, i); got != want {
				t.Errorf("net(%d,%d) = %d, want %d", j, i, got, want)
			}
		}
	}
	// catalysis releases the enzyme and consumes the complex
	if got := m.Net(0, 2); got != 1 {
		t.Errorf("net(E, catalyze) = %d, want 1", got)
	}
	if got := m.Net(2, 2); got != -1 {
		t.Errorf("net(ES, catalyze) = %d, want -1", got)
	}
}

func TestReactionRows(t *testing.T) {
	m, err := Build([]model.Reaction{
		{Reactants: []int{0}, Products: []int{1}},
		{Reactants: []int{1}, Products: []int{0}},
	}, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	rows := m.ReactionRows()
	want := []int32{-1, 1, 1, -1}
	if len(rows) != len(want) {
		t.Fatalf("len(rows) = %d, want %d", len(rows), len(want))
	}
	for k := range want {
		if rows[k] != want[k] {
			t.Errorf("rows[%d] = %d, want %d", k, rows[k], want[k])
		}
	}
}

func TestBuildBadIndex(t *testing.T) {
	if _, err := Build([]model.Reaction{{Reactants: []int{2}}}, 2); err == nil {
		t.Error("expected error for reactant index out of range")
	}
	if _, err := Build([]model.Reaction{{Products: []int{-1}}}, 2); err == nil {
		t.Error("expected error for negative product index")
	}
}
