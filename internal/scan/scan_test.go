package scan

import (
	"context"
	"testing"

	"github.com/san-kum/stochsim/internal/device"
	"github.com/san-kum/stochsim/internal/model"
	"github.com/san-kum/stochsim/internal/sim"
)

func TestLinspace(t *testing.T) {
	g, err := Linspace("k", 0.5, 2.0, 4, 10)
	if err != nil {
		t.Fatalf("linspace: %v", err)
	}
	want := []float64{0.5, 1.0, 1.5, 2.0}
	if len(g.Values) != len(want) {
		t.Fatalf("got %d values", len(g.Values))
	}
	for i := range want {
		if g.Values[i] != want[i] {
			t.Errorf("values[%d] = %g, want %g", i, g.Values[i], want[i])
		}
	}

	if _, err := Linspace("k", 0, 1, 1, 10); err == nil {
		t.Error("expected error for single grid value")
	}
	if _, err := Linspace("k", 2, 1, 3, 10); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestRows(t *testing.T) {
	m := model.BirthDeath() // kb=10, kd=0.1
	g := &Grid{Param: "kd", Values: []float64{0.1, 0.2}, Replicates: 3}
	rows, err := g.Rows(m)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("got %d rows, want 6", len(rows))
	}
	// kb stays nominal, kd takes the grid value in replicate blocks
	for i, row := range rows {
		if row[0] != 10 {
			t.Errorf("row %d: kb = %g, want 10", i, row[0])
		}
	}
	if rows[0][1] != 0.1 || rows[2][1] != 0.1 || rows[3][1] != 0.2 || rows[5][1] != 0.2 {
		t.Errorf("kd column = %v %v %v %v", rows[0][1], rows[2][1], rows[3][1], rows[5][1])
	}

	g.Param = "missing"
	if _, err := g.Rows(m); err == nil {
		t.Error("expected error for unknown parameter")
	}
	g = &Grid{Param: "kd", Values: []float64{1}, Replicates: 0}
	if _, err := g.Rows(m); err == nil {
		t.Error("expected error for zero replicates")
	}
}

func TestRunSweep(t *testing.T) {
	s, err := sim.New(model.Decay(), sim.WithBackend(device.NewCPUBackend()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close()

	// faster decay leaves less A at the end of the grid
	g := &Grid{Param: "k", Values: []float64{0.05, 5.0}, Replicates: 50}
	points, res, err := g.Run(context.Background(), s, []float64{0, 2}, 13, "A_total")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.NumTrajectories() != 100 {
		t.Fatalf("trajectories = %d, want 100", res.NumTrajectories())
	}
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}
	if points[0].Value != 0.05 || points[1].Value != 5.0 {
		t.Errorf("grid values = %g, %g", points[0].Value, points[1].Value)
	}
	// E[A] at t=2: ~90 for k=0.05, ~0.005 for k=5
	if points[0].Mean <= points[1].Mean {
		t.Errorf("slow decay mean %g should exceed fast decay mean %g",
			points[0].Mean, points[1].Mean)
	}
	if points[1].Mean > 5 {
		t.Errorf("fast decay mean = %g, want near zero", points[1].Mean)
	}
}

func TestReduceShapeCheck(t *testing.T) {
	s, err := sim.New(model.Decay(), sim.WithBackend(device.NewCPUBackend()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close()
	res, err := s.Run(context.Background(), sim.RunConfig{
		Tspan: []float64{0, 1}, Sims: 3, Seed: 1,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	g := &Grid{Param: "k", Values: []float64{1, 2}, Replicates: 2}
	if _, err := g.Reduce(res, "A_total"); err == nil {
		t.Error("expected error for mismatched trajectory count")
	}
}
