package device

import (
	"context"
	"errors"
	"testing"
)

func TestNewGeometry(t *testing.T) {
	tests := []struct {
		sims, threads           int
		wantThreads, wantBlocks int
	}{
		{1, 32, 32, 1},
		{32, 32, 32, 1},
		{33, 32, 32, 2},
		{100, 32, 32, 4},
		{5, 4, 4, 2},
		{7, 0, DefaultThreads, 1},
		{1000, 128, 128, 8},
	}
	for _, tt := range tests {
		g, err := NewGeometry(tt.sims, tt.threads)
		if err != nil {
			t.Fatalf("geometry(%d,%d): %v", tt.sims, tt.threads, err)
		}
		if g.Threads != tt.wantThreads || g.Blocks != tt.wantBlocks {
			t.Errorf("geometry(%d,%d) = %d threads x %d blocks, want %d x %d",
				tt.sims, tt.threads, g.Threads, g.Blocks, tt.wantThreads, tt.wantBlocks)
		}
		if g.Total != g.Blocks*g.Threads {
			t.Errorf("total %d != blocks*threads %d", g.Total, g.Blocks*g.Threads)
		}
		if g.Total < tt.sims {
			t.Errorf("total %d < sims %d", g.Total, tt.sims)
		}
		if g.Sims != tt.sims {
			t.Errorf("sims = %d, want %d", g.Sims, tt.sims)
		}
	}
}

func TestNewGeometryRejectsNonPositive(t *testing.T) {
	for _, sims := range []int{0, -5} {
		if _, err := NewGeometry(sims, 32); err == nil {
			t.Errorf("geometry(%d): expected error", sims)
		}
	}
}

func TestBuffersTransposedLayout(t *testing.T) {
	geom, _ := NewGeometry(3, 4) // padded to 4 threads
	b := NewBuffers(geom, 2, 2)
	err := b.LoadParameters([][]float64{
		{1.0, 10.0},
		{2.0, 20.0},
		{3.0, 30.0},
	})
	if err != nil {
		t.Fatalf("load parameters: %v", err)
	}
	// parameter-major: all of q=0 first, then q=1
	table := b.ParamTable()
	want := []float32{1, 2, 3, 0, 10, 20, 30, 0}
	for k := range want {
		if table[k] != want[k] {
			t.Errorf("table[%d] = %g, want %g", k, table[k], want[k])
		}
	}
	if got := b.Param(1, 2); got != 30 {
		t.Errorf("Param(1,2) = %g, want 30", got)
	}
	// padding thread reads zeros
	if got := b.Param(0, 3); got != 0 {
		t.Errorf("padding Param(0,3) = %g, want 0", got)
	}
}

func TestBuffersShapeErrors(t *testing.T) {
	geom, _ := NewGeometry(2, 2)
	b := NewBuffers(geom, 2, 1)

	var dse *DeviceStateError
	if err := b.LoadParameters([][]float64{{1}}); !errors.As(err, &dse) {
		t.Errorf("row count mismatch: got %v", err)
	}
	if err := b.LoadParameters([][]float64{{1, 2}, {3, 4}}); !errors.As(err, &dse) {
		t.Errorf("row length mismatch: got %v", err)
	}
	if err := b.LoadSpecies([][]int64{{1, 2}}); !errors.As(err, &dse) {
		t.Errorf("species row count mismatch: got %v", err)
	}
	if err := b.SetSpecies([]int32{1, 2, 3}); !errors.As(err, &dse) {
		t.Errorf("species buffer size mismatch: got %v", err)
	}
	if err := b.SetTimes([]float32{0}); !errors.As(err, &dse) {
		t.Errorf("time buffer size mismatch: got %v", err)
	}
}

func TestBuffersDownloadTrimsPadding(t *testing.T) {
	geom, _ := NewGeometry(3, 4)
	b := NewBuffers(geom, 1, 1)
	if err := b.LoadSpecies([][]int64{{10}, {20}, {30}}); err != nil {
		t.Fatalf("load species: %v", err)
	}
	rows := b.DownloadState()
	if len(rows) != 3 {
		t.Fatalf("downloaded %d rows, want 3", len(rows))
	}
	for i, want := range []int32{10, 20, 30} {
		if rows[i][0] != want {
			t.Errorf("row %d = %d, want %d", i, rows[i][0], want)
		}
	}
}

func TestRNGUniformRange(t *testing.T) {
	rng := rngInit(42, 0, 0)
	for i := 0; i < 10000; i++ {
		u := rng.uniform()
		if u <= 0 || u > 1 {
			t.Fatalf("draw %d = %v outside (0,1]", i, u)
		}
	}
}

func TestRNGStreams(t *testing.T) {
	a := rngInit(42, 0, 0)
	b := rngInit(42, 0, 0)
	for i := 0; i < 100; i++ {
		if a.uniform() != b.uniform() {
			t.Fatal("same (seed,tid,start) must give identical streams")
		}
	}

	base := rngInit(42, 0, 0)
	u := base.uniform()
	for _, tc := range []struct {
		name string
		rng  rngState
	}{
		{"thread", rngInit(42, 1, 0)},
		{"seed", rngInit(43, 0, 0)},
		{"start time", rngInit(42, 0, 2.5)},
	} {
		if tc.rng.uniform() == u {
			t.Errorf("%s change did not perturb the stream", tc.name)
		}
	}
}

// decayKernel is the A -> B network with rate constant taken from the
// per-thread parameter table.
func decayKernel() Kernel {
	return Kernel{
		NumSpecies:   2,
		NumParams:    1,
		NumReactions: 1,
		Stoich:       []int32{-1, 1},
		Hazards: []HazardFunc{
			func(y []int32, param func(int) float32) float64 {
				return float64(param(0)) * float64(y[0])
			},
		},
	}
}

func decayBuffers(t *testing.T, sims, threads int, k float64, a0 int64) *Buffers {
	t.Helper()
	geom, err := NewGeometry(sims, threads)
	if err != nil {
		t.Fatalf("geometry: %v", err)
	}
	b := NewBuffers(geom, 2, 1)
	params := make([][]float64, sims)
	species := make([][]int64, sims)
	for i := range params {
		params[i] = []float64{k}
		species[i] = []int64{a0, 0}
	}
	if err := b.LoadParameters(params); err != nil {
		t.Fatalf("load parameters: %v", err)
	}
	if err := b.LoadSpecies(species); err != nil {
		t.Fatalf("load species: %v", err)
	}
	return b
}

func TestCPUCompileErrors(t *testing.T) {
	be := NewCPUBackend()

	k := decayKernel()
	k.Hazards = nil
	var ce *CompilationError
	if _, err := be.Compile(k); !errors.As(err, &ce) {
		t.Errorf("hazard count mismatch: got %v", err)
	}

	k = decayKernel()
	k.Stoich = []int32{-1}
	if _, err := be.Compile(k); !errors.As(err, &ce) {
		t.Errorf("stoichiometry shape mismatch: got %v", err)
	}
}

func TestCPUSingleStepDecay(t *testing.T) {
	be := NewCPUBackend()
	prog, err := be.Compile(decayKernel())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer prog.Release()

	const sims = 10
	b := decayBuffers(t, sims, 4, 100.0, 100)
	start := make([]float32, b.Geom.Total)
	species, times, err := prog.SingleStep(context.Background(), b, start, 5.0, 7)
	if err != nil {
		t.Fatalf("single step: %v", err)
	}
	if len(species) != b.Geom.Total*2 || len(times) != b.Geom.Total {
		t.Fatalf("output shape %d/%d", len(species), len(times))
	}
	for tid := 0; tid < sims; tid++ {
		a, bb := species[tid*2], species[tid*2+1]
		if a+bb != 100 {
			t.Errorf("thread %d: A+B = %d, want 100", tid, a+bb)
		}
		// k=100 over 5 time units: decay completes
		if a != 0 {
			t.Errorf("thread %d: A = %d, want 0", tid, a)
		}
		if times[tid] != 5.0 {
			t.Errorf("thread %d: clock %g, want 5", tid, times[tid])
		}
	}
	// padding threads carry zero parameters and zero counts: quiescent
	for tid := sims; tid < b.Geom.Total; tid++ {
		if species[tid*2] != 0 || species[tid*2+1] != 0 {
			t.Errorf("padding thread %d mutated: %v", tid, species[tid*2:tid*2+2])
		}
	}
	// input buffer must be untouched
	if got := b.SpeciesFlat()[0]; got != 100 {
		t.Errorf("input buffer mutated: %d", got)
	}
}

func TestCPUQuiescentJumpsToEnd(t *testing.T) {
	be := NewCPUBackend()
	prog, err := be.Compile(decayKernel())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	// zero molecules of A: total hazard is zero from the start
	b := decayBuffers(t, 3, 4, 1.0, 0)
	start := make([]float32, b.Geom.Total)
	species, times, err := prog.SingleStep(context.Background(), b, start, 8.0, 1)
	if err != nil {
		t.Fatalf("single step: %v", err)
	}
	for tid := 0; tid < 3; tid++ {
		if species[tid*2] != 0 || species[tid*2+1] != 0 {
			t.Errorf("thread %d: state changed with zero hazard", tid)
		}
		if times[tid] != 8.0 {
			t.Errorf("thread %d: clock %g, want end time 8", tid, times[tid])
		}
	}
}

func TestCPUSingleStepMatchesBatchFirstInterval(t *testing.T) {
	be := NewCPUBackend()
	prog, err := be.Compile(decayKernel())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	const seed = 99

	b1 := decayBuffers(t, 16, 8, 1.0, 100)
	start := make([]float32, b1.Geom.Total)
	stepped, _, err := prog.SingleStep(context.Background(), b1, start, 2.0, seed)
	if err != nil {
		t.Fatalf("single step: %v", err)
	}

	b2 := decayBuffers(t, 16, 8, 1.0, 100)
	batch, err := prog.AllSteps(context.Background(), b2, []float32{0, 2.0}, seed)
	if err != nil {
		t.Fatalf("all steps: %v", err)
	}

	// batch output is Total x 2 timepoints x 2 species; compare k=1
	for tid := 0; tid < b1.Geom.Total; tid++ {
		for j := 0; j < 2; j++ {
			got := batch[(tid*2+1)*2+j]
			want := stepped[tid*2+j]
			if got != want {
				t.Errorf("thread %d species %d: batch %d, stepped %d", tid, j, got, want)
			}
		}
	}
}

func TestCPUAllStepsRecordsInitialState(t *testing.T) {
	be := NewCPUBackend()
	prog, err := be.Compile(decayKernel())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	b := decayBuffers(t, 4, 4, 1.0, 100)
	out, err := prog.AllSteps(context.Background(), b, []float32{0, 1, 2}, 5)
	if err != nil {
		t.Fatalf("all steps: %v", err)
	}
	nt, ns := 3, 2
	for tid := 0; tid < 4; tid++ {
		if got := out[(tid*nt+0)*ns]; got != 100 {
			t.Errorf("thread %d: first record A = %d, want 100", tid, got)
		}
		// counts only decrease as the grid advances
		prev := out[(tid*nt+0)*ns]
		for k := 1; k < nt; k++ {
			cur := out[(tid*nt+k)*ns]
			if cur > prev {
				t.Errorf("thread %d: A rose from %d to %d", tid, prev, cur)
			}
			prev = cur
		}
	}
}

func TestCPUDeterministicForSeed(t *testing.T) {
	be := NewCPUBackend()
	prog, err := be.Compile(decayKernel())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	run := func(seed uint64) []int32 {
		b := decayBuffers(t, 32, 8, 1.0, 100)
		out, err := prog.AllSteps(context.Background(), b, []float32{0, 1, 2, 3}, seed)
		if err != nil {
			t.Fatalf("all steps: %v", err)
		}
		return out
	}
	a, b := run(11), run(11)
	for k := range a {
		if a[k] != b[k] {
			t.Fatalf("same seed diverged at %d", k)
		}
	}
	c := run(12)
	same := true
	for k := range a {
		if a[k] != c[k] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical trajectories")
	}
}

func TestCPUHonorsContext(t *testing.T) {
	be := NewCPUBackend()
	prog, err := be.Compile(decayKernel())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := decayBuffers(t, 2, 2, 1.0, 100)
	if _, err := prog.AllSteps(ctx, b, []float32{0, 1}, 1); err == nil {
		t.Error("expected context error")
	}
}

func TestSelectHonorsEnv(t *testing.T) {
	t.Setenv("STOCHSIM_BACKEND", "cpu")
	if got := Select().Name(); got != "cpu" {
		t.Errorf("forced cpu backend, selected %q", got)
	}
}
