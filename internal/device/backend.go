package device

import (
	"context"
	"os"
)

// HazardFunc evaluates one reaction's propensity from species counts and a
// per-thread parameter accessor.
type HazardFunc func(y []int32, param func(int) float32) float64

// Kernel is a compiled-network description consumed by a backend. Source is
// the generated CUDA text; Stoich and Hazards are the host-side twins the
// reference backend executes directly.
type Kernel struct {
	Source       string
	NumSpecies   int
	NumParams    int
	NumReactions int
	Stoich       []int32 // reaction-major: [r*NumSpecies+j] net change
	Hazards      []HazardFunc
}

// Program is a kernel compiled for a particular backend. Launches are
// synchronous: they return only after device completion, and they never
// mutate the input buffers' species state — each step's output is a fresh
// array handed to the next step.
type Program interface {
	// SingleStep advances every thread from its entry in start to end,
	// returning the final species states and per-thread clocks.
	SingleStep(ctx context.Context, b *Buffers, start []float32, end float32, seed uint64) (species []int32, times []float32, err error)

	// AllSteps records species state at every entry of tspan without host
	// intervention, returning a Total x len(tspan) x NumSpecies array.
	AllSteps(ctx context.Context, b *Buffers, tspan []float32, seed uint64) ([]int32, error)

	// Release frees backend resources held by the compiled kernel.
	Release()
}

// Backend compiles kernels for one class of hardware.
type Backend interface {
	Name() string
	Available() bool
	Compile(k Kernel) (Program, error)
	Cleanup()
}

// Select picks a backend: STOCHSIM_BACKEND forces one ("cpu" or "cuda"),
// otherwise CUDA when available, else the CPU reference backend.
func Select() Backend {
	switch backendEnv() {
	case "cpu":
		return NewCPUBackend()
	case "cuda":
		return NewCUDABackend()
	}
	cuda := NewCUDABackend()
	if cuda.Available() {
		return cuda
	}
	return NewCPUBackend()
}

func backendEnv() string { return os.Getenv("STOCHSIM_BACKEND") }
