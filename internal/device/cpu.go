package device

import (
	"context"
	"math"
	"runtime"
	"sync"
)

// CPUBackend executes the SSA semantics of the generated kernel natively,
// one goroutine batch per chunk of threads. It is the reference
// implementation and the fallback when no accelerator is present.
type CPUBackend struct {
	workers int
}

// NewCPUBackend returns a backend using one worker per CPU.
func NewCPUBackend() *CPUBackend {
	return &CPUBackend{workers: runtime.NumCPU()}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}

// Compile validates the kernel description. There is nothing to build; the
// hazard closures and stoichiometry table are executed directly.
func (c *CPUBackend) Compile(k Kernel) (Program, error) {
	if len(k.Hazards) != k.NumReactions {
		return nil, &CompilationError{
			Backend:     c.Name(),
			Diagnostics: "hazard count does not match reaction count",
		}
	}
	if len(k.Stoich) != k.NumReactions*k.NumSpecies {
		return nil, &CompilationError{
			Backend:     c.Name(),
			Diagnostics: "stoichiometry table does not match network shape",
		}
	}
	return &cpuProgram{k: k, workers: c.workers}, nil
}

type cpuProgram struct {
	k       Kernel
	workers int
}

func (p *cpuProgram) Release() {}

func (p *cpuProgram) check(b *Buffers) error {
	if b.NumSpecies != p.k.NumSpecies {
		return &DeviceStateError{What: "species width", Want: p.k.NumSpecies, Got: b.NumSpecies}
	}
	if b.NumParams != p.k.NumParams {
		return &DeviceStateError{What: "parameter width", Want: p.k.NumParams, Got: b.NumParams}
	}
	if len(b.SpeciesFlat()) != b.Geom.Total*b.NumSpecies {
		return &DeviceStateError{What: "species buffer", Want: b.Geom.Total * b.NumSpecies, Got: len(b.SpeciesFlat())}
	}
	return nil
}

func (p *cpuProgram) SingleStep(ctx context.Context, b *Buffers, start []float32, end float32, seed uint64) ([]int32, []float32, error) {
	if err := p.check(b); err != nil {
		return nil, nil, err
	}
	if len(start) != b.Geom.Total {
		return nil, nil, &DeviceStateError{What: "start times", Want: b.Geom.Total, Got: len(start)}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	ns := p.k.NumSpecies
	out := make([]int32, b.Geom.Total*ns)
	times := make([]float32, b.Geom.Total)
	in := b.SpeciesFlat()

	p.eachThread(b.Geom.Total, func(tid int) {
		y := make([]int32, ns)
		copy(y, in[tid*ns:(tid+1)*ns])
		rng := rngInit(seed, tid, start[tid])
		param := func(q int) float32 { return b.Param(q, tid) }
		times[tid] = p.advance(y, param, start[tid], end, &rng)
		copy(out[tid*ns:(tid+1)*ns], y)
	})
	return out, times, nil
}

func (p *cpuProgram) AllSteps(ctx context.Context, b *Buffers, tspan []float32, seed uint64) ([]int32, error) {
	if err := p.check(b); err != nil {
		return nil, err
	}
	if len(tspan) == 0 {
		return nil, &DeviceStateError{What: "time grid length", Want: 1, Got: 0}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ns := p.k.NumSpecies
	nt := len(tspan)
	out := make([]int32, b.Geom.Total*nt*ns)
	in := b.SpeciesFlat()

	p.eachThread(b.Geom.Total, func(tid int) {
		y := make([]int32, ns)
		copy(y, in[tid*ns:(tid+1)*ns])
		rng := rngInit(seed, tid, tspan[0])
		param := func(q int) float32 { return b.Param(q, tid) }
		t := tspan[0]
		for k, tp := range tspan {
			t = p.advance(y, param, t, tp, &rng)
			copy(out[(tid*nt+k)*ns:(tid*nt+k+1)*ns], y)
		}
	})
	return out, nil
}

// advance runs the SSA loop for one trajectory from t to tEnd. A zero total
// hazard makes the trajectory quiescent: its clock jumps straight to tEnd
// without firing. An event sampled past tEnd is discarded and the clock
// clamps to tEnd, which is exact for exponential waiting times because the
// hazards depend only on the unchanged state.
func (p *cpuProgram) advance(y []int32, param func(int) float32, t, tEnd float32, rng *rngState) float32 {
	nr := p.k.NumReactions
	ns := p.k.NumSpecies
	h := make([]float64, nr)
	for t < tEnd {
		h0 := 0.0
		for i, fn := range p.k.Hazards {
			h[i] = fn(y, param)
			h0 += h[i]
		}
		if h0 <= 0 {
			return tEnd
		}
		u1 := rng.uniform()
		u2 := rng.uniform()
		dt := float32(-math.Log(u1) / h0)
		if t+dt >= tEnd {
			return tEnd
		}
		t += dt
		mu := u2 * h0
		cum := 0.0
		r := nr - 1
		for i := 0; i < nr; i++ {
			cum += h[i]
			if cum > mu {
				r = i
				break
			}
		}
		for j := 0; j < ns; j++ {
			y[j] += p.k.Stoich[r*ns+j]
		}
	}
	return t
}

// eachThread fans the per-thread work out over chunks of the thread range.
// Each trajectory writes only its own rows, so no locking is needed.
func (p *cpuProgram) eachThread(total int, fn func(tid int)) {
	workers := p.workers
	if workers < 1 {
		workers = 1
	}
	chunk := (total + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < total; lo += chunk {
		hi := lo + chunk
		if hi > total {
			hi = total
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for tid := lo; tid < hi; tid++ {
				fn(tid)
			}
		}(lo, hi)
	}
	wg.Wait()
}
