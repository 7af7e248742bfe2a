package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/stochsim/internal/device"
	"github.com/san-kum/stochsim/internal/kernelgen"
	"github.com/san-kum/stochsim/internal/model"
	"github.com/san-kum/stochsim/internal/results"
)

// Phase tracks a simulator through one run's lifecycle. Each simulator owns
// its own phase and compiled kernel; instances never share device state.
type Phase int

const (
	Idle Phase = iota
	Compiled
	Configured
	Running
	Collected
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Compiled:
		return "compiled"
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Collected:
		return "collected"
	}
	return "unknown"
}

// Mode selects the execution strategy for a run.
type Mode int

const (
	// ModeBatch issues one kernel launch consuming the whole time grid;
	// every thread advances through all reporting points without host
	// intervention.
	ModeBatch Mode = iota

	// ModeStep issues one launch per reporting interval, carrying each
	// trajectory's end state and clock into the next launch. Costs launch
	// overhead, enables per-step progress reporting.
	ModeStep
)

func (m Mode) String() string {
	if m == ModeStep {
		return "step"
	}
	return "batch"
}

// RunConfig holds per-run inputs. Nil Params or Initials replicate the
// model's nominal values across Sims trajectories. Seed zero draws a seed
// from the wall clock.
type RunConfig struct {
	Tspan    []float64
	Params   [][]float64
	Initials [][]int64
	Sims     int
	Threads  int
	Seed     int64
	Mode     Mode
	Verbose  bool
}

// StepFunc observes step-mode progress: reporting interval k of total, and
// the interval's end time.
type StepFunc func(step, total int, t float64)

// Simulator drives the generated SSA kernel over batches of trajectories.
// Kernel compilation happens on the first run and is cached for the
// simulator's lifetime; launch geometry is re-derived from each run's
// trajectory count.
type Simulator struct {
	model   *model.Model
	gen     *kernelgen.Generator
	backend device.Backend
	program device.Program
	phase   Phase
	onStep  []StepFunc
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithBackend overrides automatic backend selection.
func WithBackend(b device.Backend) Option {
	return func(s *Simulator) { s.backend = b }
}

// New compiles the model's reaction network into kernel source and readies
// a simulator. The model is fixed for the simulator's lifetime.
func New(m *model.Model, opts ...Option) (*Simulator, error) {
	gen, err := kernelgen.New(m)
	if err != nil {
		return nil, err
	}
	s := &Simulator{model: m, gen: gen, phase: Idle}
	for _, opt := range opts {
		opt(s)
	}
	if s.backend == nil {
		s.backend = device.Select()
	}
	return s, nil
}

// Phase returns the current lifecycle phase.
func (s *Simulator) Phase() Phase { return s.phase }

// Model returns the reaction network the simulator was compiled for.
func (s *Simulator) Model() *model.Model { return s.model }

// Source returns the generated kernel source.
func (s *Simulator) Source() string { return s.gen.Source() }

// BackendName names the execution backend in use.
func (s *Simulator) BackendName() string { return s.backend.Name() }

// OnStep registers a step-mode progress observer.
func (s *Simulator) OnStep(fn StepFunc) { s.onStep = append(s.onStep, fn) }

// Close releases the cached compiled kernel and backend resources.
func (s *Simulator) Close() {
	if s.program != nil {
		s.program.Release()
		s.program = nil
	}
	s.backend.Cleanup()
	s.phase = Idle
}

// Run executes one batch of trajectories and assembles the shared result
// container. A compilation or launch failure is fatal for the run: no
// partial results are returned, since mid-kernel trajectory state cannot be
// safely sampled.
func (s *Simulator) Run(ctx context.Context, cfg RunConfig) (*results.SimulationResult, error) {
	cfg, err := s.normalize(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.compile(cfg.Verbose); err != nil {
		return nil, err
	}

	geom, err := device.NewGeometry(cfg.Sims, cfg.Threads)
	if err != nil {
		return nil, &ConfigurationError{Field: "geometry", Msg: err.Error()}
	}
	if cfg.Verbose {
		fmt.Printf("threads = %d\nblocks = %d\ntotal = %d\n", geom.Threads, geom.Blocks, geom.Total)
	}

	bufs := device.NewBuffers(geom, len(s.model.Species), len(s.model.Parameters))
	defer bufs.Release()
	if err := bufs.LoadParameters(cfg.Params); err != nil {
		s.phase = Idle
		return nil, err
	}
	if err := bufs.LoadSpecies(cfg.Initials); err != nil {
		s.phase = Idle
		return nil, err
	}
	s.phase = Configured

	tspan := make([]float32, len(cfg.Tspan))
	for i, t := range cfg.Tspan {
		tspan[i] = float32(t)
	}

	s.phase = Running
	started := time.Now()
	var flat []int32
	switch cfg.Mode {
	case ModeStep:
		flat, err = s.runSteps(ctx, bufs, tspan, uint64(cfg.Seed))
	default:
		flat, err = s.program.AllSteps(ctx, bufs, tspan, uint64(cfg.Seed))
	}
	if err != nil {
		s.phase = Idle
		return nil, err
	}
	if cfg.Verbose {
		fmt.Printf("%d simulations in %s\n", cfg.Sims, time.Since(started))
	}

	s.phase = Collected
	res, err := results.Assemble(s.model, cfg.Tspan, cfg.Params, flat, geom.Total, geom.Sims)
	s.phase = Idle
	return res, err
}

// compile performs the one-time Idle -> Compiled transition. Failures
// surface the backend compiler's diagnostics verbatim and are not retried:
// the generated source is deterministic, so a second attempt cannot differ.
func (s *Simulator) compile(verbose bool) error {
	if s.program != nil {
		return nil
	}
	if verbose {
		fmt.Printf("writing kernel source to %s\n", kernelgen.SourceFile)
		if err := s.gen.WriteSource(kernelgen.SourceFile); err != nil {
			return err
		}
	}
	hazards := s.gen.Hazards()
	kh := make([]device.HazardFunc, len(hazards))
	for i, fn := range hazards {
		kh[i] = device.HazardFunc(fn)
	}
	prog, err := s.backend.Compile(device.Kernel{
		Source:       s.gen.Source(),
		NumSpecies:   len(s.model.Species),
		NumParams:    len(s.model.Parameters),
		NumReactions: len(s.model.Reactions),
		Stoich:       s.gen.Stoichiometry().ReactionRows(),
		Hazards:      kh,
	})
	if err != nil {
		return err
	}
	s.program = prog
	s.phase = Compiled
	return nil
}

// runSteps is the host-driven loop: one launch per reporting interval, with
// synchronization after each. Every launch returns a fresh state array that
// becomes the next launch's input; the previous one is never mutated.
func (s *Simulator) runSteps(ctx context.Context, bufs *device.Buffers, tspan []float32, seed uint64) ([]int32, error) {
	total := bufs.Geom.Total
	ns := bufs.NumSpecies
	nt := len(tspan)

	out := make([]int32, total*nt*ns)
	state := make([]int32, total*ns)
	copy(state, bufs.SpeciesFlat())
	for tid := 0; tid < total; tid++ {
		copy(out[tid*nt*ns:tid*nt*ns+ns], state[tid*ns:(tid+1)*ns])
	}

	start := make([]float32, total)
	for i := range start {
		start[i] = tspan[0]
	}

	for k := 1; k < nt; k++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := bufs.SetSpecies(state); err != nil {
			return nil, err
		}
		next, times, err := s.program.SingleStep(ctx, bufs, start, tspan[k], seed)
		if err != nil {
			return nil, err
		}
		state = next
		start = times
		for tid := 0; tid < total; tid++ {
			copy(out[(tid*nt+k)*ns:(tid*nt+k+1)*ns], state[tid*ns:(tid+1)*ns])
		}
		for _, fn := range s.onStep {
			fn(k, nt-1, float64(tspan[k]))
		}
	}
	return out, nil
}

func (s *Simulator) normalize(cfg RunConfig) (RunConfig, error) {
	if len(cfg.Tspan) < 2 {
		return cfg, &ConfigurationError{Field: "tspan", Msg: "need at least two time points"}
	}
	for i := 1; i < len(cfg.Tspan); i++ {
		if cfg.Tspan[i] <= cfg.Tspan[i-1] {
			return cfg, &ConfigurationError{Field: "tspan", Msg: "time points must be strictly ascending"}
		}
	}

	if cfg.Sims <= 0 {
		if len(cfg.Params) > 0 {
			cfg.Sims = len(cfg.Params)
		} else {
			cfg.Sims = 1
		}
	}

	if cfg.Params == nil {
		nominal := s.model.NominalParameters()
		cfg.Params = make([][]float64, cfg.Sims)
		for i := range cfg.Params {
			row := make([]float64, len(nominal))
			copy(row, nominal)
			cfg.Params[i] = row
		}
	}
	if len(cfg.Params) != cfg.Sims {
		return cfg, &ConfigurationError{
			Field: "params",
			Msg:   fmt.Sprintf("%d rows for %d trajectories", len(cfg.Params), cfg.Sims),
		}
	}
	for i, row := range cfg.Params {
		if len(row) != len(s.model.Parameters) {
			return cfg, &ConfigurationError{
				Field: "params",
				Msg:   fmt.Sprintf("row %d has %d values, model has %d parameters", i, len(row), len(s.model.Parameters)),
			}
		}
	}

	if cfg.Initials == nil {
		nominal := s.model.NominalInitials()
		cfg.Initials = make([][]int64, cfg.Sims)
		for i := range cfg.Initials {
			row := make([]int64, len(nominal))
			copy(row, nominal)
			cfg.Initials[i] = row
		}
	}
	if len(cfg.Initials) != cfg.Sims {
		return cfg, &ConfigurationError{
			Field: "initials",
			Msg:   fmt.Sprintf("%d rows for %d trajectories", len(cfg.Initials), cfg.Sims),
		}
	}
	for i, row := range cfg.Initials {
		if len(row) != len(s.model.Species) {
			return cfg, &ConfigurationError{
				Field: "initials",
				Msg:   fmt.Sprintf("row %d has %d values, model has %d species", i, len(row), len(s.model.Species)),
			}
		}
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return cfg, nil
}
