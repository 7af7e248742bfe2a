package sim_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/stochsim/internal/device"
	"github.com/san-kum/stochsim/internal/model"
	"github.com/san-kum/stochsim/internal/results"
	"github.com/san-kum/stochsim/internal/sim"
)

func runCPU(m *model.Model, cfg sim.RunConfig) *results.SimulationResult {
	GinkgoHelper()
	s, err := sim.New(m, sim.WithBackend(device.NewCPUBackend()))
	Expect(err).NotTo(HaveOccurred())
	defer s.Close()
	res, err := s.Run(context.Background(), cfg)
	Expect(err).NotTo(HaveOccurred())
	return res
}

var _ = Describe("irreversible decay A -> B", func() {
	const (
		sims = 1000
		a0   = 100
	)
	var res *results.SimulationResult

	BeforeEach(func() {
		res = runCPU(model.Decay(), sim.RunConfig{
			Tspan: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			Sims:  sims,
			Seed:  424242,
		})
	})

	It("conserves total molecule count in every trajectory", func() {
		for _, traj := range res.Counts {
			for _, y := range traj {
				Expect(y[0] + y[1]).To(Equal(int32(a0)))
			}
		}
	})

	It("never increases the reactant count", func() {
		for _, traj := range res.Counts {
			for k := 1; k < len(traj); k++ {
				Expect(traj[k][0]).To(BeNumerically("<=", traj[k-1][0]))
			}
		}
	})

	It("matches the analytic mean of the product", func() {
		mean, err := res.MeanObservable("B_total")
		Expect(err).NotTo(HaveOccurred())
		// E[B(t)] = a0 * (1 - exp(-k t)) with k = 1
		Expect(mean[0]).To(BeZero())
		Expect(mean[1]).To(BeNumerically("~", a0*(1-math.Exp(-1)), 2.0))
		Expect(mean[2]).To(BeNumerically("~", a0*(1-math.Exp(-2)), 2.0))
	})

	It("decays essentially to completion by the end of the grid", func() {
		mean, err := res.MeanObservable("A_total")
		Expect(err).NotTo(HaveOccurred())
		Expect(mean[len(mean)-1]).To(BeNumerically("<", 0.5))
	})
})

var _ = Describe("quiescent trajectories", func() {
	It("jumps the clock to the end of the grid without firing", func() {
		res := runCPU(model.Decay(), sim.RunConfig{
			Tspan:    []float64{0, 2, 4, 6},
			Sims:     8,
			Seed:     7,
			Initials: [][]int64{{0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}},
		})
		for _, traj := range res.Counts {
			for _, y := range traj {
				Expect(y[0]).To(BeZero())
				Expect(y[1]).To(BeZero())
			}
		}
	})
})

var _ = Describe("dimerization 2A <-> A2", func() {
	var res *results.SimulationResult

	BeforeEach(func() {
		res = runCPU(model.Dimerization(), sim.RunConfig{
			Tspan: []float64{0, 1, 2, 3, 4, 5},
			Sims:  200,
			Seed:  99,
		})
	})

	It("conserves monomer equivalents", func() {
		for _, traj := range res.Counts {
			for _, y := range traj {
				Expect(y[0] + 2*y[1]).To(Equal(int32(200)))
			}
		}
	})

	It("keeps the free monomer count even", func() {
		// binding consumes two monomers, unbinding releases two
		for _, traj := range res.Counts {
			for _, y := range traj {
				Expect(y[0] % 2).To(BeZero())
			}
		}
	})

	It("forms dimers from an all-monomer start", func() {
		bound, err := res.MeanObservable("A_bound")
		Expect(err).NotTo(HaveOccurred())
		Expect(bound[len(bound)-1]).To(BeNumerically(">", 0))
	})
})

var _ = Describe("execution modes", func() {
	It("agrees between batch and stepped execution over one interval", func() {
		cfg := sim.RunConfig{Tspan: []float64{0, 3}, Sims: 50, Seed: 31}

		batch := runCPU(model.BirthDeath(), cfg)
		cfg.Mode = sim.ModeStep
		step := runCPU(model.BirthDeath(), cfg)

		Expect(step.Counts).To(Equal(batch.Counts))
	})
})
