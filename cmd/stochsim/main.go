package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/stochsim/internal/config"
	"github.com/san-kum/stochsim/internal/device"
	"github.com/san-kum/stochsim/internal/model"
	"github.com/san-kum/stochsim/internal/results"
	"github.com/san-kum/stochsim/internal/scan"
	"github.com/san-kum/stochsim/internal/sim"
	"github.com/san-kum/stochsim/internal/stats"
	"github.com/san-kum/stochsim/internal/tui"
	"github.com/san-kum/stochsim/internal/viz"
)

var (
	start      float64
	stop       float64
	points     int
	sims       int
	threads    int
	seed       int64
	mode       string
	outJSON    string
	outCSV     string
	outSVG     string
	plotObs    string
	summary    bool
	live       bool
	verbose    bool
	configFile string
	sourceOut  string

	scanParam string
	scanFrom  float64
	scanTo    float64
	scanSteps int
	scanReps  int
	scanObs   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stochsim",
		Short: "GPU-accelerated Gillespie simulation of reaction networks",
	}

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run stochastic simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().Float64Var(&start, "start", 0, "time grid start")
	runCmd.Flags().Float64Var(&stop, "stop", config.DefaultStop, "time grid end")
	runCmd.Flags().IntVar(&points, "points", config.DefaultPoints, "number of reporting points")
	runCmd.Flags().IntVar(&sims, "sims", config.DefaultSims, "number of trajectories")
	runCmd.Flags().IntVar(&threads, "threads", config.DefaultThreads, "threads per block")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time-based)")
	runCmd.Flags().StringVar(&mode, "mode", "batch", "execution mode: batch or step")
	runCmd.Flags().StringVar(&outJSON, "out", "", "write results to JSON file")
	runCmd.Flags().StringVar(&outCSV, "csv", "", "write results to CSV file")
	runCmd.Flags().StringVar(&outSVG, "svg", "", "write SVG plot of --plot observable")
	runCmd.Flags().StringVar(&plotObs, "plot", "", "plot mean of observable after run")
	runCmd.Flags().BoolVar(&summary, "summary", false, "print end-state statistics per observable")
	runCmd.Flags().BoolVar(&live, "live", false, "live progress view (step mode)")
	runCmd.Flags().BoolVar(&verbose, "verbose", false, "dump kernel source and launch geometry")
	runCmd.Flags().StringVar(&configFile, "config", "", "run config file (yaml)")

	genCmd := &cobra.Command{
		Use:   "gen [model]",
		Short: "print generated CUDA kernel source",
		Args:  cobra.ExactArgs(1),
		RunE:  genSource,
	}
	genCmd.Flags().StringVar(&sourceOut, "out", "", "write source to file instead of stdout")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list built-in models",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range model.ListPresets() {
				m := model.Preset(name)
				fmt.Printf("%-12s %d species, %d reactions\n", name, len(m.Species), len(m.Reactions))
			}
			return nil
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "show execution backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			selected := device.Select()
			fmt.Printf("selected: %s\n", selected.Name())
			fmt.Printf("cuda:     %v\n", device.NewCUDABackend().Available())
			fmt.Printf("cpu:      true\n")
			return nil
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench [model]",
		Short: "time a simulation batch",
		Args:  cobra.ExactArgs(1),
		RunE:  benchModel,
	}
	benchCmd.Flags().IntVar(&sims, "sims", 1000, "number of trajectories")
	benchCmd.Flags().IntVar(&threads, "threads", config.DefaultThreads, "threads per block")
	benchCmd.Flags().Float64Var(&stop, "stop", config.DefaultStop, "time grid end")
	benchCmd.Flags().IntVar(&points, "points", config.DefaultPoints, "number of reporting points")

	scanCmd := &cobra.Command{
		Use:   "scan [model]",
		Short: "sweep one parameter over a value grid",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	}
	scanCmd.Flags().StringVar(&scanParam, "param", "", "parameter to sweep (required)")
	scanCmd.Flags().Float64Var(&scanFrom, "from", 0, "sweep range start")
	scanCmd.Flags().Float64Var(&scanTo, "to", 1, "sweep range end")
	scanCmd.Flags().IntVar(&scanSteps, "steps", 10, "grid values in the sweep")
	scanCmd.Flags().IntVar(&scanReps, "replicates", 50, "trajectories per grid value")
	scanCmd.Flags().StringVar(&scanObs, "obs", "", "observable to reduce (required)")
	scanCmd.Flags().Float64Var(&stop, "stop", config.DefaultStop, "time grid end")
	scanCmd.Flags().IntVar(&points, "points", config.DefaultPoints, "number of reporting points")
	scanCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time-based)")
	scanCmd.MarkFlagRequired("param")
	scanCmd.MarkFlagRequired("obs")

	rootCmd.AddCommand(runCmd, genCmd, modelsCmd, infoCmd, benchCmd, scanCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadModel(name string) (*model.Model, error) {
	if m := model.Preset(name); m != nil {
		return m, nil
	}
	if strings.ContainsAny(name, "/.") {
		return model.Load(name)
	}
	return nil, fmt.Errorf("unknown model %q (try 'stochsim models')", name)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg := &config.Config{
		Model: args[0], Start: start, Stop: stop, Points: points,
		Sims: sims, Threads: threads, Seed: seed, Mode: mode, Verbose: verbose,
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		loaded.Model = args[0]
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m, err := loadModel(cfg.Model)
	if err != nil {
		return err
	}
	s, err := sim.New(m)
	if err != nil {
		return err
	}
	defer s.Close()

	runMode := sim.ModeBatch
	if cfg.Mode == "step" {
		runMode = sim.ModeStep
	}
	rc := sim.RunConfig{
		Tspan:   cfg.Tspan(),
		Sims:    cfg.Sims,
		Threads: cfg.Threads,
		Seed:    cfg.Seed,
		Mode:    runMode,
		Verbose: cfg.Verbose,
	}

	var res *results.SimulationResult
	if live && runMode == sim.ModeStep {
		res, err = runLive(s, m, rc)
	} else {
		started := time.Now()
		res, err = s.Run(context.Background(), rc)
		if err == nil {
			fmt.Printf("%d simulations in %s on %s\n", cfg.Sims, time.Since(started).Round(time.Millisecond), s.BackendName())
		}
	}
	if err != nil {
		return err
	}

	if outJSON != "" {
		if err := results.ExportJSON(outJSON, res); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outJSON)
	}
	if outCSV != "" {
		if err := results.ExportCSV(outCSV, res); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outCSV)
	}
	if plotObs != "" {
		plot, err := viz.PlotObservable(res, plotObs, 15)
		if err != nil {
			return err
		}
		fmt.Println(plot)
		if outSVG != "" {
			if err := viz.WriteSVG(outSVG, res, plotObs, 640, 360); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", outSVG)
		}
	}
	if summary {
		for _, o := range m.Observables {
			end, err := stats.End(res, o.Name)
			if err != nil {
				return err
			}
			fmt.Printf("%-16s mean %10.3f  std %9.3f  min %8g  max %8g\n",
				end.Name, end.Mean, end.Std, end.Min, end.Max)
		}
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	m, err := loadModel(args[0])
	if err != nil {
		return err
	}
	s, err := sim.New(m)
	if err != nil {
		return err
	}
	defer s.Close()

	grid, err := scan.Linspace(scanParam, scanFrom, scanTo, scanSteps, scanReps)
	if err != nil {
		return err
	}
	cfg := &config.Config{Start: 0, Stop: stop, Points: points}
	pts, _, err := grid.Run(context.Background(), s, cfg.Tspan(), seed, scanObs)
	if err != nil {
		return err
	}
	fmt.Printf("%12s  %12s  %12s\n", scanParam, "mean "+scanObs, "std")
	for _, p := range pts {
		fmt.Printf("%12g  %12.3f  %12.3f\n", p.Value, p.Mean, p.Std)
	}
	return nil
}

// runLive drives a step-mode run under a bubbletea progress view. The
// simulation runs in a goroutine and feeds step events to the UI.
func runLive(s *sim.Simulator, m *model.Model, rc sim.RunConfig) (*results.SimulationResult, error) {
	p := tea.NewProgram(tui.NewModel(m.Name, s.BackendName(), rc.Sims))
	s.OnStep(func(step, total int, t float64) {
		p.Send(tui.StepMsg{Step: step, Total: total, T: t})
	})

	var res *results.SimulationResult
	var runErr error
	go func() {
		res, runErr = s.Run(context.Background(), rc)
		p.Send(tui.DoneMsg{Err: runErr})
	}()

	if _, err := p.Run(); err != nil {
		return nil, err
	}
	if runErr != nil {
		return nil, runErr
	}
	return res, nil
}

func genSource(cmd *cobra.Command, args []string) error {
	m, err := loadModel(args[0])
	if err != nil {
		return err
	}
	s, err := sim.New(m)
	if err != nil {
		return err
	}
	defer s.Close()
	if sourceOut != "" {
		return os.WriteFile(sourceOut, []byte(s.Source()), 0644)
	}
	fmt.Print(s.Source())
	return nil
}

func benchModel(cmd *cobra.Command, args []string) error {
	m, err := loadModel(args[0])
	if err != nil {
		return err
	}
	s, err := sim.New(m)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := &config.Config{Start: 0, Stop: stop, Points: points, Sims: sims, Threads: threads, Mode: "batch"}
	started := time.Now()
	res, err := s.Run(context.Background(), sim.RunConfig{
		Tspan:   cfg.Tspan(),
		Sims:    sims,
		Threads: threads,
		Seed:    1,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(started)
	perTraj := elapsed / time.Duration(res.NumTrajectories())
	fmt.Printf("backend      %s\n", s.BackendName())
	fmt.Printf("trajectories %d\n", res.NumTrajectories())
	fmt.Printf("timepoints   %d\n", res.NumTimepoints())
	fmt.Printf("elapsed      %s (%s per trajectory)\n", elapsed.Round(time.Millisecond), perTraj)
	return nil
}
