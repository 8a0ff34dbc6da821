package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/torasim/internal/automation"
	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/experiment"
	"github.com/san-kum/torasim/internal/geometry"
	"github.com/san-kum/torasim/internal/metrics"
	"github.com/san-kum/torasim/internal/optim"
	"github.com/san-kum/torasim/internal/plasma"
	"github.com/san-kum/torasim/internal/sim"
	"github.com/san-kum/torasim/internal/storage"
	"github.com/san-kum/torasim/internal/viz"
)

var (
	logger *zap.Logger

	dataDir string
	verbose bool
	theme   string

	configFile string
	tFinal     float64
	nrho       int
	stepper    string
	transport  string
	thetaImp   float64
	noSave     bool
	metricsOut string
	jsonOut    string

	channel   string
	pngOut    string
	snapshots int

	workers  int
	params   []string
	metric   string
	maximize bool
	saveRuns bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "torasim",
		Short:         "1-D tokamak core transport simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger(cmd.Name() == "live" && !verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".torasim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", viz.Themes[0].Name, "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write a prometheus text snapshot of solver metrics")
	runCmd.Flags().StringVar(&jsonOut, "json", "", "export the full history as JSON")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the profiles of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&channel, "channel", plasma.TempIon.String(), "channel to plot")
	plotCmd.Flags().StringVar(&pngOut, "png", "", "also save the profiles as an image (png, svg or pdf)")
	plotCmd.Flags().IntVar(&snapshots, "snapshots", 5, "profiles drawn in the image")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run to JSON on stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportRun(os.Stdout, args[0])
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or print one as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a simulation with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "compare steppers and grid sizes on one scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScenario,
	}
	addScenarioFlags(benchCmd)
	benchCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 uses all cores)")

	scanCmd := &cobra.Command{
		Use:   "scan [preset]",
		Short: "grid search over scenario parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  scanScenario,
	}
	addScenarioFlags(scanCmd)
	scanCmd.Flags().StringArrayVar(&params, "param", nil, "parameter range name=v1,v2,... (repeatable; one of "+strings.Join(optim.ParameterNames(), ", ")+")")
	scanCmd.Flags().StringVar(&metric, "metric", "stored_energy_mj", "metric to optimize")
	scanCmd.Flags().BoolVar(&maximize, "maximize", false, "pick the largest metric instead of the smallest")
	scanCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 uses all cores)")

	campaignCmd := &cobra.Command{
		Use:   "campaign [file]",
		Short: "run every scenario listed in a campaign file",
		Args:  cobra.ExactArgs(1),
		RunE:  runCampaign,
	}
	campaignCmd.Flags().BoolVar(&saveRuns, "save", true, "store every run")
	campaignCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 uses all cores)")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, presetsCmd, liveCmd, benchCmd, scanCmd, campaignCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(quiet bool) (*zap.Logger, error) {
	if quiet {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&tFinal, "tfinal", 0, "final time [s]")
	cmd.Flags().IntVar(&nrho, "nrho", 0, "number of radial cells")
	cmd.Flags().StringVar(&stepper, "stepper", "", "stepper ("+config.StepperLinear+" or "+config.StepperNewtonRaphson+")")
	cmd.Flags().StringVar(&transport, "transport", "", "transport model")
	cmd.Flags().Float64Var(&thetaImp, "theta", 0, "implicitness of the theta method")
}

// scenario builds the run configuration: the preset or defaults, then the
// config file, then any flag set on the command line.
func scenario(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		p, err := config.GetPreset(args[0])
		if err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, config.ListPresets())
		}
		cfg = p
	}
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	}

	flags := cmd.Flags()
	if flags.Changed("tfinal") {
		cfg.Numerics.TFinal = tFinal
	}
	if flags.Changed("nrho") {
		cfg.Geometry.NRho = nrho
	}
	if flags.Changed("stepper") {
		cfg.Stepper.Stepper = stepper
	}
	if flags.Changed("transport") {
		cfg.Transport.Model = transport
	}
	if flags.Changed("theta") {
		cfg.Stepper.ThetaImp = thetaImp
	}
	return cfg, nil
}

func setup(cfg *config.Config) (*experiment.Experiment, error) {
	exp := experiment.New(cfg, logger)
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return nil, err
	}
	return exp, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := scenario(cmd, args)
	if err != nil {
		return err
	}
	exp, err := setup(cfg)
	if err != nil {
		return err
	}

	var collector *metrics.Collector
	if metricsOut != "" {
		collector = metrics.NewCollector(cfg.Name, exp.Geometry())
		exp.Simulator().AddObserver(collector)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("Simulation finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("steps", result.StepsTaken),
		zap.Int("rejected", result.Rejected),
	)

	styles := viz.NewStyles(viz.GetTheme(theme))
	fmt.Println(styles.Summary(cfg.Name, result))
	fmt.Println(viz.PlotTemperatures(result.Final(), 60, 10))

	if !noSave {
		runID, err := storage.New(dataDir).Save(cfg, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	if collector != nil {
		if err := collector.WriteTextfile(metricsOut); err != nil {
			return err
		}
	}
	if jsonOut != "" {
		if err := storage.ExportJSON(jsonOut, cfg, result); err != nil {
			return err
		}
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tSTEPPER\tTRANSPORT\tT_FINAL\tSTEPS\tREJECTED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.3fs\t%d\t%d\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Stepper,
			run.Transport,
			run.TFinal,
			run.Steps,
			run.Rejected,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	c, err := plasma.ParseChannel(channel)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	history, err := st.LoadProfiles(runID)
	if err != nil {
		return err
	}
	rows := history.Profiles[c.String()]
	if len(rows) == 0 {
		return fmt.Errorf("run %s has no %s profiles", runID, c)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("stepper: %s, transport: %s\n", meta.Stepper, meta.Transport)
	fmt.Printf("samples: %d\n\n", len(history.Times))

	fmt.Println(viz.PlotProfile(rows[len(rows)-1], c, 80, 12))
	fmt.Println()
	core := make([]float64, len(rows))
	for i, row := range rows {
		core[i] = row[0]
	}
	fmt.Println(viz.PlotTrace(core, c.String()+"(rho=0) vs step", 80, 8))

	if pngOut == "" {
		return nil
	}
	cfg, err := meta.RunConfig()
	if err != nil {
		return err
	}
	geo, err := geometry.FromConfig(cfg.Geometry)
	if err != nil {
		return err
	}
	idx := viz.Snapshots(len(rows), snapshots)
	picked := make([][]float64, len(idx))
	times := make([]float64, len(idx))
	for i, j := range idx {
		picked[i], times[i] = rows[j], history.Times[j]
	}
	if err := viz.SaveProfilePlot(pngOut, geo.RhoCell, picked, times, c); err != nil {
		return err
	}
	fmt.Printf("saved %s\n", pngOut)
	return nil
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Println("presets:")
		for _, name := range config.ListPresets() {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}
	cfg, err := config.GetPreset(args[0])
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := scenario(cmd, args)
	if err != nil {
		return err
	}
	exp, err := setup(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	model := viz.NewLiveModel(cfg.Name, cfg.Numerics.TFinal, nil)
	return viz.RunLive(ctx, model, exp.RunWithCallback)
}

func benchScenario(cmd *cobra.Command, args []string) error {
	base, err := scenario(cmd, args)
	if err != nil {
		return err
	}

	sizes := []int{base.Geometry.NRho, 2 * base.Geometry.NRho}
	steppers := []string{config.StepperLinear, config.StepperNewtonRaphson}
	cfgs := make([]*config.Config, 0, len(sizes)*len(steppers))
	for _, s := range steppers {
		for _, n := range sizes {
			cfg := base.Clone()
			cfg.Name = s + "_" + strconv.Itoa(n)
			cfg.Stepper.Stepper = s
			cfg.Geometry.NRho = n
			if err := cfg.Validate(); err != nil {
				return err
			}
			cfgs = append(cfgs, cfg)
		}
	}

	fmt.Printf("benchmarking %s\n\n", base.Name)
	start := time.Now()
	results, err := ensemble().Run(context.Background(), cfgs)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEPPER\tNRHO\tSTEPS\tREJECTED\tMEAN_ITERS\tACCEPTANCE\tTi(0)")
	for i, cfg := range cfgs {
		r := results[i]
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2f\t%.2f\t%.3f\n",
			cfg.Stepper.Stepper,
			cfg.Geometry.NRho,
			r.StepsTaken,
			r.Rejected,
			r.Metrics["mean_iterations"],
			r.Metrics["acceptance"],
			r.Final().TempIon.Value()[0],
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\ntotal: %v\n", time.Since(start))
	return nil
}

// ensemble runs scenarios concurrently, each with the default metrics.
func ensemble() *sim.Ensemble {
	registry := experiment.NewRegistry()
	build := func(cfg *config.Config) (*sim.Simulator, error) {
		geo, err := geometry.FromConfig(cfg.Geometry)
		if err != nil {
			return nil, err
		}
		s, err := sim.NewFromConfig(cfg, logger)
		if err != nil {
			return nil, err
		}
		for _, m := range registry.DefaultMetrics(geo) {
			s.AddMetric(m)
		}
		return s, nil
	}
	return sim.NewEnsemble(build, workers)
}

func scanScenario(cmd *cobra.Command, args []string) error {
	base, err := scenario(cmd, args)
	if err != nil {
		return err
	}
	if len(params) == 0 {
		return fmt.Errorf("scan needs at least one --param")
	}
	names := make([]string, len(params))
	ranges := make([][]float64, len(params))
	for i, p := range params {
		if names[i], ranges[i], err = optim.ParseRange(p); err != nil {
			return err
		}
	}
	search, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := search.Search(ctx, base, ensemble(), metric, maximize)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(metric)+"\tSTEPS\tREJECTED")
	for _, p := range out.Points {
		for _, name := range names {
			fmt.Fprintf(w, "%g\t", p.Params[name])
		}
		fmt.Fprintf(w, "%.5g\t%d\t%d\n", p.Value, p.Result.StepsTaken, p.Result.Rejected)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nbest %s = %.5g at %v\n", metric, out.Best.Value, out.Best.Params)
	return nil
}

func runCampaign(cmd *cobra.Command, args []string) error {
	c, err := automation.LoadCampaign(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfgs, results, err := automation.RunCampaign(ctx, c, ensemble(), logger)
	if err != nil {
		return err
	}

	styles := viz.NewStyles(viz.GetTheme(theme))
	st := storage.New(dataDir)
	for i, cfg := range cfgs {
		fmt.Println(styles.Summary(cfg.Name, results[i]))
		if !saveRuns {
			continue
		}
		runID, err := st.Save(cfg, results[i])
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return nil
}
