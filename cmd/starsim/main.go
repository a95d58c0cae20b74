package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/config"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/pipeline"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/storage"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/viz"
)

var (
	dataDir      string
	logLevel     string
	configFile   string
	preset       string
	carrierHz    float64
	risElements  int
	bsAntennas   int
	duration     float64
	interval     float64
	phaseVar     float64
	ampRange     float64
	velocity     float64
	blockageRate float64
	seed         int64
	datasetPath  string
	couplingPath string
	runs         int
	noSave       bool
	plotRow      int
	plotCol      int
	plotWhat     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "starsim",
		Short: "STAR-RIS channel impairment and dynamics simulator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".starsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the impairment pipeline",
		RunE:  runPipeline,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "named preset configuration")
	runCmd.Flags().Float64Var(&carrierHz, "carrier", config.DefaultCarrierHz, "carrier frequency in Hz")
	runCmd.Flags().IntVar(&risElements, "elements", config.DefaultRISElements, "RIS element count N")
	runCmd.Flags().IntVar(&bsAntennas, "antennas", config.DefaultBSAntennas, "BS antenna count M")
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "simulated duration in s")
	runCmd.Flags().Float64Var(&interval, "dt", config.DefaultInterval, "sampling interval in s")
	runCmd.Flags().Float64Var(&phaseVar, "phase-var", config.DefaultPhaseVar, "phase noise variance in rad^2")
	runCmd.Flags().Float64Var(&ampRange, "amp-range", config.DefaultAmpRange, "amplitude error half-range")
	runCmd.Flags().Float64Var(&velocity, "velocity", config.DefaultVelocity, "user velocity in m/s")
	runCmd.Flags().Float64Var(&blockageRate, "blockage-rate", config.DefaultBlockageRate, "blockage events per second")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	runCmd.Flags().StringVar(&datasetPath, "dataset", "", "ray-tracing dataset (complex CSV)")
	runCmd.Flags().StringVar(&couplingPath, "coupling", "", "scattering matrix file (complex CSV)")
	runCmd.Flags().IntVar(&runs, "runs", 1, "number of seeded ensemble runs")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "skip persisting the result bundle")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot magnitudes of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotWhat, "what", "trace", "ideal|impaired|theta|trace|spectrum")
	plotCmd.Flags().IntVar(&plotRow, "row", 0, "matrix row / trace antenna index")
	plotCmd.Flags().IntVar(&plotCol, "col", 0, "trace element index")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCARRIER\tM x N\tDURATION")
			for _, name := range config.PresetNames() {
				p, _ := config.Preset(name)
				fmt.Fprintf(w, "%s\t%.2f GHz\t%d x %d\t%g s\n",
					name, p.CarrierHz/1e9, p.BSAntennas, p.RISElements, p.Duration)
			}
			return w.Flush()
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate [config.yaml]",
		Short: "validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, presetsCmd, validateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildParams(cmd *cobra.Command) (config.Params, error) {
	p := config.Default()
	var err error
	if preset != "" {
		if p, err = config.Preset(preset); err != nil {
			return p, err
		}
	}
	if configFile != "" {
		if p, err = config.Load(configFile); err != nil {
			return p, err
		}
	}
	// Explicit flags win over preset and file values.
	set := map[string]func(){
		"carrier":       func() { p.CarrierHz = carrierHz },
		"elements":      func() { p.RISElements = risElements },
		"antennas":      func() { p.BSAntennas = bsAntennas },
		"time":          func() { p.Duration = duration },
		"dt":            func() { p.Interval = interval },
		"phase-var":     func() { p.PhaseNoiseVar = phaseVar },
		"amp-range":     func() { p.AmpErrorRange = ampRange },
		"velocity":      func() { p.VelocityMps = velocity },
		"blockage-rate": func() { p.BlockageRate = blockageRate },
		"seed":          func() { p.Seed = seed },
		"dataset":       func() { p.DatasetPath = datasetPath },
		"coupling":      func() { p.CouplingPath = couplingPath },
	}
	for name, apply := range set {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	return p, p.Validate()
}

func runPipeline(cmd *cobra.Command, args []string) error {
	p, err := buildParams(cmd)
	if err != nil {
		return err
	}
	ctx := context.Background()

	var bundles []*pipeline.Bundle
	if runs > 1 {
		if bundles, err = pipeline.RunEnsemble(ctx, p, runs); err != nil {
			return err
		}
	} else {
		b, err := pipeline.Default(p).Run(ctx, p)
		if err != nil {
			return err
		}
		bundles = []*pipeline.Bundle{b}
	}

	store := storage.New(dataDir)
	for _, b := range bundles {
		fmt.Println(viz.Summary(b))
		if noSave {
			continue
		}
		if err := store.Init(); err != nil {
			return err
		}
		runID, err := store.Save(b)
		if err != nil {
			return err
		}
		fmt.Println("saved:", runID)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	metas, err := store.List()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tM x N\tSTEPS\tSEED")
	for _, m := range metas {
		fmt.Fprintf(w, "%s\t%s\t%d x %d\t%d\t%d\n",
			m.ID, m.Timestamp.Format("2006-01-02 15:04:05"),
			m.Params.BSAntennas, m.Params.RISElements, m.Steps, m.Params.Seed)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runID := args[0]

	switch plotWhat {
	case "ideal", "impaired", "theta":
		m, err := store.LoadMatrix(runID, plotWhat)
		if err != nil {
			return err
		}
		rows, _ := m.Dims()
		if plotRow < 0 || plotRow >= rows {
			return fmt.Errorf("--row %d out of range for %s with %d rows", plotRow, plotWhat, rows)
		}
		fmt.Println(viz.PlotRow(m, plotRow, fmt.Sprintf("|%s| row %d", plotWhat, plotRow)))
	case "trace":
		t, err := store.LoadTensor(runID)
		if err != nil {
			return err
		}
		if err := checkTraceIndex(t.M, t.N, plotRow, plotCol); err != nil {
			return err
		}
		fmt.Println(viz.PlotTrace(t, plotRow, plotCol,
			fmt.Sprintf("|h(%d,%d)| over time", plotRow, plotCol)))
	case "spectrum":
		meta, err := store.Metadata(runID)
		if err != nil {
			return err
		}
		t, err := store.LoadTensor(runID)
		if err != nil {
			return err
		}
		if err := checkTraceIndex(t.M, t.N, plotRow, plotCol); err != nil {
			return err
		}
		_, power := viz.DopplerSpectrum(t, plotRow, plotCol, meta.Params.Interval)
		fmt.Println(viz.PlotSpectrum(power,
			fmt.Sprintf("doppler spectrum of h(%d,%d), dB", plotRow, plotCol)))
	default:
		return fmt.Errorf("unknown plot target %q", plotWhat)
	}
	return nil
}

func checkTraceIndex(m, n, row, col int) error {
	if row < 0 || row >= m {
		return fmt.Errorf("--row %d out of range for %d antennas", row, m)
	}
	if col < 0 || col >= n {
		return fmt.Errorf("--col %d out of range for %d elements", col, n)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Metadata(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
