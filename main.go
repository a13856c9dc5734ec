package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"trgemu/app"
	"trgemu/internal"
	"trgemu/internal/config"
	"trgemu/internal/container"
	"trgemu/internal/errors"
	"trgemu/internal/profiling"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// flagValues holds command-line overrides of the environment configuration
type flagValues struct {
	tree        string
	year        int
	bmeson      string
	calibration string
	oracle      string
	seed        uint64
	workers     int
	batchSize   int
	debug       bool
	adHoc       bool
	profile     bool
}

var lineDescriptions = map[string]string{
	app.LineL0Hadron:    "Emulate L0Hadron TOS from HCAL cluster energies",
	app.LineL0GlobalTis: "Emulate L0Global TIS from the B candidate momentum",
	app.LineHLT1:        "Emulate Hlt1TrackMVA and Hlt1TwoTrackMVA TOS",
	app.LineAll:         "Emulate L0Global TIS, HLT1 and L0Hadron in one pass",
	app.LineTrainSample: "Export the L0Hadron regression training sample",
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(errors.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&flagValues{})
}

func newRootCmdWith(flags *flagValues) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trgemu",
		Short: "Offline L0 and HLT1 trigger emulation over event tables",
		Long: `Emulate LHCb L0 and HLT1 trigger decisions on reconstructed events.

Input and output are tables addressed by location and tree name: .csv,
.csv.zst and .xlsx files, SQLite files (.db, .sqlite) or postgres:// URLs.
Settings come from TRGEMU_* environment variables (optionally from .env)
and are overridden by flags.

Example:
  trgemu l0-hadron mc.csv.zst emu.csv.zst --calibration calib.json.zst --year 2016`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.tree, "tree", "", "Tree, sheet or SQL table name (TRGEMU_TREE)")
	pf.IntVar(&flags.year, "year", 0, "Run period: 2015-2018 (TRGEMU_YEAR)")
	pf.StringVar(&flags.bmeson, "bmeson", "", "B candidate branch prefix (TRGEMU_BMESON)")
	pf.StringVar(&flags.calibration, "calibration", "", "Calibration document, .json or .json.zst (TRGEMU_CALIBRATION)")
	pf.StringVar(&flags.oracle, "oracle", "", "Tree-ensemble oracle, .json or .json.zst (TRGEMU_ORACLE)")
	pf.Uint64Var(&flags.seed, "seed", 0, "Seed of the per-row random streams (TRGEMU_SEED)")
	pf.IntVar(&flags.workers, "workers", 0, "Row-batch workers, 1 for sequential (TRGEMU_WORKERS)")
	pf.IntVar(&flags.batchSize, "batch-size", 0, "Rows per batch (TRGEMU_BATCH_SIZE)")
	pf.BoolVar(&flags.debug, "debug", false, "Add reference and debug columns (TRGEMU_DEBUG)")
	pf.BoolVar(&flags.adHoc, "adhoc", false, "Apply the high-PT TIS efficiency correction (TRGEMU_ADHOC)")
	pf.BoolVar(&flags.profile, "profile", true, "Summarise output columns after the run (TRGEMU_PROFILE)")

	for _, line := range app.Lines {
		rootCmd.AddCommand(newLineCmd(line, flags))
	}
	rootCmd.AddCommand(newPlanCmd(flags))

	return rootCmd
}

// loadConfig reads the environment and applies flags the user set
func loadConfig(cmd *cobra.Command, flags *flagValues) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("tree") {
		cfg.Run.Tree = flags.tree
	}
	if changed("year") {
		cfg.Run.Year = flags.year
	}
	if changed("bmeson") {
		cfg.Run.BMeson = flags.bmeson
	}
	if changed("debug") {
		cfg.Run.Debug = flags.debug
	}
	if changed("calibration") {
		cfg.Calibration.Path = flags.calibration
	}
	if changed("oracle") {
		cfg.Oracle.Path = flags.oracle
	}
	if changed("seed") {
		cfg.Execution.Seed = flags.seed
	}
	if changed("workers") {
		cfg.Execution.Workers = flags.workers
	}
	if changed("batch-size") {
		cfg.Execution.BatchSize = flags.batchSize
	}
	if changed("adhoc") {
		cfg.AdHoc.Enabled = flags.adHoc
	}
	if changed("profile") {
		cfg.Profiling.Enabled = flags.profile
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func newContainer(cmd *cobra.Command, flags *flagValues, line string) (*container.Container, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}
	if line != app.LineHLT1 {
		if err := cfg.RequireCalibration(); err != nil {
			return nil, err
		}
	}

	c, err := container.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Init(); err != nil {
		return nil, err
	}
	return c, nil
}

func newLineCmd(line string, flags *flagValues) *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   line + " [input] [output]",
		Short: lineDescriptions[line],
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd, flags, line)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			logger := internal.NewDefaultLogger()
			req := c.Request(line, args[0], args[1])
			report, err := c.Emulation.Run(cmd.Context(), req)
			if err != nil {
				logger.Error("%s failed: %v", line, err)
				return err
			}

			logger.Info("Run %s: %s plan %s, %d directives, %d/%d rows, %d columns, %s",
				report.RunID, report.Line, report.PlanHash.Short(), report.Directives,
				report.OutputRows, report.InputRows, len(report.Columns), report.Duration)
			if len(report.Summary) > 0 {
				fmt.Fprint(cmd.OutOrStdout(), profiling.Format(report.Summary))
			}
			if manifestPath != "" {
				if err := report.Manifest(req).Write(manifestPath); err != nil {
					return errors.IOError(manifestPath, err)
				}
				logger.Debug("Manifest %s fingerprint %s", manifestPath, report.Fingerprint.Fingerprint.Short())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Write the run manifest (JSON) to this path")
	return cmd
}

func newPlanCmd(flags *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [line]",
		Short: "Print the directives a line would run",
		Long: `Print the ordered directives of a line and the plan fingerprint.

Lines: ` + strings.Join(app.Lines, ", "),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd, flags, args[0])
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			plan, err := c.Emulation.Plan(c.Request(args[0], "", ""))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, d := range plan.Descriptions() {
				fmt.Fprintf(out, "%3d  %s\n", i, d)
			}
			fmt.Fprintf(out, "hash %s\n", plan.Hash())
			return nil
		},
	}
}
