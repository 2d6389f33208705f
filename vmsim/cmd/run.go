package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/trace"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/report"
	"github.com/sarchlab/vmsim/simulation"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Translate every address of a trace file.",
	Long: "`run --trace addresses.txt` translates each logical address of " +
		"the trace, prints the physical address and the byte stored there, " +
		"and ends with the page-fault and TLB statistics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		return runTrace(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

type runOptions struct {
	tracePath   string
	storePath   string
	config      mmu.Config
	record      bool
	recordFile  string
	monitor     bool
	monitorPort int
	openBrowser bool
	hold        bool
	quiet       bool
	traceLog    string
	statsCSV    string
}

func init() {
	rootCmd.AddCommand(runCmd)

	defaults := mmu.DefaultConfig()
	flags := runCmd.Flags()

	flags.String("trace", "addresses.txt",
		"File with one logical address per line, followed by R or W.")
	flags.String("store", "BACKING_STORE.bin",
		"Backing store file that holds the content of every page.")
	flags.Uint64("log2-page-size", defaults.Log2PageSize,
		"Number of offset bits in a logical address.")
	flags.Uint64("page-bits", defaults.NumPageBits,
		"Number of page-number bits in a logical address.")
	flags.Uint64("frames", defaults.NumFrames,
		"Number of physical frames.")
	flags.Int("tlb-entries", defaults.NumTLBEntries,
		"Number of TLB entries, 0 disables the TLB.")
	flags.Uint64("recency-bound", defaults.RecencyBound,
		"Value at which the recency clock wraps to zero.")
	flags.String("policy", string(defaults.Policy),
		fmt.Sprintf("Frame replacement policy, one of %v.",
			replacement.Policies))
	flags.Bool("record", false,
		"Record accesses, faults, and write-backs into a SQLite file.")
	flags.String("record-file", "",
		"Name of the recording, without the .sqlite3 suffix.")
	flags.Bool("monitor", false,
		"Serve the web monitor while the simulation runs.")
	flags.Int("monitor-port", 0,
		"Port of the web monitor, 0 picks a free port.")
	flags.Bool("open-browser", false,
		"Open the web monitor in a browser.")
	flags.Bool("hold", false,
		"Keep the web monitor running after the trace ends until interrupted.")
	flags.BoolP("quiet", "q", false,
		"Do not print one line per access.")
	flags.String("trace-log", "",
		"Write a text trace of accesses, faults, and write-backs to this file.")
	flags.String("stats-csv", "",
		"Also write the statistics as CSV to this file.")
}

func runOptionsFromFlags(cmd *cobra.Command) (runOptions, error) {
	flags := cmd.Flags()
	opts := runOptions{}

	opts.tracePath, _ = flags.GetString("trace")
	opts.storePath, _ = flags.GetString("store")
	opts.config.Log2PageSize, _ = flags.GetUint64("log2-page-size")
	opts.config.NumPageBits, _ = flags.GetUint64("page-bits")
	opts.config.NumFrames, _ = flags.GetUint64("frames")
	opts.config.NumTLBEntries, _ = flags.GetInt("tlb-entries")
	opts.config.RecencyBound, _ = flags.GetUint64("recency-bound")
	opts.record, _ = flags.GetBool("record")
	opts.recordFile, _ = flags.GetString("record-file")
	opts.monitor, _ = flags.GetBool("monitor")
	opts.monitorPort, _ = flags.GetInt("monitor-port")
	opts.openBrowser, _ = flags.GetBool("open-browser")
	opts.hold, _ = flags.GetBool("hold")
	opts.quiet, _ = flags.GetBool("quiet")
	opts.traceLog, _ = flags.GetString("trace-log")
	opts.statsCSV, _ = flags.GetString("stats-csv")
	policy, _ := flags.GetString("policy")

	p, err := replacement.ParsePolicy(policy)
	if err != nil {
		return opts, err
	}

	opts.config.Policy = p

	err = configMustBeUsable(opts.config)
	if err != nil {
		return opts, err
	}

	if opts.recordFile != "" {
		opts.record = true
	}

	if opts.openBrowser || opts.hold || opts.monitorPort != 0 {
		opts.monitor = true
	}

	return opts, nil
}

// configMustBeUsable reports configurations the MMU builder would reject, so
// that bad flags end in an error rather than a panic.
func configMustBeUsable(c mmu.Config) error {
	switch {
	case c.Log2PageSize == 0 || c.NumPageBits == 0:
		return fmt.Errorf("--log2-page-size and --page-bits must be positive")
	case c.Log2PageSize+c.NumPageBits > 32:
		return fmt.Errorf(
			"--log2-page-size plus --page-bits must not exceed 32, got %d",
			c.Log2PageSize+c.NumPageBits)
	case c.NumFrames == 0:
		return fmt.Errorf("--frames must be positive")
	case c.NumTLBEntries < 0:
		return fmt.Errorf("--tlb-entries must not be negative")
	case c.RecencyBound == 0:
		return fmt.Errorf("--recency-bound must be positive")
	}

	return nil
}

func runTrace(ctx context.Context, opts runOptions, out io.Writer) error {
	total, err := countTraceRecords(opts.tracePath)
	if err != nil {
		return err
	}

	traceFile, err := os.Open(opts.tracePath)
	if err != nil {
		return fmt.Errorf("opening trace: %w", err)
	}
	defer traceFile.Close()

	builder := simulation.MakeBuilder().
		WithConfig(opts.config).
		WithBackingStoreFile(opts.storePath).
		WithTotalAccesses(total)

	if !opts.quiet {
		builder = builder.WithAccessOutput(out)
	}

	if opts.record {
		builder = builder.WithRecording(opts.recordFile)
	}

	if opts.monitor {
		builder = builder.WithMonitoring(opts.monitorPort)
	}

	if opts.traceLog != "" {
		logFile, err := os.Create(opts.traceLog)
		if err != nil {
			return fmt.Errorf("creating trace log: %w", err)
		}
		defer logFile.Close()

		builder = builder.WithTraceLogger(log.New(logFile, "", 0))
	}

	sim, err := builder.Build()
	if err != nil {
		return err
	}

	if sim.Monitor() != nil {
		url := sim.Monitor().URL()
		fmt.Fprintf(os.Stderr, "Monitoring simulation at %s\n", url)

		if opts.openBrowser {
			openErr := browser.OpenURL(url)
			if openErr != nil {
				log.Printf("cannot open browser: %v", openErr)
			}
		}
	}

	reader := trace.NewReader(traceFile, opts.config.Layout())
	stats, runErr := sim.Run(reader)

	if runErr == nil {
		runErr = writeStatistics(out, opts, stats)
	}

	if runErr == nil && opts.hold && sim.Monitor() != nil {
		holdUntilInterrupted(ctx)
	}

	termErr := sim.Terminate()
	if runErr != nil {
		return runErr
	}

	if termErr != nil {
		return termErr
	}

	if sim.DataRecorder() != nil {
		fmt.Fprintf(os.Stderr, "Recorded to %s\n",
			datarecording.Filename(sim.DataRecorder()))
	}

	return nil
}

func countTraceRecords(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening trace: %w", err)
	}
	defer f.Close()

	return trace.CountRecords(f)
}

func writeStatistics(out io.Writer, opts runOptions, stats mmu.Stats) error {
	err := report.WriteStatistics(out, opts.config, stats)
	if err != nil {
		return err
	}

	if opts.statsCSV == "" {
		return nil
	}

	f, err := os.Create(opts.statsCSV)
	if err != nil {
		return fmt.Errorf("creating statistics file: %w", err)
	}

	err = report.WriteStatisticsCSV(f, opts.config, stats)
	if err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func holdUntilInterrupted(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(os.Stderr, "Simulation finished, press Ctrl-C to stop the monitor.")
	<-ctx.Done()
}
