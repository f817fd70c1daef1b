package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ardnew/hashspi/driver"
	"github.com/ardnew/hashspi/supply"
)

var (
	runDuration    time.Duration
	runInteractive bool

	// stdin is the terminal read by --interactive.
	stdin = os.Stdin
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the chip chain",
	Long: `Detects the chips on the configured bus and keeps them busy with work
from the configured supply until interrupted.

Signals:
  SIGHUP          flush all queued and in-flight work
  SIGINT/SIGTERM  stop

Keys (with --interactive on a terminal):
  s  print stats now
  f  flush
  q  quit`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().DurationVarP(&runDuration, "duration", "d", 0, "Stop after this long (0 runs until interrupted)")
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "Read single-key commands from the terminal")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errOut := cmd.ErrOrStderr()

	t, check, err := openBus(cfg)
	if err != nil {
		return Error(errOut, "Failed to open bus", err.Error(),
			[]string{"Check bus.kind and bus.device in the configuration", "Use bus.kind: sim to run without hardware"})
	}
	defer t.Close()

	src, closer, err := openSupply(ctx, cfg)
	if err != nil {
		return Error(errOut, "Failed to open work supply", err.Error(),
			[]string{"Check supply.redis.addr and that Redis is running", "Use supply.kind: memory to generate work locally"})
	}
	defer closer.Close()

	d, err := driver.New(cfg.ToDriver(), t, src, supply.NewValidator(check, src))
	if err != nil {
		return Error(errOut, "Invalid driver configuration", err.Error(), nil)
	}
	if err := d.Start(ctx); err != nil {
		return Error(errOut, "Failed to start driver", err.Error(),
			[]string{"Run 'hashspi detect' to see which chips answer"})
	}

	out := cmd.OutOrStdout()
	var kb *keyboard
	if runInteractive {
		kb = openKeyboard(ctx, stdin)
		if kb != nil {
			defer kb.Close()
			out = crlfWriter{w: out}
		} else {
			Warning(errOut, "stdin is not a terminal, ignoring --interactive")
		}
	}

	Success(out, "driving %d chips %v", len(d.Active()), d.Active())
	loop(ctx, d, out, kb.Keys())

	if err := d.Stop(); err != nil {
		return Error(errOut, "Failed to stop driver", err.Error(), nil)
	}
	c := src.Counters()
	Info(out, "pulled %d, completed %d, discarded %d, accepted %d",
		c.Pulled, c.Completed, c.Discarded, c.Accepted)
	return nil
}

// loop is the scan loop: it tops the chips up every fill interval, reports
// every stats interval and reacts to signals and keys until told to stop.
func loop(ctx context.Context, d *driver.Driver, out io.Writer, keys <-chan byte) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var deadline <-chan time.Time
	if runDuration > 0 {
		timer := time.NewTimer(runDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	fill := time.NewTicker(cfg.Driver.FillInterval)
	defer fill.Stop()
	report := time.NewTicker(cfg.Driver.StatsInterval)
	defer report.Stop()

	last := time.Now()
	stats := func() {
		now := time.Now()
		printStats(out, d.Stats(), d.DrainAcceptedNonceCount(), now.Sub(last))
		last = now
	}
	flush := func(why string) {
		d.Flush()
		Warning(out, "flushed (%s)", why)
	}

	d.FillQueues()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			stats()
			return
		case <-deadline:
			stats()
			return
		case <-hup:
			flush("SIGHUP")
		case k := <-keys:
			switch k {
			case keyStats:
				stats()
			case keyFlush:
				flush("key")
			case keyQuit, keyCtrlC:
				stats()
				return
			}
		case <-fill.C:
			d.FillQueues()
		case <-report.C:
			stats()
		}
	}
}
