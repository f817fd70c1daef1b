package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ardnew/hashspi/bus"
)

var detectInit bool

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "List the chips that answer on the bus",
	Long: `Reads the signature register of every configured chip address and
reports which chips answer and how many cores each one has available.

With --init each present chip is also reset, has all its cores enabled
and gets its nonce range programmed, as run does at start.`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().BoolVar(&detectInit, "init", false, "Initialise present chips after detecting them")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	t, _, err := openBus(cfg)
	if err != nil {
		return Error(cmd.ErrOrStderr(), "Failed to open bus", err.Error(),
			[]string{"Check bus.kind and bus.device in the configuration"})
	}
	defer t.Close()

	dc := cfg.ToDriver()
	present := bus.Probe(ctx, t, dc.Chips, dc.Enabled, dc.DetectRetries)

	found := 0
	fmt.Fprintf(out, "%-5s %-9s %s\n", "CHIP", "STATE", "CORES")
	for chip, ok := range present {
		switch {
		case !dc.Enabled(chip):
			fmt.Fprintf(out, "%-5d %s %s\n", chip, faint.Sprintf("%-9s", "disabled"), "-")
			continue
		case !ok:
			fmt.Fprintf(out, "%-5d %s %s\n", chip, red.Sprintf("%-9s", "absent"), "-")
			continue
		}
		found++

		var cores int
		if detectInit {
			cores, err = bus.InitChip(ctx, t, uint8(chip))
		} else {
			var m bus.CoreMap
			m, err = bus.ReadCoreEnable(ctx, t, uint8(chip))
			cores = m.Count()
		}
		if err != nil {
			fmt.Fprintf(out, "%-5d %s %v\n", chip, yellow.Sprintf("%-9s", "error"), err)
			continue
		}
		fmt.Fprintf(out, "%-5d %s %d\n", chip, green.Sprintf("%-9s", "present"), cores)
	}

	if found == 0 {
		return Error(cmd.ErrOrStderr(), "No chips detected",
			fmt.Sprintf("None of the %d configured addresses answered with the chip signature.", dc.Chips),
			[]string{"Check the wiring and bus.device", "Check driver.chips and driver.disabled"})
	}
	Success(out, "%d of %d chips present", found, dc.Chips)
	return nil
}
