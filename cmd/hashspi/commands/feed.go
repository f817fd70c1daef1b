package commands

import (
	"github.com/spf13/cobra"

	"github.com/ardnew/hashspi/driver"
	"github.com/ardnew/hashspi/supply"
)

var (
	feedCount int
	feedSize  int
	feedSeed  uint64
)

// feedBatch is the number of works pushed per round trip.
const feedBatch = 256

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Push random work into the Redis work list",
	Long: `Generates random work units and appends them to the Redis work list
named by supply.redis.prefix, for a run with supply.kind: redis to consume.`,
	RunE: runFeed,
}

func init() {
	feedCmd.Flags().IntVarP(&feedCount, "count", "n", 1000, "Number of work units to push")
	feedCmd.Flags().IntVar(&feedSize, "size", 0, "Work size in bytes (defaults to supply.work_size)")
	feedCmd.Flags().Uint64Var(&feedSeed, "seed", 0, "Generator seed")
	rootCmd.AddCommand(feedCmd)
}

func runFeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()

	if feedCount < 1 {
		return Error(errOut, "Invalid count", "--count must be at least 1.", nil)
	}
	size := feedSize
	if size == 0 {
		size = cfg.Supply.WorkSize
	}

	r, err := openRedis(ctx, cfg)
	if err != nil {
		return Error(errOut, "Failed to connect to Redis", err.Error(),
			[]string{"Check supply.redis.addr and that Redis is running"})
	}
	defer r.Close()

	gen := supply.NewMemory(size, uint64(feedCount), feedSeed)
	batch := make([]*driver.Work, 0, feedBatch)
	pushed := 0
	for {
		w, ok := gen.NextWork()
		if ok {
			batch = append(batch, w)
		}
		if len(batch) == feedBatch || (!ok && len(batch) > 0) {
			if err := r.PushWork(ctx, batch...); err != nil {
				return Error(errOut, "Failed to push work", err.Error(), nil)
			}
			pushed += len(batch)
			batch = batch[:0]
		}
		if !ok {
			break
		}
	}

	backlog, err := r.Backlog(ctx)
	if err != nil {
		return Error(errOut, "Failed to read backlog", err.Error(), nil)
	}
	Success(cmd.OutOrStdout(), "pushed %d work units of %d bytes (%d waiting)", pushed, size, backlog)
	return nil
}
