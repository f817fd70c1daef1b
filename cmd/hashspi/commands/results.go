package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	resultsCount  int64
	resultsOutput string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List accepted nonces from the Redis results stream",
	RunE:  runResults,
}

func init() {
	resultsCmd.Flags().Int64VarP(&resultsCount, "count", "n", 20, "Maximum number of results to show")
	resultsCmd.Flags().StringVarP(&resultsOutput, "output", "o", "default", "Output format: default or jsonl")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	if resultsOutput != "default" && resultsOutput != "jsonl" {
		return Error(errOut, "Invalid output format",
			fmt.Sprintf("Unknown format %q.", resultsOutput),
			[]string{"Use --output default or --output jsonl"})
	}

	r, err := openRedis(ctx, cfg)
	if err != nil {
		return Error(errOut, "Failed to connect to Redis", err.Error(),
			[]string{"Check supply.redis.addr and that Redis is running"})
	}
	defer r.Close()

	res, err := r.Results(ctx, resultsCount)
	if err != nil {
		return Error(errOut, "Failed to read results", err.Error(), nil)
	}

	if resultsOutput == "jsonl" {
		enc := json.NewEncoder(out)
		for _, x := range res {
			if err := enc.Encode(x); err != nil {
				return err
			}
		}
		return nil
	}

	if len(res) == 0 {
		Info(out, "no results yet")
		return nil
	}
	fmt.Fprintf(out, "%-30s %-5s %-6s %-10s %s\n", "FOUND", "CHIP", "TASK", "NONCE", "WORK")
	for _, x := range res {
		fmt.Fprintf(out, "%-30s %-5d %-6d %s %s\n",
			x.Found.Format(time.RFC3339Nano), x.Chip, x.TaskID,
			cyan.Sprintf("%08x  ", x.Nonce), x.WorkID)
	}
	return nil
}
