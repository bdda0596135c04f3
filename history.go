package main

import (
	"fmt"
	"text/tabwriter"

	"bakeslip/database"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyBatch string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent processing batches",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of batches to show")
	historyCmd.Flags().StringVar(&historyBatch, "batch", "", "show the per-file results of one batch")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if historyBatch != "" {
		files, err := database.GetBatchFiles(cmd.Context(), db, historyBatch)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "#\tFILE\tSTATUS\tORDERS\tMESSAGE")
		for _, f := range files {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", f.Position, f.FileName, f.Status, f.OrderCount, f.Error)
		}
		return nil
	}

	batches, err := database.ListRecentBatches(cmd.Context(), db, historyLimit)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "BATCH\tSTARTED\tISSUE DATE\tFILES\tERRORS\tORDERS")
	for _, b := range batches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", b.ID, b.StartedAt, b.IssueDate, b.FileCount, b.ErrorCount, b.OrderCount)
	}
	return nil
}
