package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/yourusername/cloudapp-dl-go/internal/domain"
)

var (
	historyStatus string
	historyBatch  string
	historyCmd    = &cobra.Command{
		Use:   "history",
		Short: "List recorded downloads",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
)

func init() {
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "Only show downloads with this status (queued, processing, completed, failed, cancelled)")
	historyCmd.Flags().StringVar(&historyBatch, "batch", "", "Only show downloads of this batch ID")
}

func runHistory(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.repo == nil {
		return errors.New("download history is disabled")
	}

	filters := make(map[string]interface{})
	if historyStatus != "" {
		filters["status"] = domain.DownloadStatus(historyStatus)
	}
	if historyBatch != "" {
		filters["batch_id"] = historyBatch
	}

	downloads, err := rt.repo.FindAll(filters)
	if err != nil {
		return fmt.Errorf("failed to list downloads: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPAGE\tSTATUS\tSIZE\tFILE\tWHEN")
	for _, d := range downloads {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(d.ID, 8),
			d.Identifier(),
			statusLabel(d),
			humanize.Bytes(uint64(d.BytesWritten)),
			truncate(d.FilePath, 48),
			humanize.Time(d.CreatedAt))
	}
	w.Flush()

	stats, err := rt.repo.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	fmt.Printf("\n%d total: %d completed, %d failed, %d queued, %d processing, %d cancelled\n",
		stats.Total, stats.Completed, stats.Failed, stats.Queued, stats.Processing, stats.Cancelled)
	return nil
}

// statusLabel shows where a failed download stopped
func statusLabel(d *domain.Download) string {
	if d.Status == domain.StatusFailed && d.FailedStage != "" {
		return fmt.Sprintf("%s (%s)", d.Status, d.FailedStage)
	}
	return string(d.Status)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
