package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/yourusername/cloudapp-dl-go/internal/app"
	"github.com/yourusername/cloudapp-dl-go/internal/domain"
	"go.uber.org/zap"
)

var (
	configPath string
	flags      runFlags
	rootCmd    = &cobra.Command{
		Use:   "cloudapp-dl",
		Short: "Download videos from CloudApp / Zight share pages",
		Long: `Resolve CloudApp / Zight share pages to their media file and save it locally.
Pass a single page with --url or a newline-separated list of pages with --list.`,
		SilenceUsage: true,
		RunE:         runDownload,
	}
)

// runFlags holds the raw root command flags
type runFlags struct {
	url          string
	list         string
	prefix       string
	out          string
	defaultTitle bool
	timeoutMs    int
}

// options converts the flags into validated run options
func (f runFlags) options() (domain.RunOptions, error) {
	opts := domain.RunOptions{
		URL:          f.url,
		List:         f.list,
		Prefix:       f.prefix,
		Out:          f.out,
		DefaultTitle: f.defaultTitle,
		Timeout:      time.Duration(f.timeoutMs) * time.Millisecond,
	}
	return opts, opts.Validate()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default searches ./configs, ~/.cloudapp-dl, /etc/cloudapp-dl)")

	rootCmd.Flags().StringVarP(&flags.url, "url", "u", "", "Share page URL to download")
	rootCmd.Flags().StringVarP(&flags.list, "list", "l", "", "File with one share page URL per line")
	rootCmd.Flags().StringVarP(&flags.prefix, "prefix", "p", "", "Name list downloads {prefix}-{line}.mp4")
	rootCmd.Flags().StringVarP(&flags.out, "out", "o", "", "Output file (--url) or directory (--list)")
	rootCmd.Flags().BoolVarP(&flags.defaultTitle, "default-title", "d", false, "Name files after the page title")
	rootCmd.Flags().IntVarP(&flags.timeoutMs, "timeout", "t", 0, "Delay between list downloads in milliseconds")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDownload(cmd *cobra.Command, args []string) error {
	opts, err := flags.options()
	if err != nil {
		return err
	}

	rt, err := newRuntime(configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.IsBatch() {
		return runBatch(ctx, rt, opts)
	}
	return runSingle(ctx, rt, opts)
}

func runSingle(ctx context.Context, rt *runtime, opts domain.RunOptions) error {
	var progress domain.ProgressFunc
	if rt.config.Download.Progress {
		progress = newProgressBar(domain.ExtractID(opts.URL))
	}

	download, err := rt.downloads.DownloadSingle(ctx, app.SingleOptions{
		URL:       opts.URL,
		Out:       opts.Out,
		WantTitle: opts.DefaultTitle,
		Progress:  progress,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Saved %s (%s)\n", download.FilePath, humanize.Bytes(uint64(download.BytesWritten)))
	return nil
}

func runBatch(ctx context.Context, rt *runtime, opts domain.RunOptions) error {
	outputDir := opts.Out
	if outputDir == "" {
		outputDir = rt.config.Download.OutputDir
	}

	batchOpts := app.BatchOptions{
		ListPath:  opts.List,
		OutputDir: outputDir,
		Prefix:    opts.Prefix,
		WantTitle: opts.DefaultTitle,
		Delay:     opts.Timeout,
	}
	if rt.config.Download.Progress {
		batchOpts.Progress = func(d *domain.Download) domain.ProgressFunc {
			return newProgressBar(fmt.Sprintf("line %d", d.LineIndex))
		}
	}

	batch := app.NewBatchCoordinator(rt.downloads, rt.notifier, rt.log)
	summary, err := batch.RunBatch(ctx, batchOpts)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Printf("%d of %d saved, %d failed, %d blank lines skipped (%s)\n",
		summary.Succeeded, summary.Attempted, summary.Failed, summary.Skipped,
		summary.Duration.Round(time.Millisecond))
	if itemErr := summary.Err(); itemErr != nil {
		rt.log.Debug("Batch item errors", zap.Error(itemErr))
	}
	return err
}
