package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	splithttp "github.com/tanq16/splitdl/internal/downloaders/http"
	"github.com/tanq16/splitdl/internal/output"
	"github.com/tanq16/splitdl/internal/scheduler"
	"github.com/tanq16/splitdl/internal/utils"
	"gopkg.in/yaml.v3"
)

type BatchFile struct {
	Downloads []utils.BatchEntry `yaml:"downloads"`
}

func newBatchCmd() *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE] [OPTIONS]",
		Short: "Download every link listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if parallel < 1 {
				cmd.SilenceUsage = false
				return fmt.Errorf("invalid value %d for --parallel: should be a positive integer", parallel)
			}
			configs, err := loadBatchFile(args[0], buildHTTPConfig())
			if err != nil {
				return err
			}
			return runBatch(cmd.Context(), configs, parallel)
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "P", 1, "Number of files to download at the same time")
	return cmd
}

func loadBatchFile(path string, httpConfig utils.HTTPClientConfig) ([]utils.DownloadConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading YAML file: %w", err)
	}
	var batchFile BatchFile
	if err := yaml.Unmarshal(data, &batchFile); err != nil {
		return nil, fmt.Errorf("error parsing YAML file: %w", err)
	}
	return buildBatchConfigs(batchFile, httpConfig)
}

// buildBatchConfigs rejects the whole file on any invalid entry so that no
// download starts from a half-valid batch.
func buildBatchConfigs(batchFile BatchFile, httpConfig utils.HTTPClientConfig) ([]utils.DownloadConfig, error) {
	if len(batchFile.Downloads) == 0 {
		return nil, utils.NewError(utils.InvalidArgument, "batch", fmt.Errorf("no downloads found in the batch file"))
	}
	configs := make([]utils.DownloadConfig, 0, len(batchFile.Downloads))
	for i, entry := range batchFile.Downloads {
		cfg := utils.DownloadConfig{
			URL:              entry.Link,
			OutputPath:       entry.Name,
			Workers:          workers,
			ChunkTimeout:     chunkTimeout,
			RateLimit:        rateLimit,
			HTTPClientConfig: httpConfig,
		}
		if entry.Workers != 0 {
			cfg.Workers = entry.Workers
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// sharedHTTPConfig sizes the single batch client for the busiest entry.
func sharedHTTPConfig(configs []utils.DownloadConfig) utils.HTTPClientConfig {
	httpConfig := configs[0].HTTPClientConfig
	peak := 0
	for _, cfg := range configs {
		peak = max(peak, cfg.Workers)
	}
	httpConfig.HighThreadMode = peak > highThreadWorkers
	return httpConfig
}

func runBatch(ctx context.Context, configs []utils.DownloadConfig, parallel int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := utils.GetLogger("batch")
	log.Info().Int("totalFiles", len(configs)).Int("parallel", parallel).Msg("Initiating batch download")

	client := utils.NewHTTPClient(sharedHTTPConfig(configs))
	sink, manager := newSink()
	if manager != nil {
		manager.StartDisplay()
	}
	downloader := splithttp.NewDownloader(client, sink)
	tasks := make([]scheduler.Task[utils.DownloadOutcome], len(configs))
	for i, cfg := range configs {
		tasks[i] = func(ctx context.Context) utils.DownloadOutcome {
			return downloader.Run(ctx, cfg)
		}
	}
	outcomes := scheduler.Run(ctx, tasks, parallel)
	if manager != nil {
		manager.StopDisplay()
	}

	failed := 0
	for _, outcome := range outcomes {
		if !outcome.Success() {
			failed++
			continue
		}
		output.PrintDetail(fmt.Sprintf("SHA256 hash of %s is: %s", outcome.FileName, outcome.Digest))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(outcomes))
	}
	return nil
}
