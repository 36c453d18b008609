package cmd

import (
	"context"
	"fmt"
	u "net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	splithttp "github.com/tanq16/splitdl/internal/downloaders/http"
	"github.com/tanq16/splitdl/internal/output"
	"github.com/tanq16/splitdl/internal/utils"
)

var (
	workers       int
	outputName    string
	verifySum     string
	timeout       time.Duration
	chunkTimeout  time.Duration
	rateLimit     int64
	kaTimeout     time.Duration
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	bearerToken   string
	headers       []string
	debug         bool
	quiet         bool
	logFormat     string
)

var SplitdlVersion = "dev"

// Clients serving more parallel connections than this get tuned sockets.
const highThreadWorkers = 5

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "splitdl [URL]",
		Short:         "splitdl downloads a file over HTTP with parallel byte-range workers",
		Version:       SplitdlVersion,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if workers < 1 {
				cmd.SilenceUsage = false
				return fmt.Errorf("invalid value %d for --workers: should be a positive integer", workers)
			}
			if logFormat != "console" && logFormat != "json" {
				cmd.SilenceUsage = false
				return fmt.Errorf("invalid value %q for --log-format: use console or json", logFormat)
			}
			utils.InitLogger(debug, logFormat)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			link := args[0]
			if _, err := u.ParseRequestURI(link); err != nil {
				return utils.NewError(utils.InvalidArgument, "validate", fmt.Errorf("invalid URL format: %w", err))
			}
			return runSingle(cmd.Context(), utils.DownloadConfig{
				URL:              link,
				OutputPath:       outputName,
				Workers:          workers,
				ChunkTimeout:     chunkTimeout,
				RateLimit:        rateLimit,
				HTTPClientConfig: buildHTTPConfig(),
			})
		},
	}

	rootCmd.Flags().StringVarP(&outputName, "name", "n", "", "Destination file name (inferred from the URL if not provided)")
	rootCmd.Flags().StringVar(&verifySum, "verify", "", "Expected checksum of the download (eg. sha256:<hex>)")

	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", utils.DefaultWorkers, "Number of parallel range workers per download")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 0, "Overall request timeout, 0 for none (eg. 5s, 10m)")
	rootCmd.PersistentFlags().DurationVar(&chunkTimeout, "chunk-timeout", 0, "Timeout for each chunk fetch, 0 for none")
	rootCmd.PersistentFlags().Int64Var(&rateLimit, "limit-rate", 0, "Bandwidth limit per download in bytes per second, 0 for unlimited")
	rootCmd.PersistentFlags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent (\"randomize\" picks a browser agent)")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", "", "OAuth2 bearer token sent with every request")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Disable the progress display")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: console or json")

	rootCmd.AddCommand(newBatchCmd())
	return rootCmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		output.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

func buildHTTPConfig() utils.HTTPClientConfig {
	agent := userAgent
	if agent == "randomize" {
		agent = utils.GetRandomUserAgent()
	}
	proxy, user, pass := proxyURL, proxyUsername, proxyPassword
	// Check if proxy URL contains auth
	parsedProxy, err := u.Parse(proxy)
	if err == nil && parsedProxy.User != nil && user == "" {
		user = parsedProxy.User.Username()
		if password, set := parsedProxy.User.Password(); set {
			pass = password
		}
		parsedProxy.User = nil
		proxy = parsedProxy.String()
	}
	return utils.HTTPClientConfig{
		Timeout:        timeout,
		KATimeout:      kaTimeout,
		ProxyURL:       proxy,
		ProxyUsername:  user,
		ProxyPassword:  pass,
		UserAgent:      agent,
		BearerToken:    bearerToken,
		Headers:        utils.ParseHeaderArgs(headers),
		HighThreadMode: workers > highThreadWorkers,
	}
}

// newSink combines structured logs with the progress display. While the
// display redraws the terminal only errors are logged, unless debugging.
func newSink() (utils.EventSink, *output.Manager) {
	logSink := output.NewLogSink(utils.GetLogger("download"))
	if quiet || debug {
		return logSink, nil
	}
	manager := output.NewStdoutManager()
	if manager.Interactive() && zerolog.GlobalLevel() < zerolog.ErrorLevel {
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}
	return output.Tee{logSink, manager}, manager
}

func runSingle(ctx context.Context, cfg utils.DownloadConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := utils.NewHTTPClient(cfg.HTTPClientConfig)
	sink, manager := newSink()
	if manager != nil {
		manager.StartDisplay()
	}
	outcome := splithttp.NewDownloader(client, sink).Run(ctx, cfg)
	if manager != nil {
		manager.StopDisplay()
	}
	if !outcome.Success() {
		name := outcome.FileName
		if name == "" {
			name = outcome.URL
		}
		return fmt.Errorf("%s download failed: %w", name, outcome.Err)
	}
	if verifySum != "" {
		if err := utils.VerifyDigest(outcome.Digest, verifySum); err != nil {
			return err
		}
		output.PrintSuccess("Checksum verified")
	}
	output.PrintDetail(fmt.Sprintf("SHA256 hash of %s is: %s", outcome.FileName, outcome.Digest))
	return nil
}
