package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rafabd1/Tendril/internal/config"
	"github.com/rafabd1/Tendril/internal/core"
	"github.com/rafabd1/Tendril/internal/input"
	"github.com/rafabd1/Tendril/internal/networking"
	"github.com/rafabd1/Tendril/internal/output"
	"github.com/rafabd1/Tendril/internal/report"
	"github.com/rafabd1/Tendril/internal/utils"
)

var rootCmd = &cobra.Command{
	Use:   "tendril",
	Short: "Discover business websites and harvest their contact mails",
	Long: `Tendril searches for business websites by keyword and city, probes every
discovered site for likely contact pages, renders the reachable ones in a
headless browser and extracts the mail addresses they expose. Each site is
processed at most once per campaign, and the aggregated report records which
search first discovered it.`,
	RunE:          runCampaign,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaults := config.GetDefaultConfig()
	flags := rootCmd.Flags()

	flags.StringSliceP("keyword", "k", nil, "Keyword to search for (repeatable)")
	flags.StringSliceP("city", "c", nil, "City to search in (repeatable)")
	flags.String("keywords-file", "", "File with one keyword per line ('-' for stdin)")
	flags.String("cities-file", "", "File with one city per line ('-' for stdin)")
	flags.Int("start-page", defaults.StartPage, "First search result page")
	flags.Int("end-page", defaults.EndPage, "Last search result page (inclusive)")
	flags.IntP("workers", "w", defaults.Concurrency, "Number of concurrent workers per stage")
	flags.Duration("timeout", defaults.RequestTimeout, "Per-task timeout for search and probe requests")
	flags.Duration("render-timeout", defaults.RenderTimeout, "Per-page timeout for headless rendering")
	flags.Int("max-redirects", defaults.MaxRedirects, "Redirect hops tolerated while probing a page")
	flags.String("search-url", defaults.SearchBaseURL, "Search endpoint for paginated queries")
	flags.Float64("search-rate", defaults.SearchRatePerSec, "Upper bound on search queries per second")
	flags.String("user-agent", defaults.UserAgent, "User-Agent for search, probe and browser traffic")
	flags.String("proxy", "", "Proxy URL for HTTP and browser traffic (host:port or scheme://host:port)")
	flags.String("chrome-path", "", "Path to the browser binary (default: auto-discover)")
	flags.Bool("domain-mails-only", defaults.DomainMailsOnly, "Keep only addresses on the site's own domain")
	flags.Bool("verify-mx", defaults.VerifyMX, "Drop addresses whose domain has no MX record")
	flags.StringP("output", "o", "", "File to save the report (default: stdout)")
	flags.StringP("format", "f", defaults.OutputFormat, "Report format (json, text, csv)")
	flags.String("verbosity", defaults.Verbosity, "Log level (debug, info, warn, error, fatal)")
	flags.Bool("no-color", defaults.NoColor, "Disable colored log output")
	flags.Bool("silent", defaults.Silent, "Suppress logs and the progress bar")

	if err := viper.BindPFlags(flags); err != nil {
		panic(fmt.Sprintf("binding flags: %v", err))
	}
	viper.SetEnvPrefix("TENDRIL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildConfig materializes the effective configuration from Viper, which
// layers flags over environment variables over defaults.
func buildConfig() *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Keywords = viper.GetStringSlice("keyword")
	cfg.Cities = viper.GetStringSlice("city")
	cfg.KeywordsFile = viper.GetString("keywords-file")
	cfg.CitiesFile = viper.GetString("cities-file")
	cfg.StartPage = viper.GetInt("start-page")
	cfg.EndPage = viper.GetInt("end-page")
	cfg.Concurrency = viper.GetInt("workers")
	cfg.RequestTimeout = viper.GetDuration("timeout")
	cfg.RenderTimeout = viper.GetDuration("render-timeout")
	cfg.MaxRedirects = viper.GetInt("max-redirects")
	cfg.SearchBaseURL = viper.GetString("search-url")
	cfg.SearchRatePerSec = viper.GetFloat64("search-rate")
	cfg.UserAgent = viper.GetString("user-agent")
	cfg.Proxy = viper.GetString("proxy")
	cfg.ChromePath = viper.GetString("chrome-path")
	cfg.DomainMailsOnly = viper.GetBool("domain-mails-only")
	cfg.VerifyMX = viper.GetBool("verify-mx")
	cfg.OutputFile = viper.GetString("output")
	cfg.OutputFormat = viper.GetString("format")
	cfg.Verbosity = viper.GetString("verbosity")
	cfg.NoColor = viper.GetBool("no-color")
	cfg.Silent = viper.GetBool("silent")
	return cfg
}

// resolveList merges a flag-supplied list with the lines of an optional
// list file. A file path of "-" reads the list from stdin instead.
func resolveList(values []string, filePath string, reader *input.Reader, logger utils.Logger, what string) ([]string, error) {
	if filePath == "" {
		return values, nil
	}
	var (
		lines []string
		err   error
	)
	if filePath == "-" {
		logger.Infof("Reading %s from stdin...", what)
		lines, err = reader.ReadLinesFromStdin()
	} else {
		logger.Infof("Reading %s from file: %s", what, filePath)
		lines, err = reader.ReadLinesFromFile(filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", what, err)
	}
	return append(values, lines...), nil
}

// campaignProgress adapts the terminal progress bar to the scheduler's
// reporter contract.
type campaignProgress struct {
	bar   *output.ProgressBar
	count atomic.Int64
}

func (p *campaignProgress) StartPhase(label string, total int) {
	p.count.Store(0)
	p.bar.SetPrefix(label + " ")
	p.bar.SetTotalAndReset(total)
}

func (p *campaignProgress) Increment() {
	p.bar.Update(int(p.count.Add(1)))
}

func runCampaign(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	logger := utils.NewDefaultLogger(utils.StringToLogLevel(cfg.Verbosity), cfg.NoColor, cfg.Silent)

	reader := input.NewReader(logger)
	var err error
	if cfg.Keywords, err = resolveList(cfg.Keywords, cfg.KeywordsFile, reader, logger, "keywords"); err != nil {
		return err
	}
	if cfg.Cities, err = resolveList(cfg.Cities, cfg.CitiesFile, reader, logger, "cities"); err != nil {
		return err
	}
	cfg.NormalizeInputs()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Infof("Tendril mail harvester initializing...")
	logger.Debugf("Effective configuration: %s", cfg.String())

	client, err := networking.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating HTTP client: %w", err)
	}
	renderer, err := networking.NewChromeRenderer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating browser renderer: %w", err)
	}
	defer renderer.Close()

	fetcher := core.NewFetcher(cfg, client, logger)
	resolver := core.NewExistenceResolver(cfg, client, logger)
	downloads := core.NewDownloadPool(cfg, renderer, logger)
	scheduler := core.NewScheduler(cfg, fetcher, resolver, downloads, logger)
	if cfg.VerifyMX {
		scheduler.SetMailVerifier(networking.NewMXVerifier(logger))
	}

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warnf("Interrupt signal received. Shutting down gracefully...")
		cancel()
	}()

	var bar *output.ProgressBar
	if !cfg.Silent {
		bar = output.NewProgressBar(cfg.TotalSearchTasks(), 40)
		bar.Start()
		scheduler.SetProgressReporter(&campaignProgress{bar: bar})
		defer bar.Stop()
	}

	entries, runErr := scheduler.Run(ctx)

	// The bar must be gone before the report lands on stdout.
	if bar != nil {
		bar.Stop()
	}

	reporter := report.NewReporter(logger)
	if err := reporter.GenerateReport(entries, cfg.OutputFile, cfg.OutputFormat); err != nil {
		logger.Errorf("Error generating report: %v", err)
		if runErr == nil {
			runErr = err
		}
	} else if cfg.OutputFile != "" {
		logger.Infof("Report with %d entries written to %s in %s format", len(entries), cfg.OutputFile, cfg.OutputFormat)
	}

	if runErr != nil {
		return runErr
	}
	logger.Infof("Tendril finished.")
	return nil
}
