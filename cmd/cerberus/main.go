package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/cerberus-dl/cerberus/internal/client"
	"github.com/cerberus-dl/cerberus/internal/config"
	"github.com/cerberus-dl/cerberus/internal/downloader"
	"github.com/cerberus-dl/cerberus/internal/engine"
	"github.com/cerberus-dl/cerberus/internal/metafetch"
	"github.com/cerberus-dl/cerberus/internal/models"
	"github.com/cerberus-dl/cerberus/internal/pipeline"
	"github.com/cerberus-dl/cerberus/internal/progress"
	"github.com/cerberus-dl/cerberus/internal/sniffer"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		link          string
		urls          []string
		listFile      string
		downloadPath  string
		forceLibrary  bool
		quality       string
		showConfig    bool
		listConfig    bool
		exampleConfig bool
	)

	pflag.StringVarP(&link, "link", "l", "", "single URL to download")
	pflag.StringSliceVarP(&urls, "urls", "u", nil, "comma separated URLs to download")
	pflag.StringVarP(&listFile, "list", "r", "", "file with one URL per line")
	pflag.StringVarP(&downloadPath, "path", "p", "", "download directory (overrides configuration)")
	pflag.BoolVarP(&forceLibrary, "force", "f", false, "force the library engine for every URL")
	pflag.StringVarP(&quality, "quality", "q", "", "quality for this run, e.g. best, worst, 720p")
	pflag.BoolVar(&showConfig, "config", false, "print the configuration directory and exit")
	pflag.BoolVar(&listConfig, "list-config", false, "print the active configuration and exit")
	pflag.BoolVar(&exampleConfig, "example-config", false, "write an annotated example config and exit")
	pflag.Parse()

	logger := config.GetLogger()

	if showConfig {
		dir, err := config.ConfigDir()
		if err != nil {
			logger.Error().Err(err).Msg("Could not resolve the configuration directory")
			return 1
		}
		fmt.Println(dir)
		return 0
	}
	if exampleConfig {
		return writeExampleConfig()
	}

	settings, err := config.LoadSettings()
	if err != nil {
		logger.Error().Err(err).Msg("Could not load the configuration")
		return 1
	}
	logger = config.GetLogger()

	if listConfig {
		return printConfig(settings)
	}

	tasks, err := gatherTasks(link, urls, listFile, pflag.Args(), forceLibrary, quality)
	if err != nil {
		logger.Error().Err(err).Msg("Could not build the URL list")
		return 1
	}
	if len(tasks) == 0 {
		pflag.Usage()
		return 2
	}

	root, err := settings.DownloadRoot(downloadPath)
	if err != nil {
		logger.Error().Err(err).Msg("Could not resolve the download directory")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := progress.NewUnifier(consoleReporter(logger))
	extractors := map[engine.Kind]engine.Extractor{
		engine.KindLibrary: engine.NewLibraryExtractor(settings),
		engine.KindSniffer: sniffer.New(sniffer.NewChromeDriver(settings), settings.SniffWindow()),
	}
	meta := metafetch.NewFetcher(settings, client.New(settings))
	manager := downloader.NewManager(settings, reporter)

	pipe, err := pipeline.New(settings, extractors, meta, manager, reporter, root)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	report, err := pipe.Run(ctx, tasks)
	printSummary(report)
	if err != nil || report.Failed() {
		return 1
	}
	return 0
}

// gatherTasks merges URLs from all input channels, in flag order, dropping
// duplicates and blank lines.
func gatherTasks(link string, urls []string, listFile string, args []string, forceLibrary bool, quality string) ([]models.URLTask, error) {
	var raw []string
	if link != "" {
		raw = append(raw, link)
	}
	raw = append(raw, urls...)
	if listFile != "" {
		fromFile, err := readURLList(listFile)
		if err != nil {
			return nil, err
		}
		raw = append(raw, fromFile...)
	}
	raw = append(raw, args...)

	seen := make(map[string]bool, len(raw))
	tasks := make([]models.URLTask, 0, len(raw))
	for _, u := range raw {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		tasks = append(tasks, models.URLTask{
			SourceURL:        u,
			RequestedQuality: quality,
			ForceLibrary:     forceLibrary,
		})
	}
	return tasks, nil
}

func readURLList(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

func writeExampleConfig() int {
	logger := config.GetLogger()
	dir, err := config.ConfigDir()
	if err != nil {
		logger.Error().Err(err).Msg("Could not resolve the configuration directory")
		return 1
	}
	path := filepath.Join(dir, "config.yaml.example")
	if err := os.WriteFile(path, []byte(config.ExampleConfig), 0o644); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Could not write the example config")
		return 1
	}
	fmt.Println(path)
	return 0
}

func printConfig(settings *config.Settings) int {
	fmt.Printf("sort_by: %s\n", settings.SortBy)
	fmt.Printf("overwrite_existing: %t\n", settings.OverwriteExisting)
	fmt.Printf("default_quality: %s\n", settings.DefaultQuality)
	fmt.Printf("use_browser_cookies: %t\n", settings.UseBrowserCookies)
	fmt.Printf("browser_path: %s\n", settings.BrowserPath)
	fmt.Printf("default_download_dir: %s\n", settings.DefaultDownloadDir)
	fmt.Printf("use_cwd_as_default: %t\n", settings.UseCwdAsDefault)
	fmt.Printf("custom_hosts: %s\n", strings.Join(settings.CustomHosts, ", "))
	fmt.Printf("user_agent: %s\n", settings.UserAgent)
	fmt.Printf("client_timeout: %s\n", settings.HTTPTimeout())
	fmt.Printf("sniff_timeout: %s\n", settings.SniffWindow())
	return 0
}

// consoleReporter logs coarse progress; per-chunk download events are kept at
// debug so normal runs stay quiet.
func consoleReporter(logger zerolog.Logger) progress.Reporter {
	return func(event models.ProgressEvent) {
		switch event.Phase {
		case models.PhaseResolving:
			logger.Info().Str("url", event.Item.SourceURL).Msg("Resolving")
		case models.PhaseDownloading:
			entry := logger.Debug().
				Str("title", event.Item.Title).
				Int64("bytes", event.BytesDone)
			if fraction := event.Fraction(); fraction >= 0 {
				entry = entry.Int("percent", int(fraction*100))
			}
			entry.Msg("Downloading")
		case models.PhaseConverting:
			logger.Info().Str("title", event.Item.Title).Msg("Converting")
		case models.PhaseDone:
			logger.Info().
				Str("title", event.Item.Title).
				Int64("bytes", event.BytesDone).
				Msg("Done")
		}
	}
}

func printSummary(report *pipeline.BatchReport) {
	for _, result := range report.Results {
		if result.Err != nil {
			fmt.Printf("%s: Failed (%s)\n", result.Task.SourceURL, result.Err)
			continue
		}
		for _, outcome := range result.Outcomes {
			switch outcome.Status {
			case models.OutcomeSuccess:
				fmt.Printf("%s: Success -> %s\n", outcome.Item.Title, outcome.FinalPath)
			case models.OutcomeSkipped:
				fmt.Printf("%s: Skipped (already exists at %s)\n", outcome.Item.Title, outcome.FinalPath)
			case models.OutcomeFailed:
				fmt.Printf("%s: Failed (%s)\n", outcome.Item.Title, outcome.Err)
			}
		}
	}
}
