package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/awsmap/awsmap/pkg/cache"
	"github.com/awsmap/awsmap/pkg/cli_config"
	"github.com/awsmap/awsmap/pkg/collector"
	"github.com/awsmap/awsmap/pkg/config"
	"github.com/awsmap/awsmap/pkg/dataset"
	"github.com/awsmap/awsmap/pkg/filters"
	"github.com/awsmap/awsmap/pkg/logging"
	"github.com/awsmap/awsmap/pkg/multierr"
	"github.com/awsmap/awsmap/pkg/output"
	"github.com/awsmap/awsmap/pkg/retry"
	"github.com/awsmap/awsmap/pkg/rss"
	"github.com/awsmap/awsmap/pkg/session"
	"github.com/awsmap/awsmap/pkg/ssm"
)

type AwsmapMain struct {
	Version string
}

var cfg struct {
	verbose bool
	quiet   bool
	color   string
	version bool

	config  string
	outDir  string
	formats []string
	workers int
	retries int
	timeout string
	profile string
	region  string

	noCache    bool
	cacheHours float64
	cacheFile  string
	cacheStats bool
	clearCache bool

	noRSS            bool
	rssURL           string
	allowInsecureRSS bool

	includeRegions  []string
	excludeRegions  []string
	includeServices []string
	excludeServices []string
	minServices     int
}

var hadWarnings = atomic.NewBool(false)

func (am AwsmapMain) Main() {
	var root = &cobra.Command{
		Use:  "awsmap",
		Long: "Reports which AWS services are available in which regions, from the public Parameter Store global-infrastructure namespace.",
		RunE: am.run,
	}

	flags := root.Flags()

	flags.BoolVarP(&cfg.verbose, "verbose", "v", false, "Verbose logging")
	flags.BoolVar(&cfg.quiet, "quiet", false, "Suppress progress output and the run summary")
	flags.StringVar(&cfg.color, "color", "auto", "Colored output. Supports: auto, always, never")
	flags.BoolVar(&cfg.version, "version", false, "Print the version")

	flags.StringVarP(&cfg.config, "config", "c", "", "Config file (yaml, toml, or json by extension)")
	flags.StringVarP(&cfg.outDir, "out", "o", config.DefaultOutDir, "Output directory")
	flags.StringSliceVarP(&cfg.formats, "format", "f", []string{"csv"}, fmt.Sprintf("Report format, repeatable. Supports: %s", strings.Join(output.Formats(), ", ")))
	flags.IntVar(&cfg.workers, "workers", config.DefaultWorkers, "Maximum concurrent region fetches")
	flags.IntVar(&cfg.retries, "retries", config.DefaultRetries, "Attempts per API call before a region is marked failed")
	flags.StringVar(&cfg.timeout, "timeout", "", "Deadline for a fresh collection, eg 5m (default none)")
	flags.StringVar(&cfg.profile, "profile", "", "AWS shared config profile")
	flags.StringVar(&cfg.region, "region", config.DefaultRegion, "AWS region to call Parameter Store in")

	flags.BoolVar(&cfg.noCache, "no-cache", false, "Skip the cache entirely, reading and writing")
	flags.Float64Var(&cfg.cacheHours, "cache-hours", config.DefaultCacheHours, "Cache validity window in hours")
	flags.StringVar(&cfg.cacheFile, "cache-file", config.DefaultCacheFile, "Cache file path (relative paths land under the output directory)")
	flags.BoolVar(&cfg.cacheStats, "cache-stats", false, "Print cache diagnostics and exit")
	flags.BoolVar(&cfg.clearCache, "clear-cache", false, "Delete the cache file and exit")

	flags.BoolVar(&cfg.noRSS, "no-rss", false, "Skip the launch-date announcement feed")
	flags.StringVar(&cfg.rssURL, "rss-url", config.DefaultRSSURL, "Announcement feed URL")
	flags.BoolVar(&cfg.allowInsecureRSS, "allow-insecure-rss", false, "Permit a plain-http announcement feed URL")

	flags.StringArrayVar(&cfg.includeRegions, "include-region", nil, "Only report regions matching this glob (code or name), repeatable")
	flags.StringArrayVar(&cfg.excludeRegions, "exclude-region", nil, "Drop regions matching this glob, repeatable")
	flags.StringArrayVar(&cfg.includeServices, "include-service", nil, "Only report services matching this glob (code or name), repeatable")
	flags.StringArrayVar(&cfg.excludeServices, "exclude-service", nil, "Drop services matching this glob, repeatable")
	flags.IntVar(&cfg.minServices, "min-services", 0, "Drop regions offering fewer than this many services")

	_ = flags.MarkHidden("rss-url")

	err := root.Execute()
	if err != nil {
		if !root.SilenceErrors {
			zap.S().Errorf("%v", err)
		}
		zap.S().Error("awsmap run failed")
		os.Exit(1)
	}
}

func setupLogger() *zap.Logger {
	opts := logging.LogOpts{
		Verbose: cfg.verbose,
		Color:   cfg.color,
	}
	return opts.NewLogger().WithOptions(zap.Hooks(func(entry zapcore.Entry) error {
		if entry.Level >= zapcore.WarnLevel {
			hadWarnings.Store(true)
		}
		return nil
	}))
}

// readConfig builds the run configuration: file values (when --config is
// given) overridden by any flag the user set explicitly.
func readConfig(flags *pflag.FlagSet) (config.Application, error) {
	appCfg := config.Defaults()
	if cfg.config != "" {
		var err error
		appCfg, err = config.ReadConfig(cfg.config)
		if err != nil {
			return appCfg, errors.Wrapf(err, "could not read config '%s'", cfg.config)
		}
	}

	if flags.Changed("out") {
		appCfg.OutDir = cfg.outDir
	}
	if flags.Changed("format") {
		appCfg.Formats = cfg.formats
	}
	if flags.Changed("workers") {
		appCfg.Workers = cfg.workers
	}
	if flags.Changed("retries") {
		appCfg.Retries = cfg.retries
	}
	if flags.Changed("timeout") {
		appCfg.Timeout = cfg.timeout
	}
	if flags.Changed("profile") {
		appCfg.Profile = cfg.profile
	}
	if flags.Changed("region") {
		appCfg.Region = cfg.region
	}
	if flags.Changed("no-cache") {
		appCfg.Cache.Disabled = cfg.noCache
	}
	if flags.Changed("cache-hours") {
		appCfg.Cache.Hours = cfg.cacheHours
	}
	if flags.Changed("cache-file") {
		appCfg.Cache.File = cfg.cacheFile
	}
	if flags.Changed("no-rss") {
		appCfg.RSS.Disabled = cfg.noRSS
	}
	if flags.Changed("rss-url") {
		appCfg.RSS.URL = cfg.rssURL
	}
	if flags.Changed("allow-insecure-rss") {
		appCfg.RSS.AllowHTTP = cfg.allowInsecureRSS
	}
	if flags.Changed("include-region") {
		appCfg.Filters.IncludeRegions = cfg.includeRegions
	}
	if flags.Changed("exclude-region") {
		appCfg.Filters.ExcludeRegions = cfg.excludeRegions
	}
	if flags.Changed("include-service") {
		appCfg.Filters.IncludeServices = cfg.includeServices
	}
	if flags.Changed("exclude-service") {
		appCfg.Filters.ExcludeServices = cfg.excludeServices
	}
	if flags.Changed("min-services") {
		appCfg.Filters.MinServices = cfg.minServices
	}

	return appCfg, appCfg.Validate()
}

func (am AwsmapMain) run(cmd *cobra.Command, args []string) (err error) {
	// a .env in the working directory may carry AWS_* variables
	_ = godotenv.Load()

	if err := cli_config.CreateAwsmapConfigPath(); err != nil {
		zap.S().Warnf("failed to create .awsmap directory: %v", err)
	}

	z := setupLogger()
	defer z.Sync() // nolint:errcheck
	zap.ReplaceGlobals(z)

	errHandler := ErrorHandler{
		Verbose: cfg.verbose,
		PostPrintHook: func() {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
		},
	}

	if cfg.version {
		fmt.Printf("awsmap %s\n", am.Version)
		return nil
	}

	appCfg, err := readConfig(cmd.Flags())
	if err != nil {
		return err
	}

	store := cache.New(appCfg.CacheFilePath(), appCfg.Cache.Hours)

	if cfg.clearCache {
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Printf("cache cleared: %s\n", store.Path)
		return nil
	}
	if cfg.cacheStats {
		printCacheStats(store)
		return nil
	}

	ctx := context.Background()
	if timeout, _ := appCfg.TimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	awsCfg, err := session.Load(ctx, appCfg.Profile, appCfg.Region)
	if err != nil {
		errHandler.PrintErr(err)
		return err
	}

	opts := collector.Options{
		MaxWorkers: appCfg.Workers,
	}
	if !appCfg.Cache.Disabled {
		opts.Cache = store
	}
	if !appCfg.RSS.Disabled {
		opts.RSS = rss.NewClient(appCfg.RSS.URL, appCfg.RSS.AllowHTTP)
	}
	if !cfg.quiet {
		opts.ProgressWriter = os.Stderr
	}

	source := ssm.NewClient(awsCfg, retry.Default(appCfg.Retries))
	result, err := collector.New(source, opts).Collect(ctx)
	if err != nil {
		errHandler.PrintErr(err)
		return err
	}

	reported := filters.Apply(result.Dataset, filters.Options{
		IncludeRegions:  appCfg.Filters.IncludeRegions,
		ExcludeRegions:  appCfg.Filters.ExcludeRegions,
		IncludeServices: appCfg.Filters.IncludeServices,
		ExcludeServices: appCfg.Filters.ExcludeServices,
		MinServices:     appCfg.Filters.MinServices,
	})

	written, err := generateReports(appCfg, reported, result)
	if err != nil {
		errHandler.PrintErr(err)
		return err
	}

	if !cfg.quiet {
		printSummary(reported, result, written)
	}
	return nil
}

func generateReports(appCfg config.Application, reported *dataset.Dataset, result *collector.Result) ([]string, error) {
	meta := output.Metadata{
		CollectedAt: time.Now(),
		FromCache:   result.FromCache,
		Duration:    result.Duration.String(),
	}
	for _, f := range result.Failed {
		meta.FailedRegions = append(meta.FailedRegions, f.Region)
	}

	var written []string
	var merr multierr.Error
	for _, name := range dedupe(appCfg.Formats) {
		gen, err := output.Get(name)
		if err != nil {
			merr.Append(err)
			continue
		}
		paths, err := gen.Generate(appCfg.OutDir, reported, meta)
		if err != nil {
			merr.Append(errors.Wrapf(err, "generating %s report", name))
			continue
		}
		written = append(written, paths...)
	}
	return written, merr.ErrOrNil()
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func printCacheStats(store *cache.Cache) {
	stats := store.GetStats()
	fmt.Printf("cache file: %s\n", store.Path)
	switch {
	case !stats.Exists:
		fmt.Println("status: absent")
	case stats.Corrupt:
		color.Yellow("status: corrupt (will be refetched on next run)")
		fmt.Printf("size: %d bytes\n", stats.SizeBytes)
	default:
		if stats.Valid {
			color.Green("status: valid")
		} else {
			color.Yellow("status: expired")
		}
		fmt.Printf("collected: %s (%.1fh ago)\n", stats.CollectedAt.Format(time.RFC3339), stats.AgeHours)
		fmt.Printf("size: %d bytes\n", stats.SizeBytes)
		fmt.Printf("contents: %d regions, %d services, %d availability entries\n", stats.Regions, stats.Services, stats.Edges)
	}
}

func printSummary(d *dataset.Dataset, result *collector.Result, written []string) {
	src := "fresh collection"
	if result.FromCache {
		src = "cache"
	}
	fmt.Printf("\n%d regions, %d services, %d availability entries (%s, %s)\n",
		len(d.Regions), len(d.Services), d.Availability.Len(), src, result.Duration.Round(time.Millisecond))

	for _, f := range result.Failed {
		color.Yellow("warning: region %s has incomplete data: %v", f.Region, f.Err)
	}
	for _, path := range written {
		color.Green("wrote %s", path)
	}
	if hadWarnings.Load() {
		color.Yellow("completed with warnings")
	}
}
