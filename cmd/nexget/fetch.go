package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nexget/pkg/config"
	"nexget/pkg/fetcher"
	"nexget/pkg/logger"
	"nexget/pkg/nexrad"
	"nexget/pkg/ui"
)

var (
	// Fetch command flags
	outputDir       string
	concurrent      int
	product         string
	downloadTimeout int
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [site] [year] [month] [day]",
	Short: "Download all archive files for a radar site and date",
	Long: `Download all NEXRAD Level-II archive files listed on the NCDC bulk-download
index page for a radar site and date.

Site is a four-letter radar identifier such as KHTX. Any of site, year, month
or day omitted from the arguments is asked for interactively.

Files are saved into a directory named after the site and date, for example
KHTX_2025_03_15, under the configured base directory.`,
	Example: `  # Download a full day of archives
  nexget fetch KHTX 2025 03 15

  # Prompt for the site and date interactively
  nexget fetch

  # Custom output directory and worker count
  nexget fetch KHTX 2025 03 15 --output ./radar-data --concurrent 20`,
	Args: cobra.MaximumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		runFetch(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base directory for downloads (default: current directory)")
	fetchCmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of concurrent downloads")
	fetchCmd.Flags().StringVar(&product, "product", "", "archive product code (default: AAL2)")
	fetchCmd.Flags().IntVar(&downloadTimeout, "download-timeout", 0, "download timeout in seconds")
}

func runFetch(cmd *cobra.Command, args []string) {
	// Build flags map from command line
	flags := make(map[string]interface{})
	if product != "" {
		flags["product"] = product
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if concurrent > 0 {
		flags["concurrent"] = concurrent
	}
	if downloadTimeout > 0 {
		flags["download-timeout"] = time.Duration(downloadTimeout) * time.Second
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	// Load configuration
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()

	query, err := queryFromArgs(args)
	if err != nil {
		ui.PrintError("Failed to read query", err.Error())
		os.Exit(1)
	}
	query = query.Normalize()
	if err := query.Validate(); err != nil {
		ui.PrintError("Invalid query", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Radar Site", query.Site)
	ui.PrintInfo("Date", fmt.Sprintf("%s-%s-%s", query.Year, query.Month, query.Day))

	log.WithField("version", version).Info("nexget starting")

	summary, err := fetcher.New(cfg, log).Run(query)
	if err != nil {
		log.WithError(err).Error("Fetch failed")
		ui.PrintError("FETCH FAILED", err.Error())
		os.Exit(1)
	}

	printSummary(summary)
}

// queryFromArgs builds the query from positional args, prompting for any
// missing parts
func queryFromArgs(args []string) (nexrad.Query, error) {
	var query nexrad.Query
	if len(args) > 0 {
		query.Site = args[0]
	}
	if len(args) > 1 {
		query.Year = args[1]
	}
	if len(args) > 2 {
		query.Month = args[2]
	}
	if len(args) > 3 {
		query.Day = args[3]
	}

	prompter := ui.NewPrompter()
	prompts := []struct {
		target *string
		text   string
	}{
		{&query.Site, "Enter radar site code (e.g. KHTX): "},
		{&query.Year, "Enter year (YYYY): "},
		{&query.Month, "Enter month (MM): "},
		{&query.Day, "Enter day (DD): "},
	}
	for _, p := range prompts {
		if *p.target != "" {
			continue
		}
		answer, err := prompter.Ask(p.text)
		if err != nil {
			return query, err
		}
		*p.target = answer
	}

	return query, nil
}

// printSummary reports the run outcome. A run with some failed downloads is
// still a completed run and exits 0.
func printSummary(summary *fetcher.Summary) {
	if summary.Attempted == 0 {
		ui.PrintWarning("No download links found for this site and date")
		return
	}

	fmt.Println()
	ui.PrintInfo("Files Downloaded", fmt.Sprintf("%d/%d", summary.Succeeded, summary.Attempted))
	if summary.Failed > 0 {
		ui.PrintWarning("Failed Downloads", summary.Failed)
	}
	ui.PrintInfo("Output Directory", summary.OutputDir)
	ui.PrintInfo("Elapsed", summary.Elapsed.Round(time.Millisecond).String())

	if summary.Failed == 0 {
		ui.PrintSuccess("[ALL DOWNLOADS COMPLETED]")
	}
}

// Make fetch the default command when no subcommand is specified
func init() {
	origRunE := rootCmd.RunE
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if origRunE != nil {
			return origRunE(cmd, args)
		}
		if len(args) > 0 && !isKnownCommand(args[0]) {
			// First argument is a radar site code, not a subcommand
			return fetchCmd.RunE(fetchCmd, args)
		}
		return cmd.Help()
	}

	rootCmd.Args = cobra.ArbitraryArgs
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}
