package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/caselist"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/compile"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/config"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/mcpserver"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/news"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/pdf"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/server"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "blockscraper",
	Short:   "Compile rebuttal blocks from the open caselist archive",
	Long:    "blockscraper downloads disclosed round documents from opencaselist.com, extracts the rebuttal answer blocks, and compiles them into printable aff/neg documents.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("blockscraper", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/blockscraper/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the caselist, your API token, and target teams.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache and run status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Caselist: %s\n\n", cfg.Caselist.Name)
		fmt.Println("Cache:")
		fmt.Printf("  Round listings: %d\n", stats.CachedListings)
		fmt.Printf("  Downloaded documents: %d\n", stats.Files)
		fmt.Println("\nRuns:")
		fmt.Printf("  Recorded: %d\n", stats.Runs)
		if stats.LastGenerated != "" {
			fmt.Printf("  Last generated: %s\n", stats.LastGenerated)
		}

		last, err := st.LastRun()
		if err != nil {
			return fmt.Errorf("loading last run: %w", err)
		}
		if last != nil {
			fmt.Printf("\nLast run [%d]: %s %s\n", last.ID, last.Mode, last.Targets)
			fmt.Printf("  %d files, %d blocks, %d arguments\n", last.Files, last.Blocks, last.Arguments)
			if last.AffPath != nil {
				fmt.Printf("  Aff: %s\n", *last.AffPath)
			}
			if last.NegPath != nil {
				fmt.Printf("  Neg: %s\n", *last.NegPath)
			}
			if last.PacketPath != nil {
				fmt.Printf("  Packet: %s\n", *last.PacketPath)
			}
		}
		return nil
	},
}

// --- scrape command ---

var (
	scrapeMode     string
	scrapeTeams    []string
	scrapeSchools  []string
	scrapeDays     int
	scrapeTopics   []string
	scrapeOut      string
	scrapeName     string
	scrapePDF      bool
	scrapeParallel int
	scrapeDryRun   bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Download round documents and compile rebuttal blocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		opts, err := scrapeOptions()
		if err != nil {
			return err
		}

		if sitewide(opts.Mode) && !confirmSitewide(opts.Mode) {
			return fmt.Errorf("aborted")
		}

		if scrapePDF && !pdf.Available() {
			fmt.Println("Note: no Chrome or Chromium on PATH; PDF printing will be skipped.")
		}

		comp := compile.New(newClient(st), st)
		ctx := context.Background()

		var result *compile.Result
		if scrapeDryRun {
			result = comp.DryRun(ctx, opts)
		} else {
			result = comp.Run(ctx, opts)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}
		if err := result.Err(); err != nil {
			return fmt.Errorf("scrape failed: %w", err)
		}

		if !scrapeDryRun {
			fmt.Println("\nCompiled documents:")
			fmt.Printf("  Aff: %s\n", result.AffPath)
			fmt.Printf("  Neg: %s\n", result.NegPath)
			if result.PacketPath != "" {
				fmt.Printf("  Packet: %s\n", result.PacketPath)
			}
			fmt.Println("\nRun 'blockscraper serve' to browse past runs.")
		}
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeMode, "mode", "", "Target mode: teams, school, recent, or topic (default from config)")
	scrapeCmd.Flags().StringArrayVar(&scrapeTeams, "team", nil, "Team as school,code (repeatable; overrides config)")
	scrapeCmd.Flags().StringArrayVar(&scrapeSchools, "school", nil, "School name (repeatable; overrides config)")
	scrapeCmd.Flags().IntVar(&scrapeDays, "days", 0, "Recent mode: only rounds disclosed in the last N days")
	scrapeCmd.Flags().StringArrayVar(&scrapeTopics, "topic", nil, "Keyword filter on round reports and file names (repeatable)")
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", "", "Output directory (default from config)")
	scrapeCmd.Flags().StringVar(&scrapeName, "name", "", "Output base name (default from config)")
	scrapeCmd.Flags().BoolVar(&scrapePDF, "pdf", false, "Also print PDF documents and a combined packet")
	scrapeCmd.Flags().IntVar(&scrapeParallel, "parallel", 0, "Parallel document extraction workers")
	scrapeCmd.Flags().BoolVar(&scrapeDryRun, "dry-run", false, "Resolve targets and report what would be fetched")
}

// scrapeOptions merges command-line flags over the configured targets.
// Flags win per field; an explicit --team or --school also switches the
// mode when none was given.
func scrapeOptions() (compile.Options, error) {
	t := cfg.Targets
	opts := compile.Options{
		Mode:     t.Mode,
		Teams:    t.Teams,
		Schools:  t.Schools,
		Days:     t.DaysRecent,
		Topics:   t.TopicKeywords,
		OutDir:   cfg.Output.Dir,
		Name:     cfg.OutputName(),
		PDF:      scrapePDF,
		Parallel: scrapeParallel,
	}

	if len(scrapeTeams) > 0 {
		teams, err := parseTeamRefs(scrapeTeams)
		if err != nil {
			return compile.Options{}, err
		}
		opts.Teams = teams
		if scrapeMode == "" {
			opts.Mode = caselist.ModeTeams
		}
	}
	if len(scrapeSchools) > 0 {
		opts.Schools = scrapeSchools
		if scrapeMode == "" {
			opts.Mode = caselist.ModeSchool
		}
	}
	if scrapeMode != "" {
		opts.Mode = scrapeMode
	}
	if scrapeDays > 0 {
		opts.Days = scrapeDays
	}
	if len(scrapeTopics) > 0 {
		opts.Topics = scrapeTopics
	}
	if scrapeOut != "" {
		opts.OutDir = scrapeOut
	}
	if scrapeName != "" {
		opts.Name = scrapeName
	}
	return opts, nil
}

func parseTeamRefs(specs []string) ([]caselist.TeamRef, error) {
	var refs []caselist.TeamRef
	for _, s := range specs {
		school, team, ok := strings.Cut(s, ",")
		if !ok {
			school, team, ok = strings.Cut(s, "/")
		}
		school = strings.TrimSpace(school)
		team = strings.TrimSpace(team)
		if !ok || school == "" || team == "" {
			return nil, fmt.Errorf("invalid --team %q: want school,code (e.g. Westwood,AB)", s)
		}
		refs = append(refs, caselist.TeamRef{School: school, Team: team})
	}
	return refs, nil
}

func sitewide(mode string) bool {
	return mode == caselist.ModeRecent || mode == caselist.ModeTopic
}

// confirmSitewide asks before walking every school on the caselist.
// Those scans make one request per team and take a while on a
// volunteer-run API.
func confirmSitewide(mode string) bool {
	fmt.Printf("Mode %q scans every school on %s. Continue? [y/N]: ", mode, cfg.Caselist.Name)

	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

// --- news command ---

var newsDays int

var newsCmd = &cobra.Command{
	Use:   "news [read <n>]",
	Short: "List community debate news, or read one entry",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		browser := newBrowser()
		ctx := context.Background()

		entries := browser.Entries(ctx, newsDays)
		if len(entries) == 0 {
			fmt.Printf("No entries in the last %d days.\n", newsDays)
			return nil
		}

		if len(args) == 0 {
			for i, e := range entries {
				fmt.Printf("[%d] %s\n", i+1, e.Title)
				fmt.Printf("      %s", e.Source)
				if e.PublishedDate != "" {
					fmt.Printf(" · %s", e.PublishedDate)
				}
				fmt.Println()
			}
			fmt.Println("\nRead one with: blockscraper news read <n>")
			return nil
		}

		if args[0] != "read" || len(args) != 2 {
			return fmt.Errorf("usage: blockscraper news [read <n>]")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 || n > len(entries) {
			return fmt.Errorf("entry number must be between 1 and %d", len(entries))
		}

		entry := entries[n-1]
		text, err := browser.Read(ctx, entry.URL)
		if err != nil {
			return fmt.Errorf("reading %s: %w", entry.URL, err)
		}

		fmt.Printf("%s\n%s", entry.Title, entry.Source)
		if entry.PublishedDate != "" {
			fmt.Printf(" · %s", entry.PublishedDate)
		}
		fmt.Printf("\n%s\n\n%s\n", entry.URL, text)
		return nil
	},
}

func init() {
	newsCmd.Flags().IntVar(&newsDays, "days", 14, "Only entries published in the last N days")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(st, newBrowser(), cfg.Output.Dir, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- mcp command ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve caselist tools over the Model Context Protocol (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		srv := mcpserver.New(newClient(st), st, version)
		log.Println("starting blockscraper MCP server over stdio")
		return srv.MCPServer.Run(context.Background(), &sdkmcp.StdioTransport{})
	},
}

func openStore() (*store.Store, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return store.Open(filepath.Join(dataDir, "blockscraper.db"))
}

func newClient(st *store.Store) *caselist.Client {
	return caselist.New(caselist.Options{
		BaseURL:  cfg.Caselist.BaseURL,
		Caselist: cfg.Caselist.Name,
		Token:    cfg.GetToken(),
		CacheDir: cfg.GetCacheDir(),
		TTL:      cfg.GetTTL(),
		Store:    st,
	})
}

func newBrowser() *news.Browser {
	feeds := make([]news.FeedConfig, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		feeds = append(feeds, news.FeedConfig{URL: f.URL, Name: f.Name})
	}
	return news.NewBrowser(feeds)
}
