package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/social-cli/internal/batch"
	"github.com/sells-group/social-cli/internal/collect"
	"github.com/sells-group/social-cli/internal/config"
	"github.com/sells-group/social-cli/internal/cost"
	"github.com/sells-group/social-cli/internal/formats"
	"github.com/sells-group/social-cli/internal/model"
	"github.com/sells-group/social-cli/internal/output"
	"github.com/sells-group/social-cli/internal/store"
	"github.com/sells-group/social-cli/pkg/firecrawl"
)

// scrapeSettings is the effective configuration of one scrape invocation:
// config values overridden by any flag the user set.
type scrapeSettings struct {
	Competitor      string
	URLs            []string
	File            string
	OutDir          string
	Formats         string
	IncludeJSON     bool
	Schema          string
	OnlyMainContent bool
	FullContent     bool
	WaitForMs       int
	TimeoutMs       int
	SleepSecs       float64
	DryRun          bool
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape competitor social URLs via Firecrawl",
	Long: "Fetches each URL once through the Firecrawl scrape endpoint, writes the response to " +
		"<out-dir>/<competitor>/raw/ and appends a line to sources.jsonl. Failed URLs are reported and skipped.",
	Example: `  social-cli scrape --competitor "Acme Coaching" --urls https://www.instagram.com/acme/
  social-cli scrape --file urls.txt --include-json --schema schema.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runScrape(ctx, cfg, settingsFromFlags(cmd.Flags(), cfg), cmd.OutOrStdout())
	},
}

func init() {
	registerScrapeFlags(scrapeCmd.Flags())
	rootCmd.AddCommand(scrapeCmd)
}

func registerScrapeFlags(f *pflag.FlagSet) {
	f.String("competitor", "", "competitor name; output is namespaced under its slug")
	f.StringArray("urls", nil, "URL to scrape (repeatable; each value is taken whole)")
	f.String("file", "", "file with URLs (.txt one per line, .csv, or .xlsx)")
	f.String("out-dir", config.DefaultOutDir, "base output directory")
	f.String("formats", "", "comma separated Firecrawl formats (default markdown,links)")
	f.Bool("include-json", false, "add structured JSON extraction")
	f.String("schema", "", "JSON or YAML schema for --include-json (default built-in social schema)")
	f.Bool("only-main-content", true, "ask Firecrawl for the main content only")
	f.Bool("full-content", false, "return the full page (overrides --only-main-content)")
	f.Int("wait-for", 0, "milliseconds to wait for the page before scraping")
	f.Int("timeout", 30000, "scrape timeout in milliseconds")
	f.Float64("sleep", 0.5, "seconds to pause between URLs")
	f.Bool("dry-run", false, "print the resolved request payloads without calling Firecrawl or writing files")
}

// settingsFromFlags starts from the scrape section of the config and applies
// every flag that was set explicitly.
func settingsFromFlags(f *pflag.FlagSet, c *config.Config) scrapeSettings {
	s := scrapeSettings{
		OutDir:          c.Scrape.OutDir,
		Formats:         c.Scrape.Formats,
		OnlyMainContent: c.Scrape.OnlyMainContent,
		WaitForMs:       c.Scrape.WaitForMs,
		TimeoutMs:       c.Scrape.TimeoutMs,
		SleepSecs:       c.Scrape.SleepSecs,
	}

	s.Competitor, _ = f.GetString("competitor")
	s.URLs, _ = f.GetStringArray("urls")
	s.File, _ = f.GetString("file")
	s.IncludeJSON, _ = f.GetBool("include-json")
	s.Schema, _ = f.GetString("schema")
	s.FullContent, _ = f.GetBool("full-content")
	s.DryRun, _ = f.GetBool("dry-run")

	if f.Changed("out-dir") || s.OutDir == "" {
		s.OutDir, _ = f.GetString("out-dir")
	}
	if f.Changed("formats") {
		s.Formats, _ = f.GetString("formats")
	}
	if f.Changed("only-main-content") {
		s.OnlyMainContent, _ = f.GetBool("only-main-content")
	}
	if f.Changed("wait-for") {
		s.WaitForMs, _ = f.GetInt("wait-for")
	}
	if f.Changed("timeout") {
		s.TimeoutMs, _ = f.GetInt("timeout")
	}
	if f.Changed("sleep") {
		s.SleepSecs, _ = f.GetFloat64("sleep")
	}
	return s
}

// runScrape resolves URLs and formats, then runs the batch. Configuration
// problems are returned before any request is made; per-URL failures are
// only reported.
func runScrape(ctx context.Context, c *config.Config, s scrapeSettings, out io.Writer) error {
	urls, err := collect.Collect(s.URLs, s.File)
	if err != nil {
		return err
	}

	if s.DryRun {
		err = c.Validate("dry-run")
	} else {
		err = c.Validate("scrape")
	}
	if err != nil {
		return err
	}
	if s.WaitForMs < 0 || s.TimeoutMs < 0 {
		return config.Errorf("--wait-for and --timeout must not be negative")
	}

	fmts, err := formats.Build(formats.Options{
		Formats:     s.Formats,
		IncludeJSON: s.IncludeJSON,
		SchemaPath:  s.Schema,
	})
	if err != nil {
		return err
	}

	opts := batch.Options{
		Formats:         fmts,
		OnlyMainContent: formats.ResolveOnlyMainContent(s.OnlyMainContent, s.FullContent),
		WaitForMs:       s.WaitForMs,
		TimeoutMs:       s.TimeoutMs,
		Pause:           batch.SleepDuration(s.SleepSecs),
	}

	if s.DryRun {
		return printDryRun(out, urls, opts)
	}

	rc := model.NewRunContext(s.OutDir, s.Competitor, time.Now())
	client := firecrawl.NewClient(c.Firecrawl.Key, firecrawl.WithBaseURL(c.Firecrawl.BaseURL))

	options := []batch.Option{
		batch.WithReport(out),
		batch.WithCalculator(cost.NewCalculator(cost.Rates{
			Firecrawl: cost.FirecrawlRate(c.Pricing.Firecrawl),
		})),
	}

	st, err := openStore(ctx, c.Store, s.OutDir)
	if err != nil {
		zap.L().Warn("run history disabled", zap.Error(err))
	}
	if st != nil {
		defer st.Close() //nolint:errcheck
		options = append(options, batch.WithRecorder(&store.Adapter{Store: st}))
	}

	orch := batch.New(client, output.NewWriter(rc), opts, options...)
	if _, err := orch.Run(ctx, rc, urls); err != nil {
		return eris.Wrap(err, "scrape")
	}
	return nil
}

// printDryRun writes the request body each URL would be sent with.
func printDryRun(out io.Writer, urls []string, opts batch.Options) error {
	for i, u := range urls {
		req := firecrawl.ScrapeRequest{
			URL:             u,
			Formats:         opts.Formats,
			OnlyMainContent: opts.OnlyMainContent,
			WaitFor:         opts.WaitForMs,
			Timeout:         opts.TimeoutMs,
		}
		body, err := output.MarshalASCII(req, "  ")
		if err != nil {
			return eris.Wrapf(err, "dry-run: encode request for %s", u)
		}
		if _, err := fmt.Fprintf(out, "[dry-run] %02d %s\n%s", i+1, u, body); err != nil {
			return eris.Wrap(err, "dry-run: write")
		}
	}
	return nil
}
