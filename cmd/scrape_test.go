package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/social-cli/internal/config"
	"github.com/sells-group/social-cli/internal/model"
	"github.com/sells-group/social-cli/internal/store"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Firecrawl: config.FirecrawlConfig{Key: "fc-test", BaseURL: baseURL},
		Scrape: config.ScrapeConfig{
			OutDir:          config.DefaultOutDir,
			TimeoutMs:       30000,
			SleepSecs:       0.5,
			OnlyMainContent: true,
		},
		Store:   config.StoreConfig{Driver: "none"},
		Pricing: config.PricingConfig{Firecrawl: config.FirecrawlPricing{PlanMonthly: 19, CreditsIncluded: 3000}},
		Log:     config.LogConfig{Level: "info", Format: "console"},
	}
}

// fakeFirecrawl answers /scrape, failing for URLs containing "fail".
func fakeFirecrawl(t *testing.T, calls *atomic.Int32, bodies chan<- map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if bodies != nil {
			bodies <- body
		}

		url, _ := body["url"].(string)
		if strings.Contains(url, "fail") {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":"boom"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"# Café","links":["https://x.com/acme"]}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunScrape_EndToEnd(t *testing.T) {
	var calls atomic.Int32
	bodies := make(chan map[string]any, 3)
	srv := fakeFirecrawl(t, &calls, bodies)

	outDir := t.TempDir()
	var out bytes.Buffer
	err := runScrape(context.Background(), testConfig(srv.URL), scrapeSettings{
		Competitor:      "Acme Coaching",
		URLs:            []string{"https://www.instagram.com/acme/", "https://fail.example.com", "https://x.com/acme"},
		OutDir:          outDir,
		OnlyMainContent: true,
		TimeoutMs:       30000,
		SleepSecs:       0,
	}, &out)
	require.NoError(t, err, "per-URL failures must not fail the run")
	assert.EqualValues(t, 3, calls.Load())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "[ok] https://www.instagram.com/acme/ -> "))
	assert.True(t, strings.HasPrefix(lines[1], "[error] https://fail.example.com: firecrawl: HTTP 500"))
	assert.True(t, strings.HasPrefix(lines[2], "[ok] https://x.com/acme -> "))

	first := <-bodies
	assert.Equal(t, []any{"markdown", "links"}, first["formats"])
	assert.Equal(t, true, first["onlyMainContent"])
	assert.EqualValues(t, 30000, first["timeout"])

	base := filepath.Join(outDir, "acme-coaching")
	entries, err := os.ReadDir(filepath.Join(base, "raw"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].Name(), "_01_https-www-instagram-com-acme.json")
	assert.Contains(t, entries[1].Name(), "_03_https-x-com-acme.json")

	saved, err := os.ReadFile(filepath.Join(base, "raw", entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(saved), `# Caf\u00e9`)

	f, err := os.Open(filepath.Join(base, "sources.jsonl"))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	var recs []model.ManifestRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec model.ManifestRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		recs = append(recs, rec)
	}
	require.Len(t, recs, 2)
	assert.Equal(t, "https://www.instagram.com/acme/", recs[0].URL)
	assert.Equal(t, recs[0].Timestamp, recs[1].Timestamp)
}

func TestRunScrape_EmptyURLSet(t *testing.T) {
	var calls atomic.Int32
	srv := fakeFirecrawl(t, &calls, nil)
	outDir := filepath.Join(t.TempDir(), "out")

	err := runScrape(context.Background(), testConfig(srv.URL), scrapeSettings{
		URLs:   []string{"  ", ""},
		OutDir: outDir,
	}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, config.IsConfigurationError(err))
	assert.Zero(t, calls.Load())

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunScrape_MissingKey(t *testing.T) {
	var calls atomic.Int32
	srv := fakeFirecrawl(t, &calls, nil)
	c := testConfig(srv.URL)
	c.Firecrawl.Key = ""

	err := runScrape(context.Background(), c, scrapeSettings{
		URLs:   []string{"https://a.com"},
		OutDir: t.TempDir(),
	}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, config.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "FIRECRAWL_API_KEY")
	assert.Zero(t, calls.Load())
}

func TestRunScrape_URLCheckBeforeKey(t *testing.T) {
	c := testConfig("http://unused")
	c.Firecrawl.Key = ""

	err := runScrape(context.Background(), c, scrapeSettings{OutDir: t.TempDir()}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--urls or --file")
}

func TestRunScrape_MissingFile(t *testing.T) {
	err := runScrape(context.Background(), testConfig("http://unused"), scrapeSettings{
		File:   filepath.Join(t.TempDir(), "urls.txt"),
		OutDir: t.TempDir(),
	}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, config.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "URL file not found")
}

func TestRunScrape_BadSchema(t *testing.T) {
	schema := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(schema, []byte(`["not","an","object"]`), 0o644))

	err := runScrape(context.Background(), testConfig("http://unused"), scrapeSettings{
		URLs:        []string{"https://a.com"},
		IncludeJSON: true,
		Schema:      schema,
		OutDir:      t.TempDir(),
	}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, config.IsConfigurationError(err))
}

func TestRunScrape_DryRun(t *testing.T) {
	c := testConfig("http://unused")
	c.Firecrawl.Key = ""
	outDir := filepath.Join(t.TempDir(), "out")

	var out bytes.Buffer
	err := runScrape(context.Background(), c, scrapeSettings{
		URLs:            []string{"https://a.com", "https://b.com"},
		IncludeJSON:     true,
		FullContent:     true,
		OnlyMainContent: true,
		WaitForMs:       1000,
		TimeoutMs:       30000,
		OutDir:          outDir,
		DryRun:          true,
	}, &out)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "[dry-run] 01 https://a.com\n")
	assert.Contains(t, s, "[dry-run] 02 https://b.com\n")
	assert.Contains(t, s, `"onlyMainContent": false`)
	assert.Contains(t, s, `"waitFor": 1000`)
	assert.Contains(t, s, `"type": "json"`)

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "dry run must not write")
}

func TestRunScrape_NegativeBudgets(t *testing.T) {
	c := testConfig("http://unused")
	c.Scrape.TimeoutMs = -1
	c.Scrape.WaitForMs = -1

	f := pflag.NewFlagSet("scrape", pflag.ContinueOnError)
	registerScrapeFlags(f)
	require.NoError(t, f.Parse([]string{"--urls", "https://a.com", "--timeout", "5000", "--wait-for", "0", "--dry-run"}))

	var out bytes.Buffer
	require.NoError(t, runScrape(context.Background(), c, settingsFromFlags(f, c), &out),
		"flags override negative config values")
	assert.Contains(t, out.String(), `"timeout": 5000`)

	f = pflag.NewFlagSet("scrape", pflag.ContinueOnError)
	registerScrapeFlags(f)
	require.NoError(t, f.Parse([]string{"--urls", "https://a.com", "--dry-run"}))

	err := runScrape(context.Background(), c, settingsFromFlags(f, c), &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, config.IsConfigurationError(err))
}

func TestRunScrape_RecordsHistory(t *testing.T) {
	var calls atomic.Int32
	srv := fakeFirecrawl(t, &calls, nil)
	c := testConfig(srv.URL)
	c.Store.Driver = "sqlite"
	outDir := t.TempDir()

	err := runScrape(context.Background(), c, scrapeSettings{
		Competitor: "Acme",
		URLs:       []string{"https://a.com", "https://fail.com"},
		OutDir:     outDir,
		TimeoutMs:  30000,
	}, &bytes.Buffer{})
	require.NoError(t, err)

	st, err := store.NewSQLite(filepath.Join(outDir, store.DefaultSQLiteFile))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	runs, err := st.ListRuns(context.Background(), store.RunFilter{CompetitorSlug: "acme"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	assert.Equal(t, 2, runs[0].Total)
	assert.Equal(t, 1, runs[0].Succeeded)
	assert.Equal(t, 1, runs[0].Failed)

	fetches, err := st.ListFetches(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, fetches, 2)
	assert.Equal(t, "transient", fetches[1].ErrorType)
}

func TestRunScrape_Cancelled(t *testing.T) {
	var calls atomic.Int32
	srv := fakeFirecrawl(t, &calls, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runScrape(ctx, testConfig(srv.URL), scrapeSettings{
		URLs:   []string{"https://a.com"},
		OutDir: t.TempDir(),
	}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestSettingsFromFlags(t *testing.T) {
	c := testConfig("")
	c.Scrape.Formats = "markdown"
	c.Scrape.SleepSecs = 2

	t.Run("config values when flags unset", func(t *testing.T) {
		f := pflag.NewFlagSet("scrape", pflag.ContinueOnError)
		registerScrapeFlags(f)
		require.NoError(t, f.Parse([]string{"--urls", "https://a.com", "--urls", "https://b.com"}))

		s := settingsFromFlags(f, c)
		assert.Equal(t, []string{"https://a.com", "https://b.com"}, s.URLs)
		assert.Equal(t, "markdown", s.Formats)
		assert.InDelta(t, 2.0, s.SleepSecs, 1e-9)
		assert.Equal(t, 30000, s.TimeoutMs)
		assert.True(t, s.OnlyMainContent)
		assert.Equal(t, config.DefaultOutDir, s.OutDir)
	})

	t.Run("url containing commas stays whole", func(t *testing.T) {
		f := pflag.NewFlagSet("scrape", pflag.ContinueOnError)
		registerScrapeFlags(f)
		u := "https://www.linkedin.com/company/acme/posts/?filters=a,b"
		require.NoError(t, f.Parse([]string{"--urls", u, "--urls", "https://x.com/acme"}))

		s := settingsFromFlags(f, c)
		assert.Equal(t, []string{u, "https://x.com/acme"}, s.URLs)
	})

	t.Run("flags override config", func(t *testing.T) {
		f := pflag.NewFlagSet("scrape", pflag.ContinueOnError)
		registerScrapeFlags(f)
		require.NoError(t, f.Parse([]string{
			"--urls", "https://a.com", "--urls", "https://b.com",
			"--competitor", "Acme", "--formats", "html", "--sleep", "0",
			"--timeout", "5000", "--wait-for", "250", "--only-main-content=false",
			"--out-dir", "/tmp/out", "--include-json", "--full-content", "--dry-run",
		}))

		s := settingsFromFlags(f, c)
		assert.Equal(t, []string{"https://a.com", "https://b.com"}, s.URLs)
		assert.Equal(t, "Acme", s.Competitor)
		assert.Equal(t, "html", s.Formats)
		assert.Zero(t, s.SleepSecs)
		assert.Equal(t, 5000, s.TimeoutMs)
		assert.Equal(t, 250, s.WaitForMs)
		assert.False(t, s.OnlyMainContent)
		assert.Equal(t, "/tmp/out", s.OutDir)
		assert.True(t, s.IncludeJSON)
		assert.True(t, s.FullContent)
		assert.True(t, s.DryRun)
	})
}
