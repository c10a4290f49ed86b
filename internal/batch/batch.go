// Package batch drives a sequential scrape over a list of URLs: one request
// per URL, results persisted as they arrive, a fixed pause between calls.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/social-cli/internal/cost"
	"github.com/sells-group/social-cli/internal/model"
	"github.com/sells-group/social-cli/internal/resilience"
	"github.com/sells-group/social-cli/pkg/firecrawl"
)

// ResultWriter persists one successful result and returns where it went.
type ResultWriter interface {
	Write(position int, url string, result firecrawl.Result) (string, error)
}

// Recorder receives run progress. Errors are logged, never fatal.
type Recorder interface {
	StartRun(ctx context.Context, rc model.RunContext, total int) error
	RecordFetch(ctx context.Context, outcome model.FetchOutcome) error
	FinishRun(ctx context.Context, runID string, status model.RunStatus, succeeded, failed int) error
}

// Options are the per-request settings shared by every URL in a batch.
type Options struct {
	Formats         []firecrawl.Format
	OnlyMainContent bool
	WaitForMs       int
	TimeoutMs       int
	Pause           time.Duration
}

// Summary tallies a finished (or interrupted) batch.
type Summary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Pauses    int
	Credits   int
	CostUSD   float64
	Outcomes  []model.FetchOutcome
}

// Processed is the number of URLs attempted.
func (s *Summary) Processed() int {
	return s.Succeeded + s.Failed
}

// Orchestrator runs batches.
type Orchestrator struct {
	client   firecrawl.Client
	writer   ResultWriter
	opts     Options
	pacer    Pacer
	recorder Recorder
	report   io.Writer
	calc     *cost.Calculator
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPacer replaces the timer-based pause between requests.
func WithPacer(p Pacer) Option {
	return func(o *Orchestrator) { o.pacer = p }
}

// WithRecorder attaches a run recorder such as the run store.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithReport sets where the per-URL [ok]/[error] lines go. Defaults to stdout.
func WithReport(w io.Writer) Option {
	return func(o *Orchestrator) { o.report = w }
}

// WithCalculator sets the pricing used for the end-of-run cost estimate.
func WithCalculator(c *cost.Calculator) Option {
	return func(o *Orchestrator) { o.calc = c }
}

// New creates an Orchestrator.
func New(client firecrawl.Client, writer ResultWriter, opts Options, options ...Option) *Orchestrator {
	if opts.Pause < 0 {
		opts.Pause = 0
	}
	o := &Orchestrator{
		client: client,
		writer: writer,
		opts:   opts,
		pacer:  TimerPacer{},
		report: os.Stdout,
		calc:   cost.NewCalculator(cost.DefaultRates()),
		now:    time.Now,
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Run fetches every URL in order. Per-URL failures are reported and counted
// but never returned; the only error is an interrupted context, in which case
// the partial summary is still returned.
func (o *Orchestrator) Run(ctx context.Context, rc model.RunContext, urls []string) (*Summary, error) {
	log := zap.L().With(zap.String("run_id", rc.RunID))
	sum := &Summary{RunID: rc.RunID, Total: len(urls)}

	log.Info("starting batch",
		zap.Int("urls", len(urls)),
		zap.Strings("formats", firecrawl.FormatNames(o.opts.Formats)),
		zap.String("out_dir", rc.BaseDir()),
		zap.Duration("pause", o.opts.Pause),
	)
	o.startRun(ctx, log, rc, len(urls))

	var runErr error
	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			runErr = eris.Wrap(err, "batch: interrupted")
			break
		}

		outcome := o.fetch(ctx, log, rc, i+1, url)
		sum.Outcomes = append(sum.Outcomes, outcome)
		if outcome.OK() {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
		o.recordFetch(ctx, log, outcome)

		if i == len(urls)-1 {
			break
		}
		sum.Pauses++
		if err := o.pacer.Pause(ctx, o.opts.Pause); err != nil {
			runErr = eris.Wrap(err, "batch: interrupted")
			break
		}
	}

	structured := false
	for _, f := range o.opts.Formats {
		if f.Structured() {
			structured = true
			break
		}
	}
	sum.Credits = o.calc.FirecrawlCredits(sum.Succeeded, structured)
	sum.CostUSD = o.calc.FirecrawlUSD(sum.Credits)

	status := model.RunStatusComplete
	if runErr != nil {
		status = model.RunStatusCancelled
		log.Warn("batch interrupted",
			zap.Int("processed", sum.Processed()),
			zap.Int("remaining", sum.Total-sum.Processed()),
		)
	}
	o.finishRun(ctx, log, rc.RunID, status, sum)

	log.Info("batch complete",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("est_credits", sum.Credits),
		zap.Float64("est_cost_usd", sum.CostUSD),
	)
	return sum, runErr
}

func (o *Orchestrator) fetch(ctx context.Context, log *zap.Logger, rc model.RunContext, position int, url string) model.FetchOutcome {
	log = log.With(zap.String("url", url), zap.Int("position", position))
	start := o.now()

	req := firecrawl.ScrapeRequest{
		URL:             url,
		Formats:         o.opts.Formats,
		OnlyMainContent: o.opts.OnlyMainContent,
		WaitFor:         o.opts.WaitForMs,
		Timeout:         o.opts.TimeoutMs,
	}

	callCtx, cancel := context.WithTimeout(ctx, firecrawl.CallTimeout(o.opts.TimeoutMs))
	result, err := o.client.Scrape(callCtx, req)
	cancel()

	var saved string
	if err == nil {
		saved, err = o.writer.Write(position, url, result)
	}

	outcome := model.FetchOutcome{
		RunID:     rc.RunID,
		Position:  position,
		URL:       url,
		Duration:  o.now().Sub(start),
		FetchedAt: start.UTC(),
	}

	if err != nil {
		outcome.Status = model.FetchStatusError
		outcome.Error = err.Error()
		outcome.ErrorType = resilience.ClassifyError(err)
		fmt.Fprintf(o.report, "[error] %s: %s\n", url, outcome.Error) //nolint:errcheck
		log.Error("fetch failed",
			zap.String("error_type", outcome.ErrorType),
			zap.Error(err),
		)
		return outcome
	}

	outcome.Status = model.FetchStatusOK
	outcome.SavedPath = saved
	fmt.Fprintf(o.report, "[ok] %s -> %s\n", url, saved) //nolint:errcheck
	log.Info("fetch complete",
		zap.String("saved", saved),
		zap.Duration("duration", outcome.Duration),
	)
	return outcome
}

// Recorder calls run detached from cancellation so an interrupted run is
// still closed out in the store.
func (o *Orchestrator) startRun(ctx context.Context, log *zap.Logger, rc model.RunContext, total int) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.StartRun(context.WithoutCancel(ctx), rc, total); err != nil {
		log.Warn("failed to record run start", zap.Error(err))
	}
}

func (o *Orchestrator) recordFetch(ctx context.Context, log *zap.Logger, outcome model.FetchOutcome) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordFetch(context.WithoutCancel(ctx), outcome); err != nil {
		log.Warn("failed to record fetch", zap.String("url", outcome.URL), zap.Error(err))
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, log *zap.Logger, runID string, status model.RunStatus, sum *Summary) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.FinishRun(context.WithoutCancel(ctx), runID, status, sum.Succeeded, sum.Failed); err != nil {
		log.Warn("failed to record run completion", zap.Error(err))
	}
}
