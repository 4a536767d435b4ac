package rates

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/yurifrl/caixa/pkg/models"
	"golang.org/x/sync/semaphore"
)

// Store is what the ingestor needs from persistence.
type Store interface {
	State
	UpsertRates(ctx context.Context, rates []models.ExchangeRate) (int, error)
}

type Config struct {
	// BatchSize is the number of units fetched before persisting.
	BatchSize int
	// Concurrency bounds in-flight fetches within a batch.
	Concurrency int
	// FailureThreshold stops the run after this many failed fetches with no
	// successful batch in between.
	FailureThreshold int
	// Span is the maximum number of units one run covers.
	Span int64
}

func DefaultConfig() Config {
	return Config{
		BatchSize:        1000,
		Concurrency:      16,
		FailureThreshold: 100,
		Span:             10000,
	}
}

// FetchOutcome is the result of fetching one unit: rates on success, Err on
// failure.
type FetchOutcome struct {
	Unit  int64
	Rates []models.ExchangeRate
	Err   error
}

// Report summarizes one ingestion run.
type Report struct {
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	From      int64     `json:"from"`
	To        int64     `json:"to"`
	Batches   int       `json:"batches"`
	Fetched   int       `json:"fetched"`
	Failed    int       `json:"failed"`
	Persisted int       `json:"persisted"`
	Tripped   bool      `json:"tripped"`
	Started   time.Time `json:"started"`
	Duration  string    `json:"duration"`
}

type Ingestor struct {
	source Source
	store  Store
	cfg    Config
	logger *log.Logger
}

func NewIngestor(source Source, store Store, cfg Config, logger *log.Logger) *Ingestor {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Span <= 0 {
		cfg.Span = def.Span
	}
	return &Ingestor{source: source, store: store, cfg: cfg, logger: logger}
}

// Run ingests the next range of units. Batches are persisted atomically and
// independently; a cancelled context stops the run between batches and the
// batches already committed are kept.
func (in *Ingestor) Run(ctx context.Context) (*Report, error) {
	from, to, err := in.source.Range(ctx, in.store, in.cfg.Span)
	if err != nil {
		return nil, fmt.Errorf("compute ingestion range: %w", err)
	}

	report := &Report{
		RunID:   uuid.NewString(),
		Source:  in.source.Name(),
		From:    from,
		To:      to,
		Started: time.Now(),
	}
	logger := in.logger.With("run", report.RunID, "source", report.Source)
	logger.Info("rate ingestion started", "from", from, "to", to)

	breaker := NewBreaker(in.cfg.FailureThreshold)
	for start := from; start <= to; start += int64(in.cfg.BatchSize) {
		end := min(start+int64(in.cfg.BatchSize)-1, to)

		outcomes := in.fetchBatch(ctx, start, end)
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(report.Started).String()
			return report, fmt.Errorf("rate ingestion interrupted at unit %d: %w", start, err)
		}
		report.Batches++

		var batch []models.ExchangeRate
		for _, o := range outcomes {
			if o.Err != nil {
				report.Failed++
				logger.Debug("fetch failed", "unit", o.Unit, "err", o.Err)
				continue
			}
			report.Fetched++
			batch = append(batch, o.Rates...)
		}

		if breaker.Observe(outcomes) > 0 {
			n, err := in.store.UpsertRates(ctx, batch)
			if err != nil {
				report.Duration = time.Since(report.Started).String()
				return report, fmt.Errorf("persist batch %d-%d: %w", start, end, err)
			}
			report.Persisted += n
		}
		logger.Debug("batch done", "from", start, "to", end, "rows", len(batch), "failures", breaker.Failures())

		if breaker.Tripped() {
			report.Tripped = true
			logger.Warn("too many consecutive fetch failures, stopping early", "failures", breaker.Failures(), "unit", end)
			break
		}
	}

	report.Duration = time.Since(report.Started).String()
	logger.Info("rate ingestion finished",
		"batches", report.Batches,
		"fetched", report.Fetched,
		"failed", report.Failed,
		"persisted", report.Persisted,
		"tripped", report.Tripped,
	)
	return report, nil
}

// fetchBatch fetches units [start, end] with bounded concurrency and waits
// for every outcome. A failed fetch never cancels its siblings.
func (in *Ingestor) fetchBatch(ctx context.Context, start, end int64) []FetchOutcome {
	outcomes := make([]FetchOutcome, end-start+1)
	sem := semaphore.NewWeighted(int64(in.cfg.Concurrency))
	var wg sync.WaitGroup

	for unit := start; unit <= end; unit++ {
		i := unit - start
		outcomes[i].Unit = unit

		if err := sem.Acquire(ctx, 1); err != nil {
			outcomes[i].Err = &FetchError{Unit: unit, Err: err}
			continue
		}
		wg.Add(1)
		go func(o *FetchOutcome) {
			defer wg.Done()
			defer sem.Release(1)
			o.Rates, o.Err = in.source.Fetch(ctx, o.Unit)
		}(&outcomes[i])
	}

	wg.Wait()
	return outcomes
}
