package rates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurifrl/caixa/pkg/models"
	"github.com/yurifrl/caixa/pkg/store"
)

const sampleBulletin = `10072025;220;A;USD;5,5302;5,5308;1,0000;1,0000
10072025;978;B;EUR;6,4712;6,4738;1,1700;1,1702

`

func TestParseBulletin(t *testing.T) {
	rates, err := ParseBulletin(42, sampleBulletin)
	require.NoError(t, err)
	require.Len(t, rates, 2)

	assert.Equal(t, time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC), rates[0].Date)
	assert.Equal(t, "USD", rates[0].Currency)
	assert.True(t, rates[0].BuyingRate.Equal(decimal.RequireFromString("5.5302")))
	assert.True(t, rates[0].SellingRate.Equal(decimal.RequireFromString("5.5308")))
	assert.Equal(t, int64(42), rates[0].BulletinID)
	assert.Equal(t, "EUR", rates[1].Currency)
}

func TestParseBulletinFailures(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", "\n\n"},
		{"html error page", "<html>Not found</html>"},
		{"bad date", "1007;220;A;USD;5,53;5,54"},
		{"bad rate", "10072025;220;A;USD;abc;5,54"},
		{"one bad line fails the unit", "10072025;220;A;USD;5,53;5,54\n10072025;978;B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBulletin(7, tt.text)
			var fetchErr *FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, int64(7), fetchErr.Unit)
		})
	}
}

func TestBulletinSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "100" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, sampleBulletin)
	}))
	defer srv.Close()

	src := NewBulletinSource(srv.Client(), srv.URL+"/boletim?id={id}", 1, time.Second)

	rates, err := src.Fetch(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, rates, 2)

	_, err = src.Fetch(context.Background(), 101)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, int64(101), fetchErr.Unit)
}

func TestDailySourceFollowsLink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") != "2025-07-10" {
			fmt.Fprint(w, "<html>no bulletin today</html>")
			return
		}
		fmt.Fprint(w, `<html><a href="/download/20250710.csv">CSV</a></html>`)
	})
	mux.HandleFunc("/download/20250710.csv", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleBulletin)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src, err := NewDailySource(srv.Client(), srv.URL+"/lookup?date={date}", `href="([^"]+\.csv)"`,
		time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), time.Second)
	require.NoError(t, err)

	day := DayUnit(time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC))
	rates, err := src.Fetch(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Zero(t, rates[0].BulletinID)

	_, err = src.Fetch(context.Background(), day+1)
	var fetchErr *FetchError
	assert.ErrorAs(t, err, &fetchErr)
}

type fakeState struct {
	maxID  int64
	latest time.Time
}

func (f fakeState) MaxBulletinID(context.Context) (int64, error) { return f.maxID, nil }

func (f fakeState) LatestRateDate(context.Context) (time.Time, bool, error) {
	return f.latest, !f.latest.IsZero(), nil
}

func TestSourceRanges(t *testing.T) {
	ctx := context.Background()

	bulletin := NewBulletinSource(http.DefaultClient, "", 500, time.Second)
	from, to, err := bulletin.Range(ctx, fakeState{}, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(500), from)
	assert.Equal(t, int64(509), to)

	from, _, err = bulletin.Range(ctx, fakeState{maxID: 812}, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(813), from)

	daily, err := NewDailySource(http.DefaultClient, "http://x/{date}", ".+", time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), time.Second)
	require.NoError(t, err)
	daily.now = func() time.Time { return time.Date(2025, time.January, 20, 15, 0, 0, 0, time.UTC) }

	from, to, err = daily.Range(ctx, fakeState{latest: time.Date(2025, time.January, 9, 0, 0, 0, 0, time.UTC)}, 100)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC), UnitDay(from))
	assert.Equal(t, time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC), UnitDay(to))
}

func TestBreaker(t *testing.T) {
	fail := FetchOutcome{Err: errors.New("boom")}
	ok := FetchOutcome{Rates: []models.ExchangeRate{{Currency: "USD"}}}

	b := NewBreaker(3)
	assert.Equal(t, 0, b.Observe([]FetchOutcome{fail, fail}))
	assert.False(t, b.Tripped())

	// A batch with rows resets the count, failures included.
	assert.Equal(t, 1, b.Observe([]FetchOutcome{fail, ok}))
	assert.Equal(t, 0, b.Failures())

	b.Observe([]FetchOutcome{fail, fail, fail})
	assert.True(t, b.Tripped())
}

// scriptedSource succeeds for units in ok and fails for everything else.
type scriptedSource struct {
	from, to int64
	ok       func(unit int64) bool

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	mu          sync.Mutex
	fetched     []int64
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Range(context.Context, State, int64) (int64, int64, error) {
	return s.from, s.to, nil
}

func (s *scriptedSource) Fetch(_ context.Context, unit int64) ([]models.ExchangeRate, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxInFlight.Load()
		if n <= m || s.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	s.mu.Lock()
	s.fetched = append(s.fetched, unit)
	s.mu.Unlock()

	if !s.ok(unit) {
		return nil, &FetchError{Unit: unit, Err: errors.New("HTTP error 404")}
	}
	return []models.ExchangeRate{{
		Date:        time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(unit)),
		Currency:    "USD",
		BuyingRate:  decimal.RequireFromString("5.1"),
		SellingRate: decimal.RequireFromString("5.2"),
		BulletinID:  unit,
	}}, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.MemoryDSN, log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIngestorCircuitBreakerKeepsCommittedBatches(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	src := &scriptedSource{from: 1, to: 20, ok: func(u int64) bool { return u <= 4 }}

	in := NewIngestor(src, st, Config{BatchSize: 2, Concurrency: 2, FailureThreshold: 5, Span: 20}, log.New(io.Discard))
	report, err := in.Run(ctx)
	require.NoError(t, err)

	assert.True(t, report.Tripped)
	assert.Equal(t, 5, report.Batches)
	assert.Equal(t, 4, report.Fetched)
	assert.Equal(t, 6, report.Failed)
	assert.Equal(t, 4, report.Persisted)
	assert.NotEmpty(t, report.RunID)
	assert.Len(t, src.fetched, 10, "run must stop before the end of the range")

	rates, err := st.QueryRates(ctx, store.RateFilter{})
	require.NoError(t, err)
	assert.Len(t, rates, 4)

	maxID, err := st.MaxBulletinID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), maxID)
}

func TestIngestorSuccessfulBatchResetsBreaker(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	// One success per batch of three keeps the breaker from tripping even
	// though failures outnumber the threshold overall.
	src := &scriptedSource{from: 1, to: 12, ok: func(u int64) bool { return u%3 == 0 }}

	in := NewIngestor(src, st, Config{BatchSize: 3, Concurrency: 3, FailureThreshold: 3, Span: 12}, log.New(io.Discard))
	report, err := in.Run(ctx)
	require.NoError(t, err)

	assert.False(t, report.Tripped)
	assert.Equal(t, 4, report.Batches)
	assert.Equal(t, 8, report.Failed)
	assert.Equal(t, 4, report.Persisted)
}

func TestIngestorBoundsConcurrency(t *testing.T) {
	st := newTestStore(t)
	src := &scriptedSource{from: 1, to: 40, ok: func(int64) bool { return true }}

	in := NewIngestor(src, st, Config{BatchSize: 20, Concurrency: 4, FailureThreshold: 10, Span: 40}, log.New(io.Discard))
	report, err := in.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 40, report.Persisted)
	assert.LessOrEqual(t, src.maxInFlight.Load(), int64(4))
}

func TestIngestorCancelledContext(t *testing.T) {
	st := newTestStore(t)
	src := &scriptedSource{from: 1, to: 10, ok: func(int64) bool { return true }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := NewIngestor(src, st, DefaultConfig(), log.New(io.Discard))
	_, err := in.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	rates, err := st.QueryRates(context.Background(), store.RateFilter{})
	require.NoError(t, err)
	assert.Empty(t, rates)
}
