package rates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yurifrl/caixa/pkg/models"
	"golang.org/x/text/encoding/charmap"
)

// DefaultBulletinURL is the PTAX endpoint serving every currency of one
// bulletin as semicolon separated text.
const DefaultBulletinURL = "https://ptax.bcb.gov.br/ptax_internet/consultaBoletim.do?method=gerarCSVTodasAsMoedas&id={id}"

// State is the part of the rate store a source needs to pick up where the
// previous run stopped.
type State interface {
	MaxBulletinID(ctx context.Context) (int64, error)
	LatestRateDate(ctx context.Context) (time.Time, bool, error)
}

// Source fetches bulletins addressed by integer units.
type Source interface {
	Name() string
	// Range returns the inclusive unit range not yet ingested, at most span
	// units long. Empty when from > to.
	Range(ctx context.Context, st State, span int64) (from, to int64, err error)
	// Fetch returns the rates of one unit or a *FetchError.
	Fetch(ctx context.Context, unit int64) ([]models.ExchangeRate, error)
}

// fetcher performs GETs with a per-request timeout.
type fetcher struct {
	client  *http.Client
	timeout time.Duration
}

func (f fetcher) get(ctx context.Context, rawURL string) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	client := f.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	// The central bank serves Latin-1 text.
	if !utf8.Valid(body) {
		if body, err = charmap.ISO8859_1.NewDecoder().Bytes(body); err != nil {
			return "", fmt.Errorf("decode body: %w", err)
		}
	}
	return string(body), nil
}

// BulletinSource fetches bulletins by sequential numeric id.
type BulletinSource struct {
	fetcher
	urlTemplate string
	startID     int64
}

// NewBulletinSource builds a source from a URL template containing {id}.
// startID is used when the store holds no bulletin yet.
func NewBulletinSource(client *http.Client, urlTemplate string, startID int64, timeout time.Duration) *BulletinSource {
	if urlTemplate == "" {
		urlTemplate = DefaultBulletinURL
	}
	if startID < 1 {
		startID = 1
	}
	return &BulletinSource{
		fetcher:     fetcher{client: client, timeout: timeout},
		urlTemplate: urlTemplate,
		startID:     startID,
	}
}

func (s *BulletinSource) Name() string { return "bulletin" }

func (s *BulletinSource) Range(ctx context.Context, st State, span int64) (int64, int64, error) {
	maxID, err := st.MaxBulletinID(ctx)
	if err != nil {
		return 0, 0, err
	}
	from := maxID + 1
	if maxID == 0 {
		from = s.startID
	}
	return from, from + span - 1, nil
}

func (s *BulletinSource) Fetch(ctx context.Context, id int64) ([]models.ExchangeRate, error) {
	u := strings.ReplaceAll(s.urlTemplate, "{id}", strconv.FormatInt(id, 10))
	body, err := s.get(ctx, u)
	if err != nil {
		return nil, &FetchError{Unit: id, Err: err}
	}
	return ParseBulletin(id, body)
}

// DailySource looks a bulletin up per calendar day: it fetches the lookup
// page for the day, resolves the first link matching linkPattern and
// follows it. Units are days since the Unix epoch.
type DailySource struct {
	fetcher
	lookupURL   string
	linkPattern *regexp.Regexp
	start       time.Time
	now         func() time.Time
}

// NewDailySource builds a source from a lookup URL template containing
// {date} (formatted yyyy-mm-dd). linkPattern's first capture group, or the
// whole match, is the bulletin link.
func NewDailySource(client *http.Client, lookupURL, linkPattern string, start time.Time, timeout time.Duration) (*DailySource, error) {
	re, err := regexp.Compile(linkPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid link pattern: %w", err)
	}
	if !strings.Contains(lookupURL, "{date}") {
		return nil, fmt.Errorf("lookup url %q has no {date} placeholder", lookupURL)
	}
	return &DailySource{
		fetcher:     fetcher{client: client, timeout: timeout},
		lookupURL:   lookupURL,
		linkPattern: re,
		start:       models.Day(start),
		now:         time.Now,
	}, nil
}

func (s *DailySource) Name() string { return "daily" }

// DayUnit converts a date into a DailySource unit.
func DayUnit(t time.Time) int64 {
	return models.Day(t).Unix() / 86400
}

// UnitDay converts a DailySource unit back into a date.
func UnitDay(unit int64) time.Time {
	return time.Unix(unit*86400, 0).UTC()
}

// Range spans from the day after the latest stored rate up to today.
func (s *DailySource) Range(ctx context.Context, st State, span int64) (int64, int64, error) {
	latest, ok, err := st.LatestRateDate(ctx)
	if err != nil {
		return 0, 0, err
	}
	from := DayUnit(s.start)
	if ok {
		from = DayUnit(latest) + 1
	}
	to := from + span - 1
	if today := DayUnit(s.now()); to > today {
		to = today
	}
	return from, to, nil
}

func (s *DailySource) Fetch(ctx context.Context, unit int64) ([]models.ExchangeRate, error) {
	day := UnitDay(unit)
	lookup := strings.ReplaceAll(s.lookupURL, "{date}", day.Format("2006-01-02"))
	page, err := s.get(ctx, lookup)
	if err != nil {
		return nil, &FetchError{Unit: unit, Err: fmt.Errorf("lookup %s: %w", day.Format("2006-01-02"), err)}
	}

	link, err := s.resolveLink(lookup, page)
	if err != nil {
		return nil, &FetchError{Unit: unit, Err: err}
	}
	body, err := s.get(ctx, link)
	if err != nil {
		return nil, &FetchError{Unit: unit, Err: err}
	}
	rates, err := ParseBulletin(unit, body)
	if err != nil {
		return nil, err
	}
	// Daily bulletins carry no id.
	for i := range rates {
		rates[i].BulletinID = 0
	}
	return rates, nil
}

func (s *DailySource) resolveLink(base, page string) (string, error) {
	m := s.linkPattern.FindStringSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("no bulletin link on lookup page")
	}
	href := m[0]
	if len(m) > 1 {
		href = m[1]
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse lookup url: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse bulletin link %q: %w", href, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
