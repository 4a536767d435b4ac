package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yurifrl/caixa/pkg/models"
)

// State is the position of the PDF token machine inside a statement row.
// Each state names the token the machine is waiting for.
type State int

const (
	SeekDate State = iota
	SeekDescription
	SeekAmount
)

func (s State) String() string {
	switch s {
	case SeekDate:
		return "seek_date"
	case SeekDescription:
		return "seek_description"
	case SeekAmount:
		return "seek_amount"
	default:
		return "unknown"
	}
}

const (
	dueDateAnchor  = "venc. da fatura"
	totalSentinel  = "total nacional do cartao"
	paymentMarker  = "pagamento efetuado"
	currencyMarker = "R$"
)

var (
	compactDateRe = regexp.MustCompile(`^(\d{1,2})/([a-z]{3})$`)
	fullDateRe    = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`)

	ptMonths = map[string]time.Month{
		"jan": time.January, "fev": time.February, "mar": time.March,
		"abr": time.April, "mai": time.May, "jun": time.June,
		"jul": time.July, "ago": time.August, "set": time.September,
		"out": time.October, "nov": time.November, "dez": time.December,
	}
)

// FaturaRow is one transaction reconstructed from a PDF token stream.
type FaturaRow struct {
	Date        time.Time
	Description string
	Value       int64
}

type pendingRow struct {
	day         int
	month       time.Month
	description string
}

// TokenMachine rebuilds statement rows from the flat text fragments of an
// Itaú credit card PDF. Feed tokens in page order and call Rows at the end.
type TokenMachine struct {
	state   State
	armed   bool
	year    int
	hasYear bool
	done    bool
	pending pendingRow
	rows    []pendingRow
	values  []int64
	skipped []error
}

// NewTokenMachine returns a machine waiting for the first row date.
func NewTokenMachine() *TokenMachine {
	return &TokenMachine{state: SeekDate}
}

// State reports the current state.
func (m *TokenMachine) State() State { return m.state }

// Done reports whether the trailing total was reached.
func (m *TokenMachine) Done() bool { return m.done }

// Feed consumes one token. It returns false once the trailing total has been
// seen and the remaining tokens must be ignored.
func (m *TokenMachine) Feed(token string) bool {
	if m.done {
		return false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return true
	}
	folded := fold(token)

	if strings.Contains(folded, totalSentinel) {
		m.done = true
		return false
	}
	if strings.Contains(folded, dueDateAnchor) {
		m.armed = true
		if match := fullDateRe.FindStringSubmatch(token); match != nil {
			m.setDueDate(match[1])
		}
		return true
	}
	if match := fullDateRe.FindStringSubmatch(token); match != nil && match[1] == token {
		if m.armed {
			m.setDueDate(token)
		}
		return true
	}
	if day, month, ok := compactDate(folded); ok {
		m.pending = pendingRow{day: day, month: month}
		m.state = SeekDescription
		return true
	}

	switch m.state {
	case SeekDescription:
		if strings.Contains(token, currencyMarker) {
			return true
		}
		m.pending.description = token
		m.state = SeekAmount
	case SeekAmount:
		if !strings.Contains(token, currencyMarker) {
			return true
		}
		minor, err := models.ParseAmount(token)
		if err != nil {
			m.skipped = append(m.skipped, &RowParseError{Row: len(m.rows) + len(m.skipped), Err: err})
		} else {
			m.rows = append(m.rows, m.pending)
			m.values = append(m.values, -minor)
		}
		m.pending = pendingRow{}
		m.state = SeekDate
	}
	return true
}

func (m *TokenMachine) setDueDate(s string) {
	due, err := time.Parse("02/01/2006", s)
	if err != nil {
		return
	}
	m.year = due.AddDate(0, -1, 0).Year()
	m.hasYear = true
	m.armed = false
}

// Rows returns the reconstructed rows, dated with the operative year taken
// from the due date. Payment rows are dropped.
func (m *TokenMachine) Rows() ([]FaturaRow, error) {
	if !m.hasYear {
		return nil, fmt.Errorf("due date not found")
	}
	out := make([]FaturaRow, 0, len(m.rows))
	for i, r := range m.rows {
		if fold(r.description) == paymentMarker {
			continue
		}
		out = append(out, FaturaRow{
			Date:        time.Date(m.year, r.month, r.day, 0, 0, 0, 0, time.UTC),
			Description: r.description,
			Value:       m.values[i],
		})
	}
	return out, nil
}

// Skipped returns the row errors collected while feeding tokens.
func (m *TokenMachine) Skipped() []error { return m.skipped }

// ReconstructFatura runs the token machine over pre-tokenized pages and
// stops at the trailing total.
func ReconstructFatura(pages [][]string) ([]FaturaRow, []error, error) {
	m := NewTokenMachine()
pages:
	for _, page := range pages {
		for _, token := range page {
			if !m.Feed(token) {
				break pages
			}
		}
	}
	rows, err := m.Rows()
	return rows, m.Skipped(), err
}

func compactDate(folded string) (int, time.Month, bool) {
	match := compactDateRe.FindStringSubmatch(folded)
	if match == nil {
		return 0, 0, false
	}
	month, ok := ptMonths[match[2]]
	if !ok {
		return 0, 0, false
	}
	day, err := strconv.Atoi(match[1])
	if err != nil || day < 1 || day > 31 {
		return 0, 0, false
	}
	return day, month, true
}

// hasDueDateAnchor is the structural fingerprint of the PDF fatura.
func hasDueDateAnchor(pages [][]string) bool {
	for _, page := range pages {
		for _, token := range page {
			if strings.Contains(fold(token), dueDateAnchor) {
				return true
			}
		}
	}
	return false
}
