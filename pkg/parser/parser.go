package parser

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/caixa/pkg/models"
)

// Statement is the outcome of parsing one uploaded file.
type Statement struct {
	// Type is the label of the variant that recognized the file; empty when
	// nothing matched.
	Type    string
	Entries []models.Entry
	Skipped []error
}

// Variant describes one structurally distinct statement encoding. Variants
// are tried in registration order and the first match wins.
type Variant struct {
	Name    string
	Label   string
	Family  Family
	Matches func(*Layout) bool
	Parse   func(*Parser, *Layout, *Sink)
}

type Parser struct {
	logger       *log.Logger
	baseCurrency string
	strict       bool
	pdfPassword  string
	variants     []Variant
}

type Option func(*Parser)

// WithBaseCurrency sets the currency used by single-currency statements.
func WithBaseCurrency(code string) Option {
	return func(p *Parser) { p.baseCurrency = code }
}

// WithStrictLayout makes unrecognized layouts an error instead of an empty
// statement.
func WithStrictLayout(strict bool) Option {
	return func(p *Parser) { p.strict = strict }
}

// WithPDFPassword sets the password tried on encrypted PDF statements.
func WithPDFPassword(password string) Option {
	return func(p *Parser) { p.pdfPassword = password }
}

func New(logger *log.Logger, opts ...Option) *Parser {
	p := &Parser{
		logger:       logger,
		baseCurrency: "BRL",
		variants:     defaultVariants(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register appends a variant with the lowest priority.
func (p *Parser) Register(v Variant) {
	p.variants = append(p.variants, v)
}

// Variants lists the registered variants in priority order.
func (p *Parser) Variants() []Variant {
	out := make([]Variant, len(p.variants))
	copy(out, p.variants)
	return out
}

// Detect returns the first variant of the layout's family whose fingerprint
// matches.
func (p *Parser) Detect(l *Layout) (Variant, bool) {
	for _, v := range p.variants {
		if v.Family == l.Family && v.Matches(l) {
			return v, true
		}
	}
	return Variant{}, false
}

// ProcessBytes decodes data according to the filename extension, detects the
// statement variant and parses its rows.
func (p *Parser) ProcessBytes(data []byte, filename string) (*Statement, error) {
	layout, err := p.decode(data, filename)
	if err != nil {
		return nil, err
	}
	return p.ProcessLayout(layout, filename)
}

// ProcessLayout parses an already decoded layout.
func (p *Parser) ProcessLayout(layout *Layout, filename string) (*Statement, error) {
	variant, ok := p.Detect(layout)
	if !ok {
		p.logger.Warn("no statement variant matched", "filename", filename, "family", layout.Family)
		if p.strict {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognizedLayout, filename)
		}
		return &Statement{}, nil
	}
	p.logger.Debug("detected statement variant", "variant", variant.Name, "filename", filename)

	sink := &Sink{label: variant.Label, currency: p.baseCurrency}
	variant.Parse(p, layout, sink)

	for _, err := range sink.skipped {
		p.logger.Debug("skipping row", "variant", variant.Name, "err", err)
	}
	p.logger.Info("statement parsed", "variant", variant.Name, "entries", len(sink.entries), "skipped", len(sink.skipped))

	return &Statement{
		Type:    variant.Label,
		Entries: sink.entries,
		Skipped: sink.skipped,
	}, nil
}

// Sink collects the rows produced by a variant.
type Sink struct {
	label    string
	currency string
	entries  []models.Entry
	skipped  []error
}

// Entry starts a builder in the statement's base currency.
func (s *Sink) Entry(description string) *models.EntryBuilder {
	return models.NewEntry(description).Currency(s.currency)
}

// Add finishes b with the variant source and records it, or records the
// build error as a skipped row.
func (s *Sink) Add(row int, b *models.EntryBuilder) {
	entry, err := b.Source(s.label).Build()
	if err != nil {
		s.Skip(row, err)
		return
	}
	s.entries = append(s.entries, entry)
}

func (s *Sink) Skip(row int, err error) {
	s.skipped = append(s.skipped, &RowParseError{Row: row, Err: err})
}
