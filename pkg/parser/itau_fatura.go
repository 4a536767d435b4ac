package parser

import "strings"

func matchItauFaturaSheet(l *Layout) bool {
	return itauPreamble(l) && containsFold(l.cell(6, 0), "fatura")
}

// parseItauFaturaSheet reads credit card rows. Spend is listed as positive
// values and stored as debits; the payment line is not a transaction.
func (p *Parser) parseItauFaturaSheet(l *Layout, sink *Sink) {
	for i := itauDataOffset; i < len(l.Rows); i++ {
		date, description, amount := l.cell(i, 0), l.cell(i, 1), l.cell(i, 3)
		if date == "" || fold(date) == "data" || description == "" || amount == "" {
			continue
		}
		if isPaymentRow(description) {
			continue
		}
		parsed, err := parseSheetDate(date, "02/01/2006")
		if err != nil {
			sink.Skip(i, err)
			continue
		}
		sink.Add(i, sink.Entry(description).Date(parsed).Amount(amount).Debit())
	}
}

// matchItauFaturaCSV expects the header: data, lançamento, valor.
func matchItauFaturaCSV(l *Layout) bool {
	return l.width(0) == 3 &&
		fold(l.cell(0, 0)) == "data" &&
		fold(l.cell(0, 1)) == "lancamento" &&
		fold(l.cell(0, 2)) == "valor"
}

// parseItauFaturaCSV reads rows such as: 2025-06-27,IFD*55668457 GABRIEL A,113.98
func (p *Parser) parseItauFaturaCSV(l *Layout, sink *Sink) {
	for i := 1; i < len(l.Rows); i++ {
		description, amount := l.cell(i, 1), l.cell(i, 2)
		if amount == "" || isPaymentRow(description) {
			continue
		}
		sink.Add(i, sink.Entry(description).
			DateString("2006-01-02", l.cell(i, 0)).
			Amount(amount).
			Debit())
	}
}

func matchItauFaturaPDF(l *Layout) bool {
	return hasDueDateAnchor(l.Pages)
}

// parseItauFaturaPDF rebuilds rows from the page text with TokenMachine.
func (p *Parser) parseItauFaturaPDF(l *Layout, sink *Sink) {
	rows, skipped, err := ReconstructFatura(l.Pages)
	sink.skipped = append(sink.skipped, skipped...)
	if err != nil {
		sink.Skip(0, err)
		return
	}
	for i, r := range rows {
		sink.Add(i, sink.Entry(r.Description).Date(r.Date).Minor(r.Value))
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(fold(s), fold(substr))
}
