package parser

// Wise exports carry one currency per row. Columns used:
// 1 date, 3 amount, 4 currency, 5 description.

func matchWise(l *Layout) bool {
	return l.width(0) == wiseColumns
}

// parseWiseSheet reads workbook exports, where the date cell is usually an
// Excel serial number.
func (p *Parser) parseWiseSheet(l *Layout, sink *Sink) {
	p.parseWise(l, sink, "02-01-2006", "02/01/2006", "2006-01-02")
}

func (p *Parser) parseWiseCSV(l *Layout, sink *Sink) {
	p.parseWise(l, sink, "02-01-2006")
}

// parseWise skips rows with malformed dates without aborting the file.
func (p *Parser) parseWise(l *Layout, sink *Sink, layouts ...string) {
	for i := 1; i < len(l.Rows); i++ {
		if l.width(i) == 0 {
			continue
		}
		date, err := parseSheetDate(l.cell(i, 1), layouts...)
		if err != nil {
			sink.Skip(i, err)
			continue
		}
		sink.Add(i, sink.Entry(l.cell(i, 5)).
			Currency(l.cell(i, 4)).
			Date(date).
			Amount(l.cell(i, 3)))
	}
}
