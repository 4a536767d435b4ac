package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
)

// itauPreamble checks the metadata block Itaú puts above every spreadsheet
// export: a title row, then Atualização / Nome / Agência / Conta.
func itauPreamble(l *Layout) bool {
	return l.width(0) == 1 &&
		fold(l.cell(1, 0)) == "atualizacao:" &&
		fold(l.cell(2, 0)) == "nome:" &&
		fold(l.cell(3, 0)) == "agencia:" &&
		fold(l.cell(4, 0)) == "conta:"
}

func matchItauExtratoSheet(l *Layout) bool {
	return itauPreamble(l) && fold(l.cell(6, 0)) == "lancamentos"
}

// parseItauExtratoSheet reads checking account rows: date, description,
// (unused), amount. Rows without an amount are balance lines.
func (p *Parser) parseItauExtratoSheet(l *Layout, sink *Sink) {
	for i := itauDataOffset; i < len(l.Rows); i++ {
		amount := l.cell(i, 3)
		if amount == "" {
			continue
		}
		date, err := parseSheetDate(l.cell(i, 0), "02/01/2006")
		if err != nil {
			sink.Skip(i, err)
			continue
		}
		sink.Add(i, sink.Entry(l.cell(i, 1)).Date(date).Amount(amount))
	}
}

// matchItauExtratoTXT recognizes the headerless export
// 17/03/2025;PIX TRANSF ID_A15/03;-2327,00
func matchItauExtratoTXT(l *Layout) bool {
	if l.width(0) != 3 {
		return false
	}
	_, err := time.Parse("02/01/2006", l.cell(0, 0))
	return err == nil
}

func (p *Parser) parseItauExtratoTXT(l *Layout, sink *Sink) {
	for i := range l.Rows {
		if l.width(i) < 3 {
			continue
		}
		sink.Add(i, sink.Entry(l.cell(i, 1)).
			DateString("02/01/2006", l.cell(i, 0)).
			Amount(l.cell(i, 2)))
	}
}

func matchBankOFX(l *Layout) bool {
	return l.OFX != nil && len(l.OFX.Bank) > 0
}

// parseBankOFX reads a bank statement response. Amounts keep their sign.
func (p *Parser) parseBankOFX(l *Layout, sink *Sink) {
	stmt, ok := l.OFX.Bank[0].(*ofxgo.StatementResponse)
	if !ok {
		sink.Skip(0, fmt.Errorf("unexpected OFX bank message %T", l.OFX.Bank[0]))
		return
	}
	if org := fold(l.OFX.Signon.Org.String()); org != "" && !strings.Contains(org, "itau") {
		sink.label = "Conta corrente - " + strings.TrimSpace(l.OFX.Signon.Org.String())
	}
	if stmt.BankTranList == nil {
		return
	}

	currency := stmt.CurDef.String()
	if currency == "" || currency == "XXX" {
		currency = sink.currency
	}

	for i, tx := range stmt.BankTranList.Transactions {
		description := tx.Memo.String()
		if strings.TrimSpace(description) == "" {
			description = tx.Name.String()
		}
		sink.Add(i, sink.Entry(description).
			Currency(currency).
			Date(tx.DtPosted.Time).
			Amount(tx.TrnAmt.FloatString(2)))
	}
}
