package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Source labels written on every entry of a variant. Variants that encode the
// same product share a label so re-uploads in another format still dedup.
const (
	LabelItauChecking = "Conta corrente - Itaú"
	LabelItauCard     = "Cartão de crédito - Itaú"
	LabelWise         = "Conta corrente - Wise"
)

// itauDataOffset is the first data row of Itaú spreadsheet exports.
const itauDataOffset = 9

// wiseColumns is the header width of Wise statement exports.
const wiseColumns = 21

func defaultVariants() []Variant {
	return []Variant{
		{Name: "itau_extrato_sheet", Label: LabelItauChecking, Family: FamilySheet, Matches: matchItauExtratoSheet, Parse: (*Parser).parseItauExtratoSheet},
		{Name: "itau_fatura_sheet", Label: LabelItauCard, Family: FamilySheet, Matches: matchItauFaturaSheet, Parse: (*Parser).parseItauFaturaSheet},
		{Name: "wise_sheet", Label: LabelWise, Family: FamilySheet, Matches: matchWise, Parse: (*Parser).parseWiseSheet},
		{Name: "itau_fatura_csv", Label: LabelItauCard, Family: FamilyText, Matches: matchItauFaturaCSV, Parse: (*Parser).parseItauFaturaCSV},
		{Name: "wise_csv", Label: LabelWise, Family: FamilyText, Matches: matchWise, Parse: (*Parser).parseWiseCSV},
		{Name: "itau_extrato_txt", Label: LabelItauChecking, Family: FamilyText, Matches: matchItauExtratoTXT, Parse: (*Parser).parseItauExtratoTXT},
		{Name: "itau_extrato_ofx", Label: LabelItauChecking, Family: FamilyOFX, Matches: matchBankOFX, Parse: (*Parser).parseBankOFX},
		{Name: "itau_fatura_pdf", Label: LabelItauCard, Family: FamilyPDF, Matches: matchItauFaturaPDF, Parse: (*Parser).parseItauFaturaPDF},
	}
}

// isPaymentRow reports whether description is the statement-balancing
// payment line of a credit card bill.
func isPaymentRow(description string) bool {
	return fold(description) == paymentMarker
}

// parseSheetDate accepts the textual layouts given and Excel serial numbers,
// which is how some workbooks store date cells.
func parseSheetDate(value string, layouts ...string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}
