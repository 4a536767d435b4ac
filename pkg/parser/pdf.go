package parser

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// cellGap is the horizontal distance, in font sizes, that separates two
// cells of the same line.
const cellGap = 1.0

// readPDF returns, per page, the text fragments of the page in drawing
// order. Fonts are decoded through their ToUnicode maps, so Type0 fonts read
// as plain text. Encrypted files are decrypted with password first.
func readPDF(data []byte, password string) (pages [][]string, err error) {
	// The reader panics on malformed files.
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("failed to read PDF: %v", rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && password != "" {
		if data, err = decryptPDF(data, password); err != nil {
			return nil, err
		}
		r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	pages = make([][]string, 0, r.NumPage())
	for nr := 1; nr <= r.NumPage(); nr++ {
		page := r.Page(nr)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, Fragments(page.Content().Text))
	}
	return pages, nil
}

// decryptPDF removes the encryption of a password protected statement.
func decryptPDF(data []byte, password string) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &out, conf); err != nil {
		return nil, fmt.Errorf("failed to decrypt PDF: %w", err)
	}
	if out.Len() == 0 {
		return nil, errors.New("failed to decrypt PDF: empty output")
	}
	return out.Bytes(), nil
}

// Fragments joins positioned glyphs into the text cells drawn on a page.
// A glyph starts a new fragment when it leaves the baseline of the previous
// one, moves back, or sits more than cellGap font sizes to its right.
func Fragments(glyphs []pdf.Text) []string {
	var (
		tokens  []string
		current strings.Builder
	)
	flush := func() {
		if s := strings.Join(strings.Fields(current.String()), " "); s != "" {
			tokens = append(tokens, s)
		}
		current.Reset()
	}

	for i, g := range glyphs {
		if i > 0 {
			prev := glyphs[i-1]
			size := math.Max(prev.FontSize, 1)
			end := prev.X + prev.W
			switch {
			case math.Abs(g.Y-prev.Y) > size/2:
				flush()
			case g.X < prev.X-size/2:
				flush()
			case g.X-end > size*cellGap:
				flush()
			case g.X-end > size/5 && !strings.HasSuffix(current.String(), " "):
				current.WriteByte(' ')
			}
		}
		current.WriteString(g.S)
	}
	flush()
	return tokens
}
