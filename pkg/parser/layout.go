package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aclindsa/ofxgo"
)

// ErrUnsupportedFormat is returned when the file extension maps to no
// decoding family. The whole upload is rejected.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// ErrUnrecognizedLayout is returned in strict mode when the file decodes but
// no statement variant recognizes its structure.
var ErrUnrecognizedLayout = errors.New("unrecognized statement layout")

// Family is the byte-decoding family picked from the file extension.
type Family string

const (
	FamilySheet Family = "sheet"
	FamilyText  Family = "text"
	FamilyOFX   Family = "ofx"
	FamilyPDF   Family = "pdf"
)

// Layout is the decoded structure of a statement file. Tabular families fill
// Rows, PDF fills Pages with text lines, OFX fills OFX.
type Layout struct {
	Family Family
	Rows   [][]string
	Pages  [][]string
	OFX    *ofxgo.Response
}

// cell returns the trimmed cell at (row, col) or "" when out of range.
func (l *Layout) cell(row, col int) string {
	if row < 0 || row >= len(l.Rows) || col < 0 || col >= len(l.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(l.Rows[row][col])
}

func (l *Layout) width(row int) int {
	if row < 0 || row >= len(l.Rows) {
		return -1
	}
	return len(l.Rows[row])
}

// decode picks the family from the extension and decodes data accordingly.
func (p *Parser) decode(data []byte, filename string) (*Layout, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xls":
		rows, err := readXLS(data)
		if err != nil {
			return nil, err
		}
		return &Layout{Family: FamilySheet, Rows: rows}, nil
	case ".xlsx":
		rows, err := readXLSX(data)
		if err != nil {
			return nil, err
		}
		return &Layout{Family: FamilySheet, Rows: rows}, nil
	case ".csv", ".txt":
		comma := ','
		if ext == ".txt" {
			comma = ';'
		}
		rows, err := readDelimited(data, comma)
		if err != nil {
			return nil, err
		}
		return &Layout{Family: FamilyText, Rows: rows}, nil
	case ".ofx":
		resp, err := readOFX(data)
		if err != nil {
			return nil, err
		}
		return &Layout{Family: FamilyOFX, OFX: resp}, nil
	case ".pdf":
		pages, err := readPDF(data, p.pdfPassword)
		if err != nil {
			return nil, err
		}
		return &Layout{Family: FamilyPDF, Pages: pages}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Supported reports whether filename has an extension with a decoding family.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls", ".xlsx", ".csv", ".txt", ".ofx", ".pdf":
		return true
	}
	return false
}
