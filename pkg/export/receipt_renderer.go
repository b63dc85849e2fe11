package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptLine is a single labelled row on a receipt.
type ReceiptLine struct {
	Label string
	Value string
}

// ReceiptDocument describes a payment receipt to be rendered.
type ReceiptDocument struct {
	SchoolName    string
	HeaderText    string
	FooterText    string
	ReceiptNumber string
	IssuedAt      string
	Lines         []ReceiptLine
	TotalLabel    string
	TotalValue    string
}

// ReceiptRenderer renders payment receipts as PDF documents.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render produces the PDF bytes for a receipt document.
func (r *ReceiptRenderer) Render(doc ReceiptDocument) ([]byte, error) {
	if doc.SchoolName == "" {
		return nil, fmt.Errorf("receipt requires a school name")
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, doc.SchoolName, "", 1, "C", false, 0, "")
	if doc.HeaderText != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, doc.HeaderText, "", "C", false)
	}
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, "PAYMENT RECEIPT", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("No. %s", doc.ReceiptNumber), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, doc.IssuedAt, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	for _, line := range doc.Lines {
		pdf.CellFormat(48, 7, line.Label, "B", 0, "", false, 0, "")
		pdf.CellFormat(0, 7, line.Value, "B", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	totalLabel := doc.TotalLabel
	if totalLabel == "" {
		totalLabel = "Total paid"
	}
	pdf.CellFormat(48, 9, totalLabel, "T", 0, "", false, 0, "")
	pdf.CellFormat(0, 9, doc.TotalValue, "T", 1, "R", false, 0, "")

	if doc.FooterText != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 4, doc.FooterText, "", "C", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
