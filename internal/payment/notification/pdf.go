package notification

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/tair/appointment-payments/internal/payment/domain"
)

// PDFRenderer renders receipts as single page A4 PDFs
type PDFRenderer struct {
	BusinessName string
}

// NewPDFRenderer creates a receipt renderer
func NewPDFRenderer(businessName string) *PDFRenderer {
	return &PDFRenderer{BusinessName: businessName}
}

// Render draws the receipt and returns the PDF bytes
func (r *PDFRenderer) Render(receipt domain.Receipt) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Payment Receipt "+receipt.Number, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Payment Receipt", "", 1, "L", false, 0, "")
	if r.BusinessName != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 6, r.BusinessName, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	rows := [][2]string{
		{"Receipt No.", receipt.Number},
		{"Customer", receipt.CustomerName},
		{"Email", receipt.CustomerEmail},
		{"Amount", fmt.Sprintf("%s %s", receipt.Currency, receipt.Amount.StringFixed(2))},
		{"Provider", string(receipt.Provider)},
		{"Payment ID", receipt.ProviderPaymentID},
		{"Paid At", receipt.PaidAt.UTC().Format("02 Jan 2006 15:04 MST")},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(45, 8, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row[1], "1", 1, "L", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, "This is a computer generated receipt.", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

var _ domain.ReceiptRenderer = (*PDFRenderer)(nil)
