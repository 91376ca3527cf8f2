// Package receipt formats a committed sale for printing. Pure formatting
// only; it never touches the store.
package receipt

import (
	"encoding/base64"
	"fmt"
	"strings"

	"accrapos/internal/domain"
)

type Renderer struct {
	storeName string
	footer    string
}

func NewRenderer(storeName string, footer string) *Renderer {
	if storeName == "" {
		storeName = "AccraPOS"
	}
	if footer == "" {
		footer = "Thank you, come again"
	}
	return &Renderer{storeName: storeName, footer: footer}
}

// Render produces the text preview and the ESC/POS byte stream (base64) for
// hardware printers.
func (r *Renderer) Render(sale *domain.Sale) domain.ReceiptResponse {
	lines := r.textLines(sale)

	escpos := []byte{0x1b, 0x40}
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	return domain.ReceiptResponse{
		SaleID:       sale.ID,
		PreviewText:  strings.Join(lines, "\n"),
		EscposBase64: base64.StdEncoding.EncodeToString(escpos),
		FileName:     fmt.Sprintf("receipt-%s.bin", sale.ID),
	}
}

func (r *Renderer) textLines(sale *domain.Sale) []string {
	lines := []string{
		r.storeName,
		"========================",
		"Sale: " + sale.SaleNumber,
		"Cashier: " + sale.CashierID,
		"Date: " + sale.CreatedAt.Format("2006-01-02 15:04:05"),
		"------------------------",
	}
	for _, item := range sale.Lines {
		lines = append(lines, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
		lines = append(lines, "  "+domain.FormatGHS(item.LineTotal))
	}
	lines = append(lines,
		"------------------------",
		"Subtotal : "+domain.FormatGHS(sale.Subtotal),
		"Discount : "+domain.FormatGHS(sale.Discount),
		"Tax      : "+domain.FormatGHS(sale.Tax),
		"Total    : "+domain.FormatGHS(sale.Total),
	)
	switch sale.PaymentMethod {
	case domain.PaymentCash:
		lines = append(lines,
			"Tendered : "+domain.FormatGHS(sale.AmountTendered),
			"Change   : "+domain.FormatGHS(sale.ChangeAmount),
		)
	case domain.PaymentCredit:
		lines = append(lines, "ON CREDIT : "+domain.FormatGHS(sale.BalanceDue))
	case domain.PaymentSplit:
		for _, part := range sale.Splits {
			lines = append(lines, fmt.Sprintf("%-9s: %s", strings.ToUpper(part.Method), domain.FormatGHS(part.Amount)))
		}
	default:
		lines = append(lines, "Paid ("+sale.PaymentMethod+"): "+domain.FormatGHS(sale.AmountPaid))
	}
	lines = append(lines,
		"========================",
		r.footer,
		"",
	)
	return lines
}
