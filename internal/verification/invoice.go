package verification

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

// Invoice is the billing block of the approval email.
type Invoice struct {
	Number    string
	IssuedOn  time.Time
	AmountDue string
	DueOn     time.Time
}

const invoiceDateLayout = "2006-01-02"

// NewInvoice numbers an invoice as prefix plus six random digits.
func NewInvoice(r io.Reader, prefix, amount string, issued time.Time, dueIn time.Duration) (Invoice, error) {
	n, err := rand.Int(r, big.NewInt(1_000_000))
	if err != nil {
		return Invoice{}, fmt.Errorf("invoice number: %w", err)
	}
	return Invoice{
		Number:    fmt.Sprintf("%s%06d", prefix, n.Int64()),
		IssuedOn:  issued,
		AmountDue: amount,
		DueOn:     issued.Add(dueIn),
	}, nil
}

func (i Invoice) bindings() map[string]any {
	return map[string]any{
		"invoiceNumber": i.Number,
		"invoiceDate":   i.IssuedOn.Format(invoiceDateLayout),
		"amountDue":     i.AmountDue,
		"dueDate":       i.DueOn.Format(invoiceDateLayout),
	}
}
