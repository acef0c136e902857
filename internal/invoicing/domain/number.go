package domain

import (
	"fmt"
	"time"
)

// FormatInvoiceNumber builds a system-assigned invoice number from the
// issue date and a per-user daily sequence, e.g. INV-20250615-0003.
func FormatInvoiceNumber(issueDate time.Time, sequence int) string {
	return fmt.Sprintf("INV-%s-%04d", issueDate.Format("20060102"), sequence)
}
