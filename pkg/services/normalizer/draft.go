package normalizer

import (
	"time"

	"github.com/shopspring/decimal"
)

// SkipReason explains why a record produced no rows.
type SkipReason string

const (
	SkipNoExtraction    SkipReason = "no extraction data"
	SkipNoInvoiceNumber SkipReason = "missing invoice number"
	SkipAlreadyImported SkipReason = "already imported"
)

type VendorDraft struct {
	NaturalKey string
	Name       string
	Category   *string
	Attributes map[string]any
}

type CustomerDraft struct {
	NaturalKey string
	Name       string
	Attributes map[string]any
}

type InvoiceDraft struct {
	SourceID      string
	InvoiceNumber string
	Date          time.Time
	DueDate       *time.Time
	Status        string
	Currency      string
	Subtotal      decimal.NullDecimal
	Tax           decimal.NullDecimal
	TotalAmount   decimal.Decimal
}

type LineItemDraft struct {
	Description *string
	Quantity    decimal.NullDecimal
	UnitPrice   decimal.NullDecimal
	Total       decimal.NullDecimal
	Category    *string
}

type PaymentDraft struct {
	Amount decimal.Decimal
	Method *string
	Date   *time.Time
	Status string
}

type DocumentDraft struct {
	FileName   *string
	URL        *string
	UploadedAt time.Time
}

// Draft is everything one record contributes to the store.
type Draft struct {
	RecordID  string
	Vendor    *VendorDraft
	Customer  *CustomerDraft
	Invoice   InvoiceDraft
	LineItems []LineItemDraft
	Payment   *PaymentDraft
	Document  *DocumentDraft
}

// Outcome is the result of normalizing one record: either a skip with a
// reason or a draft ready to persist.
type Outcome struct {
	RecordID   string
	SkipReason SkipReason
	Draft      *Draft
}

func (o Outcome) Skipped() bool {
	return o.Draft == nil
}
