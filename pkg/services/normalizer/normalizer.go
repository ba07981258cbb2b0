package normalizer

import (
	"time"

	"github.com/shopspring/decimal"

	"scan-in-analytics/pkg/services/extraction"
)

const (
	DefaultCurrency      = "EUR"
	DefaultInvoiceStatus = "unpaid"
	DefaultPaymentStatus = "pending"
)

// Normalizer turns raw extraction records into canonical drafts.
type Normalizer struct {
	extractor *extraction.Extractor
	keys      KeyResolver
	now       func() time.Time
}

type Option func(*Normalizer)

func WithExtractor(e *extraction.Extractor) Option {
	return func(n *Normalizer) { n.extractor = e }
}

func WithKeyResolver(k KeyResolver) Option {
	return func(n *Normalizer) { n.keys = k }
}

// WithClock sets the source of the ingestion time used for defaults.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		extractor: extraction.Default(),
		keys:      SyntheticKeys{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize maps a raw record onto drafts or a skip decision.
func (n *Normalizer) Normalize(raw extraction.RawRecord) Outcome {
	id := string(raw.ID)
	out := Outcome{RecordID: id}
	tree := raw.ExtractedData
	e := n.extractor

	if _, ok := e.Object(tree, extraction.LLMData); !ok {
		out.SkipReason = SkipNoExtraction
		return out
	}
	invoiceNumber, ok := e.String(tree, extraction.InvoiceNumber)
	if !ok {
		out.SkipReason = SkipNoInvoiceNumber
		return out
	}

	now := n.now().UTC()
	draft := &Draft{
		RecordID: id,
		Vendor:   n.vendor(tree, id),
		Customer: n.customer(tree, id),
	}

	// 1. amounts: summary section first, then payment section
	subtotal := n.amount(tree, extraction.Subtotal)
	tax := n.amount(tree, extraction.Tax)
	total := n.amount(tree, extraction.TotalAmount)
	if total.IsZero() {
		total = subtotal.Add(tax)
	}
	if !total.IsPositive() {
		total = decimal.Zero
	}

	// 2. invoice header
	draft.Invoice = InvoiceDraft{
		SourceID:      id,
		InvoiceNumber: invoiceNumber,
		Date:          *extraction.ParseDate(n.value(tree, extraction.InvoiceDate), &now),
		DueDate:       extraction.ParseDate(n.value(tree, extraction.DueDate), nil),
		Status:        n.stringOr(tree, extraction.PaymentStatus, DefaultInvoiceStatus),
		Currency:      n.stringOr(tree, extraction.Currency, DefaultCurrency),
		Subtotal:      positiveOrNull(subtotal),
		Tax:           positiveOrNull(tax),
		TotalAmount:   total,
	}

	// 3. line items
	for _, item := range e.List(tree, extraction.LineItems) {
		if li, ok := n.lineItem(item); ok {
			draft.LineItems = append(draft.LineItems, li)
		}
	}

	// 4. payment, only when there is something to pay
	if e.Exists(tree, extraction.PaymentData) && total.IsPositive() {
		draft.Payment = &PaymentDraft{
			Amount: total,
			Method: n.optional(tree, extraction.PaymentMethod),
			Date:   extraction.ParseDate(n.value(tree, extraction.PaymentDate), nil),
			Status: n.stringOr(tree, extraction.PaymentStatus, DefaultPaymentStatus),
		}
	}

	// 5. source document
	if raw.Metadata != nil || raw.FilePath != "" {
		doc := &DocumentDraft{URL: nonEmpty(raw.FilePath), UploadedAt: now}
		if raw.Metadata != nil {
			doc.FileName = nonEmpty(raw.Metadata.OriginalFileName)
			doc.UploadedAt = *extraction.ParseDate(raw.Metadata.UploadedAt, &now)
		}
		if doc.FileName == nil {
			doc.FileName = nonEmpty(raw.Name)
		}
		draft.Document = doc
	}

	out.Draft = draft
	return out
}

func (n *Normalizer) vendor(tree extraction.Node, recordID string) *VendorDraft {
	name, ok := n.extractor.String(tree, extraction.VendorName)
	if !ok {
		return nil
	}
	party, _ := n.extractor.String(tree, extraction.VendorPartyNumber)
	return &VendorDraft{
		NaturalKey: n.keys.VendorKey(party, recordID),
		Name:       name,
		Category:   n.optional(tree, extraction.VendorCategory),
		Attributes: n.attributes(tree, map[string]extraction.Field{
			"address":     extraction.VendorAddress,
			"taxId":       extraction.VendorTaxID,
			"partyNumber": extraction.VendorPartyNumber,
		}),
	}
}

func (n *Normalizer) customer(tree extraction.Node, recordID string) *CustomerDraft {
	name, ok := n.extractor.String(tree, extraction.CustomerName)
	if !ok {
		return nil
	}
	party, _ := n.extractor.String(tree, extraction.CustomerPartyNumber)
	return &CustomerDraft{
		NaturalKey: n.keys.CustomerKey(party, recordID),
		Name:       name,
		Attributes: n.attributes(tree, map[string]extraction.Field{
			"address":     extraction.CustomerAddress,
			"partyNumber": extraction.CustomerPartyNumber,
		}),
	}
}

// lineItem keeps an item only if it has a description or a total. Zero
// amounts are stored as null because the parser cannot tell them apart from
// missing values.
func (n *Normalizer) lineItem(item extraction.Node) (LineItemDraft, bool) {
	desc := n.optional(item, extraction.LineDescription)
	total, hasTotal := n.extractor.Value(item, extraction.LineTotal)
	if desc == nil && !hasTotal {
		return LineItemDraft{}, false
	}
	return LineItemDraft{
		Description: desc,
		Quantity:    positiveOrNull(n.amount(item, extraction.LineQuantity)),
		UnitPrice:   positiveOrNull(n.amount(item, extraction.LineUnitPrice)),
		Total:       positiveOrNull(extraction.ParseAmount(total)),
		Category:    n.optional(item, extraction.LineCategory),
	}, true
}

func (n *Normalizer) attributes(tree extraction.Node, fields map[string]extraction.Field) map[string]any {
	attrs := make(map[string]any, len(fields))
	for key, f := range fields {
		if v, ok := n.extractor.String(tree, f); ok {
			attrs[key] = v
		}
	}
	return attrs
}

func (n *Normalizer) value(tree extraction.Node, f extraction.Field) any {
	v, _ := n.extractor.Value(tree, f)
	return v
}

func (n *Normalizer) amount(tree extraction.Node, f extraction.Field) decimal.Decimal {
	return extraction.ParseAmount(n.value(tree, f))
}

func (n *Normalizer) optional(tree extraction.Node, f extraction.Field) *string {
	if s, ok := n.extractor.String(tree, f); ok {
		return &s
	}
	return nil
}

func (n *Normalizer) stringOr(tree extraction.Node, f extraction.Field, def string) string {
	if s, ok := n.extractor.String(tree, f); ok {
		return s
	}
	return def
}

func positiveOrNull(d decimal.Decimal) decimal.NullDecimal {
	if !d.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
