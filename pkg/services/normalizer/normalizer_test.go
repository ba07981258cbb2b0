package normalizer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scan-in-analytics/pkg/services/extraction"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return New(WithClock(func() time.Time { return fixedNow }))
}

func decodeRecord(t *testing.T, raw string) extraction.RawRecord {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var rec extraction.RawRecord
	require.NoError(t, dec.Decode(&rec))
	return rec
}

const fullRecord = `{
  "_id": "rec-1",
  "name": "scan-001.pdf",
  "filePath": "https://files.example.com/scan-001.pdf",
  "metadata": {"originalFileName": "Rechnung 001.pdf", "uploadedAt": "2024-02-03T10:11:12Z"},
  "extractedData": {"llmData": {
    "invoice": {"value": {"invoiceId": {"value": "INV-001"}, "invoiceDate": {"value": "2024-01-31"}, "dueDate": {"value": "2024-02-28"}}},
    "vendor": {"value": {"vendorName": {"value": "ACME GmbH"}, "vendorPartyNumber": {"value": "V-77"}, "vendorAddress": {"value": "Hauptstr. 1"}, "vendorTaxId": {"value": "DE123"}, "vendorCategory": {"value": "Office"}}},
    "customer": {"value": {"customerName": {"value": "Flowbit AG"}, "customerAddress": {"value": "Ring 5"}}},
    "payment": {"value": {"paymentMethod": {"value": "bank transfer"}, "paymentDate": {"value": "2024-02-10"}, "paymentStatus": {"value": "paid"}, "currency": {"value": "USD"}}},
    "summary": {"value": {"subTotal": {"value": "100,00"}, "totalTax": {"value": "19.00"}, "invoiceTotal": {"value": "€ 119.00"}, "currencySymbol": {"value": "EUR"}}},
    "lineItems": {"value": {"items": {"value": [
      {"description": {"value": "Paper"}, "quantity": {"value": 2}, "unitPrice": {"value": "25"}, "totalPrice": {"value": "50"}, "category": {"value": "Supplies"}},
      {"description": {"value": "Shipping"}, "quantity": {"value": 0}, "total": {"value": "0"}},
      {"quantity": {"value": 3}},
      {"total": {"value": 69}, "Sachkonto": {"value": "4930"}}
    ]}}}
  }}
}`

func TestNormalize_FullRecord(t *testing.T) {
	out := newTestNormalizer().Normalize(decodeRecord(t, fullRecord))
	require.False(t, out.Skipped())
	d := out.Draft

	require.NotNil(t, d.Vendor)
	assert.Equal(t, "V-77", d.Vendor.NaturalKey)
	assert.Equal(t, "ACME GmbH", d.Vendor.Name)
	require.NotNil(t, d.Vendor.Category)
	assert.Equal(t, "Office", *d.Vendor.Category)
	assert.Equal(t, map[string]any{"address": "Hauptstr. 1", "taxId": "DE123", "partyNumber": "V-77"}, d.Vendor.Attributes)

	require.NotNil(t, d.Customer)
	assert.Equal(t, "customer-rec-1", d.Customer.NaturalKey)
	assert.Equal(t, map[string]any{"address": "Ring 5"}, d.Customer.Attributes)

	inv := d.Invoice
	assert.Equal(t, "rec-1", inv.SourceID)
	assert.Equal(t, "INV-001", inv.InvoiceNumber)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), inv.Date)
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), *inv.DueDate)
	assert.Equal(t, "paid", inv.Status)
	assert.Equal(t, "EUR", inv.Currency, "summary currency wins over payment currency")
	assert.Equal(t, "10000", inv.Subtotal.Decimal.String(), "comma is stripped, not read as a decimal separator")
	assert.Equal(t, "19", inv.Tax.Decimal.String())
	assert.Equal(t, "119", inv.TotalAmount.String())

	require.Len(t, d.LineItems, 3)
	paper := d.LineItems[0]
	assert.Equal(t, "Paper", *paper.Description)
	assert.Equal(t, "2", paper.Quantity.Decimal.String())
	assert.Equal(t, "25", paper.UnitPrice.Decimal.String())
	assert.Equal(t, "50", paper.Total.Decimal.String())
	assert.Equal(t, "Supplies", *paper.Category)

	shipping := d.LineItems[1]
	assert.False(t, shipping.Quantity.Valid, "zero quantity is stored as null")
	assert.False(t, shipping.Total.Valid, "zero total is stored as null")
	assert.False(t, shipping.UnitPrice.Valid)

	legacy := d.LineItems[2]
	assert.Nil(t, legacy.Description)
	assert.Equal(t, "69", legacy.Total.Decimal.String())
	assert.Equal(t, "4930", *legacy.Category)

	require.NotNil(t, d.Payment)
	assert.Equal(t, "119", d.Payment.Amount.String())
	assert.Equal(t, "bank transfer", *d.Payment.Method)
	assert.Equal(t, "paid", d.Payment.Status)
	require.NotNil(t, d.Payment.Date)
	assert.Equal(t, 10, d.Payment.Date.Day())

	require.NotNil(t, d.Document)
	assert.Equal(t, "Rechnung 001.pdf", *d.Document.FileName)
	assert.Equal(t, "https://files.example.com/scan-001.pdf", *d.Document.URL)
	assert.Equal(t, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), d.Document.UploadedAt)
}

func TestNormalize_Skips(t *testing.T) {
	n := newTestNormalizer()

	t.Run("no llmData", func(t *testing.T) {
		out := n.Normalize(decodeRecord(t, `{"_id": "a", "extractedData": {}}`))
		assert.True(t, out.Skipped())
		assert.Equal(t, SkipNoExtraction, out.SkipReason)
		assert.Equal(t, "a", out.RecordID)
	})

	t.Run("no extractedData at all", func(t *testing.T) {
		out := n.Normalize(decodeRecord(t, `{"_id": "b", "metadata": {"originalFileName": "x.pdf"}}`))
		assert.True(t, out.Skipped())
		assert.Equal(t, SkipNoExtraction, out.SkipReason)
	})

	t.Run("no invoice number", func(t *testing.T) {
		out := n.Normalize(decodeRecord(t, `{"_id": "c", "extractedData": {"llmData": {
			"invoice": {"value": {"invoiceId": {"value": "  "}}},
			"vendor": {"value": {"vendorName": {"value": "ACME"}}}}}}`))
		assert.True(t, out.Skipped())
		assert.Equal(t, SkipNoInvoiceNumber, out.SkipReason)
		assert.Nil(t, out.Draft)
	})
}

func TestNormalize_Defaults(t *testing.T) {
	out := newTestNormalizer().Normalize(decodeRecord(t, `{"_id": "min", "extractedData": {"llmData": {
		"invoice": {"value": {"invoiceId": {"value": "X-1"}, "invoiceDate": {"value": "not a date"}}}}}}`))
	require.False(t, out.Skipped())
	d := out.Draft

	assert.Nil(t, d.Vendor)
	assert.Nil(t, d.Customer)
	assert.Equal(t, "EUR", d.Invoice.Currency)
	assert.Equal(t, "unpaid", d.Invoice.Status)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), d.Invoice.Date.Truncate(24*time.Hour))
	assert.Nil(t, d.Invoice.DueDate)
	assert.False(t, d.Invoice.Subtotal.Valid)
	assert.False(t, d.Invoice.Tax.Valid)
	assert.True(t, d.Invoice.TotalAmount.IsZero(), "total is zero, never null")
	assert.Empty(t, d.LineItems)
	assert.Nil(t, d.Payment)
	assert.Nil(t, d.Document)
}

func TestNormalize_TotalDerivedFromSubtotalAndTax(t *testing.T) {
	out := newTestNormalizer().Normalize(decodeRecord(t, `{"_id": "t", "extractedData": {"llmData": {
		"invoice": {"value": {"invoiceId": {"value": "T-1"}}},
		"payment": {"value": {"subtotal": {"value": 80}, "tax": {"value": "20"}}}}}}`))
	require.False(t, out.Skipped())
	assert.True(t, out.Draft.Invoice.TotalAmount.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, out.Draft.Payment)
	assert.Equal(t, "pending", out.Draft.Payment.Status)
	assert.True(t, out.Draft.Payment.Amount.Equal(decimal.NewFromInt(100)))
}

func TestNormalize_NegativeAmountsKeepMagnitude(t *testing.T) {
	out := newTestNormalizer().Normalize(decodeRecord(t, `{"_id": "credit", "extractedData": {"llmData": {
		"invoice": {"value": {"invoiceId": {"value": "CN-5"}}},
		"summary": {"value": {"invoiceTotal": {"value": "-45.50"}}}}}}`))
	require.False(t, out.Skipped())
	assert.Equal(t, "45.5", out.Draft.Invoice.TotalAmount.String())
}

func TestNormalize_NoPaymentWhenTotalIsZero(t *testing.T) {
	out := newTestNormalizer().Normalize(decodeRecord(t, `{"_id": "p", "extractedData": {"llmData": {
		"invoice": {"value": {"invoiceId": {"value": "P-1"}}},
		"payment": {"value": {"paymentMethod": {"value": "cash"}}}}}}`))
	require.False(t, out.Skipped())
	assert.Nil(t, out.Draft.Payment)
}

func TestNormalize_EmptyPaymentObjectStillPays(t *testing.T) {
	out := newTestNormalizer().Normalize(decodeRecord(t, `{"_id": "e", "extractedData": {"llmData": {
		"invoice": {"value": {"invoiceId": {"value": "E-1"}}},
		"payment": {"value": {}},
		"summary": {"value": {"invoiceTotal": {"value": "50"}}}}}}`))
	require.False(t, out.Skipped())
	require.NotNil(t, out.Draft.Payment)
	assert.True(t, out.Draft.Payment.Amount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "pending", out.Draft.Payment.Status)
	assert.Nil(t, out.Draft.Payment.Method)
	assert.Nil(t, out.Draft.Payment.Date)
}

func TestNormalize_NumericTotalWithExponent(t *testing.T) {
	out := newTestNormalizer().Normalize(decodeRecord(t, `{"_id": "x", "extractedData": {"llmData": {
		"invoice": {"value": {"invoiceId": {"value": "X-9"}}},
		"summary": {"value": {"invoiceTotal": {"value": 1.5e3}, "totalTax": {"value": 2.5e-1}}}}}}`))
	require.False(t, out.Skipped())
	assert.Equal(t, "1500", out.Draft.Invoice.TotalAmount.String())
	assert.Equal(t, "0.25", out.Draft.Invoice.Tax.Decimal.String())
}

func TestNormalize_KeepsLongCurrencyText(t *testing.T) {
	out := newTestNormalizer().Normalize(decodeRecord(t, `{"_id": "c", "extractedData": {"llmData": {
		"invoice": {"value": {"invoiceId": {"value": "C-1"}}},
		"summary": {"value": {"currencySymbol": {"value": "Euro (EUR)"}}}}}}`))
	require.False(t, out.Skipped())
	assert.Equal(t, "Euro (EUR)", out.Draft.Invoice.Currency)
}

func TestNormalize_DocumentFromFilePathOnly(t *testing.T) {
	out := newTestNormalizer().Normalize(decodeRecord(t, `{"_id": "d", "name": "upload.png", "filePath": "/data/upload.png",
		"extractedData": {"llmData": {"invoice": {"value": {"invoiceId": {"value": "D-1"}}}}}}`))
	require.False(t, out.Skipped())
	doc := out.Draft.Document
	require.NotNil(t, doc)
	assert.Equal(t, "upload.png", *doc.FileName, "record name is used when metadata has no file name")
	assert.Equal(t, "/data/upload.png", *doc.URL)
	assert.Equal(t, fixedNow, doc.UploadedAt)
}

func TestSyntheticKeys(t *testing.T) {
	k := SyntheticKeys{}
	assert.Equal(t, "P-9", k.VendorKey("P-9", "abc"))
	assert.Equal(t, "vendor-abc", k.VendorKey("", "abc"))
	assert.Equal(t, "C-2", k.CustomerKey("C-2", "abc"))
	assert.Equal(t, "customer-abc", k.CustomerKey("", "abc"))
	assert.Equal(t, k.VendorKey("", "abc"), k.VendorKey("", "abc"), "same record id yields the same key across runs")
}

type prefixKeys struct{}

func (prefixKeys) VendorKey(p, id string) string   { return "v:" + p + ":" + id }
func (prefixKeys) CustomerKey(p, id string) string { return "c:" + p + ":" + id }

func TestNormalize_CustomKeyResolver(t *testing.T) {
	n := New(WithKeyResolver(prefixKeys{}), WithClock(func() time.Time { return fixedNow }))
	out := n.Normalize(decodeRecord(t, fullRecord))
	require.False(t, out.Skipped())
	assert.Equal(t, "v:V-77:rec-1", out.Draft.Vendor.NaturalKey)
	assert.Equal(t, "c::rec-1", out.Draft.Customer.NaturalKey)
}
