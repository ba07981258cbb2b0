// Package reporting serves read-only analytics over the normalized tables.
package reporting

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SortDateDesc   = "date_desc"
	SortDateAsc    = "date_asc"
	SortAmountDesc = "amount_desc"
	SortAmountAsc  = "amount_asc"

	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Totals are plain row counts per table.
type Totals struct {
	Vendors   int64 `json:"vendors"`
	Customers int64 `json:"customers"`
	Invoices  int64 `json:"invoices"`
	LineItems int64 `json:"line_items"`
	Payments  int64 `json:"payments"`
	Documents int64 `json:"documents"`
}

type Stats struct {
	TotalSpend        decimal.Decimal `json:"totalSpend"`
	InvoicesProcessed int64           `json:"invoicesProcessed"`
	DocumentsUploaded int64           `json:"documentsUploaded"`
	AvgInvoiceValue   decimal.Decimal `json:"avgInvoiceValue"`
}

type InvoiceQuery struct {
	Page   int
	Limit  int
	Search string
	Sort   string
}

// Offset is the number of rows before the requested page.
func (q InvoiceQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type VendorRef struct {
	Name string `json:"name"`
}

type InvoiceItem struct {
	InvoiceNumber string          `json:"invoice_number"`
	Vendor        VendorRef       `json:"vendor"`
	Date          string          `json:"date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        string          `json:"status"`
}

type InvoicePage struct {
	Items      []InvoiceItem `json:"items"`
	TotalCount int64         `json:"total_count"`
}

type VendorSpend struct {
	VendorID uuid.UUID       `json:"vendor_id"`
	Name     string          `json:"name"`
	Spend    decimal.Decimal `json:"spend"`
}

// Reader is the query side of the store.
type Reader interface {
	Ping(ctx context.Context) error
	Totals(ctx context.Context) (Totals, error)
	Stats(ctx context.Context) (Stats, error)
	ListInvoices(ctx context.Context, q InvoiceQuery) (InvoicePage, error)
	TopVendors(ctx context.Context, limit int) ([]VendorSpend, error)
}
