// Package store defines the persistence port used by the ingestion pipeline.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"scan-in-analytics/pkg/models"
	"scan-in-analytics/pkg/services/normalizer"
)

// ErrTransient marks failures worth retrying.
var ErrTransient = errors.New("transient store error")

// Store opens transactional scopes over the normalized tables.
type Store interface {
	// Transaction runs fn in a top-level transaction. It commits when fn
	// returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx Tx) error) error

	// SupportsSavepoints reports whether Tx.Transaction nests a savepoint
	// inside the enclosing transaction.
	SupportsSavepoints() bool

	// IsTransient classifies an error returned by this store.
	IsTransient(err error) bool

	// Reset deletes every ingested row, children first.
	Reset(ctx context.Context) error

	RecordRun(ctx context.Context, run *models.IngestRun) error
	CountRuns(ctx context.Context, checksum string) (int64, error)
}

// Tx is the set of writes available inside a transaction.
type Tx interface {
	// Transaction runs fn in a nested scope. On error only the nested
	// scope is rolled back.
	Transaction(ctx context.Context, fn func(tx Tx) error) error

	// UpsertVendor creates the vendor or updates the existing row with the
	// same natural key. created is true when no row existed.
	UpsertVendor(ctx context.Context, v normalizer.VendorDraft) (id uuid.UUID, created bool, err error)
	UpsertCustomer(ctx context.Context, c normalizer.CustomerDraft) (id uuid.UUID, created bool, err error)

	CreateInvoice(ctx context.Context, inv normalizer.InvoiceDraft, vendorID, customerID *uuid.UUID) (uuid.UUID, error)
	CreateLineItem(ctx context.Context, invoiceID uuid.UUID, li normalizer.LineItemDraft) error
	CreatePayment(ctx context.Context, invoiceID uuid.UUID, p normalizer.PaymentDraft) error
	CreateDocument(ctx context.Context, invoiceID uuid.UUID, d normalizer.DocumentDraft) error

	// InvoiceExists reports whether an invoice was already created from the
	// given source record.
	InvoiceExists(ctx context.Context, sourceID string) (bool, error)
}
