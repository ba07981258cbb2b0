// Package memory is an in-process implementation of store.Store. Nested
// transactions work on a copy of the enclosing state, which gives the same
// partial-rollback behavior as database savepoints.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"scan-in-analytics/pkg/models"
	"scan-in-analytics/pkg/services/normalizer"
	"scan-in-analytics/pkg/store"
)

// Op identifies a write for fault injection.
type Op string

const (
	OpVendor   Op = "vendor"
	OpCustomer Op = "customer"
	OpInvoice  Op = "invoice"
	OpLineItem Op = "line_item"
	OpPayment  Op = "payment"
	OpDocument Op = "document"
	OpCommit   Op = "commit"
)

// FailFunc returns a non-nil error to make the write identified by op and
// key fail. Keys are natural keys for parties and invoice numbers for
// invoices and their children.
type FailFunc func(op Op, key string) error

type state struct {
	vendors   map[string]models.Vendor
	customers map[string]models.Customer
	invoices  []models.Invoice
	lineItems []models.LineItem
	payments  []models.Payment
	documents []models.Document
}

func newState() *state {
	return &state{
		vendors:   make(map[string]models.Vendor),
		customers: make(map[string]models.Customer),
	}
}

func (s *state) clone() *state {
	c := &state{
		vendors:   make(map[string]models.Vendor, len(s.vendors)),
		customers: make(map[string]models.Customer, len(s.customers)),
		invoices:  append([]models.Invoice(nil), s.invoices...),
		lineItems: append([]models.LineItem(nil), s.lineItems...),
		payments:  append([]models.Payment(nil), s.payments...),
		documents: append([]models.Document(nil), s.documents...),
	}
	for k, v := range s.vendors {
		c.vendors[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	return c
}

var _ store.Store = (*Store)(nil)

// Store keeps all rows in memory.
type Store struct {
	mu         sync.Mutex
	committed  *state
	runs       []models.IngestRun
	savepoints bool
	fail       FailFunc

	topLevel int
	nested   int
}

type Option func(*Store)

// WithoutSavepoints makes the store report no savepoint support so that
// callers fall back to one top-level transaction per record.
func WithoutSavepoints() Option {
	return func(s *Store) { s.savepoints = false }
}

func WithFailures(f FailFunc) Option {
	return func(s *Store) { s.fail = f }
}

func New(opts ...Option) *Store {
	s := &Store{committed: newState(), savepoints: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Transaction(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topLevel++

	tx := &memTx{store: s, st: s.committed.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := s.check(OpCommit, ""); err != nil {
		return err
	}
	s.committed = tx.st
	return nil
}

func (s *Store) SupportsSavepoints() bool { return s.savepoints }

func (s *Store) IsTransient(err error) bool {
	return errors.Is(err, store.ErrTransient)
}

func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = newState()
	return nil
}

func (s *Store) RecordRun(ctx context.Context, run *models.IngestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	s.runs = append(s.runs, *run)
	return nil
}

func (s *Store) CountRuns(ctx context.Context, checksum string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.runs {
		if r.Checksum == checksum {
			n++
		}
	}
	return n, nil
}

func (s *Store) check(op Op, key string) error {
	if s.fail == nil {
		return nil
	}
	return s.fail(op, key)
}

// Snapshot access for tests and debugging.

func (s *Store) Vendors() []models.Vendor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Vendor, 0, len(s.committed.vendors))
	for _, v := range s.committed.vendors {
		out = append(out, v)
	}
	return out
}

func (s *Store) Customers() []models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Customer, 0, len(s.committed.customers))
	for _, c := range s.committed.customers {
		out = append(out, c)
	}
	return out
}

func (s *Store) Invoices() []models.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Invoice(nil), s.committed.invoices...)
}

func (s *Store) LineItems() []models.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LineItem(nil), s.committed.lineItems...)
}

func (s *Store) Payments() []models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Payment(nil), s.committed.payments...)
}

func (s *Store) Documents() []models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Document(nil), s.committed.documents...)
}

func (s *Store) Runs() []models.IngestRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.IngestRun(nil), s.runs...)
}

// TransactionCounts returns how many top-level and nested scopes were opened.
func (s *Store) TransactionCounts() (topLevel, nested int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topLevel, s.nested
}

type memTx struct {
	store *Store
	st    *state
}

func (tx *memTx) Transaction(ctx context.Context, fn func(tx store.Tx) error) error {
	tx.store.nested++
	child := &memTx{store: tx.store, st: tx.st.clone()}
	if err := fn(child); err != nil {
		return err
	}
	tx.st = child.st
	return nil
}

func (tx *memTx) UpsertVendor(ctx context.Context, d normalizer.VendorDraft) (uuid.UUID, bool, error) {
	if err := tx.store.check(OpVendor, d.NaturalKey); err != nil {
		return uuid.Nil, false, err
	}
	row := store.NewVendor(d)
	existing, ok := tx.st.vendors[d.NaturalKey]
	if ok {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	} else {
		row.ID = uuid.New()
	}
	tx.st.vendors[d.NaturalKey] = row
	return row.ID, !ok, nil
}

func (tx *memTx) UpsertCustomer(ctx context.Context, d normalizer.CustomerDraft) (uuid.UUID, bool, error) {
	if err := tx.store.check(OpCustomer, d.NaturalKey); err != nil {
		return uuid.Nil, false, err
	}
	row := store.NewCustomer(d)
	existing, ok := tx.st.customers[d.NaturalKey]
	if ok {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	} else {
		row.ID = uuid.New()
	}
	tx.st.customers[d.NaturalKey] = row
	return row.ID, !ok, nil
}

func (tx *memTx) CreateInvoice(ctx context.Context, d normalizer.InvoiceDraft, vendorID, customerID *uuid.UUID) (uuid.UUID, error) {
	if err := tx.store.check(OpInvoice, d.InvoiceNumber); err != nil {
		return uuid.Nil, err
	}
	row := store.NewInvoice(d, vendorID, customerID)
	row.ID = uuid.New()
	tx.st.invoices = append(tx.st.invoices, row)
	return row.ID, nil
}

func (tx *memTx) CreateLineItem(ctx context.Context, invoiceID uuid.UUID, d normalizer.LineItemDraft) error {
	if err := tx.store.check(OpLineItem, tx.invoiceNumber(invoiceID)); err != nil {
		return err
	}
	row := store.NewLineItem(invoiceID, d)
	row.ID = uuid.New()
	tx.st.lineItems = append(tx.st.lineItems, row)
	return nil
}

func (tx *memTx) CreatePayment(ctx context.Context, invoiceID uuid.UUID, d normalizer.PaymentDraft) error {
	if err := tx.store.check(OpPayment, tx.invoiceNumber(invoiceID)); err != nil {
		return err
	}
	row := store.NewPayment(invoiceID, d)
	row.ID = uuid.New()
	tx.st.payments = append(tx.st.payments, row)
	return nil
}

func (tx *memTx) CreateDocument(ctx context.Context, invoiceID uuid.UUID, d normalizer.DocumentDraft) error {
	if err := tx.store.check(OpDocument, tx.invoiceNumber(invoiceID)); err != nil {
		return err
	}
	row := store.NewDocument(invoiceID, d)
	row.ID = uuid.New()
	tx.st.documents = append(tx.st.documents, row)
	return nil
}

func (tx *memTx) InvoiceExists(ctx context.Context, sourceID string) (bool, error) {
	for _, inv := range tx.st.invoices {
		if inv.SourceID == sourceID {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memTx) invoiceNumber(id uuid.UUID) string {
	for _, inv := range tx.st.invoices {
		if inv.ID == id {
			return inv.InvoiceNumber
		}
	}
	return ""
}
