package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"scan-in-analytics/pkg/config"
	"scan-in-analytics/pkg/services/normalizer"
	"scan-in-analytics/pkg/store"
)

// ChunkState tracks a chunk through its outer transaction.
type ChunkState int

const (
	ChunkPending ChunkState = iota
	ChunkInTransaction
	ChunkCommitted
	ChunkRolledBack
)

func (s ChunkState) String() string {
	switch s {
	case ChunkPending:
		return "pending"
	case ChunkInTransaction:
		return "in_transaction"
	case ChunkCommitted:
		return "committed"
	case ChunkRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// BatchPersister writes normalized records chunk by chunk. Each record runs
// in its own nested scope so that one failing record never discards the
// rest of its chunk.
type BatchPersister struct {
	store         store.Store
	reporter      *Reporter
	log           *logrus.Entry
	maxRetries    int
	retryInterval time.Duration
	policy        string
}

type PersisterOption func(*BatchPersister)

func WithRetries(maxRetries int, interval time.Duration) PersisterOption {
	return func(p *BatchPersister) {
		p.maxRetries = maxRetries
		p.retryInterval = interval
	}
}

func WithInvoicePolicy(policy string) PersisterOption {
	return func(p *BatchPersister) { p.policy = policy }
}

func NewBatchPersister(s store.Store, reporter *Reporter, log *logrus.Entry, opts ...PersisterOption) *BatchPersister {
	p := &BatchPersister{
		store:         s,
		reporter:      reporter,
		log:           log,
		maxRetries:    3,
		retryInterval: 200 * time.Millisecond,
		policy:        config.InvoicePolicyAppend,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PersistChunk writes one chunk and returns its final state. Record-level
// failures are reported and swallowed. A failed commit is returned as a
// *ChunkCommitError and none of the chunk's counts reach the reporter.
func (p *BatchPersister) PersistChunk(ctx context.Context, chunk int, outcomes []normalizer.Outcome) (ChunkState, error) {
	p.reporter.ChunkStarted(len(outcomes))
	log := p.log.WithFields(logrus.Fields{"chunk": chunk, "size": len(outcomes)})

	if !p.store.SupportsSavepoints() {
		return p.persistEach(ctx, chunk, outcomes, log)
	}

	var tally *chunkTally
	state := ChunkInTransaction
	log.WithField("state", state.String()).Debug("chunk started")
	err := p.store.Transaction(ctx, func(tx store.Tx) error {
		// A retried outer transaction starts from a clean tally.
		tally = newChunkTally()
		for _, o := range outcomes {
			if o.Skipped() {
				tally.skip(o.SkipReason)
				continue
			}
			p.persistIsolated(ctx, chunk, o, tally, log, func(fn func(store.Tx) error) error {
				return tx.Transaction(ctx, fn)
			})
		}
		return nil
	})
	if err != nil {
		state = ChunkRolledBack
		log.WithError(err).WithField("state", state.String()).Error("chunk commit failed")
		return state, &ChunkCommitError{Chunk: chunk, Err: err}
	}

	state = ChunkCommitted
	p.reporter.ChunkCommitted(tally)
	log.WithFields(logrus.Fields{
		"state":     state.String(),
		"processed": tally.counts.Processed,
		"errored":   len(tally.errors),
	}).Debug("chunk committed")
	return state, nil
}

// persistEach is used when the store cannot nest scopes: every record gets
// its own top-level transaction and the chunk only groups reporting.
func (p *BatchPersister) persistEach(ctx context.Context, chunk int, outcomes []normalizer.Outcome, log *logrus.Entry) (ChunkState, error) {
	tally := newChunkTally()
	for _, o := range outcomes {
		if o.Skipped() {
			tally.skip(o.SkipReason)
			continue
		}
		p.persistIsolated(ctx, chunk, o, tally, log, func(fn func(store.Tx) error) error {
			return p.store.Transaction(ctx, fn)
		})
	}
	p.reporter.ChunkCommitted(tally)
	log.WithFields(logrus.Fields{
		"state":     ChunkCommitted.String(),
		"processed": tally.counts.Processed,
		"errored":   len(tally.errors),
		"mode":      "per_record",
	}).Debug("chunk committed")
	return ChunkCommitted, nil
}

// persistIsolated runs one record inside scope, retrying transient failures.
func (p *BatchPersister) persistIsolated(ctx context.Context, chunk int, o normalizer.Outcome, tally *chunkTally, log *logrus.Entry, scope func(func(store.Tx) error) error) {
	var counts Counts
	operation := func() error {
		counts = Counts{}
		err := scope(func(tx store.Tx) error {
			return p.persistRecord(ctx, tx, o.Draft, &counts)
		})
		if err == nil || errors.Is(err, errAlreadyImported) {
			return backoff.Permanent(err)
		}
		if !p.store.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.RetryNotify(operation, p.newBackOff(ctx), func(err error, wait time.Duration) {
		log.WithError(err).WithFields(logrus.Fields{
			"record_id": o.RecordID,
			"wait":      wait.String(),
		}).Warn("transient failure, retrying record")
	})

	switch {
	case err == nil:
		tally.counts.add(counts)
	case errors.Is(err, errAlreadyImported):
		tally.skip(normalizer.SkipAlreadyImported)
		log.WithField("record_id", o.RecordID).Debug("invoice already imported, skipping")
	default:
		tally.fail(newRecordError(o.RecordID, chunk, err))
		log.WithError(err).WithFields(logrus.Fields{
			"record_id":      o.RecordID,
			"invoice_number": o.Draft.Invoice.InvoiceNumber,
		}).Error("record rolled back")
	}
}

func (p *BatchPersister) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retryInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.maxRetries)), ctx)
}

// persistRecord writes a draft in dependency order: parties, invoice, then
// the invoice's children.
func (p *BatchPersister) persistRecord(ctx context.Context, tx store.Tx, d *normalizer.Draft, counts *Counts) error {
	if p.policy == config.InvoicePolicySkipExisting {
		exists, err := tx.InvoiceExists(ctx, d.Invoice.SourceID)
		if err != nil {
			return err
		}
		if exists {
			return errAlreadyImported
		}
	}

	var vendorID, customerID *uuid.UUID
	if d.Vendor != nil {
		id, created, err := tx.UpsertVendor(ctx, *d.Vendor)
		if err != nil {
			return err
		}
		vendorID = &id
		if created {
			counts.VendorsCreated++
		} else {
			counts.VendorsReused++
		}
	}
	if d.Customer != nil {
		id, created, err := tx.UpsertCustomer(ctx, *d.Customer)
		if err != nil {
			return err
		}
		customerID = &id
		if created {
			counts.CustomersCreated++
		} else {
			counts.CustomersReused++
		}
	}

	invoiceID, err := tx.CreateInvoice(ctx, d.Invoice, vendorID, customerID)
	if err != nil {
		return err
	}
	counts.Invoices++

	for _, li := range d.LineItems {
		if err := tx.CreateLineItem(ctx, invoiceID, li); err != nil {
			return err
		}
		counts.LineItems++
	}

	if d.Payment != nil {
		if err := tx.CreatePayment(ctx, invoiceID, *d.Payment); err != nil {
			return err
		}
		counts.Payments++
	}

	if d.Document != nil {
		if err := tx.CreateDocument(ctx, invoiceID, *d.Document); err != nil {
			return err
		}
		counts.Documents++
	}

	counts.Processed = 1
	return nil
}
