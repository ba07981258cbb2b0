package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"scan-in-analytics/pkg/config"
	"scan-in-analytics/pkg/models"
	"scan-in-analytics/pkg/services/extraction"
	"scan-in-analytics/pkg/services/normalizer"
	"scan-in-analytics/pkg/store"
)

type Options struct {
	ChunkSize     int
	MaxRetries    int
	RetryInterval time.Duration
	InvoicePolicy string
	// Reset clears previously ingested rows before the first chunk.
	Reset         bool
}

// OptionsFromConfig copies the ingestion settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ChunkSize:     cfg.ChunkSize,
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryInterval,
		InvoicePolicy: cfg.InvoicePolicy,
	}
}

type IngestionService struct {
	store      store.Store
	normalizer *normalizer.Normalizer
	opts       Options
	log        *logrus.Entry
	now        func() time.Time
}

func NewIngestionService(s store.Store, n *normalizer.Normalizer, opts Options, log *logrus.Entry) *IngestionService {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 100
	}
	if opts.InvoicePolicy == "" {
		opts.InvoicePolicy = config.InvoicePolicyAppend
	}
	return &IngestionService{
		store:      s,
		normalizer: n,
		opts:       opts,
		log:        log,
		now:        time.Now,
	}
}

// Execute ingests the corpus at path. The returned summary reflects every
// committed chunk, also when a fatal error stops the run early.
func (h *IngestionService) Execute(ctx context.Context, path string) (Summary, error) {
	started := h.now()
	reporter := NewReporter(h.log)

	// Step 1: Load and decode the whole corpus. Nothing is written when
	// this fails.
	corpus, err := LoadCorpus(path)
	if err != nil {
		return reporter.Summary(), err
	}
	log := h.log.WithFields(logrus.Fields{"file": corpus.FileName, "checksum": corpus.Checksum})
	log.WithField("records", len(corpus.Records)).Info("corpus loaded")

	// Step 2: Warn about re-runs. Re-ingesting under the append policy
	// duplicates invoices.
	if runs, err := h.store.CountRuns(ctx, corpus.Checksum); err != nil {
		log.WithError(err).Warn("could not look up previous runs")
	} else if runs > 0 && !h.opts.Reset {
		log.WithFields(logrus.Fields{
			"previous_runs": runs,
			"policy":        h.opts.InvoicePolicy,
		}).Warn("corpus was ingested before")
	}

	if h.opts.Reset {
		log.Info("resetting ingested tables")
		if err := h.store.Reset(ctx); err != nil {
			return reporter.Summary(), err
		}
	}

	persister := NewBatchPersister(h.store, reporter, log,
		WithRetries(h.opts.MaxRetries, h.opts.RetryInterval),
		WithInvoicePolicy(h.opts.InvoicePolicy),
	)

	// Step 3: Normalize and persist chunk by chunk, in input order.
	reporter.Seen(len(corpus.Records))
	for i, records := range Chunks(corpus.Records, h.opts.ChunkSize) {
		if err := ctx.Err(); err != nil {
			return h.finish(ctx, corpus, reporter, started, log), err
		}

		outcomes := make([]normalizer.Outcome, 0, len(records))
		for _, raw := range records {
			outcomes = append(outcomes, h.normalize(raw, log))
		}

		if _, err := persister.PersistChunk(ctx, i+1, outcomes); err != nil {
			return h.finish(ctx, corpus, reporter, started, log), err
		}
	}

	return h.finish(ctx, corpus, reporter, started, log), nil
}

func (h *IngestionService) normalize(raw extraction.RawRecord, log *logrus.Entry) normalizer.Outcome {
	o := h.normalizer.Normalize(raw)
	if o.Skipped() {
		log.WithFields(logrus.Fields{
			"record_id": o.RecordID,
			"reason":    string(o.SkipReason),
		}).Debug("record skipped")
	}
	return o
}

// finish closes the report and records the run in the ledger. A ledger
// failure is logged but does not fail the run.
func (h *IngestionService) finish(ctx context.Context, corpus *Corpus, reporter *Reporter, started time.Time, log *logrus.Entry) Summary {
	finished := h.now()
	summary := reporter.Finish(corpus.Checksum, finished.Sub(started))
	summary.Log(log)

	payload, err := json.Marshal(summary)
	if err != nil {
		log.WithError(err).Warn("could not encode run summary")
		payload = []byte("{}")
	}
	run := &models.IngestRun{
		FileName:   corpus.FileName,
		Checksum:   corpus.Checksum,
		StartedAt:  started,
		FinishedAt: finished,
		Summary:    datatypes.JSON(payload),
	}
	if err := h.store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.WithError(err).Warn("could not record ingest run")
	}
	return summary
}
