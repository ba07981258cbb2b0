package ingest

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"scan-in-analytics/pkg/services/normalizer"
)

// Counts are the per-entity outcomes of a run or of a single chunk.
type Counts struct {
	Processed        int `json:"processed"`
	VendorsCreated   int `json:"vendors_created"`
	VendorsReused    int `json:"vendors_reused"`
	CustomersCreated int `json:"customers_created"`
	CustomersReused  int `json:"customers_reused"`
	Invoices         int `json:"invoices"`
	LineItems        int `json:"line_items"`
	Payments         int `json:"payments"`
	Documents        int `json:"documents"`
}

func (c *Counts) add(o Counts) {
	c.Processed += o.Processed
	c.VendorsCreated += o.VendorsCreated
	c.VendorsReused += o.VendorsReused
	c.CustomersCreated += o.CustomersCreated
	c.CustomersReused += o.CustomersReused
	c.Invoices += o.Invoices
	c.LineItems += o.LineItems
	c.Payments += o.Payments
	c.Documents += o.Documents
}

// Summary is the final report of an ingestion run.
type Summary struct {
	Counts
	RecordsSeen     int                           `json:"records_seen"`
	Skipped         int                           `json:"skipped"`
	SkipReasons     map[normalizer.SkipReason]int `json:"skip_reasons"`
	Errored         int                           `json:"errored"`
	Errors          []*RecordError                `json:"errors,omitempty"`
	Chunks          int                           `json:"chunks"`
	ChunksCommitted int                           `json:"chunks_committed"`
	ChunkSizes      []int                         `json:"chunk_sizes"`
	Checksum        string                        `json:"checksum"`
	Duration        time.Duration                 `json:"duration"`
}

// chunkTally collects one chunk's outcomes until the chunk commits.
type chunkTally struct {
	counts  Counts
	skipped map[normalizer.SkipReason]int
	errors  []*RecordError
}

func newChunkTally() *chunkTally {
	return &chunkTally{skipped: make(map[normalizer.SkipReason]int)}
}

func (t *chunkTally) skip(reason normalizer.SkipReason) {
	t.skipped[reason]++
}

func (t *chunkTally) fail(err *RecordError) {
	t.errors = append(t.errors, err)
}

// Reporter accumulates run statistics.
type Reporter struct {
	summary Summary
	log     *logrus.Entry
}

func NewReporter(log *logrus.Entry) *Reporter {
	return &Reporter{
		summary: Summary{SkipReasons: make(map[normalizer.SkipReason]int)},
		log:     log,
	}
}

func (r *Reporter) Seen(n int) {
	r.summary.RecordsSeen += n
}

func (r *Reporter) ChunkStarted(size int) {
	r.summary.Chunks++
	r.summary.ChunkSizes = append(r.summary.ChunkSizes, size)
}

// ChunkCommitted merges a committed chunk's tally into the run totals.
func (r *Reporter) ChunkCommitted(t *chunkTally) {
	r.summary.ChunksCommitted++
	r.summary.add(t.counts)
	for reason, n := range t.skipped {
		r.summary.Skipped += n
		r.summary.SkipReasons[reason] += n
	}
	r.summary.Errored += len(t.errors)
	r.summary.Errors = append(r.summary.Errors, t.errors...)
}

func (r *Reporter) Finish(checksum string, d time.Duration) Summary {
	r.summary.Checksum = checksum
	r.summary.Duration = d
	return r.Summary()
}

func (r *Reporter) Summary() Summary {
	s := r.summary
	s.SkipReasons = make(map[normalizer.SkipReason]int, len(r.summary.SkipReasons))
	for k, v := range r.summary.SkipReasons {
		s.SkipReasons[k] = v
	}
	s.ChunkSizes = append([]int(nil), r.summary.ChunkSizes...)
	s.Errors = append([]*RecordError(nil), r.summary.Errors...)
	return s
}

// Log emits the summary as one structured entry.
func (s Summary) Log(log *logrus.Entry) {
	log.WithFields(logrus.Fields{
		"records_seen":      s.RecordsSeen,
		"processed":         s.Processed,
		"skipped":           s.Skipped,
		"errored":           s.Errored,
		"vendors_created":   s.VendorsCreated,
		"vendors_reused":    s.VendorsReused,
		"customers_created": s.CustomersCreated,
		"customers_reused":  s.CustomersReused,
		"invoices":          s.Invoices,
		"line_items":        s.LineItems,
		"payments":          s.Payments,
		"documents":         s.Documents,
		"chunks":            s.ChunksCommitted,
		"checksum":          s.Checksum,
		"duration":          s.Duration.String(),
	}).Info("ingestion finished")
}

// WriteTo prints the human-readable summary.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	fmt.Fprintln(cw, "Ingestion summary")
	fmt.Fprintf(cw, "  Records seen:   %d\n", s.RecordsSeen)
	fmt.Fprintf(cw, "  Processed:      %d\n", s.Processed)
	fmt.Fprintf(cw, "  Skipped:        %d\n", s.Skipped)
	reasons := make([]string, 0, len(s.SkipReasons))
	for reason := range s.SkipReasons {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(cw, "    %-22s %d\n", reason+":", s.SkipReasons[normalizer.SkipReason(reason)])
	}
	fmt.Fprintf(cw, "  Errored:        %d\n", s.Errored)
	fmt.Fprintf(cw, "  Vendors:        %d created, %d reused\n", s.VendorsCreated, s.VendorsReused)
	fmt.Fprintf(cw, "  Customers:      %d created, %d reused\n", s.CustomersCreated, s.CustomersReused)
	fmt.Fprintf(cw, "  Invoices:       %d\n", s.Invoices)
	fmt.Fprintf(cw, "  Line items:     %d\n", s.LineItems)
	fmt.Fprintf(cw, "  Payments:       %d\n", s.Payments)
	fmt.Fprintf(cw, "  Documents:      %d\n", s.Documents)
	fmt.Fprintf(cw, "  Chunks:         %d committed\n", s.ChunksCommitted)
	return cw.n, cw.err
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
