package cli

import (
	"github.com/spf13/cobra"

	"scan-in-analytics/pkg/config"
	"scan-in-analytics/pkg/services/ingest"
	"scan-in-analytics/pkg/services/normalizer"
)

type ingestFlags struct {
	chunkSize     int
	maxRetries    int
	invoicePolicy string
	reset         bool
}

func newIngestCmd(a *app) *cobra.Command {
	f := &ingestFlags{}
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest an extraction export",
		Long: `Loads a JSON array of extraction records and persists it in chunks.
Records without extraction data or without an invoice number are skipped,
records that fail to persist are rolled back individually. The command exits
with status 0 when the run completes, even if records were skipped or failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIngest(cmd, args[0], f)
		},
	}
	cmd.Flags().IntVar(&f.chunkSize, "chunk-size", 0, "records per transaction (overrides INGEST_CHUNK_SIZE)")
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", 0, "retries for transient failures (overrides INGEST_MAX_RETRIES)")
	cmd.Flags().StringVar(&f.invoicePolicy, "invoice-policy", "", "append or skip-existing (overrides INVOICE_POLICY)")
	cmd.Flags().BoolVar(&f.reset, "reset", false, "delete previously ingested rows first")
	return cmd
}

func (a *app) runIngest(cmd *cobra.Command, path string, f *ingestFlags) error {
	flags := cmd.Flags()
	if flags.Changed("chunk-size") {
		a.cfg.ChunkSize = f.chunkSize
	}
	if flags.Changed("max-retries") {
		a.cfg.MaxRetries = f.maxRetries
	}
	if flags.Changed("invoice-policy") {
		a.cfg.InvoicePolicy = f.invoicePolicy
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	backend, err := openBackend(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	opts := ingest.OptionsFromConfig(a.cfg)
	opts.Reset = f.reset
	svc := ingest.NewIngestionService(backend, normalizer.New(), opts, a.entry("ingest"))

	summary, err := svc.Execute(cmd.Context(), path)
	if err != nil {
		config.LogError(a.logger, "cli", "runIngest", "ingestion aborted", map[string]any{
			"file":             path,
			"chunks_committed": summary.ChunksCommitted,
		}, err)
		return err
	}

	_, err = summary.WriteTo(cmd.OutOrStdout())
	return err
}
