package cli

import (
	"github.com/spf13/cobra"
)

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete all ingested rows",
		Long: `Deletes documents, payments, line items, invoices, customers and vendors
in one transaction. The ingest run history is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := openBackend(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer backend.Close()

			if err := backend.Reset(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("All ingested data cleared.")
			return nil
		},
	}
}
