package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/internal/reporter"
)

var (
	invoiceFile  string
	bankFile     string
	outputFormat string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile an invoice export against a bank statement export",
	Example: `  reconciler reconcile --invoice-file invoices.json --bank-file statement.csv
  reconciler reconcile --invoice-file invoices.csv --bank-file statement.csv -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := reporter.ParseFormat(outputFormat)
		if err != nil {
			return err
		}

		svc, err := reconciler.New(cfg)
		if err != nil {
			return err
		}
		defer svc.Shutdown()

		result, err := svc.ReconcileFiles(cmd.Context(), invoiceFile, bankFile)
		if err != nil {
			return err
		}
		return reporter.Write(os.Stdout, result, format)
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&invoiceFile, "invoice-file", "", "invoice transactions file (.json or .csv)")
	reconcileCmd.Flags().StringVar(&bankFile, "bank-file", "", "bank statement transactions file (.json or .csv)")
	reconcileCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json)")
	reconcileCmd.MarkFlagRequired("invoice-file")
	reconcileCmd.MarkFlagRequired("bank-file")
	rootCmd.AddCommand(reconcileCmd)
}
