// Package reporter renders reconciliation results for the CLI: a human
// readable text summary or the full JSON partition.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"invoice-reconciliation-service/internal/models"
)

// Format selects the output rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// Write renders the result to w in the given format.
func Write(w io.Writer, result *models.MatchResult, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		return writeText(w, result)
	}
}

func writeText(w io.Writer, result *models.MatchResult) error {
	summary := result.Summary

	fmt.Fprintln(w, "Reconciliation Summary")
	fmt.Fprintln(w, "======================")
	fmt.Fprintf(w, "Invoices:            %d\n", summary.TotalInvoices)
	fmt.Fprintf(w, "Bank transactions:   %d\n", summary.TotalBank)
	fmt.Fprintf(w, "Matched pairs:       %d (high %d / medium %d / low %d)\n",
		summary.MatchedPairs, summary.HighConfidence, summary.MediumConfidence, summary.LowConfidence)
	fmt.Fprintf(w, "Unmatched invoices:  %d\n", summary.UnmatchedInvoices)
	fmt.Fprintf(w, "Unmatched bank:      %d\n", summary.UnmatchedBank)
	if summary.MatchedPairs > 0 {
		fmt.Fprintf(w, "Mean score:          %.3f\n", summary.MeanScore)
		fmt.Fprintf(w, "Amount matched:      %s\n", summary.TotalAmountMatched.StringFixed(2))
	}

	if len(result.Matches) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Matches")
		fmt.Fprintln(w, "-------")
		for _, match := range result.Matches {
			fmt.Fprintf(w, "  [%.3f %-6s] %s  <->  %s\n",
				match.Score, match.Confidence, describe(match.Invoice), describe(match.Bank))
		}
	}
	writeUnmatched(w, "Only in invoices", result.OnlyInInvoices)
	writeUnmatched(w, "Only in bank statement", result.OnlyInBank)
	return nil
}

func writeUnmatched(w io.Writer, title string, txns []*models.Transaction) {
	if len(txns) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
	for _, txn := range txns {
		fmt.Fprintf(w, "  %s\n", describe(txn))
	}
}

func describe(txn *models.Transaction) string {
	date := "no date"
	if txn.HasDate() {
		date = txn.Date.Format("2006-01-02")
	}
	desc := txn.Description
	if desc == "" {
		desc = "(no description)"
	}
	if runes := []rune(desc); len(runes) > 48 {
		desc = string(runes[:48]) + "..."
	}
	return fmt.Sprintf("%s %s %s", txn.Amount.StringFixed(2), date, desc)
}
