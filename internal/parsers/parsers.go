// Package parsers loads transaction lists from the JSON and CSV exports
// produced by the document extraction pipeline. Loading is lenient at the
// row level: a malformed amount or date degrades the row instead of
// failing the file, and the per-row problems come back in an error
// summary for reporting.
package parsers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"invoice-reconciliation-service/internal/models"
	engineerrors "invoice-reconciliation-service/pkg/errors"
)

// LoadTransactions loads a transaction file, dispatching on extension.
// The returned summary collects non-fatal row problems; the error is
// non-nil only when the file itself cannot be loaded.
func LoadTransactions(path string, source models.TransactionSource) ([]*models.Transaction, *engineerrors.Summary, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path, source)
	case ".csv":
		return LoadCSV(path, source)
	default:
		return nil, nil, engineerrors.ParseError(engineerrors.CodeInvalidFormat, path, nil).
			WithSuggestion("supported formats are .json and .csv")
	}
}

// LoadJSON loads a JSON array of transactions.
func LoadJSON(path string, source models.TransactionSource) ([]*models.Transaction, *engineerrors.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, engineerrors.ParseError(engineerrors.CodeFileNotFound, path, err)
		}
		return nil, nil, engineerrors.ParseError(engineerrors.CodeInvalidFormat, path, err)
	}

	var txns []*models.Transaction
	if err := json.Unmarshal(data, &txns); err != nil {
		return nil, nil, engineerrors.ParseError(engineerrors.CodeInvalidFormat, path, err)
	}

	var rowErrors []*engineerrors.Error
	kept := txns[:0]
	for i, txn := range txns {
		if txn == nil {
			rowErrors = append(rowErrors,
				engineerrors.InputError(engineerrors.CodeMissingField, "row", nil).
					WithContext("row", i))
			continue
		}
		kept = append(kept, txn)
		txn.Source = source
		if txn.InvalidAmount {
			rowErrors = append(rowErrors,
				engineerrors.InputError(engineerrors.CodeInvalidAmount, "amount", "").
					WithContext("row", i))
		}
	}
	logLoad(path, source, len(kept), len(rowErrors))
	return kept, engineerrors.NewSummary(rowErrors), nil
}
