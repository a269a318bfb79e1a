package parsers

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"invoice-reconciliation-service/internal/models"
	engineerrors "invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// columnAliases maps the header names seen across statement exports to
// canonical field names.
var columnAliases = map[string]string{
	"description":      "description",
	"memo":             "description",
	"details":          "description",
	"narrative":        "description",
	"amount":           "amount",
	"value":            "amount",
	"date":             "date",
	"transaction_date": "date",
	"posted_date":      "date",
	"vendor":           "vendor_name",
	"vendor_name":      "vendor_name",
	"payee":            "vendor_name",
	"invoice_number":   "invoice_number",
	"invoice_no":       "invoice_number",
	"invoice":          "invoice_number",
	"currency":         "currency",
	"reference":        "reference_id",
	"reference_id":     "reference_id",
	"ref":              "reference_id",
	"direction":        "direction",
	"type":             "direction",
	"balance":          "balance",
}

// LoadCSV loads transactions from a headered CSV file. Rows with
// malformed amounts are kept but flagged; rows with malformed dates keep
// no date. Both cases land in the returned summary.
func LoadCSV(path string, source models.TransactionSource) ([]*models.Transaction, *engineerrors.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, engineerrors.ParseError(engineerrors.CodeFileNotFound, path, err)
		}
		return nil, nil, engineerrors.ParseError(engineerrors.CodeInvalidFormat, path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, engineerrors.ParseError(engineerrors.CodeInvalidFormat, path, err).
			WithSuggestion("CSV files need a header row")
	}
	columns := mapColumns(header)
	if _, ok := columns["amount"]; !ok {
		return nil, nil, engineerrors.ParseError(engineerrors.CodeInvalidFormat, path, nil).
			WithSuggestion("CSV header must include an amount column")
	}

	var txns []*models.Transaction
	var rowErrors []*engineerrors.Error
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			rowErrors = append(rowErrors,
				engineerrors.InputError(engineerrors.CodeInvalidFormat, "row", err.Error()).
					WithContext("row", row))
			continue
		}

		txn := &models.Transaction{Source: source}
		get := func(field string) string {
			idx, ok := columns[field]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		if raw := get("amount"); raw != "" {
			amount, err := models.ParseAmount(raw)
			if err != nil {
				txn.InvalidAmount = true
				rowErrors = append(rowErrors,
					engineerrors.InputError(engineerrors.CodeInvalidAmount, "amount", raw).
						WithContext("row", row))
			} else {
				txn.Amount = amount
			}
		} else {
			txn.InvalidAmount = true
			rowErrors = append(rowErrors,
				engineerrors.InputError(engineerrors.CodeMissingField, "amount", "").
					WithContext("row", row))
		}

		if raw := get("date"); raw != "" {
			date, err := models.ParseDate(raw)
			if err != nil {
				rowErrors = append(rowErrors,
					engineerrors.InputError(engineerrors.CodeInvalidDate, "date", raw).
						WithContext("row", row))
			} else {
				txn.Date = &date
			}
		}

		txn.Description = get("description")
		txn.VendorName = get("vendor_name")
		txn.InvoiceNumber = get("invoice_number")
		txn.Currency = strings.ToUpper(get("currency"))
		txn.ReferenceID = get("reference_id")
		switch strings.ToLower(get("direction")) {
		case "credit":
			txn.Direction = models.DirectionCredit
		case "debit":
			txn.Direction = models.DirectionDebit
		}
		if raw := get("balance"); raw != "" {
			if balance, err := models.ParseAmount(raw); err == nil {
				txn.Balance = &balance
			}
		}
		txns = append(txns, txn)
	}

	logLoad(path, source, len(txns), len(rowErrors))
	return txns, engineerrors.NewSummary(rowErrors), nil
}

func mapColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, " ", "_")
		if canonical, ok := columnAliases[key]; ok {
			if _, taken := columns[canonical]; !taken {
				columns[canonical] = i
			}
		}
	}
	return columns
}

func logLoad(path string, source models.TransactionSource, count, problems int) {
	logger.WithComponent("parsers").WithFields(logger.Fields{
		"path":     path,
		"source":   source.String(),
		"loaded":   count,
		"problems": problems,
	}).Debug("transactions loaded")
}
