package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Contact is one validated recipient. Built once per run, immutable after.
type Contact struct {
	SourceIndex   int    // 0-based row in the spreadsheet, for error reporting
	SequenceIndex int    // 0-based position among valid contacts, for resume
	Phone         string // canonical digits, country code prefixed
	Name          string // raw name, for logs
	DisplayName   string // accent-stripped name, for message text
	Expiry        string // DD/MM/YYYY
}

const (
	colPhone  = "CELULAR"
	colName   = "NOMBRES"
	colExpiry = "FECHA FIN"
)

// LoadContacts reads the contact spreadsheet and returns the ordered valid
// contacts plus the number of rows dropped by phone validation. The first
// row of the sheet is decorative; the real header sits on the second row.
// Rows whose phone cell does not normalize are dropped, not retried.
func LoadContacts(path string, normalizer *PhoneNormalizer) ([]Contact, int, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, 0, fmt.Errorf("unsupported contact file format %q: only .xlsx and .csv are supported", filepath.Ext(path))
	}
	if err != nil {
		return nil, 0, err
	}

	if len(rows) < 2 {
		return nil, 0, fmt.Errorf("contact file %s has no header row", path)
	}

	header := rows[1]
	phoneIdx, nameIdx, expiryIdx := -1, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case colPhone:
			phoneIdx = i
		case colName:
			nameIdx = i
		case colExpiry:
			expiryIdx = i
		}
	}
	if phoneIdx == -1 || nameIdx == -1 || expiryIdx == -1 {
		return nil, 0, fmt.Errorf("contact file must contain %q, %q and %q columns", colPhone, colName, colExpiry)
	}

	contacts := make([]Contact, 0, len(rows)-2)
	dropped := 0
	for i, row := range rows[2:] {
		sourceIndex := i + 2 // 0-based row in the sheet itself, past the decorative and header rows

		phone, ok := normalizer.Normalize(cell(row, phoneIdx))
		if !ok {
			if strings.TrimSpace(cell(row, phoneIdx)) != "" || strings.TrimSpace(cell(row, nameIdx)) != "" {
				dropped++
				Logf("debug", "dropping row %d: phone %q does not normalize", sourceIndex, cell(row, phoneIdx))
			}
			continue
		}

		name := strings.TrimSpace(cell(row, nameIdx))
		contacts = append(contacts, Contact{
			SourceIndex:   sourceIndex,
			SequenceIndex: len(contacts),
			Phone:         phone,
			Name:          name,
			DisplayName:   StripAccents(name),
			Expiry:        FormatExpiry(cell(row, expiryIdx)),
		})
	}

	return contacts, dropped, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read xlsx rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return records, nil
}
