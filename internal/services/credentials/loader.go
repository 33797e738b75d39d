package credentials

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/models"
	"github.com/xuri/excelize/v2"
)

type field int

const (
	fieldID field = iota
	fieldName
	fieldEmail
	fieldPassword
	fieldTOTP
)

// headerSynonyms maps a normalized header (lowercase, no whitespace) to its field
var headerSynonyms = map[string]field{
	"id":         fieldID,
	"profileid":  fieldID,
	"profile_id": fieldID,

	"name":         fieldName,
	"profilename":  fieldName,
	"profile_name": fieldName,

	"email":    fieldEmail,
	"e-mail":   fieldEmail,
	"username": fieldEmail,
	"user":     fieldEmail,
	"login":    fieldEmail,

	"password": fieldPassword,
	"pass":     fieldPassword,
	"pwd":      fieldPassword,

	"totp":        fieldTOTP,
	"2fa":         fieldTOTP,
	"secret":      fieldTOTP,
	"totpsecret":  fieldTOTP,
	"totp_secret": fieldTOTP,
	"2fasecret":   fieldTOTP,
}

// Loader parses credential spreadsheets (.xlsx via excelize, .csv)
type Loader struct {
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewLoader(logger arbor.ILogger) *Loader {
	return &Loader{
		validate: validator.New(),
		logger:   logger,
	}
}

// LoadFile reads credentials from path, choosing the parser by extension
func (l *Loader) LoadFile(path string) ([]models.Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return l.Load(f, path)
}

// Load reads credentials from r. name only selects the parser by extension.
func (l *Loader) Load(r io.Reader, name string) ([]models.Credentials, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return l.loadWorkbook(r, name)
	case ".csv":
		return l.LoadCSV(r)
	default:
		return nil, fmt.Errorf("unsupported credentials file type: %q", filepath.Ext(name))
	}
}

func (l *Loader) loadWorkbook(r io.Reader, name string) ([]models.Credentials, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", name)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return l.ParseRows(rows)
}

// LoadCSV reads credentials from CSV text with a header row
func (l *Loader) LoadCSV(r io.Reader) ([]models.Credentials, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return l.ParseRows(rows)
}

// ParseRows maps rows to credentials. The first non-empty row is the header.
// Rows missing an id, email or password are dropped without error.
func (l *Loader) ParseRows(rows [][]string) ([]models.Credentials, error) {
	headerIndex := -1
	for i, row := range rows {
		if !blank(row) {
			headerIndex = i
			break
		}
	}
	if headerIndex < 0 {
		return nil, nil
	}

	columns := make(map[field]int)
	for col, header := range rows[headerIndex] {
		if f, ok := headerSynonyms[normalizeHeader(header)]; ok {
			if _, seen := columns[f]; !seen {
				columns[f] = col
			}
		}
	}
	for _, required := range []field{fieldID, fieldEmail, fieldPassword} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("credentials header must include id, email and password columns")
		}
	}

	var creds []models.Credentials
	dropped := 0
	for _, row := range rows[headerIndex+1:] {
		if blank(row) {
			continue
		}
		c := models.Credentials{
			ProfileID:   cell(row, columns, fieldID),
			ProfileName: cell(row, columns, fieldName),
			Email:       cell(row, columns, fieldEmail),
			Password:    cell(row, columns, fieldPassword),
			TOTPSecret:  cell(row, columns, fieldTOTP),
		}
		if err := l.validate.Struct(c); err != nil {
			dropped++
			continue
		}
		creds = append(creds, c)
	}

	if dropped > 0 {
		l.logger.Debug().Int("dropped", dropped).Msg("Skipped incomplete credential rows")
	}
	return creds, nil
}

func normalizeHeader(header string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, strings.TrimPrefix(header, "\ufeff"))
}

func cell(row []string, columns map[field]int, f field) string {
	col, ok := columns[f]
	if !ok || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
