// Package export writes tabular report downloads.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Format is a download format
type Format string

const (
	// CSV is comma separated values
	CSV Format = "csv"
	// TSV is tab separated values, served for spreadsheet (xlsx) requests
	TSV Format = "tsv"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names
var ErrUnknownFormat = errors.New("unsupported export format")

// ParseFormat maps a query parameter onto a Format. Empty means CSV; "xlsx" is served as TSV.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "csv":
		return CSV, nil
	case "tsv", "xlsx":
		return TSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// ContentType returns the MIME type of f
func (f Format) ContentType() string {
	if f == TSV {
		return "text/tab-separated-values; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

// Extension returns the file extension of f without a dot
func (f Format) Extension() string {
	return string(f)
}

// Filename builds a download name like "subscriptions_<suffix>.csv"
func (f Format) Filename(base, suffix string) string {
	if suffix == "" {
		return base + "." + f.Extension()
	}
	return base + "_" + suffix + "." + f.Extension()
}

// Table is a header plus rows of already formatted cells
type Table struct {
	Header []string
	Rows   [][]string
}

// Append adds a row
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Write encodes t to w in format f
func Write(w io.Writer, f Format, t *Table) error {
	cw := csv.NewWriter(w)
	if f == TSV {
		cw.Comma = '\t'
	}
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// Money formats an amount with two decimals
func Money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Date formats t as YYYY-MM-DD
func Date(t time.Time) string {
	return t.Format("2006-01-02")
}

// Optional dereferences s or returns ""
func Optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OptionalID formats id or returns ""
func OptionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
