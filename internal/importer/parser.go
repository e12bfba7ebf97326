// Package importer turns a comma-separated product sheet into row records.
//
// The format is deliberately simple: the first line is a header naming the
// columns, every other non-empty line is a data row. Values are split on commas
// without any quoting support, so a comma inside a value shifts the remaining
// columns. Existing import files depend on this behavior.
package importer

import (
	"errors"
	"math"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/spf13/cast"
)

// Recognized header names. Matching is case-insensitive.
const (
	ColumnName              = "name"
	ColumnMRP               = "mrp"
	ColumnSellingPrice      = "sellingprice"
	ColumnQuantity          = "quantity"
	ColumnCategory          = "category"
	ColumnDescription       = "description"
	ColumnImageURL          = "imageurl"
	ColumnLowStockThreshold = "lowstockthreshold"
)

const delimiter = ","

var (
	// ErrNotCSV is returned for files without a .csv extension.
	ErrNotCSV = errors.New("please upload a CSV file")
	// ErrEmptyPayload is returned when the payload has no header line.
	ErrEmptyPayload = errors.New("import file is empty")
	// ErrMissingRequired is the row failure for an empty name or category.
	ErrMissingRequired = errors.New("missing required fields (name or category)")
	// ErrNegativeValue is the row failure for negative prices or quantities.
	ErrNegativeValue = errors.New("prices and quantity must not be negative")
)

var recognized = map[string]struct{}{
	ColumnName: {}, ColumnMRP: {}, ColumnSellingPrice: {}, ColumnQuantity: {},
	ColumnCategory: {}, ColumnDescription: {}, ColumnImageURL: {}, ColumnLowStockThreshold: {},
}

var validate = validator.New()

// CheckFileName rejects files that do not carry a .csv extension.
func CheckFileName(name string) error {
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return ErrNotCSV
	}
	return nil
}

// Sheet is a parsed import payload.
type Sheet struct {
	// Columns maps a recognized column name to its position in the header.
	Columns map[string]int
	Rows    []Row
}

// Row is one data line. Line is the index of the line in the payload, the
// header being line 0.
type Row struct {
	Line   int
	Values map[string]string
}

// Parse splits payload into a header and data rows. Unrecognized header
// columns are ignored and blank lines are skipped.
func Parse(payload string) (*Sheet, error) {
	lines := strings.Split(payload, "\n")
	header := strings.TrimSpace(lines[0])
	if header == "" {
		return nil, ErrEmptyPayload
	}

	sheet := &Sheet{Columns: map[string]int{}}
	for i, name := range strings.Split(header, delimiter) {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, ok := recognized[name]; !ok {
			continue
		}
		// First occurrence wins.
		if _, seen := sheet.Columns[name]; !seen {
			sheet.Columns[name] = i
		}
	}

	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		values := strings.Split(line, delimiter)
		row := Row{Line: i, Values: make(map[string]string, len(sheet.Columns))}
		for name, pos := range sheet.Columns {
			if pos < len(values) {
				row.Values[name] = strings.TrimSpace(values[pos])
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet, nil
}

// Record is a row coerced into product fields.
type Record struct {
	Name              string  `validate:"required"`
	Category          string  `validate:"required"`
	MRP               float64 `validate:"gte=0"`
	SellingPrice      float64 `validate:"gte=0"`
	Quantity          int     `validate:"gte=0"`
	LowStockThreshold int
	Description       string
	ImageURL          string
}

// Record coerces the row values. Numbers that fail to parse become 0 and a
// missing or zero threshold becomes the default.
func (r Row) Record() Record {
	threshold := toInt(r.Values[ColumnLowStockThreshold])
	if threshold == 0 {
		threshold = model.DefaultLowStockThreshold
	}
	return Record{
		Name:              r.Values[ColumnName],
		Category:          r.Values[ColumnCategory],
		MRP:               cast.ToFloat64(r.Values[ColumnMRP]),
		SellingPrice:      cast.ToFloat64(r.Values[ColumnSellingPrice]),
		Quantity:          toInt(r.Values[ColumnQuantity]),
		LowStockThreshold: threshold,
		Description:       r.Values[ColumnDescription],
		ImageURL:          r.Values[ColumnImageURL],
	}
}

// toInt reads value as a decimal number and drops the fraction. Spreadsheet
// exports pad counts with zeros, so "010" must stay ten.
func toInt(value string) int {
	f := cast.ToFloat64(value)
	if math.IsNaN(f) || math.Abs(f) > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// Validate reports the row-level failure of a record, if any.
func (r Record) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if fe.Tag() == "required" {
				return ErrMissingRequired
			}
		}
		return ErrNegativeValue
	}
	return err
}
