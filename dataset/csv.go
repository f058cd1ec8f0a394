// Package dataset loads mileage/price samples from CSV files.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

// Default column names of the sample file.
const (
	DefaultMileageColumn = "km"
	DefaultPriceColumn   = "price"
)

// missingMarkers are cell values treated as missing (compared case-insensitively
// after trimming). A row with a missing mileage or price is dropped.
var missingMarkers = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"#n/a": {},
	"<na>": {},
	"nan":  {},
	"-nan": {},
	"null": {},
	"none": {},
}

// Samples is an ordered set of (mileage, price) pairs. Both slices have the
// same length and hold only finite values.
type Samples struct {
	Mileage []float64
	Price   []float64

	// Source is the file the samples were read from.
	Source string
	// Dropped counts rows skipped because a required cell was missing.
	Dropped int
}

// Len returns the number of samples.
func (s *Samples) Len() int {
	return len(s.Mileage)
}

// MaxMileage returns the largest mileage, or 0 for an empty set.
func (s *Samples) MaxMileage() float64 {
	if len(s.Mileage) == 0 {
		return 0
	}
	m := s.Mileage[0]
	for _, v := range s.Mileage[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Loader reads sample files.
type Loader struct {
	mileageColumn string
	priceColumn   string
	logger        log.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithColumns overrides the mileage and price column names.
func WithColumns(mileage, price string) Option {
	return func(l *Loader) {
		if mileage != "" {
			l.mileageColumn = mileage
		}
		if price != "" {
			l.priceColumn = price
		}
	}
}

// WithLogger sets the logger used to report dropped rows.
func WithLogger(logger log.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader returns a Loader reading the default "km" and "price" columns.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		mileageColumn: DefaultMileageColumn,
		priceColumn:   DefaultPriceColumn,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the CSV file at path.
func (l *Loader) Load(path string) (*Samples, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(path, "file not found", err)
		}
		return nil, errors.NewInputError(path, "cannot open file", err)
	}
	defer f.Close()

	return l.Read(f, path)
}

// Read parses CSV from r. source names the input in errors and logs.
//
// The first record is the header. Extra columns are ignored. Rows whose
// mileage or price cell is missing are dropped; any other non-numeric or
// non-finite value fails the whole load.
func (l *Loader) Read(r io.Reader, source string) (*Samples, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewInputError(source, "file is empty", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.NewInputError(source, "malformed CSV header", err)
	}
	mi, pi := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case l.mileageColumn:
			mi = i
		case l.priceColumn:
			pi = i
		}
	}
	if mi < 0 {
		return nil, errors.NewInputCellError(source, 0, l.mileageColumn, "column not found", nil)
	}
	if pi < 0 {
		return nil, errors.NewInputCellError(source, 0, l.priceColumn, "column not found", nil)
	}

	s := &Samples{Source: source}
	row := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, errors.NewInputCellError(source, row, "", "malformed CSV record", err)
		}

		mCell, pCell := cell(rec, mi), cell(rec, pi)
		if isMissing(mCell) || isMissing(pCell) {
			s.Dropped++
			continue
		}
		m, err := parseCell(source, row, l.mileageColumn, mCell)
		if err != nil {
			return nil, err
		}
		p, err := parseCell(source, row, l.priceColumn, pCell)
		if err != nil {
			return nil, err
		}
		s.Mileage = append(s.Mileage, m)
		s.Price = append(s.Price, p)
	}

	if s.Len() == 0 {
		return nil, errors.NewInputError(source, "no valid rows after removing missing values", errors.ErrEmptyData)
	}
	if s.Dropped > 0 {
		l.log().Warn("Dropped rows with missing values",
			log.OperationKey, log.OperationLoad,
			log.SourceKey, source,
			log.DroppedKey, s.Dropped,
		)
	}
	l.log().Debug("Samples loaded",
		log.OperationKey, log.OperationLoad,
		log.SourceKey, source,
		log.SamplesKey, s.Len(),
	)
	return s, nil
}

func (l *Loader) log() log.Logger {
	if l.logger != nil {
		return l.logger
	}
	return log.GetLoggerWithName("dataset")
}

// Load reads path with the default columns.
func Load(path string) (*Samples, error) {
	return NewLoader().Load(path)
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func isMissing(v string) bool {
	_, ok := missingMarkers[strings.ToLower(v)]
	return ok
}

func parseCell(source string, row int, column, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.NewInputCellError(source, row, column, "non-numeric value "+strconv.Quote(v), err)
	}
	if !errors.IsFinite(f) {
		return 0, errors.NewInputCellError(source, row, column, "non-finite value "+strconv.Quote(v), nil)
	}
	return f, nil
}
