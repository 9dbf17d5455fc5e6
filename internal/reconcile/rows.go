package reconcile

import (
	"io"
	"strconv"
	"strings"

	"github.com/omics-warehouse-loader/internal/domain"
)

// RowSource streams the data rows of a parsed table. Next returns io.EOF
// after the last row. File-format tokenizing stays outside this package;
// reconciliation only sees string fields.
type RowSource interface {
	Next() ([]string, error)
}

// SliceSource is a RowSource over in-memory rows.
type SliceSource struct {
	rows [][]string
	pos  int
}

// NewSliceSource creates a RowSource over rows.
func NewSliceSource(rows [][]string) *SliceSource {
	return &SliceSource{rows: rows}
}

func (s *SliceSource) Next() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// Summary counts per-file reconciliation outcomes, so data completeness can
// be judged without reading logs.
type Summary struct {
	File              string
	Rows              int
	Emitted           int
	DroppedGene       int // rows whose gene did not resolve
	DroppedReference  int // rows whose condition/sample reference was missing
	DroppedColumns    int // columns without a usable mapping
	DuplicateColumns  int // matrix columns collapsed into an earlier one
	SkippedValues     int // unparseable or sentinel cells
}

// parseMeasure parses one numeric cell. The "NA" sentinel, empty and
// unparseable values yield nil (attribute omitted). When zeroSentinel is set
// an exact zero also yields nil; that convention applies to count and
// abundance fields only, never fold changes or statistics.
func parseMeasure(value string, zeroSentinel bool) *float64 {
	value = strings.TrimSpace(value)
	if value == "" || value == domain.NotAvailable {
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	if zeroSentinel && v == 0 {
		return nil
	}
	return &v
}
