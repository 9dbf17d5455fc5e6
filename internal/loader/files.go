package loader

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/omics-warehouse-loader/internal/reconcile"
)

// csvSource adapts a csv.Reader to the reconcile row interface.
type csvSource struct {
	reader *csv.Reader
}

func (s *csvSource) Next() ([]string, error) {
	row, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// openRows opens a delimited text file as a row source. Rows are returned
// verbatim, ragged widths included; width checks belong to the reconcilers.
func openRows(path string, comma rune) (reconcile.RowSource, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return &csvSource{reader: reader}, f.Close, nil
}

// openTable opens a delimited file whose first row is a header.
func openTable(path string, comma rune) ([]string, reconcile.RowSource, func() error, error) {
	rows, closeFn, err := openRows(path, comma)
	if err != nil {
		return nil, nil, nil, err
	}
	header, err := rows.Next()
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return header, rows, closeFn, nil
}
