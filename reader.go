package feedload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// recordReader yields the rows of one feed file as field name -> raw value
// maps. Cells missing from short rows are absent from the map.
type recordReader struct {
	name   string
	csv    *csv.Reader
	header []string
	row    int
}

func newRecordReader(name string, r io.Reader) (*recordReader, error) {
	csvReader := bomAwareCSVReader(r)
	csvReader.FieldsPerRecord = -1 // Allow variable numbers of fields

	header, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s contains no rows", name)
	} else if err != nil {
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return &recordReader{name: name, csv: csvReader, header: header}, nil
}

func (r *recordReader) Header() []string {
	return r.header
}

// Row is the 1-based data row number of the last record returned.
func (r *recordReader) Row() int {
	return r.row
}

// Next returns the next record, or io.EOF after the last one.
func (r *recordReader) Next() (map[string]string, error) {
	cells, err := r.csv.Read()
	if err != nil {
		return nil, err
	}
	r.row++
	rec := make(map[string]string, len(r.header))
	for i, column := range r.header {
		if i < len(cells) {
			rec[column] = cells[i]
		}
	}
	return rec, nil
}

// bomAwareCSVReader strips a leading UTF-8 BOM and decodes UTF-16 input
// marked with one. Without a BOM the data is read unchanged.
func bomAwareCSVReader(reader io.Reader) *csv.Reader {
	var transformer = unicode.BOMOverride(encoding.Nop.NewDecoder())
	return csv.NewReader(transform.NewReader(reader, transformer))
}
