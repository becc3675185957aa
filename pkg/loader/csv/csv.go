package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/defectgraph/backend/internal/util"
	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/loader"
)

// CSVRecordSource parses a CSV document into one record per data row, using
// the first non-empty row as the header.
type CSVRecordSource struct {
	file loader.DocumentFile
}

// NewCSVRecordSource creates a record source for a CSV file.
func NewCSVRecordSource(file loader.DocumentFile) *CSVRecordSource {
	return &CSVRecordSource{file: file}
}

// SourceFile returns the path of the underlying document.
func (s *CSVRecordSource) SourceFile() string {
	return s.file.FilePath
}

// Records reads and parses the whole file.
func (s *CSVRecordSource) Records(ctx context.Context) ([]common.Record, error) {
	content, err := s.file.GetContent(ctx)
	if err != nil {
		return nil, err
	}
	return ParseRecords(content, s.file.FilePath, "")
}

// ParseRecords parses CSV content into records. The first non-empty row is
// the header; rows with no non-empty cell are skipped. locationPrefix is
// prepended to the per-row location (used for sheet names).
func ParseRecords(content []byte, sourceFile, locationPrefix string) ([]common.Record, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var header []string
	var records []common.Record
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if rowIsEmpty(row) {
			continue
		}
		rowNum++

		if header == nil {
			header = make([]string, len(row))
			for i, cell := range row {
				header[i] = strings.TrimSpace(cell)
			}
			continue
		}

		fields := make(map[string]string, len(header))
		for i, cell := range row {
			var column string
			if i < len(header) {
				column = header[i]
			}
			if column == "" {
				column = fmt.Sprintf("column_%d", i+1)
			}
			fields[column] = strings.TrimSpace(util.SanitizeText(cell))
		}
		records = append(records, common.Record{
			Fields:     fields,
			SourceFile: sourceFile,
			Location:   fmt.Sprintf("%srow:%d", locationPrefix, rowNum),
			Index:      len(records),
		})
	}

	if header == nil {
		return nil, fmt.Errorf("CSV file is empty or contains no valid data")
	}
	return records, nil
}

func rowIsEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
