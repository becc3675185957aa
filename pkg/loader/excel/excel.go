package excel

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/defectgraph/backend/internal/util"
	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/loader"
	"github.com/defectgraph/backend/pkg/loader/csv"
	"github.com/defectgraph/backend/pkg/logger"
)

// ExcelRecordSource parses Excel workbooks (.xlsx, .xls) by converting them
// to CSV with unoconv, one CSV per sheet, then parsing each sheet like a CSV
// document.
type ExcelRecordSource struct {
	file loader.DocumentFile
}

// NewExcelRecordSource creates a record source for an Excel workbook.
func NewExcelRecordSource(file loader.DocumentFile) *ExcelRecordSource {
	return &ExcelRecordSource{file: file}
}

// SourceFile returns the path of the underlying document.
func (s *ExcelRecordSource) SourceFile() string {
	return s.file.FilePath
}

// Records converts the workbook and parses every sheet. Sheets are processed
// in name order so record indexes are stable across runs; a sheet that fails
// to parse is skipped with a warning.
func (s *ExcelRecordSource) Records(ctx context.Context) ([]common.Record, error) {
	content, err := s.file.GetContent(ctx)
	if err != nil {
		return nil, err
	}

	// unoconv occasionally fails while its listener is warming up.
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(s.file.FilePath), "."))
	sheets, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) (map[string][]byte, error) {
		return loader.TransformExcelToCsv(content, ext)
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(sheets))
	for name := range sheets {
		names = append(names, name)
	}
	sort.Strings(names)

	var records []common.Record
	for _, name := range names {
		prefix := ""
		if len(sheets) > 1 {
			prefix = fmt.Sprintf("sheet:%s,", name)
		}
		sheetRecords, err := csv.ParseRecords(sheets[name], s.file.FilePath, prefix)
		if err != nil {
			logger.Warn("Skipping unparsable sheet", "file", s.file.FilePath, "sheet", name, "error", err)
			continue
		}
		for _, record := range sheetRecords {
			record.Index = len(records)
			records = append(records, record)
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("workbook contains no parsable rows")
	}
	return records, nil
}
