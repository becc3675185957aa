package doc

import (
	"context"
	"fmt"
	"strings"

	"github.com/defectgraph/backend/internal/util"
	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/loader"
)

// DocxRecordSource extracts the text of a .docx document and yields one text
// record per paragraph block.
type DocxRecordSource struct {
	file loader.DocumentFile
}

// NewDocxRecordSource creates a record source for a docx document.
func NewDocxRecordSource(file loader.DocumentFile) *DocxRecordSource {
	return &DocxRecordSource{file: file}
}

// SourceFile returns the path of the underlying document.
func (s *DocxRecordSource) SourceFile() string {
	return s.file.FilePath
}

// Records extracts the document text and splits it into paragraph records.
func (s *DocxRecordSource) Records(ctx context.Context) ([]common.Record, error) {
	content, err := s.file.GetContent(ctx)
	if err != nil {
		return nil, err
	}

	text, err := parseDocx(content)
	if err != nil {
		return nil, err
	}
	return TextRecords(string(text), s.file.FilePath), nil
}

// TextRecords splits extracted text into one record per non-empty paragraph.
func TextRecords(text, sourceFile string) []common.Record {
	var records []common.Record
	for _, paragraph := range strings.Split(text, "\n") {
		paragraph = strings.TrimSpace(util.SanitizeText(paragraph))
		if paragraph == "" {
			continue
		}
		records = append(records, common.Record{
			Text:       paragraph,
			SourceFile: sourceFile,
			Location:   fmt.Sprintf("paragraph:%d", len(records)+1),
			Index:      len(records),
		})
	}
	return records
}
