package text

import (
	"context"

	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/loader"
	"github.com/defectgraph/backend/pkg/loader/doc"
)

// TextRecordSource yields one text record per non-empty line of a plain-text
// document.
type TextRecordSource struct {
	file loader.DocumentFile
}

// NewTextRecordSource creates a record source for a plain-text file.
func NewTextRecordSource(file loader.DocumentFile) *TextRecordSource {
	return &TextRecordSource{file: file}
}

// SourceFile returns the path of the underlying document.
func (s *TextRecordSource) SourceFile() string {
	return s.file.FilePath
}

// Records reads the file and splits it into paragraph records.
func (s *TextRecordSource) Records(ctx context.Context) ([]common.Record, error) {
	content, err := s.file.GetContent(ctx)
	if err != nil {
		return nil, err
	}
	return doc.TextRecords(string(content), s.file.FilePath), nil
}
