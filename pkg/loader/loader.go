package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/defectgraph/backend/pkg/common"
)

type DocumentType string

const (
	DocumentTypeCSV   DocumentType = "csv"
	DocumentTypeExcel DocumentType = "excel"
	DocumentTypeDocx  DocumentType = "docx"
	DocumentTypeText  DocumentType = "text"
)

// DocumentFile identifies one uploaded document and the loader that can
// fetch its raw bytes.
type DocumentFile struct {
	ID       string
	FilePath string
	Type     DocumentType
	Loader   FileLoader
}

// NewDocumentFileParams defines the input for NewDocumentFile.
type NewDocumentFileParams struct {
	ID       string
	FilePath string
	Loader   FileLoader
}

// NewDocumentFile builds a DocumentFile, inferring the document type from
// the file extension.
func NewDocumentFile(params NewDocumentFileParams) (DocumentFile, error) {
	docType, err := DetectType(params.FilePath)
	if err != nil {
		return DocumentFile{}, err
	}
	return DocumentFile{
		ID:       params.ID,
		FilePath: params.FilePath,
		Type:     docType,
		Loader:   params.Loader,
	}, nil
}

// DetectType maps a file extension to a DocumentType.
func DetectType(path string) (DocumentType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return DocumentTypeCSV, nil
	case ".xlsx", ".xls":
		return DocumentTypeExcel, nil
	case ".docx":
		return DocumentTypeDocx, nil
	case ".txt", ".md", ".log":
		return DocumentTypeText, nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

// GetContent retrieves the raw bytes of the file using its Loader.
func (f *DocumentFile) GetContent(ctx context.Context) ([]byte, error) {
	return f.Loader.GetFileContent(ctx, *f)
}

// FileLoader fetches the raw content of a DocumentFile. Implementations may
// read from disk or any other blob source.
type FileLoader interface {
	GetFileContent(ctx context.Context, file DocumentFile) ([]byte, error)
}

// RecordSource produces the normalized records of one document: flat
// field->value rows for tabular sources, text blocks for unstructured ones.
type RecordSource interface {
	Records(ctx context.Context) ([]common.Record, error)
	SourceFile() string
}

// CacheKey generates a unique cache key for a DocumentFile based on its ID
// and path.
func CacheKey(file DocumentFile) string {
	return file.ID + ":" + file.FilePath
}
