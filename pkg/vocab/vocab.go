package vocab

import (
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/logger"
)

// Store maps alias strings to canonical names, scoped by entity type.
// It is loaded once at startup and read-only afterwards; Standardize never
// fails, it falls back to the raw name when nothing matches.
type Store struct {
	tables map[common.EntityType]map[string]string
}

// NewStoreParams configures vocabulary loading. Dir holds one CSV per
// vocabulary: components.csv, symptoms.csv, causes.csv with columns
// (name, alias); alias may be empty. Missing files are tolerated.
type NewStoreParams struct {
	Dir string
}

var vocabFiles = map[common.EntityType]string{
	common.EntityComponent: "components.csv",
	common.EntitySymptom:   "symptoms.csv",
	common.EntityRootCause: "causes.csv",
}

// NewStore loads all vocabulary tables from params.Dir.
func NewStore(params NewStoreParams) (*Store, error) {
	s := &Store{
		tables: make(map[common.EntityType]map[string]string, len(vocabFiles)),
	}
	for entityType, filename := range vocabFiles {
		table, err := loadVocabFile(filepath.Join(params.Dir, filename))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("Vocabulary file missing, using empty table", "file", filename)
				s.tables[entityType] = map[string]string{}
				continue
			}
			return nil, err
		}
		s.tables[entityType] = table
	}
	return s, nil
}

// NewEmptyStore returns a store with no vocabulary; Standardize reduces to
// the identity function.
func NewEmptyStore() *Store {
	tables := make(map[common.EntityType]map[string]string, len(vocabFiles))
	for entityType := range vocabFiles {
		tables[entityType] = map[string]string{}
	}
	return &Store{tables: tables}
}

func loadVocabFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	table := make(map[string]string)
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if first {
			first = false
			// Skip a header row of the form name[,alias].
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "name") {
				continue
			}
		}
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		table[strings.ToLower(name)] = name
		if len(row) > 1 {
			alias := strings.TrimSpace(row[1])
			if alias != "" {
				table[strings.ToLower(alias)] = name
			}
		}
	}
	return table, nil
}

// Standardize resolves rawName to its canonical form for entityType.
// Lookup is case-insensitive over both canonical names and aliases; when
// nothing matches, or the type carries no vocabulary, rawName is returned
// trimmed but otherwise unchanged.
func (s *Store) Standardize(entityType common.EntityType, rawName string) string {
	name := strings.TrimSpace(rawName)
	if name == "" {
		return name
	}
	table, ok := s.tables[entityType]
	if !ok || len(table) == 0 {
		return name
	}
	if canonical, ok := table[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// Size returns the number of known alias entries for entityType. Used for
// startup logging only.
func (s *Store) Size(entityType common.EntityType) int {
	return len(s.tables[entityType])
}
