package graph

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/defectgraph/backend/pkg/common"
)

// ColumnOverrides maps lowercased column names to entity types, taking
// precedence over the built-in keyword table.
type ColumnOverrides map[string]common.EntityType

// mappingFile is the on-disk YAML shape:
//
//	columns:
//	  产品名称: product
//	  Module: component
type mappingFile struct {
	Columns map[string]string `yaml:"columns"`
}

// typeAliases translates the snake_case type names used in mapping files to
// the canonical entity types.
var typeAliases = map[string]common.EntityType{
	"product":        common.EntityProduct,
	"build":          common.EntityBuild,
	"component":      common.EntityComponent,
	"test_case":      common.EntityTestCase,
	"test_step":      common.EntityTestStep,
	"test_result":    common.EntityTestResult,
	"anomaly":        common.EntityAnomaly,
	"symptom":        common.EntitySymptom,
	"root_cause":     common.EntityRootCause,
	"countermeasure": common.EntityCountermeasure,
	"owner":          common.EntityOwner,
	"supplier":       common.EntitySupplier,
	"doc":            common.EntityDoc,
	"factory":        common.EntityFactory,
	"project":        common.EntityProject,
	"material":       common.EntityMaterial,
	"tool":           common.EntityTool,
	"process":        common.EntityProcess,
	"metric":         common.EntityMetric,
	"role":           common.EntityRole,
	"tag":            common.EntityTag,
	"category":       common.EntityCategory,
	"term":           common.EntityTerm,
	"alias":          common.EntityAlias,
}

// LoadColumnOverrides reads a mapping YAML from path. An empty path returns
// nil overrides; an unknown type name in the file is an error so typos do
// not silently drop columns.
func LoadColumnOverrides(path string) (ColumnOverrides, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file: %w", err)
	}
	var file mappingFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse mapping file: %w", err)
	}
	overrides := make(ColumnOverrides, len(file.Columns))
	for column, typeName := range file.Columns {
		entityType, ok := typeAliases[strings.ToLower(strings.TrimSpace(typeName))]
		if !ok {
			return nil, fmt.Errorf("mapping file: unknown entity type %q for column %q", typeName, column)
		}
		overrides[strings.ToLower(strings.TrimSpace(column))] = entityType
	}
	return overrides, nil
}
