package graph

import (
	"context"
	"testing"

	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/store/memory"
)

func TestCanonicalRelationType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "CONTAINS", want: RelationIncludes},
		{in: "TESTS", want: RelationResultOf},
		{in: "co_occurs", want: RelationDocumentedIn},
		{in: "CO_OCCURS", want: RelationDocumentedIn},
		{in: "RELATED_TO", want: RelationDocumentedIn},
		{in: "INCLUDES", want: RelationIncludes},
		{in: "has_symptom", want: RelationHasSymptom},
		{in: "CAUSES", want: RelationCauses},
	}
	for _, tt := range tests {
		if got := CanonicalRelationType(tt.in); got != tt.want {
			t.Errorf("CanonicalRelationType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadSkipsDanglingRelations(t *testing.T) {
	storage := memory.NewGraphStore()
	entities := []common.Entity{
		{Key: "Product:X", Name: "X", Type: common.EntityProduct},
		{Key: "Component:Y", Name: "Y", Type: common.EntityComponent},
	}
	relations := []common.Relation{
		{SourceKey: "Product:X", TargetKey: "Component:Y", Type: RelationIncludes, Confidence: 0.9},
		{SourceKey: "Product:X", TargetKey: "Component:GONE", Type: RelationIncludes, Confidence: 0.9},
		{SourceKey: "Anomaly:GONE", TargetKey: "Component:Y", Type: RelationAffects, Confidence: 0.9},
	}

	result, err := Load(context.Background(), storage, entities, relations)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.NodesUpserted != 2 {
		t.Errorf("NodesUpserted = %d, want 2", result.NodesUpserted)
	}
	if result.RelationsUpserted != 1 {
		t.Errorf("RelationsUpserted = %d, want 1", result.RelationsUpserted)
	}
	if result.RelationsSkipped != 2 {
		t.Errorf("RelationsSkipped = %d, want 2", result.RelationsSkipped)
	}
}

func TestLoadCanonicalizesRelationTypes(t *testing.T) {
	storage := memory.NewGraphStore()
	entities := []common.Entity{
		{Key: "Doc:report", Name: "report", Type: common.EntityDoc},
		{Key: "Component:Y", Name: "Y", Type: common.EntityComponent},
	}
	relations := []common.Relation{
		{SourceKey: "Component:Y", TargetKey: "Doc:report", Type: RelationCoOccurs, Confidence: 0.6},
	}

	if _, err := Load(context.Background(), storage, entities, relations); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := storage.Relation("Component:Y", "Doc:report", RelationDocumentedIn); !ok {
		t.Error("co_occurs relation must be written as DOCUMENTED_IN")
	}
}

func TestLoadIdempotent(t *testing.T) {
	storage := memory.NewGraphStore()
	entities := []common.Entity{
		{Key: "Product:X", Name: "X", Type: common.EntityProduct},
		{Key: "Component:Y", Name: "Y", Type: common.EntityComponent},
	}
	relations := []common.Relation{
		{SourceKey: "Product:X", TargetKey: "Component:Y", Type: RelationIncludes, Confidence: 0.9},
	}

	for i := 0; i < 2; i++ {
		if _, err := Load(context.Background(), storage, entities, relations); err != nil {
			t.Fatalf("Load() pass %d error = %v", i+1, err)
		}
	}

	stats, err := storage.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalNodes != 2 {
		t.Errorf("TotalNodes = %d, want 2 after double load", stats.TotalNodes)
	}
	if stats.TotalRelations != 1 {
		t.Errorf("TotalRelations = %d, want 1 after double load", stats.TotalRelations)
	}
}
