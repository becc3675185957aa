package graph

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/vocab"
)

func writeVocab(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return dir
}

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical single token", a: "camera", b: "Camera", want: 1.0},
		{name: "both empty", a: "", b: "", want: 1.0},
		{name: "one empty", a: "camera", b: "", want: 0.0},
		{name: "disjoint", a: "front camera", b: "rear display", want: 0.0},
		{name: "partial overlap", a: "front camera module", b: "camera module", want: 2.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NameSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NameSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNameSimilaritySymmetry(t *testing.T) {
	pairs := [][2]string{
		{"front camera", "camera module"},
		{"摄像头", "相机"},
		{"", "x"},
		{"a b c", "c b"},
	}
	for _, pair := range pairs {
		if NameSimilarity(pair[0], pair[1]) != NameSimilarity(pair[1], pair[0]) {
			t.Errorf("similarity not symmetric for %q / %q", pair[0], pair[1])
		}
	}
}

func TestDedupeEntitiesVocabularyAliases(t *testing.T) {
	// The vocabulary maps 相机 to 摄像头 at extraction time, so both rows
	// standardize to the same name and key and must collapse to one entity.
	dir := writeVocab(t, "components.csv", "name,alias\n摄像头,相机\n")
	store, err := vocab.NewStore(vocab.NewStoreParams{Dir: dir})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	extractor := NewExtractor(NewExtractorParams{Vocab: store})

	result := extractor.Extract([]common.Record{
		defectRecord(0, map[string]string{"组件": "摄像头"}),
		defectRecord(1, map[string]string{"组件": "相机"}),
	})
	merged, idToKey := DedupeEntities(result.Entities)

	if len(merged) != 1 {
		t.Fatalf("got %d entities after dedup, want 1: %+v", len(merged), merged)
	}
	if merged[0].Key != "Component:摄像头" {
		t.Errorf("merged key = %q, want Component:摄像头", merged[0].Key)
	}
	for _, entity := range result.Entities {
		if idToKey[entity.ID] != "Component:摄像头" {
			t.Errorf("candidate %s resolves to %q", entity.ID, idToKey[entity.ID])
		}
	}
}

func TestDedupeEntitiesSimilarityThreshold(t *testing.T) {
	entities := []common.Entity{
		{ID: "1", Key: "Component:front camera module", Name: "front camera module", Type: common.EntityComponent},
		{ID: "2", Key: "Component:front camera module assembly", Name: "front camera module assembly", Type: common.EntityComponent},
		{ID: "3", Key: "Component:display", Name: "display", Type: common.EntityComponent},
	}
	merged, _ := DedupeEntities(entities)
	// 3/4 = 0.75 < 0.8: the two camera names stay separate.
	if len(merged) != 3 {
		t.Fatalf("got %d entities, want 3 (similarity below component threshold)", len(merged))
	}

	entities[1].Name = "front camera module"
	entities[1].Key = "Component:front camera module"
	merged, _ = DedupeEntities(entities)
	if len(merged) != 2 {
		t.Fatalf("got %d entities, want 2 after exact name match", len(merged))
	}
}

func TestDedupeEntitiesExactKeyTypes(t *testing.T) {
	// Two results of the same test on different builds share a name but not
	// a key; they must never merge.
	entities := []common.Entity{
		{ID: "1", Key: "TestResult:焦距测试-B1", Name: "焦距测试", Type: common.EntityTestResult},
		{ID: "2", Key: "TestResult:焦距测试-B2", Name: "焦距测试", Type: common.EntityTestResult},
		{ID: "3", Key: "TestResult:焦距测试-B1", Name: "焦距测试", Type: common.EntityTestResult},
	}
	merged, idToKey := DedupeEntities(entities)
	if len(merged) != 2 {
		t.Fatalf("got %d entities, want 2 (merged only on identical key)", len(merged))
	}
	if idToKey["1"] != "TestResult:焦距测试-B1" || idToKey["3"] != "TestResult:焦距测试-B1" {
		t.Error("duplicate key candidates must resolve to the same survivor")
	}
}

func TestMergeGroupProperties(t *testing.T) {
	entities := []common.Entity{
		{
			ID: "1", Key: "Component:摄像头", Name: "摄像头", Type: common.EntityComponent,
			Properties: map[string]any{"row": 1, "color": "black"},
			SourceFile: "a.csv",
		},
		{
			ID: "2", Key: "Component:摄像头", Name: "摄像头", Type: common.EntityComponent,
			Properties: map[string]any{"row": 2, "color": "silver", "supplier": "ACME"},
			SourceFile: "b.csv",
		},
	}
	merged, _ := DedupeEntities(entities)
	if len(merged) != 1 {
		t.Fatalf("got %d entities, want 1", len(merged))
	}
	survivor := merged[0]

	// The base is the candidate with the most properties; its key survives.
	if survivor.Key != "Component:摄像头" {
		t.Errorf("survivor key = %q", survivor.Key)
	}
	if survivor.Properties["supplier"] != "ACME" {
		t.Errorf("merged properties missing supplier: %v", survivor.Properties)
	}
	if survivor.Properties["merged_from"] != 2 {
		t.Errorf("merged_from = %v, want 2", survivor.Properties["merged_from"])
	}
	files, ok := survivor.Properties["all_source_files"].([]string)
	if !ok || len(files) != 2 || files[0] != "a.csv" || files[1] != "b.csv" {
		t.Errorf("all_source_files = %v, want [a.csv b.csv]", survivor.Properties["all_source_files"])
	}
}

func TestResolveRelationsMaxConfidence(t *testing.T) {
	idToKey := map[string]string{"a": "Product:X", "b": "Component:Y"}
	relations := []common.Relation{
		{SourceID: "a", TargetID: "b", Type: RelationIncludes, Confidence: 0.6, Properties: map[string]any{"first": true}},
		{SourceID: "a", TargetID: "b", Type: RelationIncludes, Confidence: 0.9, Properties: map[string]any{"second": true}},
	}
	merged := ResolveRelations(relations, idToKey)
	if len(merged) != 1 {
		t.Fatalf("got %d relations, want 1", len(merged))
	}
	if merged[0].Confidence != 0.9 {
		t.Errorf("confidence = %v, want max 0.9", merged[0].Confidence)
	}
	if merged[0].Properties["first"] != true || merged[0].Properties["second"] != true {
		t.Errorf("properties not unioned: %v", merged[0].Properties)
	}
	if merged[0].SourceKey != "Product:X" || merged[0].TargetKey != "Component:Y" {
		t.Errorf("keys not resolved: %+v", merged[0])
	}
}

func TestResolveRelationsDropsSelfLoopsAndUnresolved(t *testing.T) {
	idToKey := map[string]string{"a": "Component:摄像头", "b": "Component:摄像头"}
	relations := []common.Relation{
		// Both endpoints merged into one entity.
		{SourceID: "a", TargetID: "b", Type: RelationRelatedTo, Confidence: 0.5},
		// Unknown candidate ID.
		{SourceID: "a", TargetID: "missing", Type: RelationIncludes, Confidence: 0.5},
	}
	if merged := ResolveRelations(relations, idToKey); len(merged) != 0 {
		t.Errorf("got %d relations, want 0", len(merged))
	}
}
