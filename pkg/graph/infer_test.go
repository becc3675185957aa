package graph

import (
	"context"
	"math"
	"testing"

	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/store/memory"
)

func seedTagged(t *testing.T, storage *memory.GraphStore, entityType common.EntityType, name string, tags []string) string {
	t.Helper()
	key := string(entityType) + ":" + name
	_, err := storage.UpsertEntities(context.Background(), []common.Entity{
		{
			Key:        key,
			Name:       name,
			Type:       entityType,
			Properties: map[string]any{"tags": tags},
		},
	})
	if err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
	return key
}

func TestRunInferenceThresholds(t *testing.T) {
	storage := memory.NewGraphStore()

	// Shares 2 tags over a union of 3: jaccard 2/3, linked.
	component := seedTagged(t, storage, common.EntityComponent, "摄像头", []string{"optics", "focus", "hw"})
	symptom := seedTagged(t, storage, common.EntitySymptom, "画面模糊", []string{"optics", "focus"})

	// Shares only 1 tag: never linked regardless of ratio.
	seedTagged(t, storage, common.EntitySymptom, "黑屏", []string{"hw", "power"})

	written, err := RunInference(context.Background(), storage)
	if err != nil {
		t.Fatalf("RunInference() error = %v", err)
	}
	if written != 1 {
		t.Fatalf("written = %d, want 1", written)
	}

	relation, ok := storage.Relation(component, symptom, RelationHasSymptom)
	if !ok {
		t.Fatal("missing inferred HAS_SYMPTOM relation")
	}
	if math.Abs(relation.Confidence-2.0/3.0) > 1e-9 {
		t.Errorf("confidence = %v, want 2/3", relation.Confidence)
	}
	if relation.Properties["rule"] != "tag_overlap" || relation.Properties["inferred"] != true {
		t.Errorf("relation properties = %v", relation.Properties)
	}
	if relation.Properties["common_count"] != 2 {
		t.Errorf("common_count = %v, want 2", relation.Properties["common_count"])
	}
	tags, _ := relation.Properties["common_tags"].([]string)
	if len(tags) != 2 || tags[0] != "focus" || tags[1] != "optics" {
		t.Errorf("common_tags = %v, want sorted [focus optics]", relation.Properties["common_tags"])
	}
}

func TestRunInferenceSingleSharedTagNeverLinks(t *testing.T) {
	storage := memory.NewGraphStore()
	// One shared tag out of two, jaccard 0.5 clears the ratio but not the
	// count threshold.
	seedTagged(t, storage, common.EntityComponent, "A", []string{"x", "y"})
	seedTagged(t, storage, common.EntitySymptom, "B", []string{"x", "z"})

	written, err := RunInference(context.Background(), storage)
	if err != nil {
		t.Fatalf("RunInference() error = %v", err)
	}
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}
}

func TestRunInferenceRatioThreshold(t *testing.T) {
	storage := memory.NewGraphStore()
	// 2 common tags but a large union: 2/8 = 0.25 < 0.3.
	seedTagged(t, storage, common.EntityComponent, "A", []string{"a", "b", "c", "d", "e"})
	seedTagged(t, storage, common.EntitySymptom, "B", []string{"a", "b", "f", "g", "h"})

	written, err := RunInference(context.Background(), storage)
	if err != nil {
		t.Fatalf("RunInference() error = %v", err)
	}
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}
}

func TestRunInferenceComponentPairSingleEdge(t *testing.T) {
	storage := memory.NewGraphStore()
	a := seedTagged(t, storage, common.EntityComponent, "A", []string{"x", "y", "z"})
	b := seedTagged(t, storage, common.EntityComponent, "B", []string{"x", "y"})

	for i := 0; i < 2; i++ {
		if _, err := RunInference(context.Background(), storage); err != nil {
			t.Fatalf("RunInference() pass %d error = %v", i+1, err)
		}
	}

	stats, err := storage.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.RelationsByType[RelationRelatedTo] != 1 {
		t.Errorf("RELATED_TO count = %d, want exactly 1 across reruns", stats.RelationsByType[RelationRelatedTo])
	}
	// Deterministic direction: smaller key is the source.
	if _, ok := storage.Relation(a, b, RelationRelatedTo); !ok {
		t.Errorf("expected edge %s -> %s", a, b)
	}
}
