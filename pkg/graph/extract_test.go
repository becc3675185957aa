package graph

import (
	"strings"
	"testing"

	"github.com/defectgraph/backend/pkg/common"
)

func defectRecord(index int, fields map[string]string) common.Record {
	return common.Record{
		Fields:     fields,
		SourceFile: "defects.csv",
		Location:   "row:1",
		Index:      index,
	}
}

func findEntity(entities []common.Entity, key string) (common.Entity, bool) {
	for _, entity := range entities {
		if entity.Key == key {
			return entity, true
		}
	}
	return common.Entity{}, false
}

func TestExtractRecord(t *testing.T) {
	extractor := NewExtractor(NewExtractorParams{})
	result := extractor.Extract([]common.Record{
		defectRecord(0, map[string]string{
			"产品":   "MyPhoneX",
			"组件":   "摄像头",
			"问题描述": "对焦失败",
			"备注":   "ignored",
		}),
	})

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected extraction errors: %v", result.Errors)
	}
	if len(result.Entities) != 3 {
		t.Fatalf("got %d entities, want 3: %+v", len(result.Entities), result.Entities)
	}

	product, ok := findEntity(result.Entities, "Product:MyPhoneX")
	if !ok {
		t.Fatal("missing Product:MyPhoneX")
	}
	component, ok := findEntity(result.Entities, "Component:摄像头")
	if !ok {
		t.Fatal("missing Component:摄像头")
	}
	if _, ok := findEntity(result.Entities, "Anomaly:对焦失败"); !ok {
		t.Fatal("missing Anomaly:对焦失败")
	}

	if product.Properties["original_value"] != "MyPhoneX" {
		t.Errorf("product original_value = %v", product.Properties["original_value"])
	}
	if component.SourceFile != "defects.csv" {
		t.Errorf("component source file = %q", component.SourceFile)
	}

	var foundIncludes, foundBelongs bool
	for _, relation := range result.Relations {
		switch relation.Type {
		case RelationIncludes:
			foundIncludes = relation.SourceID == product.ID && relation.TargetID == component.ID && relation.Confidence == 0.9
		case RelationBelongsTo:
			foundBelongs = relation.SourceID == component.ID && relation.TargetID == product.ID && relation.Confidence == 0.8
		}
	}
	if !foundIncludes {
		t.Error("missing Product-[INCLUDES]->Component at 0.9")
	}
	if !foundBelongs {
		t.Error("missing Component-[BELONGS_TO]->Product at 0.8")
	}
}

func TestExtractRecordRelationRules(t *testing.T) {
	extractor := NewExtractor(NewExtractorParams{})
	result := extractor.Extract([]common.Record{
		defectRecord(0, map[string]string{
			"异常": "对焦失败",
			"现象": "画面模糊",
			"对策": "更换镜头模组",
			"根因": "镜头驱动偏移",
		}),
	})

	wantTriples := map[string]float64{
		"Anomaly:对焦失败->Symptom:画面模糊:HAS_SYMPTOM":          0.9,
		"Anomaly:对焦失败->Countermeasure:更换镜头模组:RESOLVED_BY": 0.8,
		"RootCause:镜头驱动偏移->Anomaly:对焦失败:CAUSES":           0.85,
	}

	idToKey := make(map[string]string)
	for _, entity := range result.Entities {
		idToKey[entity.ID] = entity.Key
	}
	got := make(map[string]float64)
	for _, relation := range result.Relations {
		got[idToKey[relation.SourceID]+"->"+idToKey[relation.TargetID]+":"+relation.Type] = relation.Confidence
	}
	for triple, confidence := range wantTriples {
		if got[triple] != confidence {
			t.Errorf("relation %s = %v, want %v", triple, got[triple], confidence)
		}
	}
}

func TestExtractSkipsEmptyValues(t *testing.T) {
	extractor := NewExtractor(NewExtractorParams{})
	result := extractor.Extract([]common.Record{
		defectRecord(0, map[string]string{"产品": "  ", "组件": ""}),
	})
	if len(result.Entities) != 0 {
		t.Errorf("got %d entities from empty values, want 0", len(result.Entities))
	}
}

func TestExtractOverlongFieldRecovered(t *testing.T) {
	extractor := NewExtractor(NewExtractorParams{})
	result := extractor.Extract([]common.Record{
		defectRecord(3, map[string]string{
			"产品": "MyPhoneX",
			"组件": strings.Repeat("x", maxFieldLength+1),
		}),
	})
	if len(result.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(result.Errors))
	}
	if _, ok := findEntity(result.Entities, "Product:MyPhoneX"); !ok {
		t.Error("remaining fields must still be extracted after a field failure")
	}
}

func TestExtractText(t *testing.T) {
	extractor := NewExtractor(NewExtractorParams{})
	result := extractor.Extract([]common.Record{
		{
			Text:       "测试 TC-12 在版本 v1.2 中失败，异常编号 CAM-10042。组件:摄像头 工作正常",
			SourceFile: "report.docx",
			Location:   "paragraph:1",
		},
	})

	for _, key := range []string{"TestCase:TC-12", "Build:1.2", "Anomaly:CAM-10042", "Component:摄像头"} {
		if _, ok := findEntity(result.Entities, key); !ok {
			t.Errorf("missing entity %s in %+v", key, result.Entities)
		}
	}

	// TC-12, v1.2 and CAM-10042 share the first sentence; the component is
	// in the second and must not co-occur with them.
	coOccurs := 0
	idToKey := make(map[string]string)
	for _, entity := range result.Entities {
		idToKey[entity.ID] = entity.Key
	}
	for _, relation := range result.Relations {
		if relation.Type != RelationCoOccurs {
			t.Errorf("unexpected relation type %q", relation.Type)
		}
		if relation.Confidence != 0.6 {
			t.Errorf("co_occurs confidence = %v, want 0.6", relation.Confidence)
		}
		if idToKey[relation.SourceID] == "Component:摄像头" || idToKey[relation.TargetID] == "Component:摄像头" {
			t.Errorf("component must not co-occur across sentences")
		}
		coOccurs++
	}
	if coOccurs != 3 {
		t.Errorf("got %d co_occurs relations, want 3 (pairs within first sentence)", coOccurs)
	}
}
