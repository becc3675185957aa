package graph

import (
	"testing"

	"github.com/defectgraph/backend/pkg/common"
)

func TestMakeKey(t *testing.T) {
	tests := []struct {
		name       string
		entityType common.EntityType
		entityName string
		extra      map[string]string
		want       string
	}{
		{
			name:       "name based key",
			entityType: common.EntityComponent,
			entityName: "摄像头",
			want:       "Component:摄像头",
		},
		{
			name:       "build keys on version",
			entityType: common.EntityBuild,
			entityName: "nightly",
			extra:      map[string]string{"version": "1.2.3"},
			want:       "Build:1.2.3",
		},
		{
			name:       "build without version falls back to name",
			entityType: common.EntityBuild,
			entityName: "nightly",
			want:       "Build:nightly",
		},
		{
			name:       "test step composes case and index",
			entityType: common.EntityTestStep,
			entityName: "press button",
			extra:      map[string]string{"case_id": "TC-42", "index": "3"},
			want:       "TestStep:TC-42-3",
		},
		{
			name:       "test step strips trailing dash when index missing",
			entityType: common.EntityTestStep,
			entityName: "press button",
			extra:      map[string]string{"case_id": "TC-42"},
			want:       "TestStep:TC-42",
		},
		{
			name:       "test result appends build",
			entityType: common.EntityTestResult,
			entityName: "焦距测试",
			extra:      map[string]string{"build": "B77"},
			want:       "TestResult:焦距测试-B77",
		},
		{
			name:       "test result falls back to version suffix",
			entityType: common.EntityTestResult,
			entityName: "焦距测试",
			extra:      map[string]string{"version": "2.0"},
			want:       "TestResult:焦距测试-2.0",
		},
		{
			name:       "test result strips trailing dash without suffix",
			entityType: common.EntityTestResult,
			entityName: "焦距测试",
			want:       "TestResult:焦距测试",
		},
		{
			name:       "anomaly prefers business code",
			entityType: common.EntityAnomaly,
			entityName: "对焦失败",
			extra:      map[string]string{"code": "BUG-1001"},
			want:       "Anomaly:BUG-1001",
		},
		{
			name:       "anomaly without code keys on name",
			entityType: common.EntityAnomaly,
			entityName: "对焦失败",
			want:       "Anomaly:对焦失败",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MakeKey(tt.entityType, tt.entityName, tt.extra)
			if got != tt.want {
				t.Errorf("MakeKey(%s, %q, %v) = %q, want %q", tt.entityType, tt.entityName, tt.extra, got, tt.want)
			}
			if again := MakeKey(tt.entityType, tt.entityName, tt.extra); again != got {
				t.Errorf("MakeKey not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestFallbackIdentityStable(t *testing.T) {
	record := common.Record{
		Fields: map[string]string{"a": "1", "b": "2"},
		Index:  5,
	}
	first := FallbackIdentity(record)
	second := FallbackIdentity(record)
	if first != second {
		t.Errorf("FallbackIdentity not stable: %q vs %q", first, second)
	}

	// Same content at a different row index keeps the same identity.
	moved := record
	moved.Index = 99
	if got := FallbackIdentity(moved); got != first {
		t.Errorf("FallbackIdentity depends on row index: %q vs %q", got, first)
	}

	// Different content yields a different identity.
	changed := common.Record{Fields: map[string]string{"a": "1", "b": "3"}}
	if got := FallbackIdentity(changed); got == first {
		t.Errorf("FallbackIdentity collision for different content: %q", got)
	}
}

func TestFallbackIdentityRowIndexLastResort(t *testing.T) {
	record := common.Record{Fields: map[string]string{"a": "  "}, Index: 7}
	if got := FallbackIdentity(record); got != "ROW-7" {
		t.Errorf("FallbackIdentity(empty record) = %q, want ROW-7", got)
	}
}
