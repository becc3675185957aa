package graph

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/defectgraph/backend/pkg/common"
)

// MakeKey derives the stable business key "{Type}:{identity}" for an entity.
//
// Types with a natural composite identity use it; everything else keys on the
// standardized name. The same (entityType, name, extra) always yields the
// same key.
func MakeKey(entityType common.EntityType, name string, extra map[string]string) string {
	identity := name
	switch entityType {
	case common.EntityBuild:
		if v := extra["version"]; v != "" {
			identity = v
		}
	case common.EntityTestStep:
		identity = strings.TrimRight(extra["case_id"]+"-"+extra["index"], "-")
	case common.EntityTestResult:
		suffix := extra["build"]
		if suffix == "" {
			suffix = extra["version"]
		}
		identity = strings.TrimRight(name+"-"+suffix, "-")
	case common.EntityAnomaly:
		if code := extra["code"]; code != "" {
			identity = code
		}
	}
	return fmt.Sprintf("%s:%s", entityType, identity)
}

// FallbackIdentity derives an identity for an entity whose natural identity
// fields are all empty. It hashes the record's non-empty fields so the same
// logical record keeps the same key across reruns; only a record with no
// content at all falls back to its row index.
func FallbackIdentity(record common.Record) string {
	parts := make([]string, 0, len(record.Fields))
	for field, value := range record.Fields {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		parts = append(parts, field+"="+value)
	}
	if len(parts) == 0 && strings.TrimSpace(record.Text) != "" {
		parts = append(parts, strings.TrimSpace(record.Text))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("ROW-%d", record.Index)
	}
	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])[:16]
}
