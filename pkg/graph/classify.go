package graph

import (
	"regexp"
	"strings"

	"github.com/defectgraph/backend/pkg/common"
)

// columnRule binds one entity type to the column-name keywords that select
// it. Rules are evaluated in slice order; the first match wins.
type columnRule struct {
	entityType common.EntityType
	keywords   []string
}

// columnRules is the built-in classifier table, highest priority first.
var columnRules = []columnRule{
	{common.EntityProduct, []string{"产品", "product", "机型", "model"}},
	{common.EntityComponent, []string{"组件", "component", "模块", "module"}},
	{common.EntityTestCase, []string{"测试", "test", "用例", "case"}},
	{common.EntityAnomaly, []string{"异常", "anomaly", "缺陷", "bug", "问题", "issue"}},
	{common.EntitySymptom, []string{"症状", "symptom", "现象"}},
	{common.EntityRootCause, []string{"原因", "cause", "根因"}},
	{common.EntityCountermeasure, []string{"对策", "solution", "解决", "fix"}},
}

// Classifier maps record fields to candidate entity types, combining the
// built-in keyword table with optional per-column overrides.
type Classifier struct {
	overrides ColumnOverrides
}

// NewClassifier builds a classifier. overrides may be nil.
func NewClassifier(overrides ColumnOverrides) *Classifier {
	return &Classifier{overrides: overrides}
}

// ClassifyColumn returns the entity type a column name maps to. An exact
// override (case-insensitive) wins over the keyword table; otherwise the
// first keyword rule whose keyword is a substring of the lowercased column
// name wins. The second return is false when nothing matches.
func (c *Classifier) ClassifyColumn(column string) (common.EntityType, bool) {
	name := strings.ToLower(strings.TrimSpace(column))
	if name == "" {
		return "", false
	}
	if c.overrides != nil {
		if entityType, ok := c.overrides[name]; ok {
			return entityType, true
		}
	}
	for _, rule := range columnRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(name, keyword) {
				return rule.entityType, true
			}
		}
	}
	return "", false
}

// ClassifyColumns classifies every column of a tabular record. Columns that
// match nothing are absent from the result.
func (c *Classifier) ClassifyColumns(columns []string) map[string]common.EntityType {
	result := make(map[string]common.EntityType, len(columns))
	for _, column := range columns {
		if entityType, ok := c.ClassifyColumn(column); ok {
			result[column] = entityType
		}
	}
	return result
}

// textPattern recognizes entity mentions in unstructured text: the capture
// group `group` of `re` is the entity name.
type textPattern struct {
	entityType common.EntityType
	re         *regexp.Regexp
	group      int
}

// textPatterns is the declarative recognition table for text sources,
// evaluated in order over each sentence.
var textPatterns = []textPattern{
	{common.EntityAnomaly, regexp.MustCompile(`\b([A-Z]{2,6}-\d{3,7})\b`), 1},
	{common.EntityTestCase, regexp.MustCompile(`\b(TC[-_]?\d{1,6})\b`), 1},
	{common.EntityBuild, regexp.MustCompile(`\b[vV](\d+\.\d+(?:\.\d+)?)\b`), 1},
	{common.EntityProduct, regexp.MustCompile(`产品[:：]?\s*([\p{Han}A-Za-z0-9_-]{2,32})`), 1},
	{common.EntityComponent, regexp.MustCompile(`(?:组件|模块)[:：]?\s*([\p{Han}A-Za-z0-9_-]{2,32})`), 1},
	{common.EntitySymptom, regexp.MustCompile(`(?:现象|症状)[:：]?\s*([\p{Han}A-Za-z0-9_-]{2,64})`), 1},
	{common.EntityRootCause, regexp.MustCompile(`(?:根因|原因)[:：]?\s*([\p{Han}A-Za-z0-9_-]{2,64})`), 1},
}

// sentenceSplitter splits unstructured text into sentences for text-mode
// extraction and co-occurrence.
var sentenceSplitter = regexp.MustCompile(`[。！？\n]+`)

// SplitSentences splits text on 。！？ and newlines, dropping empty spans.
func SplitSentences(text string) []string {
	parts := sentenceSplitter.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// textMention is one recognized entity occurrence inside a sentence.
type textMention struct {
	entityType common.EntityType
	name       string
}

// matchSentence runs the pattern table over one sentence, deduplicating
// repeated mentions of the same (type, name).
func matchSentence(sentence string) []textMention {
	var mentions []textMention
	seen := make(map[string]struct{})
	for _, pattern := range textPatterns {
		for _, match := range pattern.re.FindAllStringSubmatch(sentence, -1) {
			if pattern.group >= len(match) {
				continue
			}
			name := strings.TrimSpace(match[pattern.group])
			if name == "" {
				continue
			}
			id := string(pattern.entityType) + "\x1f" + strings.ToLower(name)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			mentions = append(mentions, textMention{entityType: pattern.entityType, name: name})
		}
	}
	return mentions
}
