package inference

import (
	"regexp"
	"strings"

	"github.com/mongtap/mongtap/internal/model"
)

// foreignKeyFieldName matches field names that look like a reference to
// another entity (spec §4.4 step 7's optional relationship tagging):
// an optional parent_/child_/reference_/related_ prefix, then anything,
// ending in _id, _ref, or _key.
var foreignKeyFieldName = regexp.MustCompile(`(?i)^(parent_|child_|reference_|related_)?.+_(id|ref|key)$`)

// DetectForeignKey tags fld as a likely reference field when its name
// matches the foreign-key naming convention. The referenced entity name
// is guessed by stripping the relationship prefix and _id/_ref/_key
// suffix from the field name.
func DetectForeignKey(fieldName string) *model.Relationship {
	if !foreignKeyFieldName.MatchString(fieldName) {
		return nil
	}
	if strings.EqualFold(fieldName, "_id") || strings.EqualFold(fieldName, "id") {
		return nil
	}

	relType := "reference"
	entity := fieldName
	lower := strings.ToLower(fieldName)
	for _, prefix := range []string{"parent_", "child_", "reference_", "related_"} {
		if strings.HasPrefix(lower, prefix) {
			relType = strings.TrimSuffix(prefix, "_")
			entity = fieldName[len(prefix):]
			break
		}
	}
	for _, suffix := range []string{"_id", "_ref", "_key"} {
		if strings.HasSuffix(strings.ToLower(entity), suffix) {
			entity = entity[:len(entity)-len(suffix)]
			break
		}
	}
	entity = strings.TrimSuffix(entity, "_id")

	confidence := 0.6
	if strings.HasSuffix(lower, "_id") {
		confidence = 0.8
	}

	return &model.Relationship{
		Field:            fieldName,
		Type:             "foreign_key",
		Confidence:       confidence,
		ReferencedEntity: entity,
		RelationshipType: relType,
	}
}
