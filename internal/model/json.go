package model

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// SchemaURI is the "$schema" value stamped on the root of a persisted
// model, spec §6.4/§6.5.
const SchemaURI = "https://dataflood.dev/schema/draft-1"

// rootEnvelope adds the root-only "$schema" key ahead of a Model's own
// fields. Because Model has no Schema field of its own, a nested Model
// serialized directly (as happens automatically via Properties/Items/AnyOf)
// never carries "$schema" — satisfying spec §6.4's "nested models omit it"
// without any special-casing in the recursive encode path.
type rootEnvelope struct {
	Schema string `json:"$schema"`
	Model
}

// MarshalRootJSON renders m as the canonical top-level JSON document
// described in spec §6.5: keys present only when non-null/non-empty (via
// each field's omitempty tag), in declaration order, with "$schema" first.
//
// Entropy and complexity scores are rounded to 4 decimals when they are
// computed (see entropy.go's round4), not at marshal time; histogram bin
// ranges and freqStart/freqEnd are written unrounded. Plain
// encoding/json — the only JSON encoder in the dependency set, since
// gopkg.in/yaml.v2/v3 target YAML and go.mongodb.org/mongo-driver's json
// helpers target BSON/extended-JSON interop, a different concern — is
// sufficient here without a custom writer.
func MarshalRootJSON(m *Model) ([]byte, error) {
	return json.MarshalIndent(rootEnvelope{Schema: SchemaURI, Model: *m}, "", "  ")
}

// UnmarshalRootJSON parses a persisted model file back into a Model,
// discarding the root "$schema" key.
func UnmarshalRootJSON(data []byte) (*Model, error) {
	var env rootEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env.Model, nil
}

// MarshalNestedJSON renders m without the root "$schema" key, for callers
// embedding a model as a sub-document.
func MarshalNestedJSON(m *Model) ([]byte, error) {
	return json.Marshal(m)
}

// ToYAML renders the model as YAML, an alternate, human-editable export
// format beside the wire-canonical JSON form.
func (m *Model) ToYAML() ([]byte, error) {
	return yaml.Marshal(rootEnvelope{Schema: SchemaURI, Model: *m})
}
