// Package model implements the DataFlood model described in spec §3: a
// JSON-Schema-shaped recursive description of a collection, extended with
// per-field histograms, string models, and entropy/complexity scores.
package model

// Type enumerates the JSON-Schema-ish scalar/composite types a Model node
// can carry.
type Type string

const (
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeNull    Type = "null"
)

// Model is one node of a DataFlood schema tree. Spec §3's invariant on node
// shape holds here: exactly one of (single Type, AnyOf, Enum) governs the
// generator's top-level choice for this node, with Enum > AnyOf > Type
// precedence when more than one is populated.
type Model struct {
	Type Type `json:"type,omitempty"`

	// Object
	Properties map[string]*Model `json:"properties,omitempty"`
	Required   []string          `json:"required,omitempty"`

	// Array
	Items       *Model `json:"items,omitempty"`
	MinItems    *int   `json:"minItems,omitempty"`
	MaxItems    *int   `json:"maxItems,omitempty"`
	UniqueItems *bool  `json:"uniqueItems,omitempty"`

	// Numeric
	Minimum    *float64 `json:"minimum,omitempty"`
	Maximum    *float64 `json:"maximum,omitempty"`
	MultipleOf *float64 `json:"multipleOf,omitempty"`

	// String
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Format    string `json:"format,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	// Union / enumeration
	AnyOf []*Model      `json:"anyOf,omitempty"`
	Enum  []interface{} `json:"enum,omitempty"`

	Default interface{} `json:"default,omitempty"`

	// DataFlood extensions
	Histogram    *Histogram    `json:"histogram,omitempty"`
	StringModel  *StringModel  `json:"stringModel,omitempty"`
	TidesConfig  map[string]interface{} `json:"tidesConfig,omitempty"`
	Relationship *Relationship `json:"relationship,omitempty"`
}

// Relationship is the optional foreign-key hint from spec §4.4 step 7.
type Relationship struct {
	Field             string  `json:"field"`
	Type              string  `json:"type"` // always "foreign_key"
	Confidence        float64 `json:"confidence"`
	ReferencedEntity  string  `json:"referencedEntity,omitempty"`
	RelationshipType  string  `json:"relationshipType"` // parent | child | reference | related
}

// Shape reports which of the three mutually-exclusive generator dispatch
// modes this node uses, applying the enum > anyOf > type precedence from
// spec §3.
type Shape int

const (
	ShapeType Shape = iota
	ShapeAnyOf
	ShapeEnum
)

func (m *Model) Shape() Shape {
	switch {
	case len(m.Enum) > 0:
		return ShapeEnum
	case len(m.AnyOf) > 0:
		return ShapeAnyOf
	default:
		return ShapeType
	}
}

// NewObject returns an empty object-typed model node.
func NewObject() *Model {
	return &Model{Type: TypeObject, Properties: map[string]*Model{}}
}

// IntPtr, Float64Ptr, BoolPtr are small constructor helpers used throughout
// inference/merge/generator since Model's optional numeric fields are
// pointers (so "unset" is distinguishable from "zero").
func IntPtr(v int) *int          { return &v }
func Float64Ptr(v float64) *float64 { return &v }
func BoolPtr(v bool) *bool       { return &v }
