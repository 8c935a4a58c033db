package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalRootJSONHasSchemaNestedDoesNot(t *testing.T) {
	m := &Model{
		Type: TypeObject,
		Properties: map[string]*Model{
			"name": {Type: TypeString},
		},
		Required: []string{"name"},
	}

	rootBytes, err := MarshalRootJSON(m)
	require.NoError(t, err)
	assert.Contains(t, string(rootBytes), `"$schema"`)

	nestedBytes, err := MarshalNestedJSON(m.Properties["name"])
	require.NoError(t, err)
	assert.NotContains(t, string(nestedBytes), "$schema")

	roundTripped, err := UnmarshalRootJSON(rootBytes)
	require.NoError(t, err)
	assert.Equal(t, TypeObject, roundTripped.Type)
	assert.Equal(t, []string{"name"}, roundTripped.Required)
}
