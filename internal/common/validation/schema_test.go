package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": ["string", "null"]},
    "rooms": {"type": ["integer", "null"], "minimum": 0}
  },
  "required": ["name"]
}`

func TestSchema_Validate(t *testing.T) {
	s := MustCompile(testSchema)

	res, err := s.Validate([]byte(`{"name": null, "rooms": 3}`))
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Error())

	res, err = s.Validate([]byte(`{"rooms": "three"}`))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Error(), "rooms")

	_, err = s.Validate([]byte(`not json`))
	assert.Error(t, err)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile(`{`) })
}
