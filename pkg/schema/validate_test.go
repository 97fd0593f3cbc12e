package schema

import (
	"testing"

	"github.com/aretw0/warp/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Success(t *testing.T) {
	s := Schema{"name": String(), "retries": Int(), "tags": Slice(String())}
	err := Validate(s, map[string]any{
		"name":    "warp",
		"retries": 3,
		"tags":    []string{"prod"},
		"extra":   "ignored",
	})
	assert.NoError(t, err)
}

func TestValidate_EmptySchema(t *testing.T) {
	assert.NoError(t, Validate(nil, map[string]any{"a": 1}))
	assert.NoError(t, Validate(Schema{}, nil))
}

func TestValidate_Optional(t *testing.T) {
	s := Schema{"limit": Optional(Int())}
	assert.NoError(t, Validate(s, nil))
	assert.NoError(t, Validate(s, map[string]any{"limit": nil}))
	assert.Error(t, Validate(s, map[string]any{"limit": "ten"}))
}

func TestValidate_ReportsEveryFailure(t *testing.T) {
	s := Schema{"name": String(), "retries": Int(), "debug": Bool()}
	err := Validate(s, map[string]any{"retries": "three", "debug": true})
	require.Error(t, err)

	failures := ValidationErrors(err)
	require.Len(t, failures, 2)
	assert.Equal(t, "name", failures[0].Field)
	assert.Equal(t, "required", failures[0].Message)
	assert.Equal(t, "retries", failures[1].Field)
	assert.Equal(t, "expected int, got string", failures[1].Message)

	assert.Equal(t, "name: required\nretries: expected int, got string", err.Error())
	assert.Equal(t, domain.ClassValidation, domain.Classify(err).Class)
}

func TestValidationErrors(t *testing.T) {
	assert.Nil(t, ValidationErrors(nil))

	single := domain.NewValidationError("a", "bad")
	assert.Equal(t, []*domain.ValidationError{single}, ValidationErrors(single))
}
