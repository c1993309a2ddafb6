package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestTagRenderer_Render tests tag substitution
func TestTagRenderer_Render(t *testing.T) {
	renderer := NewTagRenderer()

	vars := map[string]string{
		"user.id":      "u-123",
		"broadcast.id": "b-456",
	}

	out, err := renderer.Render("Hi {{user.id}}, re {{ broadcast.id }}!", vars)

	assert.NoError(t, err)
	assert.Equal(t, "Hi u-123, re b-456!", out)
}

// TestTagRenderer_NoTags tests that plain text passes through untouched
func TestTagRenderer_NoTags(t *testing.T) {
	renderer := NewTagRenderer()

	out, err := renderer.Render("No tags here.", nil)

	assert.NoError(t, err)
	assert.Equal(t, "No tags here.", out)
}

// TestTagRenderer_UnknownTagFails tests that half-renderable copy is
// rejected rather than delivered with raw tags
func TestTagRenderer_UnknownTagFails(t *testing.T) {
	renderer := NewTagRenderer()

	out, err := renderer.Render("Hi {{user.id}}", map[string]string{})

	assert.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, err.Error(), "user.id")
}
