package gateway

import (
	"fmt"
	"regexp"
	"strings"

	"campaign-chat/internal/core/ports"
)

// Ensure TagRenderer implements TemplateRenderer
var _ ports.TemplateRenderer = (*TagRenderer)(nil)

var tagPattern = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)

// TagRenderer substitutes `{{var}}` tags in outbound copy with request
// values before the text is stored.
type TagRenderer struct{}

// NewTagRenderer creates a tag renderer.
func NewTagRenderer() *TagRenderer {
	return &TagRenderer{}
}

// Render replaces every tag with its value from vars. An unknown tag is
// an error: outbound copy referencing a value we cannot supply should
// never reach the member half-rendered.
func (r *TagRenderer) Render(text string, vars map[string]string) (string, error) {
	var missing []string

	rendered := tagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		name := strings.TrimSpace(strings.Trim(tag, "{}"))
		value, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return tag
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("unknown template tags: %s", strings.Join(missing, ", "))
	}

	return rendered, nil
}
