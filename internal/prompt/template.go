package prompt

import (
	"regexp"

	"github.com/promptdeck/promptdeck/internal/apperr"
)

var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render replaces every {{variable}} placeholder in the template with
// its value from vars. Placeholders with no matching key render as the
// empty string; keys in vars that the template never mentions are
// ignored. Pure function of (template, vars).
func Render(template string, vars map[string]string) string {
	return variablePattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[2 : len(match)-2] // strip {{ and }}
		return vars[key]
	})
}

// ExtractVariables returns the distinct variable names found in the
// template, in order of first appearance.
func ExtractVariables(template string) []string {
	matches := variablePattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool)
	var vars []string
	for _, m := range matches {
		if len(m) > 1 && !seen[m[1]] {
			vars = append(vars, m[1])
			seen[m[1]] = true
		}
	}
	return vars
}

// TemplateVariables validates that template content is actually
// parameterized. A template with zero placeholders is an authoring
// mistake, not a degenerate template.
func TemplateVariables(content string) ([]string, error) {
	vars := ExtractVariables(content)
	if len(vars) == 0 {
		return nil, apperr.ErrEmptyTemplate
	}
	return vars, nil
}
