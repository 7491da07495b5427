package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/apperr"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]string
		want     string
	}{
		{
			name:     "single variable",
			template: "Hello {{name}}",
			vars:     map[string]string{"name": "Ada"},
			want:     "Hello Ada",
		},
		{
			name:     "missing variable renders empty",
			template: "Hello {{name}}",
			vars:     map[string]string{},
			want:     "Hello ",
		},
		{
			name:     "extra keys ignored",
			template: "Hello {{name}}",
			vars:     map[string]string{"name": "Ada", "tone": "formal"},
			want:     "Hello Ada",
		},
		{
			name:     "repeated variable",
			template: "{{x}} and {{x}}",
			vars:     map[string]string{"x": "again"},
			want:     "again and again",
		},
		{
			name:     "multiple variables",
			template: "Summarize {{doc}} in a {{tone}} tone",
			vars:     map[string]string{"doc": "the report", "tone": "neutral"},
			want:     "Summarize the report in a neutral tone",
		},
		{
			name:     "no placeholders",
			template: "static text",
			vars:     map[string]string{"name": "Ada"},
			want:     "static text",
		},
		{
			name:     "malformed braces left alone",
			template: "{{not closed and {single}",
			vars:     map[string]string{"single": "x"},
			want:     "{{not closed and {single}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, tt.vars))
		})
	}
}

func TestRenderIsPure(t *testing.T) {
	template := "Hello {{name}}"
	vars := map[string]string{"name": "Ada"}

	first := Render(template, vars)
	second := Render(template, vars)

	assert.Equal(t, first, second)
	assert.Equal(t, "Hello {{name}}", template)
}

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []string
	}{
		{
			name:     "order of first appearance",
			template: "{{b}} then {{a}} then {{b}}",
			want:     []string{"b", "a"},
		},
		{
			name:     "none",
			template: "plain text",
			want:     nil,
		},
		{
			name:     "word characters only",
			template: "{{user_name}} {{not-valid}} {{ok2}}",
			want:     []string{"user_name", "ok2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractVariables(tt.template))
		})
	}
}

func TestTemplateVariables(t *testing.T) {
	vars, err := TemplateVariables("Hello {{name}}, you are {{role}}")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "role"}, vars)

	_, err = TemplateVariables("no placeholders here")
	assert.ErrorIs(t, err, apperr.ErrEmptyTemplate)
}
