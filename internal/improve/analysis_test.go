package improve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/models"
)

func TestParseCandidates(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Candidate
		wantErr bool
	}{
		{
			name:    "suggestions array",
			content: `{"suggestions": [{"suggested_content": "Better prompt", "rationale": "clearer"}]}`,
			want:    []Candidate{{SuggestedContent: "Better prompt", Rationale: "clearer"}},
		},
		{
			name: "multiple suggestions",
			content: `{"suggestions": [
				{"suggested_content": "A", "rationale": "first"},
				{"suggested_content": "B", "rationale": "second"}
			]}`,
			want: []Candidate{
				{SuggestedContent: "A", Rationale: "first"},
				{SuggestedContent: "B", Rationale: "second"},
			},
		},
		{
			name:    "json code fence",
			content: "```json\n{\"suggestions\": [{\"suggested_content\": \"Fenced\", \"rationale\": \"r\"}]}\n```",
			want:    []Candidate{{SuggestedContent: "Fenced", Rationale: "r"}},
		},
		{
			name:    "bare code fence",
			content: "```\n{\"suggestions\": [{\"suggested_content\": \"Fenced\", \"rationale\": \"r\"}]}\n```",
			want:    []Candidate{{SuggestedContent: "Fenced", Rationale: "r"}},
		},
		{
			name:    "single object fallback",
			content: `{"suggested_content": "Solo", "rationale": "only one"}`,
			want:    []Candidate{{SuggestedContent: "Solo", Rationale: "only one"}},
		},
		{
			name:    "blank suggestions filtered",
			content: `{"suggestions": [{"suggested_content": "  ", "rationale": "x"}, {"suggested_content": "Kept", "rationale": "y"}]}`,
			want:    []Candidate{{SuggestedContent: "Kept", Rationale: "y"}},
		},
		{
			name:    "all blank",
			content: `{"suggestions": [{"suggested_content": "", "rationale": "x"}]}`,
			wantErr: true,
		},
		{
			name:    "not json",
			content: "I think you should make the prompt nicer.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCandidates(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildAnalysisMessages(t *testing.T) {
	version := &models.Version{
		Label:       "1.0.0",
		Content:     "Summarize {{doc}}",
		ContentType: models.ContentTypeTemplate,
	}
	entries := []models.Feedback{
		{Rating: 2, Comment: "too verbose"},
		{
			Rating: 4,
			TestScenario: &models.TestScenario{
				Input:          "long article",
				ActualOutput:   "rambling summary",
				ExpectedOutput: "two sentences",
			},
		},
	}

	msgs := buildAnalysisMessages(version, entries)
	require.Len(t, msgs, 2)

	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, `"suggestions"`)

	user := msgs[1].Content
	assert.Equal(t, "user", msgs[1].Role)
	assert.Contains(t, user, "Summarize {{doc}}")
	assert.Contains(t, user, "template ({{variable}} placeholders)")
	assert.Contains(t, user, "Average Rating: 3.0/5")
	assert.Contains(t, user, "Total Feedback: 2")
	assert.Contains(t, user, "too verbose")
	assert.Contains(t, user, "Input: long article")
	assert.Contains(t, user, "Expected Output: two sentences")
}

func TestBuildAnalysisMessagesStaticContent(t *testing.T) {
	version := &models.Version{
		Label:       "0.1.0",
		Content:     "You are a helpful assistant.",
		ContentType: models.ContentTypeStatic,
	}
	entries := []models.Feedback{{Rating: 5}}

	msgs := buildAnalysisMessages(version, entries)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "Type: static")
}
