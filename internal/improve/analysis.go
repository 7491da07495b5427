package improve

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/promptdeck/promptdeck/internal/llm"
	"github.com/promptdeck/promptdeck/internal/models"
)

// Candidate is one (content, rationale) pair returned by the
// generation collaborator.
type Candidate struct {
	SuggestedContent string `json:"suggested_content"`
	Rationale        string `json:"rationale"`
}

const analysisSystemPrompt = `You are a prompt engineering expert. Analyze user feedback on prompts and suggest concrete improvements. Output ONLY valid JSON with this exact structure: {"suggestions": [{"suggested_content": "improved prompt text", "rationale": "explanation of changes"}]}`

// buildAnalysisMessages assembles the request sent to the generation
// collaborator: the current content, its type, the aggregate rating,
// and every feedback entry with its test scenario.
func buildAnalysisMessages(version *models.Version, entries []models.Feedback) []llm.Message {
	var sum int
	for _, fb := range entries {
		sum += fb.Rating
	}
	avg := float64(sum) / float64(len(entries))

	contentType := string(version.ContentType)
	if version.ContentType == models.ContentTypeTemplate {
		contentType = "template ({{variable}} placeholders)"
	}

	var details strings.Builder
	for i, fb := range entries {
		fmt.Fprintf(&details, "\n%d. Rating: %d/5", i+1, fb.Rating)
		if fb.Comment != "" {
			fmt.Fprintf(&details, "\n   Comment: %s", fb.Comment)
		}
		if ts := fb.TestScenario; ts != nil {
			fmt.Fprintf(&details, "\n   Test Case:\n     Input: %s\n     Actual Output: %s", ts.Input, ts.ActualOutput)
			if ts.ExpectedOutput != "" {
				fmt.Fprintf(&details, "\n     Expected Output: %s", ts.ExpectedOutput)
			}
		}
	}

	userPrompt := fmt.Sprintf(
		"Current Prompt:\n---\n%s\n---\nType: %s\n\nFeedback Summary:\n- Average Rating: %.1f/5\n- Total Feedback: %d\n\nDetailed Feedback:%s\n\n"+
			"Analyze the feedback and suggest an improved version of the prompt that addresses the issues. Focus on:\n"+
			"1. Low ratings and specific complaints\n"+
			"2. Test case failures if present\n"+
			"3. Clarity and effectiveness\n\n"+
			"Provide the improved prompt and explain your changes.",
		version.Content, contentType, avg, len(entries), details.String(),
	)

	return []llm.Message{
		{Role: "system", Content: analysisSystemPrompt},
		{Role: "user", Content: userPrompt},
	}
}

// parseCandidates decodes the collaborator's JSON reply. Models
// sometimes wrap JSON in a markdown fence or return a single object
// instead of the suggestions array; both shapes are accepted.
func parseCandidates(content string) ([]Candidate, error) {
	cleaned := stripCodeFence(content)

	var batch struct {
		Suggestions []Candidate `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &batch); err == nil && len(batch.Suggestions) > 0 {
		return validCandidates(batch.Suggestions)
	}

	var single Candidate
	if err := json.Unmarshal([]byte(cleaned), &single); err == nil && single.SuggestedContent != "" {
		return []Candidate{single}, nil
	}

	return nil, fmt.Errorf("unparseable generation response")
}

func validCandidates(candidates []Candidate) ([]Candidate, error) {
	out := candidates[:0]
	for _, c := range candidates {
		if strings.TrimSpace(c.SuggestedContent) != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("generation response contained no usable suggestions")
	}
	return out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
