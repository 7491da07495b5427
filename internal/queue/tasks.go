package queue

const (
	TypeAnalyzeFeedback = "improve:analyze"
)

// AnalyzeFeedbackPayload carries everything the worker needs to replay
// the analysis with the original caller's identity.
type AnalyzeFeedbackPayload struct {
	PromptID  string `json:"prompt_id"`
	VersionID string `json:"version_id"`
	CallerID  string `json:"caller_id"`
}
