package improve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/apperr"
	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/feedback"
	"github.com/promptdeck/promptdeck/internal/identity"
	"github.com/promptdeck/promptdeck/internal/llm"
	"github.com/promptdeck/promptdeck/internal/models"
	"github.com/promptdeck/promptdeck/internal/prompt"
)

// Service runs the suggestion lifecycle: analysis creates pending
// suggestions from accumulated feedback, and a human resolves each one
// exactly once, either minting a new version or recording a decline.
type Service struct {
	db          *pgxpool.Pool
	gw          llm.Gateway
	prompts     *prompt.Service
	feedback    *feedback.Service
	model       string
	callTimeout time.Duration
}

func NewService(db *pgxpool.Pool, gw llm.Gateway, prompts *prompt.Service, fb *feedback.Service, cfg config.LLMConfig) *Service {
	return &Service{
		db:          db,
		gw:          gw,
		prompts:     prompts,
		feedback:    fb,
		model:       cfg.DefaultModel,
		callTimeout: cfg.Timeout,
	}
}

// Analyze gathers every feedback entry for the version, asks the
// generation collaborator for improvements, and stores each returned
// candidate as a pending suggestion. Re-running is allowed and always
// produces fresh suggestions; the call itself is never retried here,
// so one logical request yields at most one batch.
func (s *Service) Analyze(ctx context.Context, promptID, versionID uuid.UUID) ([]models.Suggestion, error) {
	version, err := s.prompts.GetVersion(ctx, promptID, versionID)
	if err != nil {
		return nil, err
	}

	entries, err := s.feedback.List(ctx, promptID, versionID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("version %s: %w", version.Label, apperr.ErrNoFeedback)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	resp, err := s.gw.Chat(callCtx, llm.ChatRequest{
		Model:       s.model,
		Messages:    buildAnalysisMessages(version, entries),
		Temperature: 0.7,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrGenerationUnavailable, err)
	}

	candidates, err := parseCandidates(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrGenerationUnavailable, err)
	}

	slog.Info("feedback analyzed",
		"version_id", versionID,
		"feedback_count", len(entries),
		"candidates", len(candidates),
		"provider", resp.Provider,
		"latency_ms", resp.LatencyMs,
	)

	return s.storeCandidates(ctx, versionID, candidates)
}

func (s *Service) storeCandidates(ctx context.Context, versionID uuid.UUID, candidates []Candidate) ([]models.Suggestion, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	suggestions := make([]models.Suggestion, 0, len(candidates))
	for _, c := range candidates {
		var sg models.Suggestion
		err := tx.QueryRow(ctx,
			`INSERT INTO suggestions (source_version_id, suggested_content, ai_rationale, status)
			 VALUES ($1, $2, $3, 'pending')
			 RETURNING id, source_version_id, suggested_content, ai_rationale, status,
			           decline_reason, resulting_version_id, created_at, resolved_at`,
			versionID, c.SuggestedContent, c.Rationale,
		).Scan(&sg.ID, &sg.SourceVersionID, &sg.SuggestedContent, &sg.AIRationale, &sg.Status,
			&sg.DeclineReason, &sg.ResultingVersionID, &sg.CreatedAt, &sg.ResolvedAt)
		if err != nil {
			return nil, fmt.Errorf("insert suggestion: %w", err)
		}
		suggestions = append(suggestions, sg)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return suggestions, nil
}

type AcceptRequest struct {
	Label     string `json:"label"`
	Changelog string `json:"changelog,omitempty"`
}

// Accept mints a new version from the suggestion's content and flips
// the suggestion to accepted, in one transaction. If the version
// insert fails (bad or duplicate label), everything rolls back and the
// suggestion stays pending.
func (s *Service) Accept(ctx context.Context, suggestionID uuid.UUID, req AcceptRequest) (*models.Version, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	sg, promptID, contentType, err := s.lockSuggestion(ctx, tx, suggestionID)
	if err != nil {
		return nil, err
	}
	if sg.Resolved() {
		return nil, fmt.Errorf("suggestion %s is %s: %w", sg.ID, sg.Status, apperr.ErrSuggestionResolved)
	}

	version, err := s.prompts.InsertVersionTx(ctx, tx, promptID, prompt.NewVersionRequest{
		Label:       req.Label,
		Content:     sg.SuggestedContent,
		ContentType: contentType,
		Changelog:   req.Changelog,
	})
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE suggestions
		 SET status = 'accepted', resulting_version_id = $1, resolved_at = now()
		 WHERE id = $2`,
		version.ID, suggestionID,
	)
	if err != nil {
		return nil, fmt.Errorf("accept suggestion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return version, nil
}

type DeclineRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Decline moves a pending suggestion to its other terminal state.
func (s *Service) Decline(ctx context.Context, suggestionID uuid.UUID, req DeclineRequest) (*models.Suggestion, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	sg, _, _, err := s.lockSuggestion(ctx, tx, suggestionID)
	if err != nil {
		return nil, err
	}
	if sg.Resolved() {
		return nil, fmt.Errorf("suggestion %s is %s: %w", sg.ID, sg.Status, apperr.ErrSuggestionResolved)
	}

	var updated models.Suggestion
	err = tx.QueryRow(ctx,
		`UPDATE suggestions
		 SET status = 'declined', decline_reason = $1, resolved_at = now()
		 WHERE id = $2
		 RETURNING id, source_version_id, suggested_content, ai_rationale, status,
		           decline_reason, resulting_version_id, created_at, resolved_at`,
		req.Reason, suggestionID,
	).Scan(&updated.ID, &updated.SourceVersionID, &updated.SuggestedContent, &updated.AIRationale,
		&updated.Status, &updated.DeclineReason, &updated.ResultingVersionID, &updated.CreatedAt, &updated.ResolvedAt)
	if err != nil {
		return nil, fmt.Errorf("decline suggestion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &updated, nil
}

// ListForVersion returns a version's suggestions, newest first.
func (s *Service) ListForVersion(ctx context.Context, promptID, versionID uuid.UUID) ([]models.Suggestion, error) {
	if _, err := s.prompts.GetVersion(ctx, promptID, versionID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, source_version_id, suggested_content, ai_rationale, status,
		        decline_reason, resulting_version_id, created_at, resolved_at
		 FROM suggestions WHERE source_version_id = $1 ORDER BY created_at DESC, id`,
		versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []models.Suggestion
	for rows.Next() {
		var sg models.Suggestion
		if err := rows.Scan(&sg.ID, &sg.SourceVersionID, &sg.SuggestedContent, &sg.AIRationale,
			&sg.Status, &sg.DeclineReason, &sg.ResultingVersionID, &sg.CreatedAt, &sg.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		suggestions = append(suggestions, sg)
	}
	return suggestions, nil
}

// lockSuggestion loads the suggestion row FOR UPDATE so concurrent
// accept/decline calls serialize, and verifies the caller owns the
// prompt it hangs off.
func (s *Service) lockSuggestion(ctx context.Context, tx pgx.Tx, suggestionID uuid.UUID) (*models.Suggestion, uuid.UUID, models.ContentType, error) {
	ownerID := identity.IDFromContext(ctx)

	var sg models.Suggestion
	var promptID uuid.UUID
	var contentType models.ContentType
	err := tx.QueryRow(ctx,
		`SELECT s.id, s.source_version_id, s.suggested_content, s.ai_rationale, s.status,
		        s.decline_reason, s.resulting_version_id, s.created_at, s.resolved_at,
		        v.prompt_id, v.content_type
		 FROM suggestions s
		 JOIN prompt_versions v ON v.id = s.source_version_id
		 JOIN prompts p ON p.id = v.prompt_id
		 WHERE s.id = $1 AND p.owner_id = $2
		 FOR UPDATE OF s`,
		suggestionID, ownerID,
	).Scan(&sg.ID, &sg.SourceVersionID, &sg.SuggestedContent, &sg.AIRationale, &sg.Status,
		&sg.DeclineReason, &sg.ResultingVersionID, &sg.CreatedAt, &sg.ResolvedAt,
		&promptID, &contentType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, uuid.Nil, "", apperr.ErrSuggestionNotFound
	}
	if err != nil {
		return nil, uuid.Nil, "", fmt.Errorf("lock suggestion: %w", err)
	}
	return &sg, promptID, contentType, nil
}
