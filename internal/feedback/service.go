package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/apperr"
	"github.com/promptdeck/promptdeck/internal/identity"
	"github.com/promptdeck/promptdeck/internal/models"
)

// Service stores per-version feedback and keeps the cached
// (feedback_sum, feedback_count) pair on the version row in step with
// every mutation. All aggregate updates are relative SQL updates inside
// the same transaction as the feedback row change, so concurrent calls
// serialize at the row and nothing is lost.
type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type AddRequest struct {
	Rating       int                  `json:"rating"`
	Comment      string               `json:"comment,omitempty"`
	TestScenario *models.TestScenario `json:"test_scenario,omitempty"`
}

func (s *Service) Add(ctx context.Context, promptID, versionID uuid.UUID, req AddRequest) (*models.Feedback, error) {
	if !models.ValidRating(req.Rating) {
		return nil, fmt.Errorf("rating %d: %w", req.Rating, apperr.ErrInvalidRating)
	}
	if req.TestScenario != nil {
		if strings.TrimSpace(req.TestScenario.Input) == "" || strings.TrimSpace(req.TestScenario.ActualOutput) == "" {
			return nil, fmt.Errorf("test scenario needs input and actual output: %w", apperr.ErrInvalidTestScenario)
		}
	}
	if err := s.ensureVersionOwned(ctx, promptID, versionID); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var testInput, testActual, testExpected *string
	if ts := req.TestScenario; ts != nil {
		testInput, testActual = &ts.Input, &ts.ActualOutput
		if ts.ExpectedOutput != "" {
			testExpected = &ts.ExpectedOutput
		}
	}

	var fb models.Feedback
	fb.TestScenario = req.TestScenario
	err = tx.QueryRow(ctx,
		`INSERT INTO feedback (version_id, rating, comment, test_input, test_actual_output, test_expected_output)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, version_id, rating, comment, created_at, updated_at`,
		versionID, req.Rating, req.Comment, testInput, testActual, testExpected,
	).Scan(&fb.ID, &fb.VersionID, &fb.Rating, &fb.Comment, &fb.CreatedAt, &fb.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert feedback: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE prompt_versions
		 SET feedback_sum = feedback_sum + $1, feedback_count = feedback_count + 1
		 WHERE id = $2`,
		req.Rating, versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("update aggregate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &fb, nil
}

type UpdateRequest struct {
	Rating  *int    `json:"rating,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

// Update changes rating and/or comment. The attached test scenario is
// immutable. A rating change adjusts the cached aggregate by the delta.
func (s *Service) Update(ctx context.Context, feedbackID uuid.UUID, req UpdateRequest) (*models.Feedback, error) {
	if req.Rating != nil && !models.ValidRating(*req.Rating) {
		return nil, fmt.Errorf("rating %d: %w", *req.Rating, apperr.ErrInvalidRating)
	}
	if err := s.ensureFeedbackOwned(ctx, feedbackID); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the row so concurrent updates to the same entry compute
	// their aggregate deltas from the committed rating.
	var old models.Feedback
	err = tx.QueryRow(ctx,
		"SELECT id, version_id, rating, comment FROM feedback WHERE id = $1 FOR UPDATE",
		feedbackID,
	).Scan(&old.ID, &old.VersionID, &old.Rating, &old.Comment)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrFeedbackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock feedback: %w", err)
	}

	newRating := old.Rating
	if req.Rating != nil {
		newRating = *req.Rating
	}
	newComment := old.Comment
	if req.Comment != nil {
		newComment = *req.Comment
	}

	var fb models.Feedback
	err = tx.QueryRow(ctx,
		`UPDATE feedback SET rating = $1, comment = $2, updated_at = now()
		 WHERE id = $3
		 RETURNING id, version_id, rating, comment, test_input, test_actual_output, test_expected_output, created_at, updated_at`,
		newRating, newComment, feedbackID,
	).Scan(append([]any{&fb.ID, &fb.VersionID, &fb.Rating, &fb.Comment}, scenarioDest(&fb)...)...)
	if err != nil {
		return nil, fmt.Errorf("update feedback: %w", err)
	}

	if delta := newRating - old.Rating; delta != 0 {
		_, err = tx.Exec(ctx,
			"UPDATE prompt_versions SET feedback_sum = feedback_sum + $1 WHERE id = $2",
			delta, old.VersionID,
		)
		if err != nil {
			return nil, fmt.Errorf("update aggregate: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &fb, nil
}

func (s *Service) Delete(ctx context.Context, feedbackID uuid.UUID) error {
	if err := s.ensureFeedbackOwned(ctx, feedbackID); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var versionID uuid.UUID
	var rating int
	err = tx.QueryRow(ctx,
		"DELETE FROM feedback WHERE id = $1 RETURNING version_id, rating", feedbackID,
	).Scan(&versionID, &rating)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrFeedbackNotFound
	}
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE prompt_versions
		 SET feedback_sum = feedback_sum - $1, feedback_count = feedback_count - 1
		 WHERE id = $2`,
		rating, versionID,
	)
	if err != nil {
		return fmt.Errorf("update aggregate: %w", err)
	}

	return tx.Commit(ctx)
}

// List returns a version's feedback in insertion order.
func (s *Service) List(ctx context.Context, promptID, versionID uuid.UUID) ([]models.Feedback, error) {
	if err := s.ensureVersionOwned(ctx, promptID, versionID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, version_id, rating, comment, test_input, test_actual_output, test_expected_output, created_at, updated_at
		 FROM feedback WHERE version_id = $1 ORDER BY created_at, id`,
		versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var entries []models.Feedback
	for rows.Next() {
		var fb models.Feedback
		if err := rows.Scan(append([]any{&fb.ID, &fb.VersionID, &fb.Rating, &fb.Comment}, scenarioDest(&fb)...)...); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		entries = append(entries, fb)
	}
	return entries, nil
}

// scenarioDest covers the three nullable scenario columns and the two
// timestamps in every feedback SELECT.
func scenarioDest(fb *models.Feedback) []any {
	return []any{
		&scenarioScanner{fb: fb, field: 0},
		&scenarioScanner{fb: fb, field: 1},
		&scenarioScanner{fb: fb, field: 2},
		&fb.CreatedAt,
		&fb.UpdatedAt,
	}
}

// scenarioScanner lazily materializes fb.TestScenario only when at
// least one scenario column is non-null.
type scenarioScanner struct {
	fb    *models.Feedback
	field int
}

func (s *scenarioScanner) Scan(src any) error {
	if src == nil {
		return nil
	}
	var val string
	switch v := src.(type) {
	case string:
		val = v
	case []byte:
		val = string(v)
	default:
		return fmt.Errorf("unexpected scenario column type %T", src)
	}
	if s.fb.TestScenario == nil {
		s.fb.TestScenario = &models.TestScenario{}
	}
	switch s.field {
	case 0:
		s.fb.TestScenario.Input = val
	case 1:
		s.fb.TestScenario.ActualOutput = val
	case 2:
		s.fb.TestScenario.ExpectedOutput = val
	}
	return nil
}

// ensureVersionOwned checks the full path: the version must belong to
// the named prompt, and the prompt to the caller. A version reached
// through the wrong prompt ID reads as absent.
func (s *Service) ensureVersionOwned(ctx context.Context, promptID, versionID uuid.UUID) error {
	ownerID := identity.IDFromContext(ctx)
	var one int
	err := s.db.QueryRow(ctx,
		`SELECT 1 FROM prompt_versions v
		 JOIN prompts p ON p.id = v.prompt_id
		 WHERE v.id = $1 AND v.prompt_id = $2 AND p.owner_id = $3`,
		versionID, promptID, ownerID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrVersionNotFound
	}
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	return nil
}

func (s *Service) ensureFeedbackOwned(ctx context.Context, feedbackID uuid.UUID) error {
	ownerID := identity.IDFromContext(ctx)
	var one int
	err := s.db.QueryRow(ctx,
		`SELECT 1 FROM feedback f
		 JOIN prompt_versions v ON v.id = f.version_id
		 JOIN prompts p ON p.id = v.prompt_id
		 WHERE f.id = $1 AND p.owner_id = $2`,
		feedbackID, ownerID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrFeedbackNotFound
	}
	if err != nil {
		return fmt.Errorf("check feedback: %w", err)
	}
	return nil
}
