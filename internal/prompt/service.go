package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/apperr"
	"github.com/promptdeck/promptdeck/internal/identity"
	"github.com/promptdeck/promptdeck/internal/models"
)

// Service owns prompts and their version ledgers. Versions are
// append-only: nothing here ever rewrites stored content.
type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type CreateRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	PromptType  models.PromptType `json:"prompt_type"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Prompt, error) {
	ownerID := identity.IDFromContext(ctx)
	if !req.PromptType.Valid() {
		return nil, fmt.Errorf("prompt type %q: %w", req.PromptType, apperr.ErrInvalidPromptType)
	}

	var p models.Prompt
	err := s.db.QueryRow(ctx,
		`INSERT INTO prompts (owner_id, name, description, prompt_type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, owner_id, name, description, prompt_type, created_at, updated_at`,
		ownerID, req.Name, req.Description, req.PromptType,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.PromptType, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert prompt: %w", err)
	}
	return &p, nil
}

type UpdateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Update changes name and description only; prompt_type is immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*models.Prompt, error) {
	ownerID := identity.IDFromContext(ctx)

	var p models.Prompt
	err := s.db.QueryRow(ctx,
		`UPDATE prompts SET name = $1, description = $2, updated_at = now()
		 WHERE id = $3 AND owner_id = $4
		 RETURNING id, owner_id, name, description, prompt_type, created_at, updated_at`,
		req.Name, req.Description, id, ownerID,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.PromptType, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrPromptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update prompt: %w", err)
	}
	return &p, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Prompt, []models.Version, []models.Tag, error) {
	ownerID := identity.IDFromContext(ctx)

	var p models.Prompt
	err := s.db.QueryRow(ctx,
		`SELECT id, owner_id, name, description, prompt_type, created_at, updated_at
		 FROM prompts WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.PromptType, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil, apperr.ErrPromptNotFound
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get prompt: %w", err)
	}

	versions, err := s.listVersions(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, prompt_id, name, version_id, updated_at
		 FROM tags WHERE prompt_id = $1 ORDER BY name`,
		id,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.PromptID, &t.Name, &t.VersionID, &t.UpdatedAt); err != nil {
			return nil, nil, nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}

	return &p, versions, tags, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Prompt, error) {
	ownerID := identity.IDFromContext(ctx)
	rows, err := s.db.Query(ctx,
		`SELECT id, owner_id, name, description, prompt_type, created_at, updated_at
		 FROM prompts WHERE owner_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []models.Prompt
	for rows.Next() {
		var p models.Prompt
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.PromptType, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

// Delete removes the prompt and, through the schema, every version,
// tag, feedback entry, and suggestion under it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ownerID := identity.IDFromContext(ctx)
	ct, err := s.db.Exec(ctx, "DELETE FROM prompts WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrPromptNotFound
	}
	return nil
}

type NewVersionRequest struct {
	Label       string             `json:"label"`
	Content     string             `json:"content"`
	ContentType models.ContentType `json:"content_type"`
	Changelog   string             `json:"changelog,omitempty"`
}

// CreateVersion appends an immutable snapshot to the prompt's ledger.
// Label uniqueness rides on the (prompt_id, label) unique constraint,
// so two concurrent creates with the same label resolve to exactly one
// success.
func (s *Service) CreateVersion(ctx context.Context, promptID uuid.UUID, req NewVersionRequest) (*models.Version, error) {
	if err := s.ensureOwned(ctx, promptID); err != nil {
		return nil, err
	}
	return s.insertVersion(ctx, s.db, promptID, req)
}

// querier lets insertVersion run against the pool or inside a caller's
// transaction (the accept-suggestion path).
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Service) insertVersion(ctx context.Context, q querier, promptID uuid.UUID, req NewVersionRequest) (*models.Version, error) {
	if err := ValidateLabel(req.Label); err != nil {
		return nil, fmt.Errorf("label %q: %w", req.Label, err)
	}
	if !req.ContentType.Valid() {
		return nil, fmt.Errorf("content type %q: %w", req.ContentType, apperr.ErrInvalidContentType)
	}

	variables := []string{}
	if req.ContentType == models.ContentTypeTemplate {
		vars, err := TemplateVariables(req.Content)
		if err != nil {
			return nil, err
		}
		variables = vars
	}

	var v models.Version
	err := q.QueryRow(ctx,
		`INSERT INTO prompt_versions (prompt_id, label, content, content_type, variables, changelog, digest)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, prompt_id, label, content, content_type, variables, changelog, digest,
		           feedback_sum, feedback_count, created_at`,
		promptID, req.Label, req.Content, req.ContentType, variables, req.Changelog, Digest(req.Content),
	).Scan(&v.ID, &v.PromptID, &v.Label, &v.Content, &v.ContentType, &v.Variables, &v.Changelog,
		&v.Digest, &v.FeedbackSum, &v.FeedbackCount, &v.CreatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("label %q: %w", req.Label, apperr.ErrDuplicateLabel)
	}
	if err != nil {
		return nil, fmt.Errorf("insert version: %w", err)
	}
	return &v, nil
}

// InsertVersionTx is the transactional entry point used when minting a
// version must commit together with another change.
func (s *Service) InsertVersionTx(ctx context.Context, tx pgx.Tx, promptID uuid.UUID, req NewVersionRequest) (*models.Version, error) {
	return s.insertVersion(ctx, tx, promptID, req)
}

func (s *Service) GetVersion(ctx context.Context, promptID, versionID uuid.UUID) (*models.Version, error) {
	if err := s.ensureOwned(ctx, promptID); err != nil {
		return nil, err
	}

	var v models.Version
	err := s.db.QueryRow(ctx,
		`SELECT id, prompt_id, label, content, content_type, variables, changelog, digest,
		        feedback_sum, feedback_count, created_at
		 FROM prompt_versions WHERE id = $1 AND prompt_id = $2`,
		versionID, promptID,
	).Scan(&v.ID, &v.PromptID, &v.Label, &v.Content, &v.ContentType, &v.Variables, &v.Changelog,
		&v.Digest, &v.FeedbackSum, &v.FeedbackCount, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return &v, nil
}

// ListVersions returns the ledger in insertion order, not label order.
func (s *Service) ListVersions(ctx context.Context, promptID uuid.UUID) ([]models.Version, error) {
	if err := s.ensureOwned(ctx, promptID); err != nil {
		return nil, err
	}
	return s.listVersions(ctx, promptID)
}

func (s *Service) listVersions(ctx context.Context, promptID uuid.UUID) ([]models.Version, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, prompt_id, label, content, content_type, variables, changelog, digest,
		        feedback_sum, feedback_count, created_at
		 FROM prompt_versions WHERE prompt_id = $1 ORDER BY created_at, id`,
		promptID,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []models.Version
	for rows.Next() {
		var v models.Version
		if err := rows.Scan(&v.ID, &v.PromptID, &v.Label, &v.Content, &v.ContentType, &v.Variables,
			&v.Changelog, &v.Digest, &v.FeedbackSum, &v.FeedbackCount, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// Latest picks the version with the numerically greatest label.
func (s *Service) Latest(ctx context.Context, promptID uuid.UUID) (*models.Version, error) {
	versions, err := s.ListVersions(ctx, promptID)
	if err != nil {
		return nil, err
	}
	latest := LatestVersion(versions)
	if latest == nil {
		return nil, apperr.ErrVersionNotFound
	}
	return latest, nil
}

// DeleteVersion cascades to the version's feedback and suggestions.
// Tags pointing at it are left in place and dangle until the caller
// retags or deletes them.
func (s *Service) DeleteVersion(ctx context.Context, promptID, versionID uuid.UUID) error {
	if err := s.ensureOwned(ctx, promptID); err != nil {
		return err
	}
	ct, err := s.db.Exec(ctx,
		"DELETE FROM prompt_versions WHERE id = $1 AND prompt_id = $2", versionID, promptID)
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrVersionNotFound
	}
	return nil
}

type RenderRequest struct {
	Context map[string]string `json:"context"`
}

// RenderVersion substitutes the supplied context into a template
// version. Static versions are not renderable.
func (s *Service) RenderVersion(ctx context.Context, promptID, versionID uuid.UUID, vars map[string]string) (string, error) {
	v, err := s.GetVersion(ctx, promptID, versionID)
	if err != nil {
		return "", err
	}
	if v.ContentType != models.ContentTypeTemplate {
		return "", fmt.Errorf("version %s: %w", v.Label, apperr.ErrNotATemplate)
	}
	return Render(v.Content, vars), nil
}

func (s *Service) ensureOwned(ctx context.Context, promptID uuid.UUID) error {
	ownerID := identity.IDFromContext(ctx)
	var one int
	err := s.db.QueryRow(ctx,
		"SELECT 1 FROM prompts WHERE id = $1 AND owner_id = $2", promptID, ownerID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrPromptNotFound
	}
	if err != nil {
		return fmt.Errorf("check prompt: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
