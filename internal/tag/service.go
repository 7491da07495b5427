package tag

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
	"github.com/promptdeck/promptdeck/internal/identity"
	"github.com/promptdeck/promptdeck/internal/models"
	"github.com/promptdeck/promptdeck/internal/prompt"
)

const resolveCacheTTL = 30 * time.Second

// Cache is the subset of the redis cache Resolve uses. Only the
// tag→version pointer is ever cached, never the version row itself:
// the row is loaded fresh on every resolve so a deleted version is
// always observed as dangling, cache hit or not.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Service is the mutable name→version directory per prompt. Set is an
// upsert: the single ON CONFLICT statement is what makes concurrent
// reassignment of the same name last-writer-wins with no torn state.
type Service struct {
	db    *pgxpool.Pool
	cache Cache
}

func NewService(db *pgxpool.Pool, c Cache) *Service {
	return &Service{db: db, cache: c}
}

// Set points tagName at versionID, creating or atomically replacing
// the directory entry. The version must belong to the prompt.
func (s *Service) Set(ctx context.Context, promptID uuid.UUID, tagName string, versionID uuid.UUID) (*models.Tag, error) {
	if err := s.ensureOwned(ctx, promptID); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Share-lock the target version so a concurrent delete cannot slip
	// between the check and the upsert.
	var one int
	err = tx.QueryRow(ctx,
		"SELECT 1 FROM prompt_versions WHERE id = $1 AND prompt_id = $2 FOR SHARE",
		versionID, promptID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("version %s: %w", versionID, apperr.ErrVersionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("check version: %w", err)
	}

	var t models.Tag
	err = tx.QueryRow(ctx,
		`INSERT INTO tags (prompt_id, name, version_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (prompt_id, name)
		 DO UPDATE SET version_id = EXCLUDED.version_id, updated_at = now()
		 RETURNING id, prompt_id, name, version_id, updated_at`,
		promptID, tagName, versionID,
	).Scan(&t.ID, &t.PromptID, &t.Name, &t.VersionID, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert tag: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.invalidate(ctx, promptID, tagName)
	return &t, nil
}

func (s *Service) Delete(ctx context.Context, promptID uuid.UUID, tagName string) error {
	if err := s.ensureOwned(ctx, promptID); err != nil {
		return err
	}
	ct, err := s.db.Exec(ctx,
		"DELETE FROM tags WHERE prompt_id = $1 AND name = $2", promptID, tagName)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("tag %q: %w", tagName, apperr.ErrTagNotFound)
	}
	s.invalidate(ctx, promptID, tagName)
	return nil
}

// Resolve follows the tag to its version. A tag whose version has been
// deleted reports the dangle instead of silently falling back. Only the
// pointer is cached; the version row is read from the store every time.
func (s *Service) Resolve(ctx context.Context, promptID uuid.UUID, tagName string) (*models.Version, error) {
	if err := s.ensureOwned(ctx, promptID); err != nil {
		return nil, err
	}

	key := resolveKey(promptID, tagName)
	if s.cache != nil {
		var cached uuid.UUID
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return s.loadVersion(ctx, promptID, cached, tagName)
		}
	}

	versionID, err := s.lookupPointer(ctx, promptID, tagName)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.populate(ctx, promptID, tagName, key, versionID)
	}
	return s.loadVersion(ctx, promptID, versionID, tagName)
}

// RenderByTag resolves the tag and renders the version it points at in
// one call, so automation clients can render whatever "latest"-style
// pointer currently targets without a second round trip.
func (s *Service) RenderByTag(ctx context.Context, promptID uuid.UUID, tagName string, vars map[string]string) (string, error) {
	v, err := s.Resolve(ctx, promptID, tagName)
	if err != nil {
		return "", err
	}
	if v.ContentType != models.ContentTypeTemplate {
		return "", fmt.Errorf("version %s: %w", v.Label, apperr.ErrNotATemplate)
	}
	return prompt.Render(v.Content, vars), nil
}

func (s *Service) lookupPointer(ctx context.Context, promptID uuid.UUID, tagName string) (uuid.UUID, error) {
	var versionID uuid.UUID
	err := s.db.QueryRow(ctx,
		"SELECT version_id FROM tags WHERE prompt_id = $1 AND name = $2",
		promptID, tagName,
	).Scan(&versionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("tag %q: %w", tagName, apperr.ErrTagNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve tag: %w", err)
	}
	return versionID, nil
}

func (s *Service) loadVersion(ctx context.Context, promptID, versionID uuid.UUID, tagName string) (*models.Version, error) {
	var v models.Version
	err := s.db.QueryRow(ctx,
		`SELECT id, prompt_id, label, content, content_type, variables, changelog, digest,
		        feedback_sum, feedback_count, created_at
		 FROM prompt_versions WHERE id = $1 AND prompt_id = $2`,
		versionID, promptID,
	).Scan(&v.ID, &v.PromptID, &v.Label, &v.Content, &v.ContentType, &v.Variables, &v.Changelog,
		&v.Digest, &v.FeedbackSum, &v.FeedbackCount, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tag %q: %w", tagName, apperr.ErrDanglingTag)
	}
	if err != nil {
		return nil, fmt.Errorf("load tagged version: %w", err)
	}
	return &v, nil
}

// populate caches the pointer, then re-reads it from the store. If a
// concurrent Set or Delete committed between our read and our cache
// write, either its post-commit invalidation removed our entry already,
// or the re-read observes the change and we remove it here. Both ways a
// committed write is never shadowed by a stale cached pointer.
func (s *Service) populate(ctx context.Context, promptID uuid.UUID, tagName, key string, versionID uuid.UUID) {
	if err := s.cache.Set(ctx, key, versionID, resolveCacheTTL); err != nil {
		slog.Warn("tag resolve cache set failed", "error", err)
		return
	}
	current, err := s.lookupPointer(ctx, promptID, tagName)
	if err != nil || current != versionID {
		s.invalidate(ctx, promptID, tagName)
	}
}

// invalidate drops the cached pointer after Set/Delete commits, so a
// read that follows a committed write observes the write.
func (s *Service) invalidate(ctx context.Context, promptID uuid.UUID, tagName string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, resolveKey(promptID, tagName)); err != nil {
		slog.Warn("tag cache invalidation failed", "prompt_id", promptID, "tag", tagName, "error", err)
	}
}

func resolveKey(promptID uuid.UUID, tagName string) string {
	return fmt.Sprintf("tag:%s:%s", promptID, tagName)
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
