package improve

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/apperr"
	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/database"
	"github.com/promptdeck/promptdeck/internal/feedback"
	"github.com/promptdeck/promptdeck/internal/identity"
	"github.com/promptdeck/promptdeck/internal/llm"
	"github.com/promptdeck/promptdeck/internal/models"
	"github.com/promptdeck/promptdeck/internal/prompt"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.RunMigrations(ctx, pool, "../../migrations"))
	return pool
}

func callerCtx() context.Context {
	return identity.WithCaller(context.Background(), identity.Caller{ID: uuid.New(), Source: "bearer"})
}

// fakeGateway returns a canned analysis reply without any network.
type fakeGateway struct {
	content string
	err     error
}

func (f *fakeGateway) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Provider: "fake", Model: req.Model, Content: f.content}, nil
}

func (f *fakeGateway) Provider(name string) (llm.Provider, error) {
	return nil, nil
}

type fixture struct {
	svc      *Service
	prompts  *prompt.Service
	feedback *feedback.Service
	pool     *pgxpool.Pool
}

func newFixture(t *testing.T, gw llm.Gateway) *fixture {
	t.Helper()
	pool := testPool(t)
	prompts := prompt.NewService(pool)
	fb := feedback.NewService(pool)
	cfg := config.LLMConfig{DefaultModel: "test-model", Timeout: 5 * time.Second}
	return &fixture{
		svc:      NewService(pool, gw, prompts, fb, cfg),
		prompts:  prompts,
		feedback: fb,
		pool:     pool,
	}
}

func (fx *fixture) newVersion(t *testing.T, ctx context.Context, contentType models.ContentType) (uuid.UUID, *models.Version) {
	t.Helper()
	p, err := fx.prompts.Create(ctx, prompt.CreateRequest{Name: "analyzed", PromptType: models.PromptTypeSystem})
	require.NoError(t, err)
	content := "Answer briefly."
	if contentType == models.ContentTypeTemplate {
		content = "Answer briefly about {{topic}}."
	}
	v, err := fx.prompts.CreateVersion(ctx, p.ID, prompt.NewVersionRequest{
		Label: "1.0.0", Content: content, ContentType: contentType,
	})
	require.NoError(t, err)
	return p.ID, v
}

// insertSuggestion seeds a pending suggestion directly, skipping the
// generation call entirely.
func (fx *fixture) insertSuggestion(t *testing.T, versionID uuid.UUID, content string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := fx.pool.QueryRow(context.Background(),
		`INSERT INTO suggestions (source_version_id, suggested_content, ai_rationale, status)
		 VALUES ($1, $2, 'tighter instruction', 'pending')
		 RETURNING id`,
		versionID, content,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func (fx *fixture) suggestionStatus(t *testing.T, id uuid.UUID) models.SuggestionStatus {
	t.Helper()
	var status models.SuggestionStatus
	err := fx.pool.QueryRow(context.Background(),
		"SELECT status FROM suggestions WHERE id = $1", id).Scan(&status)
	require.NoError(t, err)
	return status
}

func TestAnalyzeStoresPendingSuggestions(t *testing.T) {
	gw := &fakeGateway{content: `{"suggestions": [
		{"suggested_content": "Answer in one sentence.", "rationale": "users found replies long"},
		{"suggested_content": "Reply with a single short paragraph.", "rationale": "softer variant"}
	]}`}
	fx := newFixture(t, gw)
	ctx := callerCtx()
	promptID, v := fx.newVersion(t, ctx, models.ContentTypeStatic)

	_, err := fx.feedback.Add(ctx, promptID, v.ID, feedback.AddRequest{Rating: 2, Comment: "too long"})
	require.NoError(t, err)

	suggestions, err := fx.svc.Analyze(ctx, promptID, v.ID)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	for _, sg := range suggestions {
		assert.Equal(t, models.SuggestionPending, sg.Status)
		assert.Equal(t, v.ID, sg.SourceVersionID)
		assert.Nil(t, sg.ResultingVersionID)
	}

	listed, err := fx.svc.ListForVersion(ctx, promptID, v.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestAnalyzeRequiresFeedback(t *testing.T) {
	fx := newFixture(t, &fakeGateway{content: "{}"})
	ctx := callerCtx()
	promptID, v := fx.newVersion(t, ctx, models.ContentTypeStatic)

	_, err := fx.svc.Analyze(ctx, promptID, v.ID)
	assert.ErrorIs(t, err, apperr.ErrNoFeedback)
}

// Accept must be all-or-nothing: when the version insert collides with
// an existing label, the whole transaction rolls back and the
// suggestion stays pending and acceptable.
func TestAcceptRollsBackOnDuplicateLabel(t *testing.T) {
	fx := newFixture(t, &fakeGateway{content: "{}"})
	ctx := callerCtx()
	promptID, v := fx.newVersion(t, ctx, models.ContentTypeStatic)
	sgID := fx.insertSuggestion(t, v.ID, "Answer in one sentence.")

	_, err := fx.svc.Accept(ctx, sgID, AcceptRequest{Label: "1.0.0"})
	require.ErrorIs(t, err, apperr.ErrDuplicateLabel)
	assert.Equal(t, models.SuggestionPending, fx.suggestionStatus(t, sgID))

	versions, err := fx.prompts.ListVersions(ctx, promptID)
	require.NoError(t, err)
	assert.Len(t, versions, 1, "no version minted by the failed accept")

	// The surviving pending suggestion accepts cleanly afterwards.
	minted, err := fx.svc.Accept(ctx, sgID, AcceptRequest{Label: "1.1.0", Changelog: "tightened"})
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", minted.Label)
	assert.Equal(t, "Answer in one sentence.", minted.Content)
	assert.Equal(t, v.ContentType, minted.ContentType)
	assert.Equal(t, models.SuggestionAccepted, fx.suggestionStatus(t, sgID))
}

func TestResolvedSuggestionIsTerminal(t *testing.T) {
	fx := newFixture(t, &fakeGateway{content: "{}"})
	ctx := callerCtx()
	_, v := fx.newVersion(t, ctx, models.ContentTypeStatic)

	accepted := fx.insertSuggestion(t, v.ID, "Answer in one sentence.")
	_, err := fx.svc.Accept(ctx, accepted, AcceptRequest{Label: "2.0.0"})
	require.NoError(t, err)

	_, err = fx.svc.Accept(ctx, accepted, AcceptRequest{Label: "3.0.0"})
	assert.ErrorIs(t, err, apperr.ErrSuggestionResolved)
	_, err = fx.svc.Decline(ctx, accepted, DeclineRequest{Reason: "changed my mind"})
	assert.ErrorIs(t, err, apperr.ErrSuggestionResolved)

	declined := fx.insertSuggestion(t, v.ID, "Answer in one sentence.")
	sg, err := fx.svc.Decline(ctx, declined, DeclineRequest{Reason: "not better"})
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionDeclined, sg.Status)
	assert.Equal(t, "not better", sg.DeclineReason)
	require.NotNil(t, sg.ResolvedAt)

	_, err = fx.svc.Accept(ctx, declined, AcceptRequest{Label: "3.0.0"})
	assert.ErrorIs(t, err, apperr.ErrSuggestionResolved)
}

func TestAcceptRecordsResultingVersion(t *testing.T) {
	fx := newFixture(t, &fakeGateway{content: "{}"})
	ctx := callerCtx()
	promptID, v := fx.newVersion(t, ctx, models.ContentTypeTemplate)
	sgID := fx.insertSuggestion(t, v.ID, "Summarize {{topic}} in one sentence.")

	minted, err := fx.svc.Accept(ctx, sgID, AcceptRequest{Label: "1.1.0"})
	require.NoError(t, err)

	listed, err := fx.svc.ListForVersion(ctx, promptID, v.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].ResultingVersionID)
	assert.Equal(t, minted.ID, *listed[0].ResultingVersionID)
	require.NotNil(t, listed[0].ResolvedAt)
}

func TestSuggestionsHiddenFromOtherOwners(t *testing.T) {
	fx := newFixture(t, &fakeGateway{content: "{}"})
	ctx := callerCtx()
	_, v := fx.newVersion(t, ctx, models.ContentTypeStatic)
	sgID := fx.insertSuggestion(t, v.ID, "Answer in one sentence.")

	strangerCtx := callerCtx()
	_, err := fx.svc.Accept(strangerCtx, sgID, AcceptRequest{Label: "9.0.0"})
	assert.ErrorIs(t, err, apperr.ErrSuggestionNotFound)
	assert.Equal(t, models.SuggestionPending, fx.suggestionStatus(t, sgID))
}
