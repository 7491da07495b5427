package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/promptdeck/promptdeck/internal/api/handlers"
	"github.com/promptdeck/promptdeck/internal/api/middleware"
	"github.com/promptdeck/promptdeck/internal/auth"
	"github.com/promptdeck/promptdeck/internal/cache"
	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/feedback"
	"github.com/promptdeck/promptdeck/internal/improve"
	"github.com/promptdeck/promptdeck/internal/llm"
	"github.com/promptdeck/promptdeck/internal/prompt"
	"github.com/promptdeck/promptdeck/internal/queue"
	"github.com/promptdeck/promptdeck/internal/tag"
)

type Router struct {
	mux    *chi.Mux
	db     *pgxpool.Pool
	redis  *redis.Client
	cfg    *config.Config
	jwt    *auth.JWTMiddleware
	apikey *auth.APIKeyMiddleware
	llmGW  llm.Gateway
	rl     *middleware.RateLimiter
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:    chi.NewRouter(),
		db:     db,
		redis:  rdb,
		cfg:    cfg,
		jwt:    auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		apikey: auth.NewAPIKeyMiddleware(db, cfg.Auth.APIKeyHeader),
		llmGW:  llm.NewGateway(cfg.LLM),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rt.rl = middleware.NewRateLimiter(100, 200)
	r.Use(rt.rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Initialize services
	promptSvc := prompt.NewService(rt.db)
	tagSvc := tag.NewService(rt.db, cache.NewCache(rt.redis))
	feedbackSvc := feedback.NewService(rt.db)
	improveSvc := improve.NewService(rt.db, rt.llmGW, promptSvc, feedbackSvc, rt.cfg.LLM)
	queueClient := queue.NewClient(rt.cfg.Redis)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Auth: try API key first, then JWT
		r.Use(rt.apikey.Authenticate)
		r.Use(rt.jwt.Authenticate)

		promptH := handlers.NewPromptHandler(promptSvc)
		versionH := handlers.NewVersionHandler(promptSvc)
		tagH := handlers.NewTagHandler(tagSvc)
		feedbackH := handlers.NewFeedbackHandler(feedbackSvc)
		improveH := handlers.NewImprovementHandler(improveSvc, queueClient)

		r.Route("/prompts", func(r chi.Router) {
			r.Post("/", promptH.Create)
			r.Get("/", promptH.List)
			r.Get("/{id}", promptH.Get)
			r.Put("/{id}", promptH.Update)
			r.Delete("/{id}", promptH.Delete)

			r.Route("/{id}/versions", func(r chi.Router) {
				r.Post("/", versionH.Create)
				r.Get("/", versionH.List)
				r.Get("/latest", versionH.Latest)
				r.Get("/{versionID}", versionH.Get)
				r.Delete("/{versionID}", versionH.Delete)
				r.Post("/{versionID}/render", versionH.Render)

				r.Route("/{versionID}/feedback", func(r chi.Router) {
					r.Post("/", feedbackH.Add)
					r.Get("/", feedbackH.List)
				})

				r.Post("/{versionID}/analyze", improveH.Analyze)
				r.Post("/{versionID}/analyze/async", improveH.AnalyzeAsync)
				r.Get("/{versionID}/suggestions", improveH.ListSuggestions)
			})

			r.Route("/{id}/tags/{tagName}", func(r chi.Router) {
				r.Put("/", tagH.Set)
				r.Get("/", tagH.Resolve)
				r.Delete("/", tagH.Delete)
				r.Post("/render", tagH.Render)
			})
		})

		r.Route("/feedback/{feedbackID}", func(r chi.Router) {
			r.Patch("/", feedbackH.Update)
			r.Delete("/", feedbackH.Delete)
		})

		r.Route("/suggestions/{suggestionID}", func(r chi.Router) {
			r.Post("/accept", improveH.Accept)
			r.Post("/decline", improveH.Decline)
		})
	})

	return r
}

// Close releases background resources held by the router's middleware.
func (rt *Router) Close() {
	if rt.rl != nil {
		rt.rl.Close()
	}
}
