package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/identity"
	"github.com/promptdeck/promptdeck/internal/models"
)

// APIKeyMiddleware resolves a caller from a pre-issued API key. Key
// issuance and revocation live outside this service; only the hashed
// lookup happens here. Requests without the header fall through to the
// bearer-token middleware.
type APIKeyMiddleware struct {
	db         *pgxpool.Pool
	headerName string
}

func NewAPIKeyMiddleware(db *pgxpool.Pool, headerName string) *APIKeyMiddleware {
	return &APIKeyMiddleware{db: db, headerName: headerName}
}

func (m *APIKeyMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(m.headerName)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		hash := HashAPIKey(key)

		var ak models.APIKey
		err := m.db.QueryRow(r.Context(),
			`SELECT id, owner_id, key_hash, name, expires_at, created_at
			 FROM api_keys WHERE key_hash = $1`, hash,
		).Scan(&ak.ID, &ak.OwnerID, &ak.KeyHash, &ak.Name, &ak.ExpiresAt, &ak.CreatedAt)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		if ak.ExpiresAt != nil && ak.ExpiresAt.Before(time.Now()) {
			writeError(w, http.StatusUnauthorized, "API key expired")
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			m.db.Exec(ctx, "UPDATE api_keys SET last_used_at = $1 WHERE id = $2", time.Now(), ak.ID)
		}()

		ctx := identity.WithCaller(r.Context(), identity.Caller{ID: ak.OwnerID, Source: "apikey"})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
