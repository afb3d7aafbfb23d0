package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	// APIKeyContextKey stores the raw API key in request context.
	APIKeyContextKey contextKey = "api_key"
	// OrgIDContextKey stores the authenticated org ID in request context.
	OrgIDContextKey contextKey = "org_id"
)

// AuthMiddleware validates API keys on incoming requests and resolves them
// to an org ID. Keys are of the form "<org-uuid>.<secret>" — the org half
// is trusted directly here; a production deployment would instead look the
// key up against a stored hash and reject unknown or revoked keys.
type AuthMiddleware struct {
	logger    zerolog.Logger
	cache     sync.Map
	cacheTTL  time.Duration
	headerKey string
}

type cachedAuth struct {
	orgID     uuid.UUID
	expiresAt time.Time
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(logger zerolog.Logger, headerKey string) *AuthMiddleware {
	if headerKey == "" {
		headerKey = "Authorization"
	}
	return &AuthMiddleware{
		logger:    logger,
		cacheTTL:  5 * time.Minute,
		headerKey: headerKey,
	}
}

// Handler returns the middleware handler function.
func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get(am.headerKey)
		if authHeader == "" {
			http.Error(w, `{"error":"missing authentication","message":"authorization header required"}`, http.StatusUnauthorized)
			return
		}

		apiKey := authHeader
		if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			apiKey = authHeader[7:]
		}
		if apiKey == "" {
			http.Error(w, `{"error":"invalid authentication","message":"api key cannot be empty"}`, http.StatusUnauthorized)
			return
		}

		if cached, ok := am.cache.Load(apiKey); ok {
			ca := cached.(*cachedAuth)
			if time.Now().Before(ca.expiresAt) {
				ctx := am.withIdentity(r.Context(), apiKey, ca.orgID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			am.cache.Delete(apiKey)
		}

		orgID, err := resolveOrgID(apiKey)
		if err != nil {
			am.logger.Warn().Err(err).Msg("rejected api key: could not resolve org")
			http.Error(w, `{"error":"invalid authentication","message":"api key not recognized"}`, http.StatusUnauthorized)
			return
		}

		am.cache.Store(apiKey, &cachedAuth{orgID: orgID, expiresAt: time.Now().Add(am.cacheTTL)})
		ctx := am.withIdentity(r.Context(), apiKey, orgID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (am *AuthMiddleware) withIdentity(ctx context.Context, apiKey string, orgID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, APIKeyContextKey, apiKey)
	return context.WithValue(ctx, OrgIDContextKey, orgID)
}

// resolveOrgID parses the org half of an "<org-uuid>.<secret>" API key.
func resolveOrgID(apiKey string) (uuid.UUID, error) {
	orgPart := apiKey
	if i := strings.IndexByte(apiKey, '.'); i >= 0 {
		orgPart = apiKey[:i]
	}
	return uuid.Parse(orgPart)
}

// GetAPIKey extracts the API key from the request context.
func GetAPIKey(ctx context.Context) string {
	if v, ok := ctx.Value(APIKeyContextKey).(string); ok {
		return v
	}
	return ""
}

// GetOrgID extracts the authenticated org ID from the request context.
func GetOrgID(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(OrgIDContextKey).(uuid.UUID)
	return v, ok
}
