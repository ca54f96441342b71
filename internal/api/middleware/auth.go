package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/edvin/searchvault/internal/api/response"
)

type contextKey string

// APIKeyIDKey holds a short fingerprint of the key that authenticated the
// request, for request logs.
const APIKeyIDKey contextKey = "api_key_id"

// Auth returns a middleware that accepts requests whose X-API-Key header
// matches one of keys.
func Auth(keys []string) func(http.Handler) http.Handler {
	hashes := make([][32]byte, len(keys))
	for i, k := range keys {
		hashes[i] = sha256.Sum256([]byte(k))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			hash := sha256.Sum256([]byte(key))
			matched := false
			for _, h := range hashes {
				if subtle.ConstantTimeCompare(hash[:], h[:]) == 1 {
					matched = true
				}
			}
			if !matched {
				response.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), APIKeyIDKey, KeyFingerprint(key))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// KeyFingerprint returns the first 12 hex characters of the key's SHA-256.
func KeyFingerprint(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])[:12]
}

// GetKeyID returns the fingerprint stored by Auth, or "".
func GetKeyID(ctx context.Context) string {
	id, _ := ctx.Value(APIKeyIDKey).(string)
	return id
}
