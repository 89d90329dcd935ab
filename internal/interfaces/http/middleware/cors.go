package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	corsAllowMethods = "GET, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type, X-API-Key, X-Request-Id"
)

// OriginPolicy список разрешенных origin; "*" разрешает любой
type OriginPolicy struct {
	any     bool
	origins map[string]struct{}
}

// NewOriginPolicy нормализует origin к виду scheme://host
func NewOriginPolicy(allowed []string) OriginPolicy {
	policy := OriginPolicy{origins: make(map[string]struct{}, len(allowed))}
	for _, origin := range allowed {
		trimmed := strings.TrimSpace(origin)
		switch {
		case trimmed == "":
		case trimmed == "*":
			policy.any = true
		default:
			if normalized, ok := normalizeOrigin(trimmed); ok {
				policy.origins[normalized] = struct{}{}
			}
		}
	}
	return policy
}

// Allowed проверяет значение заголовка Origin
func (p OriginPolicy) Allowed(origin string) bool {
	if p.any {
		return true
	}
	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	_, allowed := p.origins[normalized]
	return allowed
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme + "://" + parsed.Host), true
}

// CORS отвечает на preflight и проставляет Access-Control-* для разрешенных origin
func CORS(policy OriginPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				w.Header().Add("Vary", "Origin")
				if policy.Allowed(origin) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
					w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
					w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
