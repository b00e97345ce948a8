// Package middleware provides HTTP middleware for the relic engine.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds the configuration for the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists the origins cross-domain requests may come
	// from. A "*" entry allows every origin.
	// Default: ["*"]
	AllowOrigins []string

	// AllowMethods lists the methods the client may use.
	// Default: ["GET", "PUT", "POST", "PATCH", "DELETE", "OPTIONS"]
	AllowMethods []string

	// AllowHeaders lists the request headers the client may send.
	// Default: ["Content-Type", "Authorization"]
	AllowHeaders []string

	// ExposeHeaders lists the response headers scripts may read.
	// Default: []
	ExposeHeaders []string

	// AllowCredentials indicates whether requests may include credentials.
	// Default: false
	AllowCredentials bool

	// MaxAge is how long (in seconds) a preflight result may be cached.
	// Default: 0 (not set)
	MaxAge int
}

// CORS returns middleware that answers preflight requests and sets CORS
// headers on responses. A nil config allows every origin with the
// default methods and headers.
func CORS(cfg *CORSConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = &CORSConfig{}
	}

	allowedOrigins := cfg.AllowOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	allowedMethods := cfg.AllowMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "PUT", "POST", "PATCH", "DELETE", "OPTIONS"}
	}

	allowedHeaders := cfg.AllowHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{"Content-Type", "Authorization"}
	}

	wildcard := contains(allowedOrigins, "*")
	allowedMethodsStr := strings.Join(allowedMethods, ", ")
	allowedHeadersStr := strings.Join(allowedHeaders, ", ")
	exposedHeadersStr := strings.Join(cfg.ExposeHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := wildcard
			if !allowed && origin != "" {
				allowed = contains(allowedOrigins, origin)
			}

			if allowed {
				// The CORS spec forbids "*" together with credentials;
				// echo the requesting origin in that case.
				if origin != "" && (!wildcard || cfg.AllowCredentials) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				} else {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				}
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if !wildcard {
					w.Header().Add("Vary", "Origin")
				}
			}

			// Preflight requests end here. Plain OPTIONS requests
			// without a requested method fall through to the router.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", allowedMethodsStr)
				w.Header().Set("Access-Control-Allow-Headers", allowedHeadersStr)
				if cfg.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if exposedHeadersStr != "" {
				w.Header().Set("Access-Control-Expose-Headers", exposedHeadersStr)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
