package security

import (
	"fmt"
	"net/http"
	"strings"
)

// HeadersConfig holds the response headers of the JSON API.
type HeadersConfig struct {
	// AllowOrigin is sent as Access-Control-Allow-Origin; empty disables CORS.
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string

	HSTSMaxAge          int
	XContentTypeOptions string
	XFrameOptions       string
	ReferrerPolicy      string
	CacheControl        string
}

// DefaultHeadersConfig lets a browser dashboard on any origin call the API,
// the way a deployed spreadsheet script accepts calls.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		AllowOrigin:         "*",
		AllowMethods:        []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:        []string{"Content-Type", "X-Request-ID"},
		HSTSMaxAge:          31536000,
		XContentTypeOptions: "nosniff",
		XFrameOptions:       "DENY",
		ReferrerPolicy:      "no-referrer",
		CacheControl:        "no-store",
	}
}

type HeadersMiddleware struct {
	config HeadersConfig
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	return &HeadersMiddleware{config: config}
}

// Middleware sets the headers and answers CORS preflights itself.
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.applyHeaders(w, r)

		if r.Method == http.MethodOptions && h.config.AllowOrigin != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) applyHeaders(w http.ResponseWriter, r *http.Request) {
	headers := w.Header()

	headers.Set("X-Content-Type-Options", h.config.XContentTypeOptions)
	headers.Set("X-Frame-Options", h.config.XFrameOptions)
	headers.Set("Referrer-Policy", h.config.ReferrerPolicy)
	if h.config.CacheControl != "" {
		headers.Set("Cache-Control", h.config.CacheControl)
	}

	if h.config.AllowOrigin != "" {
		headers.Set("Access-Control-Allow-Origin", h.config.AllowOrigin)
		headers.Set("Access-Control-Allow-Methods", strings.Join(h.config.AllowMethods, ", "))
		headers.Set("Access-Control-Allow-Headers", strings.Join(h.config.AllowHeaders, ", "))
	}

	// HSTS only over TLS
	if r.TLS != nil && h.config.HSTSMaxAge > 0 {
		headers.Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", h.config.HSTSMaxAge))
	}
}
