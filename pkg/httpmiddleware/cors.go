package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures CORS.
type CORSConfig struct {
	// AllowOrigins lists allowed origins. Empty or "*" allows any origin.
	AllowOrigins []string
	// AllowMethods defaults to the methods the storefront API serves.
	AllowMethods []string
	// AllowHeaders defaults to echoing Access-Control-Request-Headers.
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime. Zero omits the header.
	MaxAge int
}

var defaultCORSMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]string
	methods     string
	headers     string
	expose      string
	credentials bool
	maxAge      string
}

func newCORSPolicy(cfg CORSConfig) corsPolicy {
	p := corsPolicy{
		anyOrigin:   len(cfg.AllowOrigins) == 0,
		origins:     make(map[string]string, len(cfg.AllowOrigins)),
		headers:     strings.Join(cfg.AllowHeaders, ", "),
		expose:      strings.Join(cfg.ExposeHeaders, ", "),
		credentials: cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[strings.ToLower(o)] = o
	}
	// A wildcard cannot be combined with credentials; the request origin is
	// echoed instead.
	if p.credentials && p.anyOrigin {
		p.anyOrigin = false
		p.origins = nil
	}
	methods := cfg.AllowMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	p.methods = strings.Join(methods, ", ")
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or ""
// when it is not allowed.
func (p corsPolicy) allowOrigin(origin string) string {
	switch {
	case p.anyOrigin:
		return "*"
	case p.origins == nil:
		return origin
	default:
		return p.origins[strings.ToLower(origin)]
	}
}

// CORS answers preflight requests and decorates cross-origin responses.
func CORS(cfg CORSConfig) Middleware {
	p := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if !p.anyOrigin {
				h.Add("Vary", "Origin")
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowed := p.allowOrigin(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if allowed != "" {
					p.writeOrigin(h, allowed)
					h.Set("Access-Control-Allow-Methods", p.methods)
					if headers := p.requestHeaders(r); headers != "" {
						h.Set("Access-Control-Allow-Headers", headers)
					}
					if p.maxAge != "" {
						h.Set("Access-Control-Max-Age", p.maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allowed != "" {
				p.writeOrigin(h, allowed)
				if p.expose != "" {
					h.Set("Access-Control-Expose-Headers", p.expose)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (p corsPolicy) writeOrigin(h http.Header, origin string) {
	h.Set("Access-Control-Allow-Origin", origin)
	if p.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

func (p corsPolicy) requestHeaders(r *http.Request) string {
	if p.headers != "" {
		return p.headers
	}
	return r.Header.Get("Access-Control-Request-Headers")
}
