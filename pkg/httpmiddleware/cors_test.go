package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        CORSConfig
		method     string
		headers    map[string]string
		wantStatus int
		wantOrigin string
		wantCreds  string
		wantHdrs   string
	}{
		{
			name:       "AnyOrigin",
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://shop.example"},
			wantStatus: http.StatusOK,
			wantOrigin: "*",
		},
		{
			name:       "ListedOriginCaseInsensitive",
			cfg:        CORSConfig{AllowOrigins: []string{"https://JFS.example"}},
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://jfs.example"},
			wantStatus: http.StatusOK,
			wantOrigin: "https://JFS.example",
		},
		{
			name:       "UnlistedOrigin",
			cfg:        CORSConfig{AllowOrigins: []string{"https://jfs.example"}},
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://evil.example"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "CredentialsEchoOrigin",
			cfg:        CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true},
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://shop.example"},
			wantStatus: http.StatusOK,
			wantOrigin: "https://shop.example",
			wantCreds:  "true",
		},
		{
			name:   "Preflight",
			cfg:    CORSConfig{MaxAge: 600},
			method: http.MethodOptions,
			headers: map[string]string{
				"Origin":                         "https://shop.example",
				"Access-Control-Request-Method":  http.MethodPatch,
				"Access-Control-Request-Headers": "Authorization, Content-Type",
			},
			wantStatus: http.StatusNoContent,
			wantOrigin: "*",
			wantHdrs:   "Authorization, Content-Type",
		},
		{
			name:   "PreflightDisallowed",
			cfg:    CORSConfig{AllowOrigins: []string{"https://jfs.example"}},
			method: http.MethodOptions,
			headers: map[string]string{
				"Origin":                        "https://evil.example",
				"Access-Control-Request-Method": http.MethodPost,
			},
			wantStatus: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/products", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			CORS(tt.cfg)(okHandler()).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, tt.wantHdrs, w.Header().Get("Access-Control-Allow-Headers"))
		})
	}
}

func TestCORS_PreflightHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "https://jfs.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	CORS(CORSConfig{
		AllowOrigins: []string{"https://jfs.example"},
		AllowHeaders: []string{"Authorization"},
		MaxAge:       300,
	})(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, "GET, POST, PATCH, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "300", w.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, w.Header().Values("Vary"), "Origin")
}
