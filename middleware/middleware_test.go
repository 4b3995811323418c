package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"localeditor/ctxkeys"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestLanguageMiddleware(t *testing.T) {
	supported := []language.Tag{language.English, language.Russian}

	tests := []struct {
		name     string
		header   string
		accept   string
		expected string
	}{
		{name: "no headers falls back to default", expected: "en"},
		{name: "accept-language russian", accept: "ru-RU,ru;q=0.9,en;q=0.8", expected: "ru"},
		{name: "unsupported language", accept: "de-DE", expected: "en"},
		{name: "explicit header wins", header: "ru", accept: "en-US", expected: "ru"},
		{name: "garbage header ignored", header: "@@", accept: "ru", expected: "ru"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := LanguageMiddleware(supported)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ctxkeys.GetLanguage(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(LanguageHeader, tt.header)
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRequestLoggingMiddleware(t *testing.T) {
	t.Run("generates request id", func(t *testing.T) {
		var seen string
		handler := RequestLoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = ctxkeys.GetRequestID(r.Context())
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("keeps caller request id", func(t *testing.T) {
		var seen string
		handler := RequestLoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = ctxkeys.GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})
}
