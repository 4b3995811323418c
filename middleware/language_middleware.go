package middleware

import (
	"net/http"

	"localeditor/ctxkeys"

	"golang.org/x/text/language"
)

// LanguageHeader explicitly selects the message language and wins over
// Accept-Language.
const LanguageHeader = "X-Language"

// LanguageMiddleware negotiates the language for API messages and stores
// its base code ("en", "ru") in the request context.
func LanguageMiddleware(supported []language.Tag) func(http.Handler) http.Handler {
	if len(supported) == 0 {
		supported = []language.Tag{language.English}
	}
	matcher := language.NewMatcher(supported)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := NegotiateLanguage(matcher, r)
			ctx := ctxkeys.SetLanguage(r.Context(), lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NegotiateLanguage picks the best supported language for r.
func NegotiateLanguage(matcher language.Matcher, r *http.Request) string {
	var prefs []language.Tag
	if explicit := r.Header.Get(LanguageHeader); explicit != "" {
		if tag, err := language.Parse(explicit); err == nil {
			prefs = append(prefs, tag)
		}
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil {
			prefs = append(prefs, tags...)
		}
	}

	tag, _, _ := matcher.Match(prefs...)
	base, _ := tag.Base()
	return base.String()
}
