// Package ctxkeys stores request-scoped values in a context.
package ctxkeys

import "context"

type languageKey struct{}
type requestIDKey struct{}

// SetLanguage stores the negotiated message language (BCP 47 tag).
func SetLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, languageKey{}, lang)
}

// GetLanguage returns the negotiated language or "".
func GetLanguage(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	lang, _ := ctx.Value(languageKey{}).(string)
	return lang
}

// SetRequestID stores the request ID used in log lines.
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the request ID or "".
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
