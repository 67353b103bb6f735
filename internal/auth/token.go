package auth

import (
	"net/http"
	"strings"
)

const (
	AccessTokenCookie = "access_token"
	bearerScheme      = "bearer"
)

// ExtractAccessToken reads a bearer token from the Authorization header,
// falling back to the access_token cookie set by the web client.
func ExtractAccessToken(r *http.Request) string {
	if scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " "); ok {
		if strings.EqualFold(scheme, bearerScheme) {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
