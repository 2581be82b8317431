package httpx

import (
	"errors"
	"net/http"
	"strings"
)

// AccessTokenCookie is the cookie the browser frontend stores the access
// token in.
const AccessTokenCookie = "ACCESS_TOKEN"

var errBadAuthorization = errors.New("httpx: malformed Authorization header")

// TokenFromRequest returns the raw access token. The cookie wins over the
// Authorization header when both are present. An empty token with a nil
// error means the request carries no credentials.
func TokenFromRequest(r *http.Request, cookieName string) (string, error) {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && strings.TrimSpace(c.Value) != "" {
			return strings.TrimSpace(c.Value), nil
		}
	}

	h := r.Header.Get("Authorization")
	if h == "" {
		return "", nil
	}

	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errBadAuthorization
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", errBadAuthorization
	}
	return tok, nil
}
