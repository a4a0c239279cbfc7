package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// authenticate resolves the caller's identity for an upgrade request. It
// returns the user ID (empty for API-key callers) and whether the request
// may proceed.
//
// When neither API keys nor a UI password are configured the gateway runs
// open and every upgrade passes. Otherwise the request must carry a token,
// either as a ?token= query parameter or an Authorization: Bearer header.
// Tokens are first checked against the session token store, then against
// the configured API keys. With a UI password configured but no API keys,
// only tokens minted through the UI login flow validate.
func (g *Gateway) authenticate(r *http.Request) (string, bool) {
	apiKeys := g.cfg.Auth.APIKeys
	if len(apiKeys) == 0 && g.cfg.Auth.UIPassword == "" {
		return "", true
	}

	token := requestToken(r)
	if token == "" {
		return "", false
	}

	if g.tokens != nil {
		tok, ok, err := g.tokens.Validate(r.Context(), token)
		if err != nil {
			g.logger.Warn("token store lookup failed", "error", err)
		} else if ok {
			return tok.UserID, true
		}
	}

	if matchAPIKey(token, apiKeys) {
		return "", true
	}
	return "", false
}

// requestToken extracts the bearer token from the query string or the
// Authorization header. Query wins; browser WebSocket clients cannot set
// headers.
func requestToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}

// matchAPIKey compares the token against every configured key in constant
// time. The loop never exits early so timing does not reveal which key, if
// any, matched.
func matchAPIKey(token string, keys []string) bool {
	tokenBytes := []byte(token)
	matched := false
	for _, key := range keys {
		keyBytes := []byte(key)
		if len(keyBytes) == len(tokenBytes) && subtle.ConstantTimeCompare(keyBytes, tokenBytes) == 1 {
			matched = true
		}
	}
	return matched
}

// originAllowed enforces the allowed-origins list. An empty list admits
// every origin.
func (g *Gateway) originAllowed(r *http.Request) bool {
	if len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	for _, allowed := range g.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
