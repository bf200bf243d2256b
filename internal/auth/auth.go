// Package auth implements the shared-secret comparisons gating every
// state-mutating endpoint. All comparisons against caller-supplied values go
// through constant-time primitives so a mismatch reveals nothing about where
// the inputs diverge.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// Compare reports whether supplied equals secret. An empty or absent supplied
// value never matches, including against an empty secret. Pure predicate;
// callers own logging and the resulting HTTP status.
func Compare(secret, supplied string) bool {
	if secret == "" || supplied == "" {
		return false
	}
	if len(secret) != len(supplied) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(supplied)) == 1
}

// ExtractBearerToken pulls the token out of an Authorization header.
func ExtractBearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", errors.New("missing Authorization header")
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", errors.New("invalid Authorization header format")
	}

	token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	if token == "" {
		return "", errors.New("missing API key")
	}
	return token, nil
}

// Guard is a secret bound to the request header carrying it.
type Guard struct {
	Header string
	Secret string
}

// Check compares the request's guard header against the configured secret.
func (g Guard) Check(r *http.Request) bool {
	return Compare(g.Secret, r.Header.Get(g.Header))
}
