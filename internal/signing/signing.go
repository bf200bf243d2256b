// Package signing issues and verifies the HMAC signatures embedded in email
// tracking links. A link carries a lead identifier, an action tag and a
// signature; verification recomputes the signature from scratch, so no
// per-link state is ever stored.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/toitureai/leadgw/internal/auth"
)

// Action tags recognized in tracking links.
const (
	ActionOpen  = "open"
	ActionClick = "click"
)

// Signer computes tracking signatures with an injected secret. Safe for
// concurrent use; all methods are pure.
type Signer struct {
	secret []byte
}

// New returns a Signer keyed with secret. Secret length is enforced by the
// config layer before the process starts.
func New(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the hex HMAC-SHA256 of identifier and actionTag. The two
// fields are concatenated without a delimiter so signatures stay compatible
// with links already issued.
func (s *Signer) Sign(identifier, actionTag string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(identifier + actionTag))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is valid for identifier and actionTag.
// Action tags outside the recognized set fail without any comparison.
func (s *Signer) Verify(identifier, actionTag, signature string) bool {
	if actionTag != ActionOpen && actionTag != ActionClick {
		return false
	}
	expected := s.Sign(identifier, actionTag)
	return auth.Compare(expected, signature)
}

// GenerateTrackingURLs returns the click and open URLs for one lead, each
// carrying its own signature.
func (s *Signer) GenerateTrackingURLs(identifier, baseURL string) (clickURL, openURL string) {
	clickURL = s.trackingURL(identifier, ActionClick, baseURL)
	openURL = s.trackingURL(identifier, ActionOpen, baseURL)
	return clickURL, openURL
}

func (s *Signer) trackingURL(identifier, actionTag, baseURL string) string {
	q := url.Values{}
	q.Set("lead_id", identifier)
	q.Set("type", actionTag)
	q.Set("s", s.Sign(identifier, actionTag))
	return fmt.Sprintf("%s/api/v1/tracking/track-lead?%s", baseURL, q.Encode())
}
