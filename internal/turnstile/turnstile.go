// Package turnstile verifies Cloudflare Turnstile CAPTCHA tokens. With no
// secret key configured, verification is bypassed so local setups work
// without a Cloudflare account.
package turnstile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/toitureai/leadgw/internal/log"
)

const siteverifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Verifier checks CAPTCHA tokens.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) bool
}

// Client implements Verifier against Cloudflare.
type Client struct {
	secretKey string
	endpoint  string
	http      *http.Client
	logger    *slog.Logger
}

// New builds a verifier. An empty secretKey disables verification.
func New(secretKey string) *Client {
	return &Client{
		secretKey: secretKey,
		endpoint:  siteverifyURL,
		http:      &http.Client{Timeout: 5 * time.Second},
		logger:    log.WithComponent("turnstile"),
	}
}

// Verify reports whether the token is valid. Network or provider errors
// count as invalid; only the explicit bypass returns true without a check.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) bool {
	if c.secretKey == "" {
		c.logger.Debug("turnstile disabled, skipping verification")
		return true
	}
	if token == "" {
		return false
	}

	form := url.Values{}
	form.Set("secret", c.secretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		c.logger.Error("build siteverify request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("siteverify request failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("siteverify returned non-200", "status", resp.StatusCode)
		return false
	}

	var body struct {
		Success    bool     `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.Warn("decode siteverify response", "error", err)
		return false
	}
	if !body.Success {
		c.logger.Info("captcha rejected", "errors", fmt.Sprintf("%v", body.ErrorCodes))
	}
	return body.Success
}
