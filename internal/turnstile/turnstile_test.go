package turnstile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyBypassWithoutKey(t *testing.T) {
	c := New("")
	assert.True(t, c.Verify(context.Background(), "anything", ""))
	assert.True(t, c.Verify(context.Background(), "", ""))
}

func TestVerifyEmptyToken(t *testing.T) {
	c := New("secret-key")
	assert.False(t, c.Verify(context.Background(), "", ""))
}

func TestVerifyAgainstProvider(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     bool
	}{
		{"success", http.StatusOK, `{"success": true}`, true},
		{"rejected", http.StatusOK, `{"success": false, "error-codes": ["invalid-input-response"]}`, false},
		{"provider error", http.StatusInternalServerError, ``, false},
		{"garbage body", http.StatusOK, `not json`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.NoError(t, r.ParseForm())
				assert.Equal(t, "secret-key", r.Form.Get("secret"))
				assert.Equal(t, "tok", r.Form.Get("response"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New("secret-key")
			c.endpoint = srv.URL

			assert.Equal(t, tt.want, c.Verify(context.Background(), "tok", "203.0.113.9"))
		})
	}
}

func TestVerifyNetworkFailure(t *testing.T) {
	c := New("secret-key")
	c.endpoint = "http://127.0.0.1:1"

	assert.False(t, c.Verify(context.Background(), "tok", ""))
}
