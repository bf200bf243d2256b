package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("lead_webhook", "payload", "missing email"), http.StatusBadRequest},
		{Authentication("lead_webhook", "secret", "invalid secret"), http.StatusUnauthorized},
		{External("lead_webhook", "ai", "qualification failed", errors.New("boom")), http.StatusBadGateway},
		{Database("lead_webhook", "insert", errors.New("locked")), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.StatusCode(), tt.err.Error())
	}
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("timeout")
	e := External("devis", "pdf", "render failed", inner)

	wrapped := fmt.Errorf("generate devis: %w", e)
	assert.True(t, errors.Is(wrapped, inner))

	var got *Error
	assert.True(t, errors.As(wrapped, &got))
	assert.Equal(t, KindExternalService, got.Kind)
}

func TestFrom(t *testing.T) {
	e := Database("report", "kpis", errors.New("locked"))
	assert.Same(t, e, From(fmt.Errorf("wrap: %w", e), "report"))

	plain := From(errors.New("boom"), "report")
	assert.Equal(t, KindExternalService, plain.Kind)
	assert.Equal(t, "report", plain.Workflow)
}

func TestShouldAlert(t *testing.T) {
	assert.False(t, Validation("w", "s", "m").ShouldAlert())
	assert.False(t, Authentication("w", "s", "m").ShouldAlert())
	assert.True(t, External("w", "s", "m", nil).ShouldAlert())
	assert.True(t, Database("w", "s", nil).ShouldAlert())
}
