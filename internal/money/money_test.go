package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEuros(t *testing.T) {
	assert.Equal(t, Cents(1050), FromEuros(10.50))
	assert.Equal(t, Cents(1), FromEuros(0.005))
	assert.Equal(t, Cents(0), FromEuros(0))
	assert.Equal(t, Cents(-250), FromEuros(-2.5))
}

func TestEuros(t *testing.T) {
	assert.Equal(t, 10.5, Cents(1050).Euros())
	assert.Equal(t, 0.01, Cents(1).Euros())
}

func TestString(t *testing.T) {
	tests := []struct {
		in   Cents
		want string
	}{
		{0, "0,00 €"},
		{1050, "10,50 €"},
		{123456, "1 234,56 €"},
		{100000000, "1 000 000,00 €"},
		{-250, "-2,50 €"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.String())
	}
}
