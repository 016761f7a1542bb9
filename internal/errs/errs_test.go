package errs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"data error", &DataError{Series: "BTC", Reason: "bad close"}, true},
		{"config error", &ConfigurationError{Field: "kelly_fraction", Reason: "too big"}, true},
		{"insufficient history", &InsufficientHistoryError{Stage: "kalman", Needed: 30, Got: 5}, false},
		{"numerical instability", &NumericalInstabilityError{Stage: "pricing", Reason: "expired"}, false},
		{"wrapped data error", fmt.Errorf("series aborted: %w", &DataError{Series: "ETH"}), true},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, (&InsufficientHistoryError{Stage: "ewma", Needed: 20, Got: 3}).Error(), "need 20")
	assert.Contains(t, (&ConfigurationError{Field: "max_position", Reason: "must be <= 0.10"}).Error(), "max_position")
}
