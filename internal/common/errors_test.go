package common

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"validation", NewValidationError("title", "is required"), ErrValidation},
		{"credentials", &CredentialsError{RemainingAttempts: 3}, ErrInvalidCredentials},
		{"locked", &LockedError{Remaining: time.Minute}, ErrAccountLocked},
		{"wrapped locked", fmt.Errorf("login: %w", &LockedError{Remaining: time.Second}), ErrAccountLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.target))
			assert.False(t, errors.Is(tt.err, ErrInternal))
		})
	}
}

func TestLockedError_SecondsRoundsUp(t *testing.T) {
	assert.Equal(t, int64(2), (&LockedError{Remaining: 1500 * time.Millisecond}).Seconds())
	assert.Equal(t, int64(1800), (&LockedError{Remaining: 30 * time.Minute}).Seconds())
	assert.Equal(t, int64(0), (&LockedError{Remaining: -time.Second}).Seconds())
}

func TestValidationError_MessageIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "bad", "a": "also bad"}}
	assert.Equal(t, "validation error: a: also bad; b: bad", err.Error())

	var ve *ValidationError
	require.True(t, errors.As(fmt.Errorf("wrap: %w", err), &ve))
	assert.Len(t, ve.Fields, 2)
}

func TestCredentialsError_HasRemaining(t *testing.T) {
	assert.True(t, (&CredentialsError{RemainingAttempts: 0}).HasRemaining())
	assert.False(t, (&CredentialsError{RemainingAttempts: -1}).HasRemaining())
}

func TestInternal(t *testing.T) {
	assert.NoError(t, Internal("save user", nil))

	cause := errors.New("connection reset")
	err := Internal("save user", cause)
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save user: connection reset", err.Error())
}
