package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("UserNotFoundException")
	err := Identity("session.SubmitCode", "Invalid verification code", cause)

	assert.True(t, errors.Is(err, ErrIdentity))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "session.SubmitCode: Invalid verification code", err.Error())
}

func TestErrorSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("checkout: %w", New("cart.Checkout", ErrEmptyCart, "Your cart is empty!"))

	assert.True(t, errors.Is(err, ErrEmptyCart))
	assert.Equal(t, "Your cart is empty!", Message(err))
}

func TestMessageFallsBack(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, "op: not found", (&Error{Op: "op", Kind: ErrNotFound}).Error())
}
