package assert

import (
	"errors"
	"fmt"
	"testing"

	stdassert "github.com/stretchr/testify/assert"
)

func TestThat(t *testing.T) {
	stdassert.NoError(t, That(true, "never shown"))

	err := That(false, "counter (%d) should be >= %d", 2, 3)
	stdassert.EqualError(t, err, "counter (2) should be >= 3")
	stdassert.True(t, IsFailure(err))
}

func TestNoError(t *testing.T) {
	stdassert.NoError(t, NoError(nil))

	err := NoError(errors.New("dial tcp: refused"))
	stdassert.EqualError(t, err, "dial tcp: refused")
	stdassert.True(t, IsFailure(err))
}

func TestIsFailure_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("checking balance: %w", Errorf("balance is 0"))
	stdassert.True(t, IsFailure(wrapped))
	stdassert.False(t, IsFailure(errors.New("plain")))
	stdassert.False(t, IsFailure(nil))
}
