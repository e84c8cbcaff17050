package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	stdassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/testrig/packages/assert"
	"github.com/abdul-hamid-achik/testrig/packages/retry"
	"github.com/abdul-hamid-achik/testrig/packages/stats"
)

func TestUntil_SucceedsImmediately(t *testing.T) {
	calls := 0
	err := retry.Until(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	stdassert.Equal(t, 1, calls)
}

func TestUntil_SucceedsOnThirdAttempt(t *testing.T) {
	calls := 0
	err := retry.Until(context.Background(), func() error {
		calls++
		return assert.That(calls >= 3, "counter (%d) should be >= 3", calls)
	},
		retry.WithTimeout(2*time.Second),
		retry.WithInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	stdassert.Equal(t, 3, calls)
}

func TestUntil_TimesOutOnPersistentFailure(t *testing.T) {
	calls := 0
	err := retry.Until(context.Background(), func() error {
		calls++
		return assert.Errorf("element never appeared")
	},
		retry.WithTimeout(500*time.Millisecond),
		retry.WithInterval(100*time.Millisecond),
		retry.WithName("element visible"),
		retry.WithErrorMessage("login page broken"),
	)
	require.Error(t, err)

	var terr *retry.TimeoutError
	require.ErrorAs(t, err, &terr)
	// Roughly timeout/interval attempts, give or take one.
	stdassert.GreaterOrEqual(t, terr.Attempts, 4)
	stdassert.LessOrEqual(t, terr.Attempts, 7)
	stdassert.Equal(t, calls, terr.Attempts)
	stdassert.GreaterOrEqual(t, terr.Elapsed, 500*time.Millisecond)

	msg := terr.Error()
	stdassert.Contains(t, msg, "element visible")
	stdassert.Contains(t, msg, "login page broken")
	stdassert.Contains(t, msg, "element never appeared")
}

func TestUntil_NonRetryableErrorPropagatesImmediately(t *testing.T) {
	fatal := errors.New("database is gone")
	calls := 0
	err := retry.Until(context.Background(), func() error {
		calls++
		return fatal
	},
		retry.WithTimeout(time.Second),
		retry.WithInterval(10*time.Millisecond),
	)
	// Propagates unchanged, no retry, no wrapping.
	stdassert.Same(t, fatal, err)
	stdassert.Equal(t, 1, calls)
}

func TestUntil_RetryOnTargets(t *testing.T) {
	flaky := errors.New("connection reset")
	calls := 0
	err := retry.Until(context.Background(), func() error {
		calls++
		if calls < 2 {
			return flaky
		}
		return nil
	},
		retry.WithTimeout(time.Second),
		retry.WithInterval(10*time.Millisecond),
		retry.WithRetryOn(flaky),
	)
	require.NoError(t, err)
	stdassert.Equal(t, 2, calls)
}

func TestUntil_RetryMatchPredicate(t *testing.T) {
	calls := 0
	err := retry.Until(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient glitch")
		}
		return nil
	},
		retry.WithTimeout(time.Second),
		retry.WithInterval(5*time.Millisecond),
		retry.WithRetryMatch(func(err error) bool {
			return err.Error() == "transient glitch"
		}),
	)
	require.NoError(t, err)
	stdassert.Equal(t, 3, calls)
}

func TestUntilValue_FirstSuccessWins(t *testing.T) {
	calls := 0
	v, err := retry.UntilValue(context.Background(), func() (string, error) {
		calls++
		if calls < 2 {
			return "", assert.Errorf("not ready")
		}
		return "ready", nil
	},
		retry.WithTimeout(time.Second),
		retry.WithInterval(5*time.Millisecond),
	)
	require.NoError(t, err)
	stdassert.Equal(t, "ready", v)
	stdassert.Equal(t, 2, calls)
}

func TestUntilValue_TimeoutReturnsZeroValue(t *testing.T) {
	v, err := retry.UntilValue(context.Background(), func() (int, error) {
		return 0, assert.Errorf("nope")
	},
		retry.WithTimeout(50*time.Millisecond),
		retry.WithInterval(10*time.Millisecond),
	)
	var terr *retry.TimeoutError
	require.ErrorAs(t, err, &terr)
	stdassert.Zero(t, v)
}

func TestTimeoutError_UnwrapsLastError(t *testing.T) {
	last := assert.Errorf("still failing")
	terr := &retry.TimeoutError{Attempts: 3, Elapsed: time.Second, Name: "condition", LastErr: last}
	stdassert.ErrorIs(t, terr, last)
}

func TestUntil_TimeoutErrorIsNotRetryable(t *testing.T) {
	// A nested retry's timeout must not extend the outer retry's budget.
	inner := &retry.TimeoutError{Attempts: 2, Elapsed: time.Second, Name: "inner", LastErr: assert.Errorf("x")}
	calls := 0
	err := retry.Until(context.Background(), func() error {
		calls++
		return inner
	},
		retry.WithTimeout(time.Second),
		retry.WithInterval(5*time.Millisecond),
	)
	stdassert.Same(t, error(inner), err)
	stdassert.Equal(t, 1, calls)
}

func TestUntil_RecordsAttemptDurations(t *testing.T) {
	rec := stats.NewRecorder()
	calls := 0
	err := retry.Until(context.Background(), func() error {
		calls++
		time.Sleep(2 * time.Millisecond)
		return assert.That(calls >= 2, "not yet")
	},
		retry.WithTimeout(time.Second),
		retry.WithInterval(time.Millisecond),
		retry.WithRecorder(rec),
	)
	require.NoError(t, err)
	stdassert.Equal(t, int64(2), rec.Snapshot().Count)
}
