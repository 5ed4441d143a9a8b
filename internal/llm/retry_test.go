package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/cheque-extractor/internal/domain"
)

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func statusErr(code int) error {
	return domain.NewError(domain.ErrorTypeHTTPStatus, "rejected", &HTTPStatusError{StatusCode: code})
}

func newTestPolicy(s *recordingSleeper) *RetryPolicy {
	return NewRetryPolicy(DefaultRetryConfig(), s.Sleep, domain.NopLogger())
}

func TestDecide(t *testing.T) {
	p := NewRetryPolicy(DefaultRetryConfig(), nil, domain.NopLogger())

	tests := []struct {
		name string
		err  error
		want Decision
	}{
		{"success", nil, Decision{Kind: DecisionSuccess}},
		{"rate limited", statusErr(429), Decision{Kind: DecisionRetry, Class: ClassRateLimited, Delay: 5 * time.Second}},
		{"internal error", statusErr(500), Decision{Kind: DecisionRetry, Class: ClassOverloaded, Delay: 10 * time.Second}},
		{"unavailable", statusErr(503), Decision{Kind: DecisionRetry, Class: ClassOverloaded, Delay: 10 * time.Second}},
		{"other status", statusErr(401), Decision{Kind: DecisionRetry, Class: ClassHTTPOther}},
		{"bad gateway", statusErr(502), Decision{Kind: DecisionRetry, Class: ClassHTTPOther}},
		{"transport", domain.TransportError("dial", errors.New("refused")), Decision{Kind: DecisionRetry, Class: ClassTransport}},
		{"malformed", domain.MalformedResponseError("empty", domain.ErrNoChoices), Decision{Kind: DecisionRetry, Class: ClassMalformed}},
		{"decode", domain.DecodeError("bad json", nil), Decision{Kind: DecisionTerminal, Class: ClassDecode}},
		{"cancelled", context.Canceled, Decision{Kind: DecisionTerminal, Class: ClassCancelled}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Decide(tt.err))
		})
	}
}

func TestRun_SucceedsFirstAttempt(t *testing.T) {
	s := &recordingSleeper{}
	calls := 0

	res := newTestPolicy(s).Run(context.Background(), "a.pdf", func(ctx context.Context, attempt int) error {
		calls++
		return nil
	})

	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, s.waits)
	assert.NoError(t, res.Err)
}

func TestRun_BackoffByStatus(t *testing.T) {
	tests := []struct {
		code  int
		delay time.Duration
	}{
		{http.StatusTooManyRequests, 5 * time.Second},
		{http.StatusInternalServerError, 10 * time.Second},
		{http.StatusServiceUnavailable, 10 * time.Second},
		{http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			s := &recordingSleeper{}
			var seen []int

			res := newTestPolicy(s).Run(context.Background(), "a.pdf", func(ctx context.Context, attempt int) error {
				seen = append(seen, attempt)
				return statusErr(tt.code)
			})

			assert.Equal(t, StateExhausted, res.State)
			assert.Equal(t, 3, res.Attempts)
			assert.Equal(t, []int{1, 2, 3}, seen)

			// no wait after the last attempt; zero delays never sleep
			if tt.delay > 0 {
				assert.Equal(t, []time.Duration{tt.delay, tt.delay}, s.waits)
			} else {
				assert.Empty(t, s.waits)
			}

			var se *HTTPStatusError
			require.True(t, errors.As(res.Err, &se))
			assert.Equal(t, tt.code, se.StatusCode)
		})
	}
}

func TestRun_RecoversAfterRateLimit(t *testing.T) {
	s := &recordingSleeper{}

	res := newTestPolicy(s).Run(context.Background(), "a.pdf", func(ctx context.Context, attempt int) error {
		if attempt == 1 {
			return statusErr(429)
		}
		return nil
	})

	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, []time.Duration{5 * time.Second}, s.waits)
}

func TestRun_DecodeFailureIsOneShot(t *testing.T) {
	for i := 0; i < 2; i++ {
		s := &recordingSleeper{}
		calls := 0

		res := newTestPolicy(s).Run(context.Background(), "a.pdf", func(ctx context.Context, attempt int) error {
			calls++
			return domain.DecodeError("content is not valid JSON", errors.New("invalid character"))
		})

		assert.Equal(t, StateAbandoned, res.State)
		assert.Equal(t, ClassDecode, res.Class)
		assert.Equal(t, 1, res.Attempts)
		assert.Equal(t, 1, calls)
		assert.Empty(t, s.waits)
	}
}

func TestRun_MalformedConsumesAttempts(t *testing.T) {
	s := &recordingSleeper{}

	res := newTestPolicy(s).Run(context.Background(), "a.pdf", func(ctx context.Context, attempt int) error {
		return domain.MalformedResponseError("no choices", domain.ErrNoChoices)
	})

	assert.Equal(t, StateExhausted, res.State)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, ClassMalformed, res.Class)
	assert.ErrorIs(t, res.Err, domain.ErrNoChoices)
}

func TestRun_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	sleep := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	p := NewRetryPolicy(DefaultRetryConfig(), sleep, domain.NopLogger())

	res := p.Run(ctx, "a.pdf", func(ctx context.Context, attempt int) error {
		calls++
		return statusErr(429)
	})

	assert.Equal(t, StateAbandoned, res.State)
	assert.Equal(t, ClassCancelled, res.Class)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestRun_CustomCeiling(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 5
	calls := 0

	res := NewRetryPolicy(cfg, (&recordingSleeper{}).Sleep, domain.NopLogger()).Run(context.Background(), "a.pdf",
		func(ctx context.Context, attempt int) error {
			calls++
			return domain.TransportError("timeout", context.DeadlineExceeded)
		})

	assert.Equal(t, StateExhausted, res.State)
	assert.Equal(t, 5, calls)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, SleepContext(context.Background(), 0))
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
