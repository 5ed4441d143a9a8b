package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spherical/cheque-extractor/internal/domain"
)

const (
	maxAttempts    = 3
	rateLimitDelay = 5 * time.Second
	overloadDelay  = 10 * time.Second
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts    int
	RateLimitDelay time.Duration
	OverloadDelay  time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    maxAttempts,
		RateLimitDelay: rateLimitDelay,
		OverloadDelay:  overloadDelay,
	}
}

// AttemptState is the per-document retry state
type AttemptState string

const (
	StateAttempting     AttemptState = "attempting"
	StateWaitingBackoff AttemptState = "waiting_backoff"
	StateSucceeded      AttemptState = "succeeded"
	StateExhausted      AttemptState = "exhausted_retries"
	StateAbandoned      AttemptState = "abandoned"
)

// FailureClass names why an attempt failed
type FailureClass string

const (
	ClassNone        FailureClass = ""
	ClassRateLimited FailureClass = "rate_limited"
	ClassOverloaded  FailureClass = "server_overloaded"
	ClassHTTPOther   FailureClass = "http_status"
	ClassTransport   FailureClass = "transport"
	ClassMalformed   FailureClass = "malformed_response"
	ClassDecode      FailureClass = "decode"
	ClassCancelled   FailureClass = "cancelled"
)

// DecisionKind tags a Decision
type DecisionKind int

const (
	DecisionSuccess DecisionKind = iota
	DecisionRetry
	DecisionTerminal
)

// Decision is the outcome of classifying one attempt
type Decision struct {
	Kind  DecisionKind
	Class FailureClass
	Delay time.Duration
}

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// AttemptFunc performs one attempt. attempt starts at 1.
type AttemptFunc func(ctx context.Context, attempt int) error

// Result is the terminal state of one document's retry loop
type Result struct {
	State    AttemptState
	Attempts int
	Class    FailureClass
	Err      error
}

// RetryPolicy bounds and paces the model calls for a single document
type RetryPolicy struct {
	cfg    RetryConfig
	sleep  Sleeper
	logger *domain.Logger
}

// NewRetryPolicy creates a policy. A nil sleeper uses SleepContext.
func NewRetryPolicy(cfg RetryConfig, sleep Sleeper, logger *domain.Logger) *RetryPolicy {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = maxAttempts
	}
	if sleep == nil {
		sleep = SleepContext
	}
	if logger == nil {
		logger = domain.DefaultLogger
	}
	return &RetryPolicy{cfg: cfg, sleep: sleep, logger: logger.WithPrefix("retry")}
}

// Config returns the policy configuration
func (p *RetryPolicy) Config() RetryConfig {
	return p.cfg
}

// Decide classifies the error of one attempt. It has no side effects.
func (p *RetryPolicy) Decide(err error) Decision {
	if err == nil {
		return Decision{Kind: DecisionSuccess}
	}

	if errors.Is(err, context.Canceled) {
		return Decision{Kind: DecisionTerminal, Class: ClassCancelled}
	}

	if domain.IsType(err, domain.ErrorTypeDecode) {
		return Decision{Kind: DecisionTerminal, Class: ClassDecode}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests:
			return Decision{Kind: DecisionRetry, Class: ClassRateLimited, Delay: p.cfg.RateLimitDelay}
		case http.StatusInternalServerError, http.StatusServiceUnavailable:
			return Decision{Kind: DecisionRetry, Class: ClassOverloaded, Delay: p.cfg.OverloadDelay}
		default:
			return Decision{Kind: DecisionRetry, Class: ClassHTTPOther}
		}
	}

	if domain.IsType(err, domain.ErrorTypeMalformed) {
		return Decision{Kind: DecisionRetry, Class: ClassMalformed}
	}

	return Decision{Kind: DecisionRetry, Class: ClassTransport}
}

// Run drives fn until it succeeds, fails terminally, or the attempt ceiling is
// reached. No wait happens after the final attempt.
func (p *RetryPolicy) Run(ctx context.Context, label string, fn AttemptFunc) Result {
	var (
		attempts int
		last     Decision
		lastErr  error
	)

	for attempts < p.cfg.MaxAttempts {
		attempts++
		err := fn(ctx, attempts)
		d := p.Decide(err)

		switch d.Kind {
		case DecisionSuccess:
			return Result{State: StateSucceeded, Attempts: attempts}
		case DecisionTerminal:
			p.logger.Debug("%s: %s -> %s (%s)", label, StateAttempting, StateAbandoned, d.Class)
			return Result{State: StateAbandoned, Attempts: attempts, Class: d.Class, Err: err}
		}

		last, lastErr = d, err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{State: StateAbandoned, Attempts: attempts, Class: ClassCancelled, Err: ctxErr}
		}

		if attempts >= p.cfg.MaxAttempts {
			break
		}

		switch d.Class {
		case ClassRateLimited:
			p.logger.Warn("%s: rate limit reached, waiting %v before retrying (attempt %d/%d)", label, d.Delay, attempts, p.cfg.MaxAttempts)
		case ClassOverloaded:
			p.logger.Warn("%s: server error or overloaded, waiting %v before retrying (attempt %d/%d)", label, d.Delay, attempts, p.cfg.MaxAttempts)
		default:
			p.logger.Warn("%s: attempt %d/%d failed: %v", label, attempts, p.cfg.MaxAttempts, err)
		}

		p.logger.Debug("%s: %s -> %s (%v)", label, StateAttempting, StateWaitingBackoff, d.Delay)
		if d.Delay > 0 {
			if err := p.sleep(ctx, d.Delay); err != nil {
				return Result{State: StateAbandoned, Attempts: attempts, Class: ClassCancelled, Err: err}
			}
		}
		p.logger.Debug("%s: %s -> %s", label, StateWaitingBackoff, StateAttempting)
	}

	p.logger.Warn("%s: attempt %d/%d failed: %v", label, attempts, p.cfg.MaxAttempts, lastErr)
	return Result{State: StateExhausted, Attempts: attempts, Class: last.Class, Err: lastErr}
}
