package agent

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/pulselabs/marketpulse/pkg/cache"
	"github.com/pulselabs/marketpulse/pkg/llms"
	"github.com/pulselabs/marketpulse/pkg/observability"
)

const (
	backoffBase = 200 * time.Millisecond
	backoffCap  = 2 * time.Second
)

// Runtime wraps agent executions with input/output validation, response
// caching, per-attempt timeouts, and the retry policy.
type Runtime struct {
	cache *cache.ResponseCache
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRuntime creates a runtime. A nil cache disables response caching.
func NewRuntime(c *cache.ResponseCache) *Runtime {
	if c == nil {
		c = cache.Disabled()
	}
	return &Runtime{
		cache: c,
		sleep: sleepCtx,
	}
}

// Run executes one agent under the runtime's policy:
//
//  1. Validate input against the agent's schema; ValidationError is final.
//  2. For cacheable agents, serve from cache unless the request forces a
//     refresh.
//  3. Execute with a per-attempt timeout, retrying transient failures with
//     exponential backoff.
//  4. Validate output, cache it, and return.
func Run[T any](ctx context.Context, rt *Runtime, ag Agent[T], input map[string]any, ec *ExecutionContext) (T, error) {
	var zero T
	cfg := ag.Config()
	log := ec.Log().With("agent", cfg.Name)
	start := time.Now()

	ctx, span := observability.GetTracer("agent").Start(ctx, "agent."+cfg.Name)
	defer span.End()

	if err := ValidateValue(ag.InputSchema(), input); err != nil {
		verr := &ValidationError{Agent: cfg.Name, Message: err.Error(), Err: err}
		recordExecution(ctx, cfg.Name, start, verr)
		return zero, verr
	}

	if cfg.Cacheable && rt.cache.Enabled() && !ec.ForceRefresh {
		if raw, hit := rt.cache.Get(ctx, cfg.Name, input); hit {
			var out T
			if err := json.Unmarshal(raw, &out); err == nil {
				log.Debug("agent served from cache")
				if m := observability.GetGlobalMetrics(); m != nil {
					m.RecordCacheHit(ctx, cfg.Name)
				}
				return out, nil
			}
			// Unreadable entry: drop it and recompute.
			rt.cache.Invalidate(ctx, cfg.Name, input)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Warn("retrying agent", "attempt", attempt, "error", lastErr)
			if err := rt.sleep(ctx, backoffDelay(attempt)); err != nil {
				break
			}
		}

		out, err := runAttempt(ctx, ag, input, ec)
		if err == nil {
			if cfg.Cacheable {
				if raw, merr := json.Marshal(out); merr == nil {
					rt.cache.Set(ctx, cfg.Name, input, raw)
				}
			}
			recordExecution(ctx, cfg.Name, start, nil)
			log.Info("agent completed", "duration", time.Since(start))
			return out, nil
		}

		lastErr = classify(cfg, err)
		if !Retryable(lastErr) {
			break
		}
	}

	span.RecordError(lastErr)
	recordExecution(ctx, cfg.Name, start, lastErr)
	log.Error("agent failed", "error", lastErr, "duration", time.Since(start))
	return zero, lastErr
}

// runAttempt runs one execution under the agent's timeout and validates the
// output.
func runAttempt[T any](ctx context.Context, ag Agent[T], input map[string]any, ec *ExecutionContext) (T, error) {
	var zero T
	cfg := ag.Config()

	attemptCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	out, err := ag.Execute(attemptCtx, input, ec)
	if err != nil {
		return zero, err
	}

	if err := ValidateValue(ag.OutputSchema(), out); err != nil {
		return zero, &ReasoningError{
			Agent:   cfg.Name,
			Message: "output failed schema validation: " + err.Error(),
			Err:     err,
		}
	}
	return out, nil
}

// classify maps raw execution errors into the taxonomy.
func classify(cfg Config, err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return te
	}
	var re *ReasoningError
	if errors.As(err, &re) {
		return re
	}
	var dfe *DataFetchError
	if errors.As(err, &dfe) {
		return dfe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Agent: cfg.Name, Timeout: cfg.Timeout}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var pe *llms.ParseError
	if errors.As(err, &pe) {
		return &ReasoningError{Agent: cfg.Name, Message: pe.Message, Err: pe}
	}
	if errors.Is(err, llms.ErrNoCandidates) || errors.Is(err, llms.ErrToolLoopExceeded) {
		return &ReasoningError{Agent: cfg.Name, Message: err.Error(), Err: err}
	}

	// Gateway I/O and anything else transient.
	return &ReasoningError{Agent: cfg.Name, Message: err.Error(), Err: err}
}

// backoffDelay returns the exponential delay for a retry attempt with 10%
// jitter, capped.
func backoffDelay(attempt int) time.Duration {
	d := backoffBase << (attempt - 1)
	if d > backoffCap {
		d = backoffCap
	}
	jitter := time.Duration(rand.Int63n(int64(d)/10 + 1))
	return d + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func recordExecution(ctx context.Context, agent string, start time.Time, err error) {
	if m := observability.GetGlobalMetrics(); m != nil {
		m.RecordAgentExecution(ctx, agent, time.Since(start), err)
	}
}
