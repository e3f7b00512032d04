package pipeline

import (
	"context"
	"fmt"
	"time"

	"widgetforge/internal/extract"
	"widgetforge/internal/logging"
	"widgetforge/internal/widget"
)

// generateFunc issues one generation attempt. feedback is empty on the first
// attempt and carries the corrective block built from the previous failure on
// every retry.
type generateFunc func(ctx context.Context, feedback string) (string, error)

const feedbackTemplate = `

PREVIOUS ATTEMPT FAILED - %s

Please correct the issue and respond again. Output valid JSON only, with no commentary and no markdown fences.`

// runWithRetry drives one phase's generate/extract/validate loop. maxRetries
// is the number of corrective re-attempts after the first call (2 retries =
// 3 total attempts). Between attempts a fixed delay is inserted. On
// exhaustion it returns *PhaseExhausted carrying the last failure; callers
// catch that at the phase boundary and substitute a degraded default.
func runWithRetry[T any](
	ctx context.Context,
	phase string,
	maxRetries int,
	delay time.Duration,
	call generateFunc,
	validate func(map[string]any) widget.ValidationResult[T],
) (T, error) {
	var zero T
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	feedback := ""
	attempts := maxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			logging.PipelineDebug("%s: retry %d/%d after: %v", phase, attempt, maxRetries, lastErr)
			if err := sleepCtx(ctx, delay); err != nil {
				return zero, &PhaseExhausted{Phase: phase, Attempts: attempt, LastErr: err}
			}
			feedback = fmt.Sprintf(feedbackTemplate, lastErr.Error())
		}

		raw, err := call(ctx, feedback)
		if err != nil {
			lastErr = &GenerationFailure{Phase: phase, Err: err}
			continue
		}

		parsed, err := extract.Extract(raw)
		if err != nil {
			lastErr = err
			continue
		}

		result := validate(parsed)
		if !result.Valid {
			lastErr = &ValidationFailure{Phase: phase, Errors: result.Errors}
			continue
		}

		return result.Normalized, nil
	}

	return zero, &PhaseExhausted{Phase: phase, Attempts: attempts, LastErr: lastErr}
}

// sleepCtx pauses for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
