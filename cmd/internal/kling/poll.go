package kling

import (
	"context"
	"net/http"
	"time"
)

// poll drives one task to a terminal state.
//
// The loop waits an unconditional initial delay before the first status check
// (remote tasks need warm-up time), then checks sequentially:
//
//   - "failed" is terminal and returns JobFailedError immediately;
//   - "succeed" returns the first result URL, or ErrEmptyResult if the
//     result array is empty despite success;
//   - anything else ("submitted", "processing", unrecognized intermediates)
//     waits 2^attempt seconds and checks again.
//
// Transport and API errors during a status check consume a separate retry
// budget on the same exponential schedule; exhausting it returns
// ErrPollExhausted. The whole loop runs under the client's wall-clock poll
// budget, so an endlessly "processing" task cannot outlive the request:
// the deadline surfaces as ErrPollBudgetExceeded.
func (c *Client) poll(ctx context.Context, statusPath, taskID string, extract func(*taskResult) string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollBudget)
	defer cancel()

	if err := c.sleep(ctx, c.initialDelay); err != nil {
		return "", mapDeadline(err)
	}

	attempt := 0 // backoff index for still-running checks
	retries := 0 // transport-error budget

	for {
		env, err := c.do(ctx, http.MethodGet, statusPath, nil)
		if err != nil {
			if ctx.Err() != nil {
				return "", mapDeadline(ctx.Err())
			}
			retries++
			c.log.Warn("kling.status.check_failed", "task_id", taskID, "retry", retries, "err", err)
			if retries >= c.maxRetries {
				return "", ErrPollExhausted
			}
			if err := c.sleep(ctx, backoff(retries)); err != nil {
				return "", mapDeadline(err)
			}
			continue
		}

		switch env.Data.TaskStatus {
		case statusFailed:
			return "", &JobFailedError{TaskID: taskID, Message: env.Data.TaskStatusMsg}

		case statusSucceed:
			if url := extract(env.Data.TaskResult); url != "" {
				c.log.Info("kling.task.succeeded", "task_id", taskID, "checks", attempt+1)
				return url, nil
			}
			return "", ErrEmptyResult

		default:
			if err := c.sleep(ctx, backoff(attempt)); err != nil {
				return "", mapDeadline(err)
			}
			attempt++
		}
	}
}

func backoff(n int) time.Duration {
	return time.Duration(1<<n) * time.Second
}
