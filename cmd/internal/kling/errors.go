package kling

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	ErrMissingCredentials = errors.New("kling: access key or secret key not configured")
	ErrNoTaskID           = errors.New("kling: task creation response carried no task id")
	ErrPollExhausted      = errors.New("kling: max retries reached while checking task status")
	ErrPollBudgetExceeded = errors.New("kling: poll budget exceeded before task reached a terminal state")
	ErrEmptyResult        = errors.New("kling: task succeeded but returned no output URL")
	ErrInvalidParams      = errors.New("kling: invalid generation parameters")
)

// APIError is returned when the remote API answers with a non-2xx status.
// Submission errors are not retried at this layer; retry policy lives in the
// poll loop, where only status-check failures count against the retry budget.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kling: api request failed: status=%d body=%s", e.Status, e.Body)
}

// JobFailedError is returned when the remote reports the task as failed.
// It is terminal and never retried.
type JobFailedError struct {
	TaskID  string
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("kling: task %s failed: %s", e.TaskID, e.Message)
}

// resourceExhaustedMarker is the substring the remote uses to report that the
// account's resource pack ran out of capacity.
const resourceExhaustedMarker = "resource pack exhausted"

// IsResourceExhausted reports whether err represents remote capacity
// exhaustion rather than a genuine job failure. Callers surface it as a
// distinct 429 so the frontend can tell it apart from quota denials.
func IsResourceExhausted(err error) bool {
	var api *APIError
	if errors.As(err, &api) && strings.Contains(api.Body, resourceExhaustedMarker) {
		return true
	}
	var jf *JobFailedError
	if errors.As(err, &jf) && strings.Contains(jf.Message, resourceExhaustedMarker) {
		return true
	}
	return false
}
