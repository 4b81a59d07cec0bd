package demoapi

// Submission request types carried in the multipart "requestType" field.
const (
	requestTypeTryOn     = "tryon"
	requestTypeImg2Video = "img2video"
)

type resultResponse struct {
	Result string `json:"result"`
}

type remainingResponse struct {
	Remaining int `json:"remaining"`
}

// Stable error codes for the frontend.
const (
	codeUnauthenticated   = "unauthenticated"
	codeUserNotFound      = "user_not_found"
	codeInvalidRequest    = "invalid_request"
	codeQuotaExceeded     = "quota_exceeded"
	codeIPRateLimited     = "ip_rate_limited"
	codeResourceExhausted = "RESOURCE_EXHAUSTED"
	codeJobFailed         = "job_failed"
	codePollExhausted     = "poll_exhausted"
	codeTimeout           = "timeout"
	codeServerError       = "server_error"
)
