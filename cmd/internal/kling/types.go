package kling

import "fmt"

const (
	tryOnPath      = "/v1/images/kolors-virtual-try-on"
	tryOnModelName = "kolors-virtual-try-on-v1"

	videoPath      = "/v1/images/qingque-img2video"
	videoModelName = "kling-v1"
)

// Remote task statuses. Anything else is treated as a still-running
// intermediate state and polled again.
const (
	statusSubmitted = "submitted"
	statusSucceed   = "succeed"
	statusFailed    = "failed"
)

// VideoParams are the caller-supplied knobs for an image-to-video task.
type VideoParams struct {
	Prompt         string
	NegativePrompt string
	CfgScale       float64
	Mode           string // "std" or "pro"
	Duration       string // "5" or "10" (seconds, remote expects a string)
}

// Validate checks the parameter ranges the remote enforces, so bad input
// fails before a quota charge or an HTTP round trip.
func (p VideoParams) Validate() error {
	if p.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidParams)
	}
	if p.CfgScale < 0 || p.CfgScale > 1 {
		return fmt.Errorf("%w: cfg_scale %v outside [0,1]", ErrInvalidParams, p.CfgScale)
	}
	if p.Mode != "std" && p.Mode != "pro" {
		return fmt.Errorf("%w: mode %q (want std or pro)", ErrInvalidParams, p.Mode)
	}
	if p.Duration != "5" && p.Duration != "10" {
		return fmt.Errorf("%w: duration %q (want \"5\" or \"10\")", ErrInvalidParams, p.Duration)
	}
	return nil
}

type tryOnRequest struct {
	ModelName  string `json:"model_name"`
	HumanImage string `json:"human_image"`
	ClothImage string `json:"cloth_image"`
}

type videoRequest struct {
	ModelName      string  `json:"model_name"`
	Image          string  `json:"image"`
	Prompt         string  `json:"prompt"`
	CfgScale       float64 `json:"cfg_scale"`
	Mode           string  `json:"mode"`
	Duration       string  `json:"duration"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
}

// taskEnvelope is the common response wrapper of both creation and status
// endpoints.
type taskEnvelope struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Data    taskData `json:"data"`
}

type taskData struct {
	TaskID        string      `json:"task_id"`
	TaskStatus    string      `json:"task_status"`
	TaskStatusMsg string      `json:"task_status_msg"`
	TaskResult    *taskResult `json:"task_result"`
}

type taskResult struct {
	Images []resultURL `json:"images"`
	Videos []resultURL `json:"video"`
}

type resultURL struct {
	URL string `json:"url"`
}

func firstImageURL(res *taskResult) string {
	if res == nil || len(res.Images) == 0 {
		return ""
	}
	return res.Images[0].URL
}

func firstVideoURL(res *taskResult) string {
	if res == nil || len(res.Videos) == 0 {
		return ""
	}
	return res.Videos[0].URL
}
