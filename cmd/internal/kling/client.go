// Package kling is the client for the Kling generation API.
//
// It submits asynchronous image tasks (virtual try-on, image-to-video) and
// drives them to a terminal state by polling the status endpoint within a
// bounded wall-clock budget. Every outbound call carries a freshly signed
// short-lived bearer token.
package kling

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config controls the client. Zero values fall back to the defaults below.
type Config struct {
	BaseURL   string
	AccessKey string
	SecretKey string

	// MaxRetries bounds transport/API errors during polling, not the number
	// of "still processing" checks; those are bounded by PollBudget.
	MaxRetries   int
	InitialDelay time.Duration
	PollBudget   time.Duration
}

const (
	defaultBaseURL      = "https://api.klingai.com"
	defaultMaxRetries   = 5
	defaultInitialDelay = 5 * time.Second
	defaultPollBudget   = 55 * time.Second

	maxErrorBodyBytes = 2048
)

// Client talks to the Kling API. It is safe for concurrent use; all state is
// read-only after construction.
type Client struct {
	baseURL   string
	accessKey string
	secret    []byte

	httpClient *http.Client
	log        *slog.Logger

	maxRetries   int
	initialDelay time.Duration
	pollBudget   time.Duration

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// Option configures optional client dependencies.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(k *Client) {
		if c != nil {
			k.httpClient = c
		}
	}
}

// New constructs a Client. Missing credentials are a startup failure
// (ErrMissingCredentials), not a per-request one: a process that cannot sign
// tokens can never serve a submission.
func New(cfg Config, log *slog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, ErrMissingCredentials
	}
	if log == nil {
		log = slog.Default()
	}

	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		accessKey:    strings.TrimSpace(cfg.AccessKey),
		secret:       []byte(strings.TrimSpace(cfg.SecretKey)),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          log,
		maxRetries:   cfg.MaxRetries,
		initialDelay: cfg.InitialDelay,
		pollBudget:   cfg.PollBudget,
		sleep:        sleepContext,
		now:          time.Now,
	}

	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.initialDelay <= 0 {
		c.initialDelay = defaultInitialDelay
	}
	if c.pollBudget <= 0 {
		c.pollBudget = defaultPollBudget
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// TryOn submits a virtual try-on task for a human/cloth image pair and blocks
// until it resolves, returning the first output image URL.
func (c *Client) TryOn(ctx context.Context, humanImage, clothImage []byte) (string, error) {
	req := tryOnRequest{
		ModelName:  tryOnModelName,
		HumanImage: base64.StdEncoding.EncodeToString(humanImage),
		ClothImage: base64.StdEncoding.EncodeToString(clothImage),
	}

	taskID, err := c.createTask(ctx, tryOnPath, req)
	if err != nil {
		return "", err
	}
	return c.poll(ctx, tryOnPath+"/"+taskID, taskID, firstImageURL)
}

// ImageToVideo submits an image-to-video task and blocks until it resolves,
// returning the first output video URL.
func (c *Client) ImageToVideo(ctx context.Context, image []byte, params VideoParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	req := videoRequest{
		ModelName:      videoModelName,
		Image:          base64.StdEncoding.EncodeToString(image),
		Prompt:         params.Prompt,
		CfgScale:       params.CfgScale,
		Mode:           params.Mode,
		Duration:       params.Duration,
		NegativePrompt: params.NegativePrompt,
	}

	taskID, err := c.createTask(ctx, videoPath, req)
	if err != nil {
		return "", err
	}
	return c.poll(ctx, videoPath+"/"+taskID, taskID, firstVideoURL)
}

func (c *Client) createTask(ctx context.Context, path string, payload any) (string, error) {
	env, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return "", err
	}
	if env.Data.TaskID == "" {
		return "", ErrNoTaskID
	}
	c.log.Info("kling.task.created", "path", path, "task_id", env.Data.TaskID)
	return env.Data.TaskID, nil
}

// do performs one authenticated JSON call. Request bodies are never logged:
// they carry base64 image data.
func (c *Client) do(ctx context.Context, method, path string, payload any) (*taskEnvelope, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("kling: marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("kling: create request: %w", err)
	}

	bearer, err := signToken(c.accessKey, c.secret, c.now())
	if err != nil {
		return nil, fmt.Errorf("kling: sign token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("kling.request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kling: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		apiErr := &APIError{Status: resp.StatusCode, Body: string(raw)}
		c.log.Warn("kling.response.error", "method", method, "path", path, "status", resp.StatusCode)
		return nil, apiErr
	}

	var env taskEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("kling: decode response: %w", err)
	}

	c.log.Debug("kling.response", "method", method, "path", path, "status", resp.StatusCode, "task_status", env.Data.TaskStatus)
	return &env, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func mapDeadline(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrPollBudgetExceeded
	}
	return err
}
