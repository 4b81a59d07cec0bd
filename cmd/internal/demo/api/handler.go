// Package demoapi exposes the authenticated demo endpoints consumed by the
// web frontend: job submission and the remaining-count read.
package demoapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trymylook/cmd/internal/demo"
	"trymylook/cmd/internal/kling"
)

// JobRunner abstracts the generation client.
type JobRunner interface {
	TryOn(ctx context.Context, humanImage, clothImage []byte) (string, error)
	ImageToVideo(ctx context.Context, image []byte, params kling.VideoParams) (string, error)
}

// Handler wires the demo HTTP endpoints to the quota store and job client.
type Handler struct {
	log *slog.Logger
	cfg Config

	store demo.Store
	jobs  JobRunner

	ips    IPLimiter // nil disables the IP window
	auth   Authenticator
	notify Notifier
	counts *demo.CountCache
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithIPLimiter enables the per-IP window.
func WithIPLimiter(l IPLimiter) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.ips = l
		}
	}
}

// WithAuthenticator overrides the default deny-all authenticator.
func WithAuthenticator(a Authenticator) HandlerOption {
	return func(h *Handler) {
		if a != nil {
			h.auth = a
		}
	}
}

// WithNotifier overrides the default no-op notifier.
func WithNotifier(n Notifier) HandlerOption {
	return func(h *Handler) {
		if n != nil {
			h.notify = n
		}
	}
}

// NewHandler constructs the demo API handler.
func NewHandler(log *slog.Logger, cfg Config, store demo.Store, jobs JobRunner, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("demoapi: nil store")
	}
	if jobs == nil {
		return nil, errors.New("demoapi: nil job runner")
	}

	h := &Handler{
		log:    log,
		cfg:    cfg,
		store:  store,
		jobs:   jobs,
		auth:   DenyAllAuthenticator{},
		notify: NoopNotifier{},
		counts: demo.NewCountCache(cfg.CountCacheTTL),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires demo routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/try-on", h.handleTryOn)
	mux.HandleFunc("/api/demo-count", h.handleDemoCount)
}

// ---- handlers ----

func (h *Handler) handleTryOn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	email, ok := h.auth.Principal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "not authenticated")
		return
	}

	// Coarse per-IP window before any store work.
	if h.ips != nil {
		ip := clientIP(r)
		res, err := h.ips.Allow(ctx, ip)
		if err != nil {
			// The quota gate behind this still enforces real limits, so a
			// window-store outage degrades to allow rather than an outage.
			h.log.Error("demo.ip_window.fail", "err", err)
		} else {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				admissionDenialsTotal.WithLabelValues("ip").Inc()
				h.log.Info("demo.ip_window.denied", "ip", ip)
				writeSalesError(w, http.StatusTooManyRequests, codeIPRateLimited,
					"Trial limit reached. Please mail "+h.cfg.ContactEmail+" to purchase a license or know more about our plans.")
				return
			}
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid multipart body")
		return
	}

	switch r.FormValue("requestType") {
	case requestTypeTryOn:
		h.submitTryOn(ctx, w, r, now, email)
	case requestTypeImg2Video:
		h.submitImg2Video(ctx, w, r, now, email)
	default:
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request type")
	}
}

func (h *Handler) submitTryOn(ctx context.Context, w http.ResponseWriter, r *http.Request, now time.Time, email string) {
	humanImage, err := readFilePart(r, "modelImage")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "missing required images")
		return
	}
	clothImage, err := readFilePart(r, "apparelImage")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "missing required images")
		return
	}

	created, ok := h.reserve(ctx, w, now, email)
	if !ok {
		return
	}

	url, err := h.jobs.TryOn(ctx, humanImage, clothImage)
	h.finish(ctx, w, email, requestTypeTryOn, created.DemoID, url, err)
}

func (h *Handler) submitImg2Video(ctx context.Context, w http.ResponseWriter, r *http.Request, now time.Time, email string) {
	image, err := readFilePart(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "missing required data")
		return
	}
	prompt := r.FormValue("prompt")
	if prompt == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "missing required data")
		return
	}

	cfgScale := 0.5
	if raw := r.FormValue("cfg_scale"); raw != "" {
		cfgScale, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid cfg_scale")
			return
		}
	}

	params := kling.VideoParams{
		Prompt:         prompt,
		NegativePrompt: r.FormValue("negative_prompt"),
		CfgScale:       cfgScale,
		Mode:           formValueDefault(r, "mode", "std"),
		Duration:       formValueDefault(r, "duration", "5"),
	}
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	created, ok := h.reserve(ctx, w, now, email)
	if !ok {
		return
	}

	url, err := h.jobs.ImageToVideo(ctx, image, params)
	h.finish(ctx, w, email, requestTypeImg2Video, created.DemoID, url, err)
}

// reserve runs the quota gate and writes the denial response itself when the
// submission must not proceed.
func (h *Handler) reserve(ctx context.Context, w http.ResponseWriter, now time.Time, email string) (demo.Created, bool) {
	created, err := h.store.Reserve(ctx, now, email, h.cfg.DemoResetPeriod)
	if err == nil {
		h.counts.Evict(email)
		return created, true
	}

	var qe *demo.QuotaExceededError
	switch {
	case errors.As(err, &qe):
		admissionDenialsTotal.WithLabelValues("quota").Inc()
		writeSalesError(w, http.StatusTooManyRequests, codeQuotaExceeded, qe.Error())
	case errors.Is(err, demo.ErrUserNotFound):
		writeError(w, http.StatusNotFound, codeUserNotFound, "user not found")
	default:
		h.log.Error("demo.reserve.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeServerError, "failed to create demo record")
	}
	return demo.Created{}, false
}

// finish records the terminal outcome and writes the response.
func (h *Handler) finish(ctx context.Context, w http.ResponseWriter, email, kind, demoID, url string, jobErr error) {
	if jobErr != nil {
		if err := h.store.Complete(ctx, time.Now().UTC(), demoID, demo.StatusFailed, ""); err != nil {
			h.log.Error("demo.complete.fail", "demo_id", demoID, "err", err)
		}
		submissionsTotal.WithLabelValues(kind, "error").Inc()
		h.writeJobError(w, jobErr)
		return
	}

	if err := h.store.Complete(ctx, time.Now().UTC(), demoID, demo.StatusCompleted, url); err != nil {
		h.log.Error("demo.complete.fail", "demo_id", demoID, "err", err)
	}

	// Best-effort: a failed notification never fails the submission.
	if err := h.notify.DemoSucceeded(ctx, email, url); err != nil {
		h.log.Warn("demo.notify.fail", "err", err)
	}

	submissionsTotal.WithLabelValues(kind, "ok").Inc()
	h.log.Info("demo.submission.ok", "kind", kind, "demo_id", demoID)
	writeJSON(w, http.StatusOK, resultResponse{Result: url})
}

func (h *Handler) writeJobError(w http.ResponseWriter, err error) {
	var jf *kling.JobFailedError

	switch {
	case kling.IsResourceExhausted(err):
		writeError(w, http.StatusTooManyRequests, codeResourceExhausted,
			"API usage limit reached. Please try again later or contact support for an upgrade.")
	case errors.As(err, &jf):
		h.log.Error("demo.job.failed", "task_id", jf.TaskID, "msg", jf.Message)
		writeError(w, http.StatusInternalServerError, codeJobFailed, jf.Message)
	case errors.Is(err, kling.ErrPollExhausted):
		writeError(w, http.StatusInternalServerError, codePollExhausted, "max retries reached while checking task status")
	case errors.Is(err, kling.ErrPollBudgetExceeded):
		writeError(w, http.StatusGatewayTimeout, codeTimeout, "generation did not complete in time; please try again")
	case errors.Is(err, kling.ErrInvalidParams):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	default:
		h.log.Error("demo.job.error", "err", err)
		writeError(w, http.StatusInternalServerError, codeServerError, "generation failed")
	}
}

func (h *Handler) handleDemoCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	email, ok := h.auth.Principal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "not authenticated")
		return
	}

	// Display path only; the enforcement decision in Reserve never reads
	// this cache.
	if n, ok := h.counts.Get(email); ok {
		writeJSON(w, http.StatusOK, remainingResponse{Remaining: n})
		return
	}

	n, err := h.store.Remaining(r.Context(), email)
	if errors.Is(err, demo.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, codeUserNotFound, "user not found")
		return
	}
	if err != nil {
		h.log.Error("demo.count.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeServerError, "failed to get demo count")
		return
	}

	h.counts.Set(email, n)
	writeJSON(w, http.StatusOK, remainingResponse{Remaining: n})
}

// ---- helpers ----

func readFilePart(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func formValueDefault(r *http.Request, field, def string) string {
	if v := r.FormValue(field); v != "" {
		return v
	}
	return def
}

// clientIP resolves the caller address: first forwarded-for entry, then the
// direct-connection header, then the connection address, then loopback.
func clientIP(r *http.Request) string {
	if raw := r.Header.Get("X-Forwarded-For"); raw != "" {
		if first := strings.TrimSpace(strings.Split(raw, ",")[0]); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil && host != "" {
		return host
	}
	return "127.0.0.1"
}
