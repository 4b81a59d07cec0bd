// Package main provides a CI-friendly smoke test for the trymylook demo API.
//
// It validates:
//   - /healthz and /readyz
//   - signed-principal auth on /api/demo-count
//   - optional end-to-end try-on submission when image paths are given
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"trymylook/cmd/security/token"
)

const principalHeader = "X-TML-Principal"

func main() {
	var (
		baseURL = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		email   = flag.String("email", "smoke@trymylook.com", "Principal email to sign")
		model   = flag.String("model", "", "Path to a model image; enables the submission step")
		apparel = flag.String("apparel", "", "Path to an apparel image; enables the submission step")
		timeout = flag.Duration("timeout", 10*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	key, err := token.KeyFromEnv(32)
	if err != nil {
		fatalf("principal key: %v (set %s)", err, token.HMACEnvKey)
	}
	principal := token.EncodePrincipal(*email, key)

	client := &http.Client{Timeout: 2 * time.Minute}
	base := strings.TrimRight(*baseURL, "/")

	step := func(name string, fn func(ctx context.Context) error) {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			fatalf("%s: %v", name, err)
		}
		if *verbose {
			fmt.Printf("ok: %s\n", name)
		}
	}

	step("healthz", func(ctx context.Context) error {
		return expectStatus(ctx, client, base+"/healthz", "", http.StatusOK)
	})
	step("readyz", func(ctx context.Context) error {
		return expectStatus(ctx, client, base+"/readyz", "", http.StatusOK)
	})
	step("demo-count unauthenticated", func(ctx context.Context) error {
		return expectStatus(ctx, client, base+"/api/demo-count", "", http.StatusUnauthorized)
	})

	var remaining int
	step("demo-count", func(ctx context.Context) error {
		n, err := demoCount(ctx, client, base, principal)
		if err != nil {
			return err
		}
		remaining = n
		return nil
	})
	fmt.Printf("remaining demos for %s: %d\n", *email, remaining)

	if *model == "" || *apparel == "" {
		fmt.Println("smoke ok (submission step skipped; pass -model and -apparel to enable)")
		return
	}

	// The submission blocks on generation, so it gets its own generous budget.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	url, err := submitTryOn(ctx, client, base, principal, *model, *apparel)
	if err != nil {
		fatalf("try-on: %v", err)
	}
	fmt.Printf("try-on result: %s\n", url)
	fmt.Println("smoke ok")
}

func expectStatus(ctx context.Context, client *http.Client, url, principal string, want int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if principal != "" {
		req.Header.Set(principalHeader, principal)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return fmt.Errorf("status %d, want %d", resp.StatusCode, want)
	}
	return nil
}

func demoCount(ctx context.Context, client *http.Client, base, principal string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/demo-count", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set(principalHeader, principal)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Remaining int `json:"remaining"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Remaining, nil
}

func submitTryOn(ctx context.Context, client *http.Client, base, principal, modelPath, apparelPath string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("requestType", "tryon"); err != nil {
		return "", err
	}
	if err := addFilePart(mw, "modelImage", modelPath); err != nil {
		return "", err
	}
	if err := addFilePart(mw, "apparelImage", apparelPath); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/try-on", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(principalHeader, principal)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Result == "" {
		return "", fmt.Errorf("empty result in response")
	}
	return out.Result, nil
}

func addFilePart(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fw, err := mw.CreateFormFile(field, field+".jpg")
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	return err
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "smoke failed: "+format+"\n", args...)
	os.Exit(1)
}
