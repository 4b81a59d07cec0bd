package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trymylook/cmd/security/token"
)

func testMux(cfg Config) *http.ServeMux {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := http.NewServeMux()
	registerHTTP(mux, log, cfg, nil, false, nil)
	return mux
}

func TestHealthz(t *testing.T) {
	mux := testMux(Config{})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestReadyz_NoDBRequired(t *testing.T) {
	mux := testMux(Config{})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestReadyz_DBRequiredButDisabled(t *testing.T) {
	mux := testMux(Config{ReadinessRequireDB: true})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestValidateSecurityConfig(t *testing.T) {
	t.Run("policy off", func(t *testing.T) {
		t.Setenv(token.HMACEnvKey, "")
		if err := ValidateSecurityConfig(Config{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("policy on, key missing", func(t *testing.T) {
		t.Setenv(token.HMACEnvKey, "")
		err := ValidateSecurityConfig(Config{RequirePrincipalHMAC: true})
		if err == nil || !strings.Contains(err.Error(), "missing") {
			t.Fatalf("err = %v, want missing-key policy error", err)
		}
	})

	t.Run("policy on, key too short", func(t *testing.T) {
		t.Setenv(token.HMACEnvKey, "short")
		err := ValidateSecurityConfig(Config{RequirePrincipalHMAC: true})
		if err == nil || !strings.Contains(err.Error(), "too short") {
			t.Fatalf("err = %v, want short-key policy error", err)
		}
	})

	t.Run("policy on, key ok", func(t *testing.T) {
		t.Setenv(token.HMACEnvKey, strings.Repeat("k", 32))
		if err := ValidateSecurityConfig(Config{RequirePrincipalHMAC: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestNonZeroDefaults(t *testing.T) {
	t.Parallel()

	if got := nonZeroInt(0, 7); got != 7 {
		t.Fatalf("nonZeroInt(0,7)=%d", got)
	}
	if got := nonZeroInt(3, 7); got != 3 {
		t.Fatalf("nonZeroInt(3,7)=%d", got)
	}
	if got := nonZeroDuration(0, 5); got != 5 {
		t.Fatalf("nonZeroDuration(0,5)=%v", got)
	}
}
