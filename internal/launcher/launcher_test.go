package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/avoronin/runway/internal/config"
)

func testConfig(port int) config.Config {
	return config.Config{
		Port:              port,
		Host:              "127.0.0.1",
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func okFactory() (http.Handler, error) {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), nil
}

func TestStartServesAndShutsDown(t *testing.T) {
	logger := zaptest.NewLogger(t)

	h, err := Start(testConfig(0), okFactory, logger)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/", h.Addr()))
	if err != nil {
		t.Fatalf("request to bound listener failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 from delegate, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	if _, err := net.DialTimeout("tcp", h.Addr().String(), 100*time.Millisecond); err == nil {
		t.Fatalf("expected socket to be released after Shutdown")
	}
}

func TestStartAddrInUse(t *testing.T) {
	logger := zaptest.NewLogger(t)

	first, err := Start(testConfig(0), okFactory, logger)
	if err != nil {
		t.Fatalf("first Start returned error: %v", err)
	}
	defer first.Close()

	port := first.Addr().(*net.TCPAddr).Port
	_, err = Start(testConfig(port), okFactory, logger)
	if err == nil {
		t.Fatalf("expected second bind on port %d to fail", port)
	}

	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("expected *BindError, got %T: %v", err, err)
	}
	if bindErr.Reason != ReasonAddrInUse {
		t.Fatalf("expected reason %s, got %s", ReasonAddrInUse, bindErr.Reason)
	}

	// The first listener must be untouched by the failed second bind.
	resp, err := http.Get(fmt.Sprintf("http://%s/", first.Addr()))
	if err != nil {
		t.Fatalf("first listener no longer serving: %v", err)
	}
	resp.Body.Close()
}

func TestStartInvalidAddress(t *testing.T) {
	logger := zaptest.NewLogger(t)

	cfg := testConfig(8080)
	cfg.Host = "invalid.host.name.that.does.not.resolve.example"

	_, err := Start(cfg, okFactory, logger)
	if err == nil {
		t.Fatalf("expected bind to an unresolvable host to fail")
	}

	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("expected *BindError, got %T: %v", err, err)
	}
	if bindErr.Reason != ReasonInvalidAddr && bindErr.Reason != ReasonUnknown {
		t.Fatalf("unexpected reason for unresolvable host: %s", bindErr.Reason)
	}
}

func TestStartHandlerInitFailure(t *testing.T) {
	logger := zaptest.NewLogger(t)

	failing := func() (http.Handler, error) {
		return nil, errors.New("template directory missing")
	}

	_, err := Start(testConfig(0), failing, logger)
	if err == nil {
		t.Fatalf("expected handler init failure")
	}

	var initErr *HandlerInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected *HandlerInitError, got %T: %v", err, err)
	}
}

func TestStartReleasesPortAfterInitFailure(t *testing.T) {
	logger := zaptest.NewLogger(t)

	// Reserve a concrete port, release it, then fail handler init on it and
	// confirm the port can be bound again afterwards.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("probe listen failed: %v", err)
	}
	port := probe.Addr().(*net.TCPAddr).Port
	probe.Close()

	failing := func() (http.Handler, error) {
		return nil, errors.New("boom")
	}
	if _, err := Start(testConfig(port), failing, logger); err == nil {
		t.Fatalf("expected handler init failure")
	}

	h, err := Start(testConfig(port), okFactory, logger)
	if err != nil {
		t.Fatalf("expected port to be free after init failure, got %v", err)
	}
	h.Close()
}
