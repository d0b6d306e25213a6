package main

import (
	"net"
	"net/http"
	"os"
	osSignal "os/signal"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/avoronin/runway/internal/config"
	"github.com/avoronin/runway/internal/launcher"
)

func TestWaitForShutdownSignals(t *testing.T) {
	t.Cleanup(func() {
		signalNotify = osSignal.Notify
	})

	signalNotify = func(ch chan<- os.Signal, sig ...os.Signal) {
		go func() {
			ch <- syscall.SIGTERM
		}()
	}

	logger := zaptest.NewLogger(t)
	cfg := config.Config{
		Port:              0,
		Host:              "127.0.0.1",
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	handle, err := launcher.Start(cfg, func() (http.Handler, error) {
		return http.NotFoundHandler(), nil
	}, logger)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	addr := handle.Addr().String()

	done := make(chan struct{})
	go func() {
		waitForShutdown(handle, nil, time.Second, logger)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("expected waitForShutdown to return after SIGTERM")
	}

	if _, err := net.DialTimeout("tcp", addr, 100*time.Millisecond); err == nil {
		t.Fatalf("expected listener socket to be closed after shutdown")
	}
}
