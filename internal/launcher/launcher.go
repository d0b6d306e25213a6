// Package launcher binds the service listener and runs the delegated HTTP
// application behind it. A successful bind is the single source of truth for
// readiness; nothing reports ready before the socket is held.
package launcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/avoronin/runway/internal/config"
)

// AppFactory produces the delegated application handler. It runs after the
// bind succeeds; a failure releases the listener and aborts startup.
type AppFactory func() (http.Handler, error)

// Handle owns the live listener and the HTTP server delegating to the
// application handler. It is created by Start and destroyed by Shutdown or
// Close; at most one Handle per port is alive at a time.
type Handle struct {
	listener net.Listener
	server   *http.Server
	logger   *zap.Logger
}

// Start binds a TCP listener on cfg.Host:cfg.Port, initializes the delegated
// application, and serves it in a background goroutine. It returns a
// *BindError when the listener cannot be acquired and a *HandlerInitError
// when the application factory fails.
func Start(cfg config.Config, factory AppFactory, logger *zap.Logger) (*Handle, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, classifyBind(addr, err)
	}

	handler, err := factory()
	if err != nil {
		_ = ln.Close()
		return nil, &HandlerInitError{Err: err}
	}

	h := &Handle{
		listener: ln,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		logger: logger,
	}

	go func() {
		logger.Info("listener bound", zap.String("addr", ln.Addr().String()))
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}()

	return h, nil
}

// Addr returns the bound listener address.
func (h *Handle) Addr() net.Addr {
	return h.listener.Addr()
}

// Shutdown stops accepting connections and drains in-flight requests until
// ctx expires, then force-closes whatever remains. The socket is fully
// released when Shutdown returns.
func (h *Handle) Shutdown(ctx context.Context) error {
	if err := h.server.Shutdown(ctx); err != nil {
		if closeErr := h.server.Close(); closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}
	return nil
}

// Close releases the listener and all connections immediately.
func (h *Handle) Close() error {
	return h.server.Close()
}
