package launcher

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// BindReason classifies why a listener could not be acquired.
type BindReason string

const (
	ReasonAddrInUse   BindReason = "address-in-use"
	ReasonPermission  BindReason = "permission-denied"
	ReasonInvalidAddr BindReason = "invalid-address"
	ReasonUnknown     BindReason = "unknown"
)

// BindError is fatal: the network listener could not be acquired. The
// process is expected to exit non-zero after logging the specific reason.
type BindError struct {
	Addr   string
	Reason BindReason
	Err    error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %s: %v", e.Addr, e.Reason, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// HandlerInitError is fatal: the delegated application handler failed to
// initialize. The listener acquired for it has already been released.
type HandlerInitError struct {
	Err error
}

func (e *HandlerInitError) Error() string {
	return fmt.Sprintf("application handler init: %v", e.Err)
}

func (e *HandlerInitError) Unwrap() error { return e.Err }

// classifyBind distinguishes address-in-use, permission-denied, and
// invalid-address failures so operators see the actual cause, not a generic
// listen error.
func classifyBind(addr string, err error) *BindError {
	be := &BindError{Addr: addr, Reason: ReasonUnknown, Err: err}

	switch {
	case errors.Is(err, syscall.EADDRINUSE):
		be.Reason = ReasonAddrInUse
	case errors.Is(err, syscall.EACCES):
		be.Reason = ReasonPermission
	default:
		var addrErr *net.AddrError
		var dnsErr *net.DNSError
		if errors.As(err, &addrErr) || errors.As(err, &dnsErr) {
			be.Reason = ReasonInvalidAddr
		}
	}

	return be
}
