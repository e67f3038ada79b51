package redlock

import (
	"fmt"
	"strings"
)

// InvalidParameterError reports a caller-supplied argument that fails
// validation before any server is contacted.
type InvalidParameterError struct {
	Message string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("redlock: invalid parameter: %s", e.Message)
}

func invalidParameter(format string, args ...interface{}) *InvalidParameterError {
	return &InvalidParameterError{Message: fmt.Sprintf(format, args...)}
}

// LockAcquisitionFailedError is raised by WithLock (never by Acquire) when
// no majority of servers granted the lock within the configured retries.
type LockAcquisitionFailedError struct {
	Keys []string
}

func (e *LockAcquisitionFailedError) Error() string {
	if len(e.Keys) == 1 {
		return fmt.Sprintf("failed to acquire lock for resource: %s", e.Keys[0])
	}
	return fmt.Sprintf("failed to acquire lock for resource: [%s]", strings.Join(e.Keys, ", "))
}

// LockExtensionFailedError wraps a transport-level error observed while
// extending a held lock. Neither Handle.Extend nor Manager.Extend returns
// it: the fan-out demotes per-server transport errors to false, so a failed
// extension, including a "lost majority" outcome, is reported as
// (false, nil).
type LockExtensionFailedError struct {
	Keys  []string
	Cause error
}

func (e *LockExtensionFailedError) Error() string {
	return fmt.Sprintf("redlock: extension failed for %v: %v", e.Keys, e.Cause)
}

func (e *LockExtensionFailedError) Unwrap() error {
	return e.Cause
}

// serverScriptError wraps a single server's transport or script failure.
// It never escapes a fan-out; it is only ever logged, and the fan-out
// demotes it to a plain false result.
type serverScriptError struct {
	serverIndex int
	cause       error
}

func (e *serverScriptError) Error() string {
	return fmt.Sprintf("redlock: server[%d] script error: %v", e.serverIndex, e.cause)
}

func (e *serverScriptError) Unwrap() error {
	return e.cause
}
