package process

import (
	"errors"
	"io/fs"
	"os/exec"
)

var (
	// ErrAlreadyRunning is returned by Start when the process is running.
	ErrAlreadyRunning = errors.New("process: already running")

	// ErrNoBinary is returned by Start when no binary is configured.
	ErrNoBinary = errors.New("process: no binary configured")
)

// RecoverableError is implemented by errors that know whether a restart
// can succeed.
type RecoverableError interface {
	error
	IsRecoverable() bool
}

// IsRecoverable reports whether the manager should keep restarting after
// err. Errors that do not implement RecoverableError are recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	var re RecoverableError
	if errors.As(err, &re) {
		return re.IsRecoverable()
	}
	return true
}

// startError wraps a failure to launch the binary. A missing or
// non-executable binary will not fix itself.
type startError struct {
	err error
}

func (e *startError) Error() string { return e.err.Error() }

func (e *startError) Unwrap() error { return e.err }

func (e *startError) IsRecoverable() bool {
	return !errors.Is(e.err, exec.ErrNotFound) &&
		!errors.Is(e.err, fs.ErrNotExist) &&
		!errors.Is(e.err, fs.ErrPermission)
}
