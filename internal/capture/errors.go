package capture

import "errors"

var (
	// ErrResourceUnavailable means a session could not start: not enough
	// space, or the device is busy, denied or broken. The cause is wrapped.
	ErrResourceUnavailable = errors.New("capture resource unavailable")

	ErrInsufficientSpace = errors.New("insufficient free space")
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceBusy        = errors.New("audio device busy")

	// ErrCaptureFailed marks a session that started but did not produce a usable artifact
	ErrCaptureFailed = errors.New("capture failed")

	ErrBusy      = errors.New("a capture session is already active")
	ErrNotActive = errors.New("no active capture session")
)
