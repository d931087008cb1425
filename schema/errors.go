package schema

import "errors"

var (
	// ErrUnavailable indicates there is nothing to capture or serve yet.
	ErrUnavailable = errors.New("no frame available")
	// ErrCaptureFailed indicates a grab or encode step failed.
	ErrCaptureFailed = errors.New("capture failed")
	// ErrTabNotFound indicates a requested tab could not be found.
	ErrTabNotFound = errors.New("tab not found")
	// ErrLastTab indicates a close was refused because only one tab remains.
	ErrLastTab = errors.New("cannot close the last tab")
	// ErrWindowClosed indicates the user closed the browser window.
	ErrWindowClosed = errors.New("window closed")
)
