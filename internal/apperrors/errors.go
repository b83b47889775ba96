package apperrors

import "fmt"

// ErrUnsupportedHost is returned when the library engine is forced for a host
// that is not in the capability table. Fatal for the task, the batch continues.
type ErrUnsupportedHost struct {
	Host string
}

// Error implements the error interface.
func (e *ErrUnsupportedHost) Error() string {
	return fmt.Sprintf("host %q is not supported by the library engine", e.Host)
}

// Is allows for error checking with errors.Is().
func (e *ErrUnsupportedHost) Is(target error) bool {
	_, ok := target.(*ErrUnsupportedHost)
	return ok
}

// NewUnsupportedHostError creates a new ErrUnsupportedHost.
func NewUnsupportedHostError(host string) *ErrUnsupportedHost {
	return &ErrUnsupportedHost{Host: host}
}

// ErrExtraction is returned when a host answered but no playable media was
// found. Not retryable.
type ErrExtraction struct {
	URL    string
	Reason string
}

// Error implements the error interface.
func (e *ErrExtraction) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no playable media at %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("no playable media at %s", e.URL)
}

// Is allows for error checking with errors.Is().
func (e *ErrExtraction) Is(target error) bool {
	_, ok := target.(*ErrExtraction)
	return ok
}

// NewExtractionError creates a new ErrExtraction.
func NewExtractionError(url, reason string) *ErrExtraction {
	return &ErrExtraction{URL: url, Reason: reason}
}

// ErrExtractionTimeout is returned when the network sniffer observed no
// qualifying traffic within its window. Treated as "no media found".
type ErrExtractionTimeout struct {
	URL     string
	Seconds float64
}

// Error implements the error interface.
func (e *ErrExtractionTimeout) Error() string {
	return fmt.Sprintf("no qualifying media traffic observed for %s within %.0fs", e.URL, e.Seconds)
}

// Is allows for error checking with errors.Is().
func (e *ErrExtractionTimeout) Is(target error) bool {
	_, ok := target.(*ErrExtractionTimeout)
	return ok
}

// NewExtractionTimeoutError creates a new ErrExtractionTimeout.
func NewExtractionTimeoutError(url string, seconds float64) *ErrExtractionTimeout {
	return &ErrExtractionTimeout{URL: url, Seconds: seconds}
}

// ErrBrowserLaunch is returned when the browser binary or its DevTools
// endpoint cannot be started. Fatal for the whole run, since no further
// sniffer call can succeed.
type ErrBrowserLaunch struct {
	BrowserPath string
	Cause       error
}

// Error implements the error interface.
func (e *ErrBrowserLaunch) Error() string {
	return fmt.Sprintf("failed to launch browser %q: %v", e.BrowserPath, e.Cause)
}

// Is allows for error checking with errors.Is().
func (e *ErrBrowserLaunch) Is(target error) bool {
	_, ok := target.(*ErrBrowserLaunch)
	return ok
}

// Unwrap exposes the underlying cause.
func (e *ErrBrowserLaunch) Unwrap() error {
	return e.Cause
}

// NewBrowserLaunchError creates a new ErrBrowserLaunch.
func NewBrowserLaunchError(browserPath string, cause error) *ErrBrowserLaunch {
	return &ErrBrowserLaunch{BrowserPath: browserPath, Cause: cause}
}

// ErrNetwork is a transport failure during extraction or download. Retryable
// by re-invoking the same task; the core never retries it on its own.
type ErrNetwork struct {
	URL   string
	Cause error
}

// Error implements the error interface.
func (e *ErrNetwork) Error() string {
	return fmt.Sprintf("network failure for %s: %v", e.URL, e.Cause)
}

// Is allows for error checking with errors.Is().
func (e *ErrNetwork) Is(target error) bool {
	_, ok := target.(*ErrNetwork)
	return ok
}

// Unwrap exposes the underlying cause.
func (e *ErrNetwork) Unwrap() error {
	return e.Cause
}

// NewNetworkError creates a new ErrNetwork.
func NewNetworkError(url string, cause error) *ErrNetwork {
	return &ErrNetwork{URL: url, Cause: cause}
}

// ErrFileSystem is a permission or path problem while writing an item.
// Recorded as a failed outcome for that item, the batch continues.
type ErrFileSystem struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *ErrFileSystem) Error() string {
	return fmt.Sprintf("filesystem error at %s: %v", e.Path, e.Cause)
}

// Is allows for error checking with errors.Is().
func (e *ErrFileSystem) Is(target error) bool {
	_, ok := target.(*ErrFileSystem)
	return ok
}

// Unwrap exposes the underlying cause.
func (e *ErrFileSystem) Unwrap() error {
	return e.Cause
}

// NewFileSystemError creates a new ErrFileSystem.
func NewFileSystemError(path string, cause error) *ErrFileSystem {
	return &ErrFileSystem{Path: path, Cause: cause}
}
