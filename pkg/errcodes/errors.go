package errcodes

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kinds of failure a scan run can produce. Only KindConfiguration and
// KindCacheWrite abort a run; the others are absorbed and reported.
const (
	KindConfiguration = "configuration"
	KindScanWarning   = "scan_warning"
	KindExtraction    = "extraction_failure"
	KindCacheWrite    = "cache_write_failure"
)

type Error struct {
	Kind    string
	Message string
	Path    string
	Err     error
}

func (err *Error) Error() string {
	msg := err.Message
	if err.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, err.Path)
	}
	if err.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err.Err.Error())
	}
	return msg
}

func (err *Error) Unwrap() error {
	return err.Err
}

// Is matches on Kind only, so errors.Is(err, errcodes.Configuration("", "", nil))
// holds for any configuration error.
func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.Kind == err.Kind
}

// Fatal reports whether an error of this kind aborts the run.
func (err *Error) Fatal() bool {
	return err.Kind == KindConfiguration || err.Kind == KindCacheWrite
}

// Configuration returns an error for an unusable cache location or config
// value. It is returned before any work is scheduled.
func Configuration(message, path string, cause error) error {
	return &Error{
		Kind:    KindConfiguration,
		Message: message,
		Path:    path,
		Err:     cause,
	}
}

// ScanWarning returns an error for a directory that could not be listed.
func ScanWarning(path string, cause error) error {
	return &Error{
		Kind:    KindScanWarning,
		Message: "directory could not be read",
		Path:    path,
		Err:     cause,
	}
}

// Extraction returns an error for a single archive that could not be parsed
// or analyzed.
func Extraction(path string, cause error) error {
	return &Error{
		Kind:    KindExtraction,
		Message: "extraction failed",
		Path:    path,
		Err:     cause,
	}
}

// CacheWrite returns an error for a failed append to the cache.
func CacheWrite(path string, cause error) error {
	return &Error{
		Kind:    KindCacheWrite,
		Message: "cache write failed",
		Path:    path,
		Err:     cause,
	}
}

// IsKind reports whether err, or anything it wraps, is an *Error of kind.
func IsKind(err error, kind string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
