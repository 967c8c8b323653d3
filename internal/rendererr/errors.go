// Package rendererr defines the typed error kinds the render core raises.
package rendererr

import (
	"errors"
	"fmt"
)

// Kind classifies a render failure per its propagation policy.
type Kind int

const (
	// KindConfig covers invalid or out-of-bounds EDL values.
	KindConfig Kind = iota
	// KindSource covers file-not-found, unsupported codec, seek failures.
	KindSource
	// KindAllocation covers frame-pool allocation failure.
	KindAllocation
	// KindConvert covers scaler init or per-frame conversion failure.
	KindConvert
	// KindEncode covers encoder rejection or write I/O failure.
	KindEncode
	// KindCancelled covers cooperative cancellation.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindSource:
		return "SourceError"
	case KindAllocation:
		return "AllocationError"
	case KindConvert:
		return "ConvertError"
	case KindEncode:
		return "EncodeError"
	case KindCancelled:
		return "Cancelled"
	default:
		return "UnknownError"
	}
}

// ExitCode maps a Kind to the CLI exit code contract.
func (k Kind) ExitCode() int {
	switch k {
	case KindConfig:
		return 1
	case KindSource:
		return 2
	case KindEncode:
		return 3
	case KindCancelled:
		return 130
	default:
		return 1
	}
}

// Error is a render failure tagged with its Kind and the offending clip
// index or source URI, so the CLI can print a single-line diagnostic naming
// both.
type Error struct {
	Kind      Kind
	ClipIndex int // -1 if not clip-scoped
	URI       string
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.URI != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.URI, e.Err)
	case e.ClipIndex >= 0:
		return fmt.Sprintf("%s: clip %d: %v", e.Kind, e.ClipIndex, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, err error) *Error {
	return &Error{Kind: k, ClipIndex: -1, Err: err}
}

// Config wraps err as a ConfigError.
func Config(format string, args ...any) *Error {
	return newErr(KindConfig, fmt.Errorf(format, args...))
}

// ConfigClip wraps err as a ConfigError scoped to a clip index.
func ConfigClip(clipIndex int, format string, args ...any) *Error {
	e := newErr(KindConfig, fmt.Errorf(format, args...))
	e.ClipIndex = clipIndex
	return e
}

// Source wraps err as a SourceError scoped to a source URI.
func Source(uri string, err error) *Error {
	e := newErr(KindSource, err)
	e.URI = uri
	return e
}

// Allocation wraps err as an AllocationError.
func Allocation(err error) *Error { return newErr(KindAllocation, err) }

// Convert wraps err as a ConvertError.
func Convert(err error) *Error { return newErr(KindConvert, err) }

// Encode wraps err as an EncodeError.
func Encode(err error) *Error { return newErr(KindEncode, err) }

// Cancelled returns a Cancelled error with a fixed "render cancelled" message.
func Cancelled() *Error { return newErr(KindCancelled, errors.New("render cancelled")) }

// As extracts the Kind of err, if it is (or wraps) a *Error. Returns
// (KindEncode, false) when err is not a rendererr.Error — callers should
// treat the ok=false case as an unclassified failure.
func As(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindEncode, false
}
