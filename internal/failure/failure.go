// Package failure classifies pipeline errors by kind. Only FilesystemError
// and ProviderError are fatal; the other kinds are recovered locally by the
// component that detects them.
package failure

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure.
type Kind int

const (
	Unknown Kind = iota
	ExtractionMiss
	PathCollision
	ParseError
	LogLineMismatch
	FilesystemError
	ProviderError
)

func (k Kind) String() string {
	switch k {
	case ExtractionMiss:
		return "extraction_miss"
	case PathCollision:
		return "path_collision"
	case ParseError:
		return "parse_error"
	case LogLineMismatch:
		return "log_line_mismatch"
	case FilesystemError:
		return "filesystem_error"
	case ProviderError:
		return "provider_error"
	default:
		return "unknown"
	}
}

// Fatal reports whether a failure of this kind aborts the pipeline.
func (k Kind) Fatal() bool {
	return k == FilesystemError || k == ProviderError
}

// Error is an error tagged with its Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind with a formatted cause.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with kind. It returns nil if err is nil.
func Wrap(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Filesystem wraps an I/O error on path.
func Filesystem(op, path string, err error) error {
	return Wrap(FilesystemError, op, path, err)
}

// Provider wraps an error returned by the filing provider.
func Provider(op string, err error) error {
	return Wrap(ProviderError, op, "", err)
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// IsFatal reports whether err should abort the pipeline. Untagged errors are
// treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	k := KindOf(err)
	return k == Unknown || k.Fatal()
}
