package utils

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	InvalidArgument ErrorKind = iota + 1
	InvalidResource
	ConnectionError
	IOError
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidResource = errors.New("invalid resource")
	ErrConnection      = errors.New("connection error")
	ErrIO              = errors.New("i/o error")
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case InvalidResource:
		return "InvalidResource"
	case ConnectionError:
		return "ConnectionError"
	case IOError:
		return "IOError"
	default:
		return "Unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case InvalidArgument:
		return ErrInvalidArgument
	case InvalidResource:
		return ErrInvalidResource
	case ConnectionError:
		return ErrConnection
	case IOError:
		return ErrIO
	default:
		return nil
	}
}

// DownloadError tags a failure with its kind. Chunk is -1 outside chunk fetches.
type DownloadError struct {
	Kind  ErrorKind
	Op    string
	Chunk int
	Err   error
}

func NewError(kind ErrorKind, op string, err error) *DownloadError {
	return &DownloadError{Kind: kind, Op: op, Chunk: -1, Err: err}
}

func NewChunkError(kind ErrorKind, chunk int, err error) *DownloadError {
	return &DownloadError{Kind: kind, Op: "fetch", Chunk: chunk, Err: err}
}

func (e *DownloadError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("%s: chunk %d: %s: %v", e.Op, e.Chunk, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

func (e *DownloadError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf reports the kind of a tagged error, or 0 when err carries none.
func KindOf(err error) ErrorKind {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
