package extract

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("field not found")

type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusParseError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusParseError:
		return "parse_error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is what every extractor returns. Callers that only want the field
// value use String, which degrades both failure kinds to "".
type Result struct {
	Value  string
	Status Status
	err    error
}

func OK(value string) Result {
	return Result{Value: value, Status: StatusOK}
}

func NotFound() Result {
	return Result{Status: StatusNotFound, err: ErrNotFound}
}

func ParseError(err error) Result {
	return Result{Status: StatusParseError, err: err}
}

func (r Result) Found() bool {
	return r.Status == StatusOK
}

func (r Result) Err() error {
	return r.err
}

func (r Result) String() string {
	if r.Status != StatusOK {
		return ""
	}
	return r.Value
}
