// Error wrapper recording where it was created.
//
// Usage:
//
// ```
// wrapped := xerrors.Wrap(err)
// ```
//
// `wrapped` carries the filename, line and function name of the wrapping
// site. Messages of nested wrappers chain with "<-", so a single error
// string reads as the propagation path of the failure.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

type ErrWithCaller struct {
	file     string
	line     int
	funcname string
	note     string
	err      error
}

func (e *ErrWithCaller) File() string {
	return e.file
}

func (e *ErrWithCaller) Line() int {
	return e.line
}

func (e *ErrWithCaller) Error() string {
	note := ""
	if e.note != "" {
		note = fmt.Sprintf(" (%s)", e.note)
	}
	return fmt.Sprintf(`@ %s "%s" l%d%s <- %s`, e.funcname, e.file, e.line, note, e.err.Error())
}

func (e *ErrWithCaller) Unwrap() error {
	return e.err
}

func New(text string) error {
	return wrap("", errors.New(text), 1)
}

func Wrap(err error) error {
	return wrap("", err, 1)
}

// WrapAsOuter marks err with the caller `depth` frames above the caller of
// this function. Error-constructor helpers use it so that the recorded
// location is the helper's caller, not the helper itself.
func WrapAsOuter(err error, depth int) error {
	return wrap("", err, depth+1)
}

func WrapWithNote(note string, err error) error {
	return wrap(note, err, 1)
}

func wrap(note string, err error, depth int) error {
	pc, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		file, line = "?", -1
	}

	funcname := "(unknown func)"
	if fn := runtime.FuncForPC(pc); fn != nil {
		funcname = fn.Name()
	}

	return &ErrWithCaller{
		funcname: funcname,
		file:     file,
		line:     line,
		note:     note,
		err:      err,
	}
}
