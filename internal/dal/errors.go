// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dal

import "fmt"

// Code is a runtime status code.
type Code uint32

const (
	StatusSuccess            Code = 0x0000
	StatusAppletNotInstalled Code = 0x0404
	StatusInternalError      Code = 0x2001
	StatusInvalidParams      Code = 0x2002
	StatusInvalidHandle      Code = 0x2003
	StatusInvalidUUID        Code = 0x2004
	StatusInsufficientBuffer Code = 0x200C
	StatusInvalidPackage     Code = 0x2200
	StatusSessionsExist      Code = 0x2300
	StatusTADoesNotExist     Code = 0x2304
	StatusIdenticalPackage   Code = 0x2306
)

var codeNames = map[Code]string{
	StatusSuccess:            "success",
	StatusAppletNotInstalled: "applet not installed",
	StatusInternalError:      "internal error",
	StatusInvalidParams:      "invalid parameters",
	StatusInvalidHandle:      "invalid session handle",
	StatusInvalidUUID:        "invalid applet id",
	StatusInsufficientBuffer: "insufficient buffer",
	StatusInvalidPackage:     "invalid package",
	StatusSessionsExist:      "sessions exist",
	StatusTADoesNotExist:     "applet does not exist",
	StatusIdenticalPackage:   "identical package",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("status %#x", uint32(c))
}

// StatusError is returned by every Runtime operation that fails.
type StatusError struct {
	Code Code
	Op   string
	// Required holds the needed output buffer length for
	// StatusInsufficientBuffer.
	Required int
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s (%#04x)", e.Code, uint32(e.Code))

	if e.Code == StatusInsufficientBuffer {
		msg += fmt.Sprintf(", %d bytes required", e.Required)
	}

	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

// Is matches any StatusError carrying the same code.
func (e *StatusError) Is(target error) bool {
	t, ok := target.(*StatusError)
	return ok && t.Code == e.Code
}

var (
	ErrAppletNotInstalled = &StatusError{Code: StatusAppletNotInstalled}
	ErrInternal           = &StatusError{Code: StatusInternalError}
	ErrInvalidParams      = &StatusError{Code: StatusInvalidParams}
	ErrInvalidHandle      = &StatusError{Code: StatusInvalidHandle}
	ErrInvalidUUID        = &StatusError{Code: StatusInvalidUUID}
	ErrInsufficientBuffer = &StatusError{Code: StatusInsufficientBuffer}
	ErrInvalidPackage     = &StatusError{Code: StatusInvalidPackage}
	ErrSessionsExist      = &StatusError{Code: StatusSessionsExist}
	ErrTADoesNotExist     = &StatusError{Code: StatusTADoesNotExist}
	ErrIdenticalPackage   = &StatusError{Code: StatusIdenticalPackage}
)

func newError(op string, code Code) *StatusError {
	return &StatusError{Op: op, Code: code}
}
