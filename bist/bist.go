// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bist implements the built-in self-test applet command handler.
//
// The handler is stateless: every call allocates its own buffers and hands
// the response to the caller, through a Responder, before returning a status.
package bist

import "fmt"

// Command identifiers.
const (
	CmdSelfTest int32 = 0
	CmdEcho     int32 = 1
)

// MaxEchoLen is the largest input accepted by the echo command.
const MaxEchoLen = 256

// Status is the value returned to the host runtime.
type Status uint32

const (
	Success        Status = 0
	Failure        Status = 1
	UnknownCommand Status = 2
)

func (s Status) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	case UnknownCommand:
		return "UNKNOWN_COMMAND"
	default:
		return fmt.Sprintf("Status(%d)", uint32(s))
	}
}

// Outcome classifies a call beyond its wire status.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeValidationFailure
	OutcomeInternalTestFailure
	OutcomeUnknownCommand
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeValidationFailure:
		return "validation failure"
	case OutcomeInternalTestFailure:
		return "internal test failure"
	case OutcomeUnknownCommand:
		return "unknown command"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

func markerSuccess() []byte { return []byte("SUCCESS") }
func markerFailure() []byte { return []byte("FAILURE") }

// FailureResponse returns the response buffer of a failed command.
func FailureResponse() []byte { return markerFailure() }

// Responder stages the response buffer with the host runtime.
type Responder interface {
	SetResponse(b []byte)
}

// Buffer is a Responder that keeps the last staged response.
type Buffer struct {
	Response []byte
}

func (b *Buffer) SetResponse(p []byte) {
	b.Response = p
}

// Handler dispatches applet commands.
type Handler struct{}

// Invoke executes commandID against input, stages the response with rsp and
// returns the status.
func (h Handler) Invoke(commandID int32, input []byte, rsp Responder) Status {
	status, _ := h.invoke(commandID, input, rsp)
	return status
}

// InvokeDetailed is Invoke reporting the Outcome as well.
func (h Handler) InvokeDetailed(commandID int32, input []byte, rsp Responder) (Status, Outcome) {
	return h.invoke(commandID, input, rsp)
}

func (h Handler) invoke(commandID int32, input []byte, rsp Responder) (Status, Outcome) {
	switch commandID {
	case CmdSelfTest:
		if selfTest() == pass {
			rsp.SetResponse(markerSuccess())
			return Success, OutcomeSuccess
		}
		rsp.SetResponse(markerFailure())
		return Failure, OutcomeInternalTestFailure
	case CmdEcho:
		if len(input) == 0 || len(input) > MaxEchoLen {
			rsp.SetResponse(markerFailure())
			return Failure, OutcomeValidationFailure
		}
		out := make([]byte, len(input))
		copy(out, input)
		rsp.SetResponse(out)
		return Success, OutcomeSuccess
	default:
		rsp.SetResponse(markerFailure())
		return UnknownCommand, OutcomeUnknownCommand
	}
}

// Invoke runs a single command on a zero Handler and returns the status
// together with the response buffer.
func Invoke(commandID int32, input []byte) (Status, []byte) {
	var buf Buffer
	status := Handler{}.Invoke(commandID, input, &buf)
	return status, buf.Response
}
