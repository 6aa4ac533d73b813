// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bist

import (
	"bytes"
	"math"
	"math/rand"
	"testing"
)

func TestInvokeScenarios(t *testing.T) {
	tests := []struct {
		name       string
		cmd        int32
		input      []byte
		wantStatus Status
		wantRsp    []byte
	}{
		{"self-test", CmdSelfTest, nil, Success, []byte("SUCCESS")},
		{"echo", CmdEcho, []byte{0x01, 0x02, 0x03}, Success, []byte{0x01, 0x02, 0x03}},
		{"echo empty", CmdEcho, []byte{}, Failure, []byte("FAILURE")},
		{"echo nil", CmdEcho, nil, Failure, []byte("FAILURE")},
		{"echo too long", CmdEcho, make([]byte, MaxEchoLen+1), Failure, []byte("FAILURE")},
		{"unknown", 99, []byte{0xAA}, UnknownCommand, []byte("FAILURE")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, rsp := Invoke(tt.cmd, tt.input)
			if status != tt.wantStatus {
				t.Errorf("status = %v, want %v", status, tt.wantStatus)
			}
			if !bytes.Equal(rsp, tt.wantRsp) {
				t.Errorf("response = %q, want %q", rsp, tt.wantRsp)
			}
		})
	}
}

func TestStatusValues(t *testing.T) {
	if Success != 0 || Failure != 1 || UnknownCommand != 2 {
		t.Fatalf("status values changed: %d %d %d", Success, Failure, UnknownCommand)
	}
}

func TestSelfTestIgnoresInput(t *testing.T) {
	status, rsp := Invoke(CmdSelfTest, []byte("ignored"))
	if status != Success || string(rsp) != "SUCCESS" {
		t.Fatalf("got (%v, %q)", status, rsp)
	}
}

func TestEchoRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for n := 1; n <= MaxEchoLen; n++ {
		in := make([]byte, n)
		rng.Read(in)

		status, rsp := Invoke(CmdEcho, in)
		if status != Success {
			t.Fatalf("len %d: status = %v", n, status)
		}
		if !bytes.Equal(rsp, in) {
			t.Fatalf("len %d: response differs from input", n)
		}
	}
}

func TestEchoReturnsOwnedCopy(t *testing.T) {
	in := []byte("0123456")

	_, rsp := Invoke(CmdEcho, in)
	rsp[0] = 'X'

	if in[0] != '0' {
		t.Fatal("echo response aliases the input buffer")
	}
}

func TestEchoRejectsOversizedInput(t *testing.T) {
	for _, n := range []int{MaxEchoLen + 1, 1024, math.MaxUint16} {
		status, rsp := Invoke(CmdEcho, make([]byte, n))
		if status != Failure || string(rsp) != "FAILURE" {
			t.Fatalf("len %d: got (%v, %q)", n, status, rsp)
		}
	}
}

func TestUnknownCommands(t *testing.T) {
	ids := []int32{2, 3, 42, 99, 255, 256, -1, math.MinInt32, math.MaxInt32}

	for _, id := range ids {
		for _, in := range [][]byte{nil, {}, {0xAA}, make([]byte, 300)} {
			status, rsp := Invoke(id, in)
			if status != UnknownCommand || string(rsp) != "FAILURE" {
				t.Fatalf("id %d len %d: got (%v, %q)", id, len(in), status, rsp)
			}
		}
	}
}

func TestIdempotence(t *testing.T) {
	calls := []struct {
		cmd   int32
		input []byte
	}{
		{CmdSelfTest, nil},
		{CmdEcho, []byte{0x01, 0x02, 0x03}},
		{CmdEcho, nil},
		{7, []byte{0xAA}},
	}

	for _, c := range calls {
		s1, r1 := Invoke(c.cmd, c.input)
		for i := 0; i < 10; i++ {
			s2, r2 := Invoke(c.cmd, c.input)
			if s1 != s2 || !bytes.Equal(r1, r2) {
				t.Fatalf("cmd %d: call %d returned (%v, %q), first call (%v, %q)", c.cmd, i, s2, r2, s1, r1)
			}
		}
	}
}

func TestInvokeDetailedOutcome(t *testing.T) {
	tests := []struct {
		cmd   int32
		input []byte
		want  Outcome
	}{
		{CmdSelfTest, nil, OutcomeSuccess},
		{CmdEcho, []byte{1}, OutcomeSuccess},
		{CmdEcho, nil, OutcomeValidationFailure},
		{5, nil, OutcomeUnknownCommand},
	}

	for _, tt := range tests {
		var buf Buffer
		if _, got := (Handler{}).InvokeDetailed(tt.cmd, tt.input, &buf); got != tt.want {
			t.Errorf("cmd %d: outcome = %v, want %v", tt.cmd, got, tt.want)
		}
	}
}

func TestResponderStagesBeforeReturn(t *testing.T) {
	var rec recorder

	status := Handler{}.Invoke(CmdEcho, []byte{0x42}, &rec)

	if status != Success {
		t.Fatalf("status = %v", status)
	}
	if rec.calls != 1 || !bytes.Equal(rec.last, []byte{0x42}) {
		t.Fatalf("responder saw %d calls, last %v", rec.calls, rec.last)
	}
}

type recorder struct {
	calls int
	last  []byte
}

func (r *recorder) SetResponse(b []byte) {
	r.calls++
	r.last = b
}

func TestStatusString(t *testing.T) {
	if Success.String() != "SUCCESS" || UnknownCommand.String() != "UNKNOWN_COMMAND" {
		t.Fatal("unexpected status names")
	}
	if Status(9).String() != "Status(9)" {
		t.Fatalf("got %q", Status(9).String())
	}
}
