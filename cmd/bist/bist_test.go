// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/usbarmory/GoTEE-bist/bist"
	"github.com/usbarmory/GoTEE-bist/internal/config"
	"github.com/usbarmory/GoTEE-bist/internal/dal"
	"github.com/usbarmory/GoTEE-bist/internal/sample"
	"github.com/usbarmory/GoTEE-bist/util"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "Bist.acp")
	if err := os.WriteFile(path, []byte("test applet package"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := config.Default()
	c.Package = path

	orig := cfg
	cfg = c
	t.Cleanup(func() { cfg = orig })

	log.SetOutput(io.Discard)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	return c
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args    []string
		id      int32
		input   []byte
		wantErr bool
	}{
		{[]string{"0"}, 0, nil, false},
		{[]string{"1", "010203"}, 1, []byte{1, 2, 3}, false},
		{[]string{"0x63", "0xaa"}, 99, []byte{0xAA}, false},
		{[]string{"-1"}, -1, nil, false},
		{[]string{}, 0, nil, true},
		{[]string{"one"}, 0, nil, true},
		{[]string{"1", "zz"}, 0, nil, true},
		{[]string{"4294967296"}, 0, nil, true},
	}

	for _, tt := range tests {
		id, input, err := parseCommand(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("%v: err = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if err == nil && (id != tt.id || !bytes.Equal(input, tt.input)) {
			t.Errorf("%v: got (%d, %x)", tt.args, id, input)
		}
	}
}

func TestRunSample(t *testing.T) {
	c := testConfig(t)

	r := dal.NewRuntime()
	defer r.Close()

	if err := runSample(context.Background(), r, c); err != nil {
		t.Fatalf("runSample: %v", err)
	}

	// uninstalled after the run
	if _, err := r.CreateSession(c.AppID, nil); !errors.Is(err, dal.ErrAppletNotInstalled) {
		t.Fatalf("applet still installed: %v", err)
	}
}

func TestRunSampleKeepsApplet(t *testing.T) {
	c := testConfig(t)
	c.UninstallAfter = false

	r := dal.NewRuntime()
	defer r.Close()

	for i := 0; i < 2; i++ {
		if err := runSample(context.Background(), r, c); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}

func TestRunSampleSmallOutputBuffer(t *testing.T) {
	c := testConfig(t)
	c.OutputBuffer = len(sample.DefaultPayload) - 1

	r := dal.NewRuntime()
	defer r.Close()

	if err := runSample(context.Background(), r, c); !errors.Is(err, dal.ErrInsufficientBuffer) {
		t.Fatalf("got %v, want ErrInsufficientBuffer", err)
	}

	// a failed run still uninstalls
	if err := r.Uninstall(c.AppID); !errors.Is(err, dal.ErrTADoesNotExist) {
		t.Fatalf("applet left installed after failed run: %v", err)
	}
}

func TestRunSampleFailureKeepsAppletWhenAsked(t *testing.T) {
	c := testConfig(t)
	c.OutputBuffer = 1
	c.UninstallAfter = false

	r := dal.NewRuntime()
	defer r.Close()

	if err := runSample(context.Background(), r, c); !errors.Is(err, dal.ErrInsufficientBuffer) {
		t.Fatalf("got %v, want ErrInsufficientBuffer", err)
	}
	if err := r.Uninstall(c.AppID); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
}

func TestRunSampleMissingPackage(t *testing.T) {
	c := testConfig(t)
	c.Package = filepath.Join(t.TempDir(), "missing.acp")

	r := dal.NewRuntime()
	defer r.Close()

	err := runSample(context.Background(), r, c)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v, want not exist", err)
	}
	if errors.Is(err, dal.ErrTADoesNotExist) {
		t.Fatalf("uninstall of a never installed applet reported: %v", err)
	}
}

func TestInvokeOnce(t *testing.T) {
	testConfig(t)

	var out bytes.Buffer
	if err := invokeOnce(&out, bist.CmdEcho, []byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("invokeOnce: %v", err)
	}
	if !strings.Contains(out.String(), "status:   SUCCESS (0)") || !strings.Contains(out.String(), "010203") {
		t.Fatalf("output = %q", out.String())
	}

	out.Reset()
	if err := invokeOnce(&out, 99, []byte{0xAA}); err == nil {
		t.Fatal("unknown command reported success")
	}
	if !strings.Contains(out.String(), "UNKNOWN_COMMAND (2)") {
		t.Fatalf("output = %q", out.String())
	}
}

type scriptedTerminal struct {
	in  *strings.Reader
	out bytes.Buffer
}

func (s *scriptedTerminal) Read(p []byte) (int, error) {
	return s.in.Read(p)
}

func (s *scriptedTerminal) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func TestRunConsole(t *testing.T) {
	testConfig(t)

	rw := &scriptedTerminal{in: strings.NewReader("0\r1 0a0b\rbogus\rhelp\rquit\r")}

	r := dal.NewRuntime()
	defer r.Close()

	var logs bytes.Buffer
	log.SetOutput(&logs)

	if err := runConsole(util.NewConsole(rw, "bist> "), r); err != nil {
		t.Fatalf("runConsole: %v", err)
	}

	if log.Writer() != io.Writer(&logs) {
		t.Fatal("log output not restored after console exit")
	}

	out := rw.out.String()
	for _, want := range []string{"SUCCESS (0)", "0a0b", "invalid command id", "help | quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}
