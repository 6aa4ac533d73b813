// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

const (
	securePrefix    = "[S]  "
	nonSecurePrefix = "[NS] "
)

// Console is an interactive terminal shared by log output and command input.
type Console struct {
	Term *term.Terminal
}

func NewConsole(rw io.ReadWriter, prompt string) *Console {
	return &Console{Term: term.NewTerminal(rw, prompt)}
}

func (c *Console) ReadLine() (string, error) {
	return c.Term.ReadLine()
}

func (c *Console) Printf(format string, v ...any) {
	fmt.Fprintf(c.Term, format, v...)
}

var (
	logMutex     sync.Mutex
	secureLog    bytes.Buffer
	nonSecureLog bytes.Buffer
)

// BufferedLog accumulates single byte writes per security state and flushes
// complete lines to w, so that output from both worlds never interleaves
// within a line.
func BufferedLog(c byte, secure bool, w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()

	buf := &nonSecureLog
	prefix := nonSecurePrefix

	if secure {
		buf = &secureLog
		prefix = securePrefix
	}

	buf.WriteByte(c)

	if c != '\n' {
		return
	}

	io.WriteString(w, prefix)
	w.Write(buf.Bytes())
	buf.Reset()
}

func BufferedStdoutLog(c byte, secure bool) {
	BufferedLog(c, secure, os.Stdout)
}

func BufferedTermLog(c byte, secure bool, t *term.Terminal) {
	BufferedLog(c, secure, t)
}
